package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 13.6233, cfg.Map.CenterLat)
	assert.Equal(t, 123.194, cfg.Map.CenterLng)
	assert.Equal(t, 0.004, cfg.Simulation.RadiusDeg)
	assert.Equal(t, 0.03, cfg.Simulation.StepRad)
	assert.Equal(t, time.Second, cfg.Simulation.Tick)
	assert.True(t, cfg.GPS.Enabled)
	assert.True(t, cfg.GPS.HighAccuracy)
	assert.Equal(t, time.Second, cfg.GPS.MaximumAge)
	assert.Equal(t, 10*time.Second, cfg.GPS.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "./data/road-hazards.db", cfg.DB.Path)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1, ,192.168.0.0/16 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAP_CENTER_LAT", "14.5995")
	t.Setenv("MAP_CENTER_LNG", "120.9842")
	t.Setenv("SIM_TICK", "250ms")
	t.Setenv("GPS_ENABLED", "false")
	t.Setenv("GPS_TIMEOUT", "5s")
	t.Setenv("DB_PATH", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 14.5995, cfg.Map.CenterLat)
	assert.Equal(t, 120.9842, cfg.Map.CenterLng)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulation.Tick)
	assert.False(t, cfg.GPS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.GPS.Timeout)
	assert.Equal(t, ":memory:", cfg.DB.Path)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SIM_TICK", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Simulation.Tick)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SERVER_PORT", "70000", "invalid server port"},
		{"LOG_LEVEL", "verbose", "invalid log level"},
		{"MAP_CENTER_LAT", "91", "latitude"},
		{"MAP_CENTER_LNG", "-181", "longitude"},
		{"SIM_RADIUS_DEG", "0", "radius"},
		{"SIM_TICK", "1ms", "tick"},
		{"GPS_TIMEOUT", "0s", "GPS timeout"},
		{"RATE_LIMIT_RPS", "-1", "rate limit"},
		{"WORKER_COUNT", "0", "worker count"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
