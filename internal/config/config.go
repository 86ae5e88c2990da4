package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Worker     WorkerConfig
	Map        MapConfig
	Simulation SimulationConfig
	GPS        GPSConfig
	RateLimit  RateLimitConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address is
	// always the client.
	TrustedProxies  []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type MapConfig struct {
	CenterLat float64
	CenterLng float64
}

type SimulationConfig struct {
	RadiusDeg float64
	StepRad   float64
	Tick      time.Duration
}

type GPSConfig struct {
	Enabled      bool
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// ClientTTL is how long an idle client's limiter is kept.
	ClientTTL time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustedProxies:  getEnvList("TRUSTED_PROXIES"),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 1),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Map: MapConfig{
			CenterLat: getEnvFloat("MAP_CENTER_LAT", 13.6233),
			CenterLng: getEnvFloat("MAP_CENTER_LNG", 123.194),
		},
		Simulation: SimulationConfig{
			RadiusDeg: getEnvFloat("SIM_RADIUS_DEG", 0.004),
			StepRad:   getEnvFloat("SIM_STEP_RAD", 0.03),
			Tick:      getEnvDuration("SIM_TICK", time.Second),
		},
		GPS: GPSConfig{
			Enabled:      getEnvBool("GPS_ENABLED", true),
			HighAccuracy: getEnvBool("GPS_HIGH_ACCURACY", true),
			MaximumAge:   getEnvDuration("GPS_MAX_AGE", 1000*time.Millisecond),
			Timeout:      getEnvDuration("GPS_TIMEOUT", 10000*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			RPS:       getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 10),
			ClientTTL: getEnvDuration("RATE_LIMIT_CLIENT_TTL", 10*time.Minute),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/road-hazards.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		return fmt.Errorf("invalid map center latitude: %v", c.Map.CenterLat)
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		return fmt.Errorf("invalid map center longitude: %v", c.Map.CenterLng)
	}

	if c.Simulation.RadiusDeg <= 0 {
		return fmt.Errorf("simulation radius must be positive")
	}
	if c.Simulation.Tick < 10*time.Millisecond {
		return fmt.Errorf("simulation tick must be at least 10ms")
	}

	if c.GPS.Timeout <= 0 {
		return fmt.Errorf("GPS timeout must be positive")
	}
	if c.GPS.MaximumAge < 0 {
		return fmt.Errorf("GPS maximum age must not be negative")
	}

	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
