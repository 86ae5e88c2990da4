package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.AlertsRaised.WithLabelValues("high").Inc()
	a.AlertsRaised.WithLabelValues("high").Inc()
	b.AlertsRaised.WithLabelValues("high").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.AlertsRaised.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.AlertsRaised.WithLabelValues("high")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := NewMetricsForTesting()

	m.SpeedKmh.Set(42)
	m.AlertActive.Set(1)

	assert.Equal(t, 42.0, testutil.ToFloat64(m.SpeedKmh))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertActive))
}
