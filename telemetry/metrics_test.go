package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveTick(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(2*time.Millisecond, 100, 7, 0)
	m.ObserveTick(3*time.Millisecond, 99, 3, 1)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		metric := mf.GetMetric()[0]
		switch {
		case metric.GetCounter() != nil:
			values[mf.GetName()] = metric.GetCounter().GetValue()
		case metric.GetGauge() != nil:
			values[mf.GetName()] = metric.GetGauge().GetValue()
		case metric.GetHistogram() != nil:
			values[mf.GetName()] = float64(metric.GetHistogram().GetSampleCount())
		}
	}

	assert.Equal(t, 2.0, values["flock_ticks_total"])
	assert.Equal(t, 2.0, values["flock_tick_duration_seconds"])
	assert.Equal(t, 99.0, values["flock_agents"])
	assert.Equal(t, 10.0, values["flock_clamped_forces_total"])
	assert.Equal(t, 1.0, values["flock_numeric_faults_total"])
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveTick(time.Millisecond, 1, 0, 0) })
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(time.Millisecond, 5, 0, 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "flock_agents 5"), "body:\n%s", body)
}
