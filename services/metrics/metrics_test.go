package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	m := New(false, prometheus.NewRegistry())
	assert.IsType(t, Noop{}, m)

	// must not panic
	m.ObserveAttempt("1", 3)
	m.IncRequestsTotal("/api/gold-data", 200)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(true, reg)
	p, ok := m.(*Prometheus)
	require.True(t, ok)

	m.ObserveAttempt("1", 2)
	m.ObserveAttempt("1", 3)
	m.IncRowsAppended("1", false)
	m.IncRowsAppended("2", true)
	m.IncSkippedSaves("2")
	m.SetSeriesRows("1", 42)
	m.ObserveRefreshDuration("1", 3*time.Second)
	m.IncRequestsTotal("/api/gold-data", 404)
	m.ObserveRequestDuration("/api/gold-data", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.attempts.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rowsAppended.WithLabelValues("2", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.skippedSaves.WithLabelValues("2")))
	assert.Equal(t, 42.0, testutil.ToFloat64(p.seriesRows.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requestsTotal.WithLabelValues("/api/gold-data", "4xx")))
}

func TestHTTPStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", httpStatusBucket(200))
	assert.Equal(t, "4xx", httpStatusBucket(404))
	assert.Equal(t, "5xx", httpStatusBucket(500))
}
