package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects pipeline and HTTP metrics
type Recorder interface {
	ObserveAttempt(weight string, score int)
	IncRowsAppended(weight string, forced bool)
	IncSkippedSaves(weight string)
	ObserveRefreshDuration(weight string, duration time.Duration)
	SetSeriesRows(weight string, count int)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

// Prometheus implements Recorder with prometheus collectors
type Prometheus struct {
	attempts        *prometheus.CounterVec
	scores          *prometheus.HistogramVec
	rowsAppended    *prometheus.CounterVec
	skippedSaves    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	seriesRows      *prometheus.GaugeVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg, or returns a no-op recorder when disabled
func New(enabled bool, reg prometheus.Registerer) Recorder {
	if !enabled {
		return Noop{}
	}

	factory := promauto.With(reg)
	return &Prometheus{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_scrape_attempts_total",
			Help: "Total number of scrape attempts",
		}, []string{"weight"}),

		scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldprice_scrape_completeness",
			Help:    "Number of vendors with a sell price per scrape attempt",
			Buckets: []float64{0, 1, 2, 3},
		}, []string{"weight"}),

		rowsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_rows_appended_total",
			Help: "Total number of rows appended to the price tables",
		}, []string{"weight", "forced"}),

		skippedSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_skipped_saves_total",
			Help: "Total number of refreshes that kept the table unchanged because data was incomplete",
		}, []string{"weight"}),

		refreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldprice_refresh_duration_seconds",
			Help:    "Duration of a full scrape and merge",
			Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
		}, []string{"weight"}),

		seriesRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goldprice_series_rows",
			Help: "Number of rows in the price table",
		}, []string{"weight"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldprice_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Prometheus) ObserveAttempt(weight string, score int) {
	m.attempts.WithLabelValues(weight).Inc()
	m.scores.WithLabelValues(weight).Observe(float64(score))
}

func (m *Prometheus) IncRowsAppended(weight string, forced bool) {
	m.rowsAppended.WithLabelValues(weight, strconv.FormatBool(forced)).Inc()
}

func (m *Prometheus) IncSkippedSaves(weight string) {
	m.skippedSaves.WithLabelValues(weight).Inc()
}

func (m *Prometheus) ObserveRefreshDuration(weight string, duration time.Duration) {
	m.refreshDuration.WithLabelValues(weight).Observe(duration.Seconds())
}

func (m *Prometheus) SetSeriesRows(weight string, count int) {
	m.seriesRows.WithLabelValues(weight).Set(float64(count))
}

func (m *Prometheus) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *Prometheus) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop is a no-op implementation for when metrics are disabled.
type Noop struct{}

func (Noop) ObserveAttempt(_ string, _ int)                   {}
func (Noop) IncRowsAppended(_ string, _ bool)                 {}
func (Noop) IncSkippedSaves(_ string)                         {}
func (Noop) ObserveRefreshDuration(_ string, _ time.Duration) {}
func (Noop) SetSeriesRows(_ string, _ int)                    {}
func (Noop) IncRequestsTotal(_ string, _ int)                 {}
func (Noop) ObserveRequestDuration(_ string, _ time.Duration) {}
