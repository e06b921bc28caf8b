// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the aggregator.
type Metrics struct {
	// Adapter metrics
	AdapterRuns     *prometheus.CounterVec
	AdapterRecords  *prometheus.CounterVec
	AdapterDuration *prometheus.HistogramVec

	// Store metrics
	StoreSize prometheus.Gauge

	// Live feed metrics
	LiveState  prometheus.Gauge
	LiveDials  prometheus.Counter
	LiveFrames *prometheus.CounterVec

	// Persistence metrics
	SummariesWritten *prometheus.CounterVec

	// Refresh metrics
	RefreshRuns     *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// Solana RPC
	RPCCallLatency *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_aggregator"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		AdapterRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "runs_total",
			Help:      "Total number of adapter fetches by source and status",
		}, []string{"source", "status"}),
		AdapterRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "records_stored_total",
			Help:      "Total number of records merged into the store by source",
		}, []string{"source"}),
		AdapterDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "duration_seconds",
			Help:      "Adapter fetch duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),

		StoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "tokens",
			Help:      "Number of distinct mints in the token store",
		}),

		LiveState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "state",
			Help:      "Live feed state (0 disconnected, 1 connecting, 2 connected)",
		}),
		LiveDials: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "dials_total",
			Help:      "Total number of live feed connection attempts",
		}),
		LiveFrames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "frames_total",
			Help:      "Total number of live frames by result",
		}, []string{"result"}),

		SummariesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "summaries_total",
			Help:      "Total number of summary appends by status",
		}, []string{"status"}),

		RefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of initialize and refresh runs by status",
		}, []string{"status"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Full fan-out duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last completed fan-out",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordAdapterRun records one adapter fetch.
func RecordAdapterRun(source, status string, stored int, seconds float64) {
	DefaultMetrics.AdapterRuns.WithLabelValues(source, status).Inc()
	DefaultMetrics.AdapterRecords.WithLabelValues(source).Add(float64(stored))
	DefaultMetrics.AdapterDuration.WithLabelValues(source).Observe(seconds)
}

// SetStoreSize updates the store size gauge.
func SetStoreSize(n int) {
	DefaultMetrics.StoreSize.Set(float64(n))
}

// SetLiveState updates the live feed state gauge. Entering state 1 counts a dial.
func SetLiveState(state int) {
	DefaultMetrics.LiveState.Set(float64(state))
	if state == 1 {
		DefaultMetrics.LiveDials.Inc()
	}
}

// RecordLiveFrame counts a live frame as handled or dropped.
func RecordLiveFrame(err error) {
	result := "handled"
	if err != nil {
		result = "dropped"
	}
	DefaultMetrics.LiveFrames.WithLabelValues(result).Inc()
}

// RecordSummaries records the outcome of a persistence batch.
func RecordSummaries(stored, failed int) {
	DefaultMetrics.SummariesWritten.WithLabelValues("stored").Add(float64(stored))
	DefaultMetrics.SummariesWritten.WithLabelValues("failed").Add(float64(failed))
}

// RecordRefresh records a completed fan-out.
func RecordRefresh(status string, seconds float64, unixSeconds int64) {
	DefaultMetrics.RefreshRuns.WithLabelValues(status).Inc()
	DefaultMetrics.RefreshDuration.Observe(seconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRefresh.Set(float64(unixSeconds))
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
