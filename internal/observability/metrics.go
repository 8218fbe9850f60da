// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Mint metrics
	MintsTotal   prometheus.Counter
	MintFailures *prometheus.CounterVec
	MintDuration prometheus.Histogram
	ChainHeight  prometheus.Gauge
	RegistrySize prometheus.Gauge

	// Verification metrics
	VerifyRuns        *prometheus.CounterVec
	CorruptionLatched prometheus.Gauge

	// Archive metrics
	ArchiveWrites   *prometheus.CounterVec
	AnalyticsWrites *prometheus.CounterVec

	// Boundary metrics
	OracleQueries     prometheus.Counter
	ChainReads        prometheus.Counter
	StreamSubscribers prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quantum_nft_ledger"
	}

	return &Metrics{
		// Mint metrics
		MintsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "success_total",
			Help:      "Total number of successful mints",
		}),
		MintFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "failures_total",
			Help:      "Total number of failed mints by kind",
		}, []string{"kind"}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "duration_seconds",
			Help:      "Mint handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ChainHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "chain_height",
			Help:      "Current number of blocks in the chain, genesis included",
		}),
		RegistrySize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "registry_size",
			Help:      "Number of minted token identifiers",
		}),

		// Verification metrics
		VerifyRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "verify_runs_total",
			Help:      "Total number of chain verifications by status",
		}, []string{"status"}),
		CorruptionLatched: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "corruption_latched",
			Help:      "1 while the chain refuses appends after failed verification",
		}),

		// Archive metrics
		ArchiveWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "writes_total",
			Help:      "Total number of durable block writes by status",
		}, []string{"status"}),
		AnalyticsWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "analytics_writes_total",
			Help:      "Total number of mint event analytics writes by status",
		}, []string{"status"}),

		// Boundary metrics
		OracleQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boundary",
			Name:      "oracle_queries_total",
			Help:      "Total number of oracle queries served",
		}),
		ChainReads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boundary",
			Name:      "chain_reads_total",
			Help:      "Total number of full chain reads served",
		}),
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "boundary",
			Name:      "stream_subscribers",
			Help:      "Number of connected WebSocket block subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMint records a successful mint and the new chain height.
func RecordMint(durationSeconds float64, chainHeight int64) {
	DefaultMetrics.MintsTotal.Inc()
	DefaultMetrics.MintDuration.Observe(durationSeconds)
	DefaultMetrics.ChainHeight.Set(float64(chainHeight))
}

// RecordMintFailure records a failed mint by error kind.
func RecordMintFailure(kind string) {
	DefaultMetrics.MintFailures.WithLabelValues(kind).Inc()
}

// RecordVerify records a chain verification run.
func RecordVerify(status string) {
	DefaultMetrics.VerifyRuns.WithLabelValues(status).Inc()
	if status == "corrupt" {
		DefaultMetrics.CorruptionLatched.Set(1)
	}
}

// RecordArchiveWrite records a durable block write.
func RecordArchiveWrite(status string) {
	DefaultMetrics.ArchiveWrites.WithLabelValues(status).Inc()
}

// RecordAnalyticsWrite records a mint event analytics write.
func RecordAnalyticsWrite(status string) {
	DefaultMetrics.AnalyticsWrites.WithLabelValues(status).Inc()
}

// RecordOracleQuery increments the oracle queries counter.
func RecordOracleQuery() {
	DefaultMetrics.OracleQueries.Inc()
}

// RecordChainRead increments the chain reads counter.
func RecordChainRead() {
	DefaultMetrics.ChainReads.Inc()
}

// SetRegistrySize updates the registry size gauge.
func SetRegistrySize(n int) {
	DefaultMetrics.RegistrySize.Set(float64(n))
}

// SetStreamSubscribers updates the subscriber gauge.
func SetStreamSubscribers(n int) {
	DefaultMetrics.StreamSubscribers.Set(float64(n))
}
