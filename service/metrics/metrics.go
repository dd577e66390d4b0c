package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the indexer.
// It is passed explicitly to every component that records metrics;
// a nil *Metrics means "don't record".
type Metrics struct {
	// Solana RPC
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Ingestion
	transactionsMappedTotal *prometheus.CounterVec
	ingestItemFailures      *prometheus.CounterVec
	ingestRunDuration       *prometheus.HistogramVec
	ingestRunItems          *prometheus.CounterVec

	// NATS
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec

	// Sink
	sinkWritesTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures returned per getSignaturesForAddress call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),

		transactionsMappedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_mapped_total",
				Help: "Total number of raw transactions mapped to canonical records",
			},
			[]string{"status"},
		),
		ingestItemFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_item_failures_total",
				Help: "Per-signature ingestion failures by stage and error kind",
			},
			[]string{"stage", "kind"},
		),
		ingestRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Duration of ingestion runs in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"address", "status"},
		),
		ingestRunItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_run_items_total",
				Help: "Signatures handled by ingestion runs by outcome",
			},
			[]string{"address", "outcome"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),

		sinkWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_writes_total",
				Help: "Canonical records written to the sink database",
			},
			[]string{"status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// Ingestion metric helpers

// RecordTransactionMapped records a mapping attempt ("success" or "error").
func (m *Metrics) RecordTransactionMapped(status string) {
	m.transactionsMappedTotal.WithLabelValues(status).Inc()
}

// RecordItemFailure records a failed signature by pipeline stage and error kind.
func (m *Metrics) RecordItemFailure(stage, kind string) {
	m.ingestItemFailures.WithLabelValues(stage, kind).Inc()
}

// RecordRun records a completed ingestion run.
func (m *Metrics) RecordRun(address, status string, duration float64, published, failed, skipped int) {
	m.ingestRunDuration.WithLabelValues(address, status).Observe(duration)
	m.ingestRunItems.WithLabelValues(address, "published").Add(float64(published))
	m.ingestRunItems.WithLabelValues(address, "failed").Add(float64(failed))
	m.ingestRunItems.WithLabelValues(address, "skipped").Add(float64(skipped))
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Sink metric helpers

// RecordSinkWrite records a sink upsert attempt.
func (m *Metrics) RecordSinkWrite(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sinkWritesTotal.WithLabelValues(status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
