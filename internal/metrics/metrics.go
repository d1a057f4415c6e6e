package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Engine metrics
	MessagesMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_messages_merged_total",
			Help: "Messages merged into the active timeline",
		},
		[]string{"source"}, // "optimistic", "confirmed", "realtime"
	)

	SendsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_sends_failed_total",
			Help: "Message sends that failed and were kept for retry",
		},
	)

	BatchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_ingest_batches_flushed_total",
			Help: "Debounced ingest batches flushed",
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatsync_ingest_batch_size",
			Help:    "Message ids per flushed ingest batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	BatchesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_ingest_batches_discarded_total",
			Help: "Batches discarded because the session changed mid-flight",
		},
	)

	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_enrichment_failures_total",
			Help: "Resource enrichments degraded to an error marker",
		},
		[]string{"resource_type"},
	)

	SubscriptionDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_subscription_drops_total",
			Help: "Realtime subscriptions dropped while a session was active",
		},
	)

	Resubscribes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_resubscribes_total",
			Help: "Successful resubscriptions after a drop",
		},
	)

	DirectoryRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_directory_refreshes_total",
			Help: "Session directory refreshes",
		},
	)

	// Infrastructure metrics
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_backend_latency_seconds",
			Help:    "Backend fetch/send latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"op"},
	)
)
