package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain Prometheus metrics: embeddings, summaries, source fetches, cache.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SummaryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "summary_requests_total",
			Help:      "Total number of chat-completion summary requests",
		},
		[]string{"model", "status"},
	)

	SummaryRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "summary_request_duration_seconds",
			Help:      "Chat-completion summary request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	SummaryTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "summary_tokens_total",
			Help:      "Total chat-completion tokens consumed",
		},
		[]string{"model", "type"},
	)

	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "source_fetch_total",
			Help:      "Upstream catalog fetches by source and outcome",
		},
		[]string{"source", "status"},
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperdex",
			Name:      "source_fetch_duration_seconds",
			Help:      "Upstream catalog fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	CacheLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperdex",
			Name:      "cache_lookup_total",
			Help:      "Vector cache lookups by outcome",
		},
		[]string{"result"}, // "hit" / "miss" / "degraded"
	)
)

var domainMetricsRegistered bool

// RegisterDomainMetrics registers domain metrics. Must be called once from main.
func RegisterDomainMetrics() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(SummaryRequestsTotal)
	prometheus.MustRegister(SummaryRequestDuration)
	prometheus.MustRegister(SummaryTokensTotal)
	prometheus.MustRegister(SourceFetchTotal)
	prometheus.MustRegister(SourceFetchDuration)
	prometheus.MustRegister(CacheLookupTotal)
	domainMetricsRegistered = true
}
