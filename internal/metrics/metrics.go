// Package metrics defines the Prometheus instrumentation for the
// gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	SearchesTotal  prometheus.Counter
	CountsTotal    prometheus.Counter
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	UpstreamPages  *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec
}

// New creates and registers all metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "directory_searches_total",
			Help: "Total number of search requests served",
		}),
		CountsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "directory_counts_total",
			Help: "Total number of count requests served",
		}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_cache_hits_total",
			Help: "Cache hits by namespace",
		}, []string{"namespace"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_cache_misses_total",
			Help: "Cache misses by namespace",
		}, []string{"namespace"}),
		UpstreamPages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_upstream_pages_fetched_total",
			Help: "Pages fetched from upstream sources, by source name",
		}, []string{"source"}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_upstream_errors_total",
			Help: "Upstream fetch failures, by source name",
		}, []string{"source"}),
	}
}
