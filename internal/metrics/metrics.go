// Package metrics exposes search pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the search and enrichment layers.
type Recorder interface {
	RecordCacheHit(class string)
	RecordCacheMiss(class string)
	RecordStoreQuery(store, partition, op string, duration time.Duration, err error)
	RecordFallback(reason string)
	RecordEnrichmentFailure(kind string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	storeQueries       *prometheus.CounterVec
	storeLatency       *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
}

// NewCollector registers the search metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingsearch_cache_hits_total",
			Help: "Result cache hits by query class",
		}, []string{"class"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingsearch_cache_misses_total",
			Help: "Result cache misses by query class",
		}, []string{"class"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingsearch_store_queries_total",
			Help: "Store queries by store, partition, operation and outcome",
		}, []string{"store", "partition", "op", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listingsearch_store_query_seconds",
			Help:    "Store query latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"store", "op"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingsearch_fallbacks_total",
			Help: "Searches routed to the normalized store, by reason",
		}, []string{"reason"}),
		enrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listingsearch_enrichment_failures_total",
			Help: "Failed enrichment lookups by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.storeQueries,
		c.storeLatency,
		c.fallbacks,
		c.enrichmentFailures,
	)

	return c
}

func (c *Collector) RecordCacheHit(class string) {
	c.cacheHits.WithLabelValues(class).Inc()
}

func (c *Collector) RecordCacheMiss(class string) {
	c.cacheMisses.WithLabelValues(class).Inc()
}

// RecordStoreQuery counts one store round trip; err decides the outcome label.
func (c *Collector) RecordStoreQuery(store, partition, op string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.storeQueries.WithLabelValues(store, partition, op, outcome).Inc()
	c.storeLatency.WithLabelValues(store, op).Observe(duration.Seconds())
}

func (c *Collector) RecordFallback(reason string) {
	c.fallbacks.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordEnrichmentFailure(kind string) {
	c.enrichmentFailures.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordCacheHit(string) {}
func (Nop) RecordCacheMiss(string) {}
func (Nop) RecordStoreQuery(string, string, string, time.Duration, error) {}
func (Nop) RecordFallback(string) {}
func (Nop) RecordEnrichmentFailure(string) {}
