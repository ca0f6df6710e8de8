package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("pan")
	c.RecordCacheHit("pan")
	c.RecordCacheMiss("initial")
	c.RecordFallback("schema_fallback")
	c.RecordEnrichmentFailure("school_grade")
	c.RecordStoreQuery("normalized", "live", "find", 20*time.Millisecond, nil)
	c.RecordStoreQuery("normalized", "archive", "find", 5*time.Millisecond, errors.New("boom"))

	require.Equal(t, 2.0, counterValue(t, reg, "listingsearch_cache_hits_total", "pan"))
	require.Equal(t, 1.0, counterValue(t, reg, "listingsearch_cache_misses_total", "initial"))
	require.Equal(t, 1.0, counterValue(t, reg, "listingsearch_fallbacks_total", "schema_fallback"))
	require.Equal(t, 1.0, counterValue(t, reg, "listingsearch_enrichment_failures_total", "school_grade"))
	require.Equal(t, 1.0, counterValue(t, reg, "listingsearch_store_queries_total", "find", "ok", "live", "normalized"))
	require.Equal(t, 1.0, counterValue(t, reg, "listingsearch_store_queries_total", "find", "error", "archive", "normalized"))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCacheMiss("facets")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `listingsearch_cache_misses_total{class="facets"} 1`))
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordStoreQuery("optimized", "live", "count", time.Second, nil)
}

// counterValue finds the counter of family name whose label values, in label
// name order, equal values.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, values ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := m.GetLabel()
			if len(labels) != len(values) {
				continue
			}
			for i, l := range labels {
				if l.GetValue() != values[i] {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, values)
	return 0
}
