package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg prom.Gatherer) string {
	t.Helper()
	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveRequestDuration("/v1/fields", 3*time.Millisecond)
	pr.IncRequest("/v1/fields", ResultOK)
	pr.IncRequest("/v1/fields", ResultOK)
	pr.IncRequest("/v1/fields", ResultNotFound)
	pr.IncCacheLookup(true)
	pr.IncCacheLookup(false)
	pr.IncCacheLookup(false)
	pr.IncCacheEviction()
	pr.SetCachedFiles(4)
	pr.IncFallback("unavailable")

	body := scrape(t, reg)
	assert.Contains(t, body, `lamd_resolver_requests_total{result="ok",route="/v1/fields"} 2`)
	assert.Contains(t, body, `lamd_resolver_requests_total{result="not_found",route="/v1/fields"} 1`)
	assert.Contains(t, body, `lamd_resolver_cache_lookups_total{outcome="miss"} 2`)
	assert.Contains(t, body, `lamd_resolver_cache_evictions_total 1`)
	assert.Contains(t, body, `lamd_resolver_cached_files 4`)
	assert.Contains(t, body, `lamd_resolver_fallbacks_total{reason="unavailable"} 1`)
	assert.Contains(t, body, `lamd_resolver_request_duration_seconds_count{route="/v1/fields"} 1`)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncRequest("/healthz", ResultOK)
		pr.IncFallback("timeout")
		pr.SetCachedFiles(1)
	})
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
