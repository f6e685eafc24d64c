package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "lamd"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requestDuration *prom.HistogramVec
	requests        *prom.CounterVec
	cacheLookups    *prom.CounterVec
	evictions       prom.Counter
	fallbacks       *prom.CounterVec
	cachedFiles     prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_request_duration_seconds",
			Help:      "Duration of resolver service requests",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"route"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_requests_total",
			Help:      "Resolver service requests by route and result",
		}, []string{"route", "result"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_lookups_total",
			Help:      "Parsed-file cache lookups by outcome",
		}, []string{"outcome"}),
		evictions: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_evictions_total",
			Help:      "Cache entries dropped after a file changed",
		}),
		fallbacks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_fallbacks_total",
			Help:      "Client lookups answered in-process instead of by the service",
		}, []string{"reason"}),
		cachedFiles: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "resolver_cached_files",
			Help:      "Files currently held in the parse cache",
		}),
	}
	reg.MustRegister(pr.requestDuration, pr.requests, pr.cacheLookups, pr.evictions, pr.fallbacks, pr.cachedFiles)
	return pr
}

func (p *PrometheusRecorder) ObserveRequestDuration(route string, d time.Duration) {
	if p == nil {
		return
	}
	p.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRequest(route string, result ResultLabel) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(route, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheLookups.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncCacheEviction() {
	if p == nil {
		return
	}
	p.evictions.Inc()
}

func (p *PrometheusRecorder) IncFallback(reason string) {
	if p == nil {
		return
	}
	p.fallbacks.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) SetCachedFiles(n int) {
	if p == nil {
		return
	}
	p.cachedFiles.Set(float64(n))
}
