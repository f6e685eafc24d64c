// Package metrics records resolver service activity. Components hold a
// Recorder; NoopRecorder is the default and PrometheusRecorder backs /metrics.
package metrics

import "time"

// ResultLabel classifies a resolver request.
type ResultLabel string

const (
	ResultOK       ResultLabel = "ok"
	ResultNotFound ResultLabel = "not_found"
	ResultError    ResultLabel = "error"
)

// Recorder defines observability hooks for field resolution.
type Recorder interface {
	ObserveRequestDuration(route string, d time.Duration)
	IncRequest(route string, result ResultLabel)
	IncCacheLookup(hit bool)
	IncCacheEviction()
	IncFallback(reason string)
	SetCachedFiles(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequestDuration(string, time.Duration) {}
func (NoopRecorder) IncRequest(string, ResultLabel)               {}
func (NoopRecorder) IncCacheLookup(bool)                          {}
func (NoopRecorder) IncCacheEviction()                            {}
func (NoopRecorder) IncFallback(string)                           {}
func (NoopRecorder) SetCachedFiles(int)                           {}
