package metrics

import (
	"net/http"
	"time"
)

// NoopMetrics is used when metrics are disabled
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// Init returns Prometheus metrics when enabled, otherwise a no-op recorder
func Init(enabled bool) Recorder {
	if !enabled {
		return &NoopMetrics{}
	}
	return New()
}

func (n *NoopMetrics) RecordLogin(provider string, success bool, duration time.Duration)   {}
func (n *NoopMetrics) RecordSubmissionRefused()                                            {}
func (n *NoopMetrics) LoginStarted()                                                       {}
func (n *NoopMetrics) LoginFinished()                                                      {}
func (n *NoopMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {}

// Handler answers 404 so /metrics does not leak that metrics exist
func (n *NoopMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}
