package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Recorder is what the web layer reports to
type Recorder interface {
	RecordLogin(provider string, success bool, duration time.Duration)
	RecordSubmissionRefused()
	LoginStarted()
	LoginFinished()
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	Handler() http.Handler
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	LoginAttemptsTotal      *prometheus.CounterVec
	LoginDuration           *prometheus.HistogramVec
	LoginsInFlight          prometheus.Gauge
	SubmissionsRefusedTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginform_login_attempts_total",
				Help: "Settled login submissions by provider and result",
			},
			[]string{"provider", "result"},
		),
		LoginDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loginform_login_duration_seconds",
				Help:    "Time from submit to settled login",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		LoginsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loginform_logins_in_flight",
			Help: "Login calls that have not settled yet",
		}),
		SubmissionsRefusedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "loginform_submissions_refused_total",
			Help: "Submits ignored because a login was already in flight",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginform_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loginform_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordLogin records a settled login
func (m *Metrics) RecordLogin(provider string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.LoginAttemptsTotal.WithLabelValues(provider, result).Inc()
	m.LoginDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSubmissionRefused counts a submit refused by the in-flight guard
func (m *Metrics) RecordSubmissionRefused() {
	m.SubmissionsRefusedTotal.Inc()
}

func (m *Metrics) LoginStarted()  { m.LoginsInFlight.Inc() }
func (m *Metrics) LoginFinished() { m.LoginsInFlight.Dec() }

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
