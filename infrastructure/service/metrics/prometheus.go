package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixora/authapi/application/port/outbound"
)

const namespace = "authapi"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Registrations  *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
	PasswordResets *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

var _ outbound.AuthMetrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Authentication attempts by result",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token rotations by result, including the internal rejection reason",
		}, []string{"result"}),
		PasswordResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset requests and confirmations by result",
		}, []string{"stage", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(m.Registrations, m.Logins, m.Refreshes, m.PasswordResets, m.HTTPRequests, m.HTTPDuration)
	return m
}

func (m *Metrics) ObserveRegistration(result string) {
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRefresh(result string) {
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePasswordReset(stage, result string) {
	m.PasswordResets.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Noop discards everything. Used when metrics are disabled.
type Noop struct{}

func (Noop) ObserveRegistration(string)                     {}
func (Noop) ObserveLogin(string)                            {}
func (Noop) ObserveRefresh(string)                          {}
func (Noop) ObservePasswordReset(string, string)            {}
func (Noop) ObserveHTTP(string, string, int, time.Duration) {}
