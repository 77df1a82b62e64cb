// Package metrics holds the Prometheus instruments of good-base. Each
// Metrics value owns its registry, so tests and embedded servers never
// collide on the global one.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records configuration and HTTP activity.
type Metrics struct {
	registry *prometheus.Registry

	ConfigResolutions *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	Commands          *prometheus.CounterVec
}

// New creates the instruments and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConfigResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goodbase_config_resolutions_total",
				Help: "Configuration resolutions by result (ok, invalid, error).",
			}, []string{"result"}),
		SourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goodbase_config_source_failures_total",
				Help: "Configuration sources that failed to load or apply.",
			}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goodbase_http_requests_total",
				Help: "HTTP requests by route and status code.",
			}, []string{"path", "status"}),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goodbase_commands_total",
				Help: "Executed commands by name and surface (cli, http).",
			}, []string{"command", "surface"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConfigResolutions,
		m.SourceFailures,
		m.HTTPRequests,
		m.Commands,
	)
	return m
}

// ConfigResolved counts one configuration resolution.
func (m *Metrics) ConfigResolved(result string) {
	m.ConfigResolutions.WithLabelValues(result).Inc()
}

// SourceFailed counts one failed configuration source.
func (m *Metrics) SourceFailed(source string) {
	m.SourceFailures.WithLabelValues(source).Inc()
}

// RequestServed counts one HTTP response.
func (m *Metrics) RequestServed(path string, status int) {
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// CommandRun counts one command execution.
func (m *Metrics) CommandRun(command, surface string) {
	m.Commands.WithLabelValues(command, surface).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
