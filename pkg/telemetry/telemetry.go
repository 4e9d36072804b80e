// Package telemetry exposes gateway metrics through a Prometheus registry.
// All Collector methods are nil-safe so callers can run with telemetry
// disabled without guarding every call site.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gateway's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	sessionsActive    prometheus.Gauge
	sessionsRejected  prometheus.Counter
	toolCalls         prometheus.Counter
	toolErrors        prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxgw_sessions_created_total",
			Help: "Total sessions created.",
		}),
		sessionsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxgw_sessions_destroyed_total",
			Help: "Total sessions destroyed.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxgw_sessions_active",
			Help: "Currently active sessions.",
		}),
		sessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxgw_sessions_rejected_total",
			Help: "Requests rejected for referencing an unknown or expired session.",
		}),
		toolCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxgw_tool_calls_total",
			Help: "Total MCP tool calls routed through the gateway.",
		}),
		toolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxgw_tool_errors_total",
			Help: "Total tool call errors.",
		}),
	}

	c.registry.MustRegister(
		c.sessionsCreated,
		c.sessionsDestroyed,
		c.sessionsActive,
		c.sessionsRejected,
		c.toolCalls,
		c.toolErrors,
	)
	return c
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SessionCreated records a session creation.
func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.sessionsCreated.Inc()
	c.sessionsActive.Inc()
}

// SessionDestroyed records a session destruction.
func (c *Collector) SessionDestroyed() {
	if c == nil {
		return
	}
	c.sessionsDestroyed.Inc()
	c.sessionsActive.Dec()
}

// SessionRejected records a request rejected for an unknown session.
func (c *Collector) SessionRejected() {
	if c == nil {
		return
	}
	c.sessionsRejected.Inc()
}

// ToolCall records one routed tool call.
func (c *Collector) ToolCall() {
	if c == nil {
		return
	}
	c.toolCalls.Inc()
}

// ToolError records one tool call error.
func (c *Collector) ToolError() {
	if c == nil {
		return
	}
	c.toolErrors.Inc()
}
