package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every method is safe on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Routing metrics
	Events         *prometheus.CounterVec
	ButtonFailures *prometheus.CounterVec
	ButtonsTripped prometheus.Counter

	// Render metrics
	Renders          *prometheus.CounterVec
	RenderDuration   prometheus.Histogram
	RendersCancelled prometheus.Counter

	// Chat capture metrics
	ChatCaptures *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Admin and reload metrics
	AdminOps        *prometheus.CounterVec
	AdminOpDuration *prometheus.HistogramVec
	Reloads         *prometheus.CounterVec
}

// NewMetrics creates a collector set on its own registry, so several engines
// (and tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	start := time.Now()

	m := &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gui_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gui_sessions_active",
			Help: "Number of tracked sessions",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gui_sessions_created_total",
			Help: "Total number of sessions created",
		}),

		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_events_total",
				Help: "Interaction events by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ButtonFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_button_failures_total",
				Help: "Button executions that returned an error or panicked",
			},
			[]string{"button"},
		),
		ButtonsTripped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gui_button_short_circuits_total",
			Help: "Interactions rejected because the button breaker was open",
		}),

		Renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_renders_total",
				Help: "Render passes by force flag",
			},
			[]string{"force"},
		),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gui_render_duration_seconds",
			Help:    "Render pass duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		RendersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "gui_render_tasks_cancelled_total",
			Help: "Deferred render tasks dropped by teardown or reset",
		}),

		ChatCaptures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_chat_captures_total",
				Help: "Chat capture lifecycle events",
			},
			[]string{"outcome"},
		),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gui_ws_connections",
			Help: "Number of open WebSocket connections",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_ws_messages_total",
				Help: "WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),

		AdminOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_admin_operations_total",
				Help: "Admin operations by name and status",
			},
			[]string{"operation", "status"},
		),
		AdminOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gui_admin_operation_duration_seconds",
				Help:    "Admin operation duration in seconds",
				Buckets: []float64{.0001, .001, .01, .1, 1},
			},
			[]string{"operation"},
		),
		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gui_reloads_total",
				Help: "Configuration file reloads by file and status",
			},
			[]string{"file", "status"},
		),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gui_uptime_seconds",
		Help: "Server uptime in seconds",
	}, func() float64 { return time.Since(start).Seconds() })

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an admin HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetSessionsActive sets the number of tracked sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// IncSessionsCreated counts a new session
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
}

// RecordEvent counts an interaction event
func (m *Metrics) RecordEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind, outcome).Inc()
}

// RecordButtonFailure counts a failed button execution
func (m *Metrics) RecordButtonFailure(buttonID string) {
	if m == nil {
		return
	}
	m.ButtonFailures.WithLabelValues(buttonID).Inc()
}

// IncShortCircuit counts an interaction rejected by an open breaker
func (m *Metrics) IncShortCircuit() {
	if m == nil {
		return
	}
	m.ButtonsTripped.Inc()
}

// RecordRender records a render pass
func (m *Metrics) RecordRender(force bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(strconv.FormatBool(force)).Inc()
	m.RenderDuration.Observe(duration.Seconds())
}

// AddRendersCancelled counts dropped render tasks
func (m *Metrics) AddRendersCancelled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RendersCancelled.Add(float64(n))
}

// RecordChatCapture counts a chat capture transition
func (m *Metrics) RecordChatCapture(outcome string) {
	if m == nil {
		return
	}
	m.ChatCaptures.WithLabelValues(outcome).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// RecordAdminOp records an admin operation
func (m *Metrics) RecordAdminOp(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AdminOps.WithLabelValues(operation, status).Inc()
	m.AdminOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReload counts a configuration file reload
func (m *Metrics) RecordReload(file, status string) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(file, status).Inc()
}
