// Package monitoring exposes Prometheus metrics for the windowing engine.
//
// Metrics live on a private registry created by NewMetrics and are served by
// Handler. Collected series:
//   - gui_sessions_active, gui_sessions_created_total
//   - gui_events_total{kind,outcome}
//   - gui_button_failures_total{button}, gui_button_short_circuits_total
//   - gui_renders_total{force}, gui_render_duration_seconds,
//     gui_render_tasks_cancelled_total
//   - gui_chat_captures_total{outcome}
//   - gui_ws_connections, gui_ws_messages_total{direction,type}
//   - gui_http_requests_total, gui_http_request_duration_seconds
package monitoring
