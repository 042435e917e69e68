// Package http provides the admin REST API of the windowing engine.
//
// Endpoints:
//   - GET    /health                     liveness and engine statistics
//   - GET    /clusters                   registered clusters and windows
//   - GET    /sessions                   live sessions
//   - DELETE /sessions/:identity         tear down a session
//   - POST   /sessions/:identity/open    open a cluster or window
//   - POST   /sessions/:identity/back    navigate back
//   - POST   /sessions/:identity/close   close the open window
//   - POST   /reset                      drop every session and view
//   - GET    /metrics                    Prometheus metrics
//   - GET    /stream                     WebSocket host (see package ws)
package http
