// Package middleware provides the HTTP middleware of the admin API.
//
//   - CORS: cross-origin access for browser dashboards
//   - RateLimit: per-client token buckets, also reused per identity by the
//     WebSocket host
//   - RequestID: request correlation ids on the context and response
//   - Logger and Recovery: zap access logs and panic recovery
//
// Example:
//
//	router.Use(middleware.RequestID(), middleware.Recovery(log), middleware.Logger(log))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
