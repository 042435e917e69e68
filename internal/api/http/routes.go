package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the admin API on r. stream serves the WebSocket
// endpoint and metrics the Prometheus exposition, either may be nil.
func RegisterRoutes(r gin.IRouter, h *Handlers, stream, metrics gin.HandlerFunc) {
	r.GET("/health", h.Health)
	r.GET("/clusters", h.ListClusters)
	r.GET("/sessions", h.ListSessions)
	r.POST("/reset", h.Reset)

	sessions := r.Group("/sessions/:identity")
	sessions.DELETE("", h.DeleteSession)
	sessions.POST("/open", h.OpenWindow)
	sessions.POST("/back", h.Back)
	sessions.POST("/close", h.Close)

	if metrics != nil {
		r.GET("/metrics", metrics)
	}
	if stream != nil {
		r.GET("/stream", stream)
	}
}
