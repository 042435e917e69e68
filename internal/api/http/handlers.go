package http

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cluster"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/utils"
)

// Host is the part of the transport the admin API drives directly.
type Host interface {
	CloseSurface(identity types.Identity) error
	Connected() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	eng     *engine.Engine
	host    Host
	log     *zap.Logger
	metrics *HandlerMetrics
}

// NewHandlers creates a new handler set
func NewHandlers(eng *engine.Engine, host Host, metrics *monitoring.Metrics, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		eng:     eng,
		host:    host,
		log:     log.Named("admin"),
		metrics: NewHandlerMetrics(metrics),
	}
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"engine": h.eng.Stats(),
	}
	if h.host != nil {
		resp["connections"] = h.host.Connected()
	}
	c.JSON(http.StatusOK, resp)
}

// WindowInfo describes a registered window.
type WindowInfo struct {
	ID         string         `json:"id"`
	Layout     types.Layout   `json:"layout"`
	Title      string         `json:"title"`
	Permission string         `json:"permission,omitempty"`
	Bindings   map[int]string `json:"bindings"`
}

// ClusterInfo describes a registered cluster.
type ClusterInfo struct {
	ID       string       `json:"id"`
	MainMenu string       `json:"main_menu,omitempty"`
	Buttons  []string     `json:"buttons"`
	Windows  []WindowInfo `json:"windows"`
}

// ListClusters lists every registered cluster
func (h *Handlers) ListClusters(c *gin.Context) {
	clusters := h.eng.Clusters().List()
	out := make([]ClusterInfo, 0, len(clusters))
	for _, cl := range clusters {
		info := ClusterInfo{ID: cl.ID(), MainMenu: cl.MainMenu(), Buttons: cl.ButtonIDs()}
		for _, w := range cl.Windows() {
			info.Windows = append(info.Windows, WindowInfo{
				ID:         w.ID(),
				Layout:     w.Layout(),
				Title:      w.TitleTemplate(),
				Permission: w.Permission(),
				Bindings:   w.Bindings(),
			})
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, gin.H{"clusters": out})
}

// ListSessions lists all live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.eng.Sessions()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// DeleteSession tears down a session and closes its surface
func (h *Handlers) DeleteSession(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	done := h.metrics.Track("delete_session")
	if !h.eng.RemoveSession(identity) {
		done(nil)
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	var err error
	if h.host != nil {
		err = h.host.CloseSurface(identity)
	}
	done(err)
	if err != nil {
		h.log.Warn("close surface failed", logging.Identity(identity), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "identity": identity})
}

type openRequest struct {
	Cluster string `json:"cluster"`
	Window  string `json:"window"`
}

// OpenWindow opens a cluster at its main menu, or a specific window
func (h *Handlers) OpenWindow(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := utils.ValidateID(req.Cluster, "cluster", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateID(req.Window, "window", false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.navigate(c, identity, "open", func() error {
		if req.Window == "" {
			return h.eng.OpenCluster(c.Request.Context(), identity, req.Cluster)
		}
		return h.eng.ChangeWindow(c.Request.Context(), identity, req.Cluster, req.Window)
	})
}

// Back navigates the session to its previous window
func (h *Handlers) Back(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	h.navigate(c, identity, "back", func() error {
		return h.eng.Back(c.Request.Context(), identity)
	})
}

// Close closes the session's open window
func (h *Handlers) Close(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	h.navigate(c, identity, "close", func() error {
		return h.eng.CloseWindow(c.Request.Context(), identity)
	})
}

// Reset drops every session and cached view
func (h *Handlers) Reset(c *gin.Context) {
	done := h.metrics.Track("reset")
	before := h.eng.Stats().Sessions
	h.eng.ResetAll()
	done(nil)
	h.log.Info("reset requested", zap.Int("sessions", before))
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions_closed": before})
}

func (h *Handlers) identity(c *gin.Context) (types.Identity, bool) {
	identity, err := types.ParseIdentity(c.Param("identity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return identity, false
	}
	return identity, true
}

// navigate flushes the render still pending from the previous interaction,
// runs op and maps engine errors to status codes.
func (h *Handlers) navigate(c *gin.Context, identity types.Identity, operation string, op func() error) {
	done := h.metrics.Track(operation)
	h.eng.Flush(identity)
	err := op()
	done(err)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"success": true}
	if s, ok := h.eng.Lookup(identity); ok {
		resp["session"] = s.Info()
	}
	c.JSON(http.StatusOK, resp)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, cluster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
