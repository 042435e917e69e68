package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/router"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/utils"
)

var (
	// ErrNotConnected is returned when the identity has no live connection.
	ErrNotConnected = errors.New("identity not connected")
	// ErrSlowClient is returned when a connection was dropped for not
	// draining its frames.
	ErrSlowClient = errors.New("client too slow")
)

// Hub tracks one connection per identity and hosts their surfaces.
type Hub struct {
	log      *zap.Logger
	metrics  *monitoring.Metrics
	limits   *middleware.Limiters
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	eng     *engine.Engine             // Protected by mu
	router  *router.Router             // Protected by mu
	clients map[types.Identity]*client // Protected by mu
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithRateLimit throttles client frames per identity.
func WithRateLimit(cfg middleware.RateLimitConfig) Option {
	return func(h *Hub) { h.limits = middleware.NewLimiters(cfg) }
}

// NewHub creates a hub. It must be attached to an engine before it accepts
// connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		log:     zap.NewNop(),
		clients: make(map[types.Identity]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("ws")
	return h
}

// Attach connects the hub to the engine it hosts and the router that
// receives its events.
func (h *Hub) Attach(eng *engine.Engine, r *router.Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eng = eng
	h.router = r
}

func (h *Hub) attached() (*engine.Engine, *router.Router) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.eng, h.router
}

// Connected returns the number of live connections.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) client(identity types.Identity) (*client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[identity]
	return c, ok
}

func (h *Hub) sendTo(identity types.Identity, msg *Outbound) error {
	c, ok := h.client(identity)
	if !ok {
		return ErrNotConnected
	}
	if err := c.enqueue(msg); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

// Broadcast queues msg for every connection.
func (h *Hub) Broadcast(msg *Outbound) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		if err := c.enqueue(msg); err == nil {
			h.metrics.RecordWSMessage("out", msg.Type)
		}
	}
}

// CreateSurface issues a fresh handle. The surface materializes client side
// when it is opened.
func (h *Hub) CreateSurface(layout types.Layout, title string) (types.SurfaceHandle, error) {
	if err := layout.Validate(); err != nil {
		return "", err
	}
	return id.NewSurfaceHandle(), nil
}

// OpenSurface pushes the view's contents to the identity.
func (h *Hub) OpenSurface(identity types.Identity, v *view.View) error {
	snap := v.Snapshot()
	return h.sendTo(identity, &Outbound{Type: TypeSurfaceOpen, Surface: &snap})
}

// CloseSurface tells the identity to close its surface. An identity without
// a connection has nothing open.
func (h *Hub) CloseSurface(identity types.Identity) error {
	err := h.sendTo(identity, &Outbound{Type: TypeSurfaceClose})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// SendMessage delivers a private text message.
func (h *Hub) SendMessage(identity types.Identity, text string) error {
	return h.sendTo(identity, &Outbound{Type: TypeMessage, Text: text})
}

// HandleConnection upgrades the request and serves the connection until it
// closes.
func (h *Hub) HandleConnection(c *gin.Context) {
	eng, r := h.attached()
	if eng == nil || r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not ready"})
		return
	}
	identity, err := types.ParseIdentity(c.Query("identity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, identity, h.log.With(logging.Identity(identity)))
	h.register(cl)
	defer h.unregister(cl, eng)

	go cl.writePump()
	h.readPump(c.Request.Context(), cl, eng, r)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	old := h.clients[c.identity]
	h.clients[c.identity] = c
	h.mu.Unlock()
	if old != nil {
		c.log.Info("connection replaced", zap.String("previous", old.id.String()))
		old.close()
	} else {
		h.metrics.IncWSConnections()
	}
	c.log.Info("client connected")
}

func (h *Hub) unregister(c *client, eng *engine.Engine) {
	c.close()
	h.mu.Lock()
	current := h.clients[c.identity] == c
	if current {
		delete(h.clients, c.identity)
	}
	h.mu.Unlock()
	if !current {
		return
	}
	h.metrics.DecWSConnections()
	if h.limits != nil {
		h.limits.Forget(c.identity.String())
	}
	eng.RemoveSession(c.identity)
	c.log.Info("client disconnected")
}

func (h *Hub) readPump(ctx context.Context, c *client, eng *engine.Engine, r *router.Router) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.reply(c, &Outbound{Type: TypeError, Error: "malformed frame"})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		if h.limits != nil && !h.limits.Allow(c.identity.String()) {
			h.reply(c, &Outbound{Type: TypeError, Event: msg.Event, Error: "rate limit exceeded"})
			continue
		}
		h.dispatch(ctx, c, eng, r, &msg)
	}
}

func (h *Hub) reply(c *client, msg *Outbound) {
	if err := c.enqueue(msg); err == nil {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, eng *engine.Engine, r *router.Router, msg *Inbound) {
	if msg.Event == "" {
		msg.Event = id.NewEventID().String()
	}
	switch msg.Type {
	case TypeClick:
		ev := &types.ClickEvent{
			Identity: c.identity,
			Surface:  msg.Surface,
			Region:   msg.Region,
			Slot:     msg.Slot,
			Action:   msg.Action,
			Item:     msg.Item,
			Cursor:   msg.Cursor,
		}
		out := r.HandleClick(ctx, ev)
		h.reply(c, result(msg.Event, out, ev.Cancelled))
	case TypeDrag:
		ev := &types.DragEvent{
			Identity: c.identity,
			Surface:  msg.Surface,
			Slots:    msg.Slots,
			Cursor:   msg.Cursor,
		}
		out := r.HandleDrag(ctx, ev)
		h.reply(c, result(msg.Event, out, ev.Cancelled))
	case TypeChat:
		// A captured reply goes to the window whatever its length; only
		// public chat is bounded.
		ev := &types.ChatEvent{Identity: c.identity, Message: msg.Message}
		out := r.HandleChat(ctx, ev)
		if ev.Cancelled {
			h.reply(c, result(msg.Event, out, true))
			return
		}
		if err := utils.ValidateMessage(ev.Message); err != nil {
			h.reply(c, &Outbound{Type: TypeError, Event: msg.Event, Error: err.Error()})
			return
		}
		h.reply(c, result(msg.Event, out, false))
		h.Broadcast(&Outbound{Type: TypeChat, From: c.identity.String(), Text: ev.Message})
	case TypeOpen, TypeBack, TypeClose:
		h.navigate(ctx, c, eng, msg)
	case TypePing:
		h.reply(c, &Outbound{Type: TypePong, Event: msg.Event})
	default:
		h.reply(c, &Outbound{Type: TypeError, Event: msg.Event, Error: "unknown message type"})
	}
}

// navigate runs a client-requested navigation. Any render still pending from
// the previous interaction is flushed first.
func (h *Hub) navigate(ctx context.Context, c *client, eng *engine.Engine, msg *Inbound) {
	eng.Flush(c.identity)
	var err error
	switch msg.Type {
	case TypeOpen:
		cluster := msg.Cluster
		if cluster == "" {
			if s, ok := eng.Lookup(c.identity); ok {
				cluster = s.ClusterID()
			}
		}
		if msg.Window == "" {
			err = eng.OpenCluster(ctx, c.identity, cluster)
		} else {
			err = eng.ChangeWindow(ctx, c.identity, cluster, msg.Window)
		}
	case TypeBack:
		err = eng.Back(ctx, c.identity)
	case TypeClose:
		err = eng.CloseWindow(ctx, c.identity)
	}
	if err != nil {
		h.reply(c, &Outbound{Type: TypeError, Event: msg.Event, Error: err.Error()})
		return
	}
	h.reply(c, &Outbound{Type: TypeResult, Event: msg.Event, Outcome: string(router.Handled)})
}

func result(event string, out router.Outcome, cancelled bool) *Outbound {
	return &Outbound{Type: TypeResult, Event: event, Outcome: string(out), Cancelled: cancelled}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.close()
	}
}
