package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cluster"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/scheduler"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// DefaultRenderDelay defers the render pass behind the interaction.
const DefaultRenderDelay = 50 * time.Millisecond

// Options configures an Engine. Host is required.
type Options struct {
	Host        Host
	Localizer   Localizer
	Permissions PermissionChecker
	// CacheFactory builds the typed part of every session cache. It is
	// invoked once by New to validate it.
	CacheFactory cache.Factory
	// Scheduler defers render passes. Defaults to a timer with RenderDelay.
	Scheduler   scheduler.Scheduler[types.Identity]
	RenderDelay time.Duration
	Logger      *zap.Logger
	Metrics     *monitoring.Metrics
}

// Engine is the windowing context object.
type Engine struct {
	host     Host
	titles   Localizer
	perms    PermissionChecker
	sched    scheduler.Scheduler[types.Identity]
	log      *zap.Logger
	metrics  *monitoring.Metrics
	clusters *cluster.Registry
	sessions *session.Registry
	nav      *navigator

	mu       sync.Mutex
	onReset  []func()               // Protected by mu
	onRemove []func(types.Identity) // Protected by mu
}

// New builds an engine. A failing CacheFactory aborts construction with a
// *cache.InitError.
func New(opts Options) (*Engine, error) {
	if opts.Host == nil {
		return nil, fmt.Errorf("engine: host is required")
	}
	caches, err := cache.NewProvider(opts.CacheFactory)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		host:     opts.Host,
		titles:   opts.Localizer,
		perms:    opts.Permissions,
		sched:    opts.Scheduler,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		clusters: cluster.NewRegistry(),
	}
	if e.titles == nil {
		e.titles = verbatim{}
	}
	if e.perms == nil {
		e.perms = allowAll{}
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.sched == nil {
		delay := opts.RenderDelay
		if delay <= 0 {
			delay = DefaultRenderDelay
		}
		e.sched = scheduler.NewTimer[types.Identity](delay)
	}
	e.sessions = session.NewRegistry(caches, func(id types.Identity, err error) {
		e.log.Error("session cache init failed, continuing without typed value",
			logging.Identity(id), zap.Error(err))
	})
	e.nav = &navigator{e: e}
	return e, nil
}

// Close stops the scheduler. Pending renders are dropped.
func (e *Engine) Close() {
	e.sched.Close()
}

// Clusters exposes the cluster registry.
func (e *Engine) Clusters() *cluster.Registry { return e.clusters }

// Navigator returns the navigation API used by buttons. The caller must hold
// the session lock.
func (e *Engine) Navigator() button.Navigator { return e.nav }

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger { return e.log }

// RegisterCluster creates the cluster if absent. Repeated calls return the
// existing cluster untouched.
func (e *Engine) RegisterCluster(id string) *cluster.Cluster {
	return e.clusters.Register(id)
}

// RegisterWindow adds w to a registered cluster.
func (e *Engine) RegisterWindow(clusterID string, w *window.Window) error {
	if err := e.clusters.RegisterWindow(clusterID, w); err != nil {
		return e.configError("register_window", types.Key{Cluster: clusterID, Window: w.ID()}, err)
	}
	e.log.Debug("window registered", zap.String("cluster", clusterID), zap.String("window", w.ID()))
	return nil
}

// RegisterButton adds a button to a cluster (global) or a window scope.
// Window-scoped buttons are not bound to a slot; render hooks place them.
func (e *Engine) RegisterButton(scope types.Scope, b button.Button) error {
	c, ok := e.clusters.Get(scope.Cluster)
	if !ok {
		return e.configError("register_button", types.Key{Cluster: scope.Cluster, Window: scope.Window},
			fmt.Errorf("cluster %q: %w", scope.Cluster, cluster.ErrNotFound))
	}
	if scope.IsGlobal() {
		if err := c.RegisterButton(b); err != nil {
			return e.configError("register_button", types.Key{Cluster: scope.Cluster}, err)
		}
		return nil
	}
	w, ok := c.Window(scope.Window)
	if !ok {
		return e.configError("register_button", types.Key{Cluster: scope.Cluster, Window: scope.Window},
			fmt.Errorf("window %q: %w", scope.Window, cluster.ErrNotFound))
	}
	if err := w.AddButton(b); err != nil {
		return e.configError("register_button", w.Key(), err)
	}
	return nil
}

// SetMainMenu names the entry window of a cluster.
func (e *Engine) SetMainMenu(clusterID, windowID string) error {
	key := types.Key{Cluster: clusterID, Window: windowID}
	c, ok := e.clusters.Get(clusterID)
	if !ok {
		return e.configError("set_main_menu", key, fmt.Errorf("cluster %q: %w", clusterID, cluster.ErrNotFound))
	}
	if err := c.SetMainMenu(windowID); err != nil {
		return e.configError("set_main_menu", key, err)
	}
	return nil
}

// Session returns the identity's session, creating it on first access.
func (e *Engine) Session(id types.Identity) *session.Session {
	s, created := e.sessions.LoadOrCreate(id)
	if created {
		e.metrics.IncSessionsCreated()
		e.metrics.SetSessionsActive(e.sessions.Len())
		e.log.Debug("session created", logging.Identity(id))
	}
	return s
}

// Lookup returns the identity's session without creating one.
func (e *Engine) Lookup(id types.Identity) (*session.Session, bool) {
	return e.sessions.Lookup(id)
}

// Sessions summarizes every live session.
func (e *Engine) Sessions() []session.Info {
	list := e.sessions.List()
	out := make([]session.Info, 0, len(list))
	for _, s := range list {
		out = append(out, s.Info())
	}
	return out
}

// RemoveSession tears down the identity's session, drops its views and
// cancels its pending render. Closing the host surface is left to the host.
func (e *Engine) RemoveSession(id types.Identity) bool {
	_, ok := e.sessions.Remove(id)
	if e.sched.Cancel(id) {
		e.metrics.AddRendersCancelled(1)
	}
	// A session recreated for id meanwhile owns whatever views exist now.
	e.sessions.IfAbsent(id, func() { e.clusters.DropViews(id) })
	e.metrics.SetSessionsActive(e.sessions.Len())
	if !ok {
		return false
	}

	e.mu.Lock()
	hooks := append([]func(types.Identity){}, e.onRemove...)
	e.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}
	e.log.Info("session removed", logging.Identity(id))
	return true
}

// OnRemove registers fn to run after a session is removed.
func (e *Engine) OnRemove(fn func(types.Identity)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRemove = append(e.onRemove, fn)
}

// OnReset registers fn to run at the end of every ResetAll.
func (e *Engine) OnReset(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReset = append(e.onReset, fn)
}

// ResetAll closes every session and surface and forgets every cached view.
// Registered clusters and windows are kept.
func (e *Engine) ResetAll() {
	cancelled := e.sched.CancelAll()
	removed := e.sessions.Clear()
	e.clusters.ClearViews()
	for _, s := range removed {
		if err := e.host.CloseSurface(s.Identity()); err != nil {
			e.log.Warn("close surface on reset failed", logging.Identity(s.Identity()), zap.Error(err))
		}
	}
	e.metrics.AddRendersCancelled(cancelled)
	e.metrics.SetSessionsActive(0)

	e.mu.Lock()
	hooks := append([]func(){}, e.onReset...)
	e.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	e.log.Info("engine reset", zap.Int("sessions", len(removed)), zap.Int("renders_cancelled", cancelled))
}

// Stats is a snapshot of the engine.
type Stats struct {
	Clusters       int `json:"clusters"`
	Windows        int `json:"windows"`
	Sessions       int `json:"sessions"`
	Views          int `json:"views"`
	PendingRenders int `json:"pending_renders"`
}

// Stats counts registered and live objects.
func (e *Engine) Stats() Stats {
	st := Stats{Sessions: e.sessions.Len(), Views: e.clusters.ViewCount()}
	for _, c := range e.clusters.List() {
		st.Clusters++
		st.Windows += len(c.Windows())
	}
	for _, s := range e.sessions.List() {
		if e.sched.Pending(s.Identity()) {
			st.PendingRenders++
		}
	}
	return st
}

func (e *Engine) configError(op string, key types.Key, err error) error {
	ce := &ConfigError{Op: op, Key: key, Err: err}
	e.log.Error("configuration error", zap.String("op", op), logging.Window(key), zap.Error(err))
	return ce
}
