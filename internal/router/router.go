package router

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Outcome classifies how an event was treated.
type Outcome string

const (
	// Passthrough means the event does not concern the engine.
	Passthrough Outcome = "passthrough"
	// Ignored means the event targeted a stale surface.
	Ignored Outcome = "ignored"
	// Handled means the engine processed the event and left it uncancelled.
	Handled Outcome = "handled"
	// Cancelled means the engine processed the event and vetoed it.
	Cancelled Outcome = "cancelled"
)

// Router dispatches events for one engine.
type Router struct {
	eng     *engine.Engine
	nav     button.Navigator
	guard   *resilience.Guard
	log     *zap.Logger
	metrics *monitoring.Metrics

	mu        sync.RWMutex
	listeners []DragListener // Protected by mu
}

// Option configures a Router.
type Option func(*Router)

// WithGuard isolates failing buttons behind breakers.
func WithGuard(g *resilience.Guard) Option {
	return func(r *Router) { r.guard = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a router. The guard, if any, is reset with the engine and
// forgets a session's breakers when the session is removed.
func New(eng *engine.Engine, opts ...Option) *Router {
	r := &Router{eng: eng, nav: eng.Navigator(), log: eng.Logger()}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard != nil {
		eng.OnReset(r.guard.Reset)
		eng.OnRemove(func(identity types.Identity) {
			r.guard.Forget(guardPrefix(identity))
		})
	}
	return r
}

func guardPrefix(identity types.Identity) string {
	return identity.String() + "/"
}

// guardKey scopes a breaker to one session's use of one button.
func guardKey(identity types.Identity, key types.Key, buttonID string) string {
	return guardPrefix(identity) + key.String() + "/" + buttonID
}

// denied reports errors caused by the caller rather than the button, which
// must not count against it.
func denied(err error) bool {
	return errors.Is(err, engine.ErrForbidden)
}

// target is the resolved destination of an event.
type target struct {
	s   *session.Session
	key types.Key
	w   *window.Window
	v   *view.View
	log *zap.Logger
}

// acquire resolves and locks the session of id for an event on surface. On
// success the caller must call release.
func (r *Router) acquire(identity types.Identity, surface types.SurfaceHandle, kind string) (*target, Outcome) {
	s, ok := r.eng.Lookup(identity)
	if !ok {
		return nil, Passthrough
	}
	// The previous interaction's render completes before this one starts.
	r.eng.Flush(identity)
	s.Lock()

	log := r.log.With(logging.Identity(identity), zap.String("event", kind), zap.String("event_id", id.NewEventID().String()))
	if s.Closed() {
		s.Unlock()
		return nil, Passthrough
	}
	key := s.Current()
	if key.Window == "" {
		s.Unlock()
		return nil, Passthrough
	}
	w, ok := r.eng.Clusters().Window(key)
	if !ok {
		s.Unlock()
		return nil, Passthrough
	}
	v, ok := w.View(identity)
	if !ok || s.Hidden() || v.Handle() != surface {
		s.Unlock()
		log.Debug("stale event ignored", zap.String("surface", string(surface)))
		return nil, Ignored
	}
	return &target{s: s, key: key, w: w, v: v, log: log.With(logging.Window(key))}, Handled
}

func (t *target) release() { t.s.Unlock() }

func (r *Router) finish(t *target, kind string, cancelled bool) Outcome {
	r.nav.Update(t.s, false)
	out := Handled
	if cancelled {
		out = Cancelled
	}
	r.metrics.RecordEvent(kind, string(out))
	return out
}

func (r *Router) record(kind string, out Outcome) Outcome {
	r.metrics.RecordEvent(kind, string(out))
	return out
}

// invoke runs one button and returns its cancel decision. Errors, panics and
// open breakers all cancel.
func (r *Router) invoke(ctx context.Context, t *target, slot int, b button.Button, ev *types.ClickEvent) bool {
	in := &button.Interaction{Session: t.s, Window: t.key, Slot: slot, Event: ev, View: t.v, Nav: r.nav}

	var (
		cancel bool
		denial error
	)
	run := func() error {
		c, err := execute(ctx, b, in)
		cancel = c
		if err != nil && denied(err) {
			denial = err
			return nil
		}
		return err
	}
	var err error
	if r.guard != nil {
		err = r.guard.Do(guardKey(t.s.Identity(), t.key, b.ID()), run)
	} else {
		err = run()
	}

	switch {
	case err == nil && denial != nil:
		t.log.Info("button denied", zap.String("button", b.ID()), zap.Int("slot", slot), zap.Error(denial))
		return true
	case err == nil:
		return cancel
	case errors.Is(err, resilience.ErrOpen), errors.Is(err, resilience.ErrProbing):
		r.metrics.IncShortCircuit()
		t.log.Warn("button short-circuited", zap.String("button", b.ID()), zap.Int("slot", slot))
		return true
	default:
		execErr := &ExecutionError{ButtonID: b.ID(), Slot: slot, Identity: t.s.Identity(), Err: err}
		r.metrics.RecordButtonFailure(b.ID())
		t.log.Error("button execution failed",
			zap.String("button", b.ID()),
			zap.Int("slot", slot),
			zap.Error(execErr))
		return true
	}
}

func execute(ctx context.Context, b button.Button, in *button.Interaction) (cancel bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cancel, err = true, &PanicError{Value: rec}
		}
	}()
	return b.Execute(ctx, in)
}

func (r *Router) globals(t *target) window.Lookup {
	return r.eng.Clusters().Globals(t.key.Cluster)
}
