package window

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// SurfaceFactory creates host surfaces.
type SurfaceFactory interface {
	CreateSurface(layout types.Layout, title string) (types.SurfaceHandle, error)
}

// TitleLocalizer expands title templates.
type TitleLocalizer interface {
	ReplaceKeys(template string) string
}

// Env carries the collaborators of a render pass.
type Env struct {
	Surfaces SurfaceFactory
	Titles   TitleLocalizer
	Globals  Lookup
	Logger   *zap.Logger
}

// RenderContext is handed to the window render hook.
type RenderContext struct {
	Session *session.Session
	Window  *Window
	View    *view.View
	Force   bool
	globals Lookup
}

// Place puts a window-scoped or cluster-global button into slot for this
// pass. Placements are forgotten at the start of the next pass.
func (rc *RenderContext) Place(slot int, buttonID string) error {
	if !rc.View.Contains(slot) {
		return fmt.Errorf("place %q at %d: %w", buttonID, slot, ErrSlotRange)
	}
	if _, ok := rc.Window.resolve(buttonID, rc.globals); !ok {
		return fmt.Errorf("place %q: %w", buttonID, ErrUnknownButton)
	}
	rc.Session.Cache().Place(rc.Window.Key(), slot, buttonID)
	return nil
}

// Render regenerates the session's view. With force, or when no view is
// cached, a new host surface is created; otherwise the cached container is
// cleared and redrawn. Button render failures are logged per slot.
func (w *Window) Render(ctx context.Context, s *session.Session, force bool, env Env) (*view.View, error) {
	log := orNop(env.Logger)
	id := s.Identity()

	w.mu.Lock()
	v := w.views[id]
	prev := w.states[id]
	w.states[id] = Rendering
	w.mu.Unlock()

	if force || v == nil {
		title := w.TitleTemplate()
		if env.Titles != nil {
			title = env.Titles.ReplaceKeys(title)
		}
		handle, err := env.Surfaces.CreateSurface(w.layout, title)
		if err != nil {
			w.mu.Lock()
			w.states[id] = prev
			w.mu.Unlock()
			return nil, fmt.Errorf("create surface for %s: %w", w.Key(), err)
		}
		v = view.New(handle, w.layout, title)
	} else {
		v.Clear()
	}

	key := w.Key()
	s.Cache().ClearPlacements(key)

	if w.hook != nil {
		rc := &RenderContext{Session: s, Window: w, View: v, Force: force, globals: env.Globals}
		if err := safeHook(ctx, w.hook, rc); err != nil {
			log.Warn("window render hook failed",
				zap.String("window", key.String()),
				zap.String("identity", id.String()),
				zap.Error(err))
		}
	}

	for _, sb := range w.Occupied(s, env.Globals) {
		rc := &button.RenderContext{Session: s, Window: key, Slot: sb.Slot, View: v}
		if err := safeRender(ctx, sb.Button, rc); err != nil {
			log.Warn("button render failed",
				zap.String("button", sb.Button.ID()),
				zap.Int("slot", sb.Slot),
				zap.String("identity", id.String()),
				zap.Error(err))
		}
	}

	w.mu.Lock()
	w.views[id] = v
	w.states[id] = Rendered
	w.mu.Unlock()
	return v, nil
}

func safeHook(ctx context.Context, fn RenderHook, rc *RenderContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, rc)
}

func safeRender(ctx context.Context, b button.Button, rc *button.RenderContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.Render(ctx, rc)
}
