package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// OpenCluster enters a cluster at its main menu. Unknown clusters and
// clusters without a main menu are a no-op.
func (e *Engine) OpenCluster(ctx context.Context, id types.Identity, clusterID string) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		return e.nav.OpenCluster(s, clusterID)
	})
}

// ChangeWindow navigates to (clusterID, windowID), pushing the open window
// onto the back-stack.
func (e *Engine) ChangeWindow(ctx context.Context, id types.Identity, clusterID, windowID string) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		return e.nav.ChangeWindow(s, types.Key{Cluster: clusterID, Window: windowID})
	})
}

// Back returns to the previous window. An empty back-stack is a no-op.
func (e *Engine) Back(ctx context.Context, id types.Identity) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		return e.nav.Back(s)
	})
}

// CloseWindow closes the current window and disarms chat capture.
func (e *Engine) CloseWindow(ctx context.Context, id types.Identity) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		return e.nav.Close(s)
	})
}

// RunChat hides the current window and routes the identity's next chat
// message to it under captureID.
func (e *Engine) RunChat(ctx context.Context, id types.Identity, captureID int, prompt string) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		return e.nav.RunChat(s, captureID, prompt)
	})
}

// Update schedules a render pass of the current window. With force a new
// surface is created.
func (e *Engine) Update(ctx context.Context, id types.Identity, force bool) error {
	return e.withSession(ctx, id, func(s *session.Session) error {
		e.nav.Update(s, force)
		return nil
	})
}

func (e *Engine) withSession(ctx context.Context, id types.Identity, fn func(*session.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := e.Session(id)
	s.Lock()
	defer s.Unlock()
	if s.Closed() {
		return nil
	}
	return fn(s)
}

// navigator implements button.Navigator on a locked session.
type navigator struct {
	e *Engine
}

func (n *navigator) OpenCluster(s *session.Session, clusterID string) error {
	c, ok := n.e.clusters.Get(clusterID)
	if !ok || c.MainMenu() == "" {
		n.e.log.Debug("open cluster ignored", logging.Identity(s.Identity()), zap.String("cluster", clusterID))
		return nil
	}
	key := types.Key{Cluster: clusterID, Window: c.MainMenu()}
	if err := n.enter(s, key, "open_cluster"); err != nil {
		return err
	}
	s.Navigate(key)
	n.shown(s)
	return nil
}

func (n *navigator) ChangeWindow(s *session.Session, key types.Key) error {
	if err := n.enter(s, key, "change_window"); err != nil {
		return err
	}
	s.Navigate(key)
	n.shown(s)
	return nil
}

func (n *navigator) Back(s *session.Session) error {
	key, ok := s.PopHistory()
	if !ok {
		return nil
	}
	if err := n.enter(s, key, "back"); err != nil {
		s.PushHistory(key)
		return err
	}
	s.Restore(key)
	n.shown(s)
	return nil
}

func (n *navigator) Close(s *session.Session) error {
	wasCapturing := s.ChatCaptureActive()
	s.ClearWindow()
	if n.e.sched.Cancel(s.Identity()) {
		n.e.metrics.AddRendersCancelled(1)
	}
	if wasCapturing {
		n.e.metrics.RecordChatCapture("cancelled")
	}
	if err := n.e.host.CloseSurface(s.Identity()); err != nil {
		return fmt.Errorf("close surface: %w", err)
	}
	return nil
}

func (n *navigator) RunChat(s *session.Session, captureID int, prompt string) error {
	if s.Current().Window == "" {
		return n.e.configError("run_chat", s.Current(), fmt.Errorf("no window open"))
	}
	s.StartChatCapture(captureID)
	s.SetHidden(true)
	n.e.metrics.RecordChatCapture("started")
	if err := n.e.host.CloseSurface(s.Identity()); err != nil {
		n.e.log.Warn("hide surface for chat failed", logging.Identity(s.Identity()), zap.Error(err))
	}
	if prompt == "" {
		return nil
	}
	if err := n.e.host.SendMessage(s.Identity(), n.e.titles.ReplaceKeys(prompt)); err != nil {
		return fmt.Errorf("send chat prompt: %w", err)
	}
	return nil
}

func (n *navigator) Update(s *session.Session, force bool) {
	n.e.requestRender(s, force)
}

func (n *navigator) HasPermission(id types.Identity, key string) bool {
	return n.e.perms.HasPermission(id, key)
}

// enter validates that key may be opened by the session.
func (n *navigator) enter(s *session.Session, key types.Key, op string) error {
	_, w, err := n.e.clusters.Resolve(key)
	if err != nil {
		return n.e.configError(op, key, err)
	}
	if perm := w.Permission(); perm != "" && !n.e.perms.HasPermission(s.Identity(), perm) {
		n.e.log.Warn("window denied", logging.Identity(s.Identity()), logging.Window(key), zap.String("permission", perm))
		return &ConfigError{Op: op, Key: key, Err: ErrForbidden}
	}
	return nil
}

// shown finishes a navigation: any chat capture belongs to the old window.
func (n *navigator) shown(s *session.Session) {
	if s.ChatCaptureActive() {
		s.CancelChatCapture()
		n.e.metrics.RecordChatCapture("cancelled")
	}
	s.SetHidden(false)
	n.e.requestRender(s, false)
}
