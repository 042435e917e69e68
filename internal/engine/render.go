package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// requestRender queues a pass for the current window. The caller holds the
// session lock; the pass itself runs later under the same lock, so it
// always observes the finished interaction.
func (e *Engine) requestRender(s *session.Session, force bool) {
	key := s.Current()
	if s.Closed() || key.Window == "" {
		return
	}
	s.RequestRender(key, force)
	if w, ok := e.clusters.Window(key); ok {
		w.MarkStale(s.Identity())
	}
	id := s.Identity()
	e.sched.Schedule(id, func() { e.runRender(id) })
}

// Flush runs the identity's pending render now, or waits for one already in
// progress. The caller must not hold the session lock.
func (e *Engine) Flush(id types.Identity) bool {
	return e.sched.Flush(id)
}

func (e *Engine) runRender(id types.Identity) {
	s, ok := e.sessions.Lookup(id)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	e.renderLocked(context.Background(), s)
}

func (e *Engine) renderLocked(ctx context.Context, s *session.Session) {
	if s.Closed() {
		return
	}
	req, ok := s.TakeRenderRequest()
	if !ok {
		return
	}
	log := e.log.With(logging.Identity(s.Identity()), logging.Window(req.Key))
	if req.Key != s.Current() {
		log.Debug("render skipped, window changed")
		return
	}
	if s.ChatCaptureActive() {
		log.Debug("render skipped, chat capture active")
		return
	}
	w, ok := e.clusters.Window(req.Key)
	if !ok {
		log.Error("render target vanished")
		return
	}

	start := time.Now()
	v, err := w.Render(ctx, s, req.Force, window.Env{
		Surfaces: e.host,
		Titles:   e.titles,
		Globals:  e.clusters.Globals(req.Key.Cluster),
		Logger:   log,
	})
	if err != nil {
		log.Error("render failed", zap.Error(err))
		return
	}
	e.metrics.RecordRender(req.Force, time.Since(start))
	if err := e.host.OpenSurface(s.Identity(), v); err != nil {
		log.Warn("open surface failed", zap.Error(err))
	}
}
