package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// HandleChat routes a message to the window that armed a chat capture. The
// capture is disarmed before the window sees the message; when the window
// does not re-arm it, the window is shown again. Messages without a capture
// pass through for normal publication.
func (r *Router) HandleChat(ctx context.Context, ev *types.ChatEvent) Outcome {
	s, ok := r.eng.Lookup(ev.Identity)
	if !ok || !s.ChatCaptureActive() {
		return r.record("chat", Passthrough)
	}
	r.eng.Flush(ev.Identity)
	s.Lock()
	defer s.Unlock()

	captureID, ok := s.TakeChatCapture()
	if !ok || s.Closed() {
		return r.record("chat", Passthrough)
	}
	ev.Cancelled = true
	r.metrics.RecordChatCapture("consumed")

	key := s.Current()
	w, ok := r.eng.Clusters().Window(key)
	if !ok {
		return r.record("chat", Cancelled)
	}
	in := &window.ChatInput{Session: s, Window: key, CaptureID: captureID, Message: ev.Message, Nav: r.nav}
	result, err := parseChat(ctx, w, in)
	log := r.log.With(logging.Identity(ev.Identity), logging.Window(key), zap.Int("capture", captureID))
	if err != nil {
		log.Error("chat handler failed", zap.Error(err))
	} else {
		log.Debug("chat captured", zap.Bool("result", result))
	}

	if !s.ChatCaptureActive() {
		s.SetHidden(false)
		r.nav.Update(s, false)
	}
	return r.record("chat", Cancelled)
}

func parseChat(ctx context.Context, w *window.Window, in *window.ChatInput) (result bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return w.ParseChat(ctx, in), nil
}
