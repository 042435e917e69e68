// Package button defines the unit of interactive behavior bound to a slot.
//
// A Button is a capability interface: every variant (navigation, input
// capture, toggle, chat prompt, scripted) implements the same Execute and
// Render contract and is dispatched dynamically by the router and the
// window render pass.
package button

import (
	"context"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Button is bound to a slot or registered globally on a cluster.
type Button interface {
	// ID is unique within the registration scope.
	ID() string
	// Execute handles an interaction on the button's slot. The boolean is
	// the cancel decision for the host event.
	Execute(ctx context.Context, in *Interaction) (bool, error)
	// Render draws the button into the view during a render pass.
	Render(ctx context.Context, rc *RenderContext) error
}

// InputCapturer is implemented by buttons whose slot accepts real items.
type InputCapturer interface {
	CapturesInput() bool
}

// CapturesInput reports whether b takes part in collect-to-cursor actions.
func CapturesInput(b Button) bool {
	ic, ok := b.(InputCapturer)
	return ok && ic.CapturesInput()
}

// Navigator is the slice of the engine a button may drive. All methods
// expect the session to be locked by the caller, which the router does for
// the duration of Execute.
type Navigator interface {
	OpenCluster(s *session.Session, clusterID string) error
	ChangeWindow(s *session.Session, key types.Key) error
	Back(s *session.Session) error
	Close(s *session.Session) error
	RunChat(s *session.Session, captureID int, prompt string) error
	Update(s *session.Session, force bool)
	HasPermission(id types.Identity, key string) bool
}

// Interaction describes one Execute call.
type Interaction struct {
	Session *session.Session
	Window  types.Key
	Slot    int
	Event   *types.ClickEvent
	View    *view.View
	Nav     Navigator
}

// RenderContext describes one Render call.
type RenderContext struct {
	Session *session.Session
	Window  types.Key
	Slot    int
	View    *view.View
}

// ExecFunc is the behavior of an Action button.
type ExecFunc func(ctx context.Context, in *Interaction) (bool, error)

// RenderFunc overrides how a button draws itself.
type RenderFunc func(ctx context.Context, rc *RenderContext) error

// base carries the id and icon shared by every built-in variant.
type base struct {
	id   string
	icon *types.Item
}

func (b base) ID() string { return b.id }

func (b base) Render(_ context.Context, rc *RenderContext) error {
	rc.View.Set(rc.Slot, b.icon)
	return nil
}
