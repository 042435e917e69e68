package button

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Static only displays an icon; every click on it is cancelled.
type Static struct{ base }

// NewStatic creates a display-only button.
func NewStatic(id string, icon *types.Item) *Static {
	return &Static{base{id: id, icon: icon}}
}

func (s *Static) Execute(context.Context, *Interaction) (bool, error) { return true, nil }

// Action runs an arbitrary function.
type Action struct {
	base
	exec   ExecFunc
	render RenderFunc
}

// NewAction creates a button backed by exec.
func NewAction(id string, icon *types.Item, exec ExecFunc) *Action {
	return &Action{base: base{id: id, icon: icon}, exec: exec}
}

// WithRender replaces the default icon rendering.
func (a *Action) WithRender(fn RenderFunc) *Action {
	a.render = fn
	return a
}

func (a *Action) Execute(ctx context.Context, in *Interaction) (bool, error) {
	if a.exec == nil {
		return true, nil
	}
	return a.exec(ctx, in)
}

func (a *Action) Render(ctx context.Context, rc *RenderContext) error {
	if a.render != nil {
		return a.render(ctx, rc)
	}
	return a.base.Render(ctx, rc)
}

// Link navigates to another window. An empty target cluster means the
// cluster of the window the button sits in.
type Link struct {
	base
	target types.Key
}

// NewLink creates a navigation button.
func NewLink(id string, icon *types.Item, target types.Key) *Link {
	return &Link{base: base{id: id, icon: icon}, target: target}
}

// Target returns the navigation target.
func (l *Link) Target() types.Key { return l.target }

func (l *Link) Execute(_ context.Context, in *Interaction) (bool, error) {
	target := l.target
	if target.Cluster == "" {
		target.Cluster = in.Window.Cluster
	}
	if err := in.Nav.ChangeWindow(in.Session, target); err != nil {
		return true, fmt.Errorf("navigate to %s: %w", target, err)
	}
	return true, nil
}

// Back returns to the previous window.
type Back struct{ base }

// NewBack creates a back button.
func NewBack(id string, icon *types.Item) *Back {
	return &Back{base{id: id, icon: icon}}
}

func (b *Back) Execute(_ context.Context, in *Interaction) (bool, error) {
	return true, in.Nav.Back(in.Session)
}

// Close closes the session's window.
type Close struct{ base }

// NewClose creates a close button.
func NewClose(id string, icon *types.Item) *Close {
	return &Close{base{id: id, icon: icon}}
}

func (c *Close) Execute(_ context.Context, in *Interaction) (bool, error) {
	return true, in.Nav.Close(in.Session)
}

// Toggle flips a per-session boolean kept in the session cache.
type Toggle struct {
	base
	off      *types.Item
	onChange func(in *Interaction, enabled bool) error
}

// NewToggle creates a toggle showing on when enabled and off otherwise.
func NewToggle(id string, on, off *types.Item) *Toggle {
	return &Toggle{base: base{id: id, icon: on}, off: off}
}

// OnChange registers a callback run after every flip.
func (t *Toggle) OnChange(fn func(in *Interaction, enabled bool) error) *Toggle {
	t.onChange = fn
	return t
}

func (t *Toggle) cacheKey() string { return "toggle." + t.id }

// Enabled reads the toggle state from a session cache.
func (t *Toggle) Enabled(in *cache.Instance) bool {
	v, ok := in.Get(t.cacheKey())
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (t *Toggle) Execute(_ context.Context, in *Interaction) (bool, error) {
	c := in.Session.Cache()
	enabled := !t.Enabled(c)
	c.Set(t.cacheKey(), enabled)
	if t.onChange != nil {
		if err := t.onChange(in, enabled); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (t *Toggle) Render(_ context.Context, rc *RenderContext) error {
	if t.Enabled(rc.Session.Cache()) {
		rc.View.Set(rc.Slot, t.icon)
	} else {
		rc.View.Set(rc.Slot, t.off)
	}
	return nil
}

// Input lets real items be placed into its slot and remembers them in the
// session cache.
type Input struct {
	base
	accept func(*types.Item) bool
}

// NewInput creates an input-capturing button. accept may be nil.
func NewInput(id string, accept func(*types.Item) bool) *Input {
	return &Input{base: base{id: id}, accept: accept}
}

func (i *Input) CapturesInput() bool { return true }

func (i *Input) cacheKey(window types.Key) string {
	return "input." + window.String() + "." + i.id
}

// Stored returns the item currently held for the session.
func (i *Input) Stored(in *cache.Instance, window types.Key) *types.Item {
	v, ok := in.Get(i.cacheKey(window))
	if !ok {
		return nil
	}
	item, _ := v.(*types.Item)
	return item.Clone()
}

func (i *Input) Execute(_ context.Context, in *Interaction) (bool, error) {
	ev := in.Event
	switch ev.Action {
	case types.ActionPlace, types.ActionPlaceSome:
		return i.put(in, ev.Cursor, true), nil
	case types.ActionSwap:
		return i.put(in, ev.Cursor, false), nil
	case types.ActionMoveToOther:
		if ev.Region == types.RegionPlayer {
			return i.put(in, ev.Item, true), nil
		}
		i.store(in, nil)
	case types.ActionPickup, types.ActionDrop:
		i.store(in, nil)
	case types.ActionCollectToCursor:
		i.collect(in)
	}
	return false, nil
}

// put stores incoming. A similar stored stack is topped up to its limit when
// merge is set; anything else is replaced.
func (i *Input) put(in *Interaction, incoming *types.Item, merge bool) bool {
	if incoming.IsEmpty() {
		if !merge {
			i.store(in, nil)
		}
		return false
	}
	if i.accept != nil && !i.accept(incoming) {
		return true
	}
	stored := i.Stored(in.Session.Cache(), in.Window)
	if merge && stored.Similar(incoming) {
		stored.Amount += min(incoming.Amount, stored.Room())
		i.store(in, stored)
		return false
	}
	i.store(in, incoming.Clone())
	return false
}

// collect gives a stack similar to the cursor up toward the cursor's room.
// The event's cursor grows by what was taken so later slots see less room.
func (i *Input) collect(in *Interaction) {
	cursor := in.Event.Cursor
	stored := i.Stored(in.Session.Cache(), in.Window)
	if !stored.Similar(cursor) {
		return
	}
	taken := min(stored.Amount, cursor.Room())
	if taken == 0 {
		return
	}
	stored.Amount -= taken
	grown := cursor.Clone()
	grown.Amount += taken
	in.Event.Cursor = grown
	if stored.Amount == 0 {
		stored = nil
	}
	i.store(in, stored)
}

func (i *Input) store(in *Interaction, item *types.Item) {
	c := in.Session.Cache()
	if item.IsEmpty() {
		c.Delete(i.cacheKey(in.Window))
		return
	}
	c.Set(i.cacheKey(in.Window), item)
}

func (i *Input) Render(_ context.Context, rc *RenderContext) error {
	rc.View.Set(rc.Slot, i.Stored(rc.Session.Cache(), rc.Window))
	return nil
}

// Chat asks the user for free text and routes the reply to the window.
type Chat struct {
	base
	captureID int
	prompt    string
}

// NewChat creates a chat prompt button.
func NewChat(id string, icon *types.Item, captureID int, prompt string) *Chat {
	return &Chat{base: base{id: id, icon: icon}, captureID: captureID, prompt: prompt}
}

func (c *Chat) Execute(_ context.Context, in *Interaction) (bool, error) {
	return true, in.Nav.RunChat(in.Session, c.captureID, c.prompt)
}
