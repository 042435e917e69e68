package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

var (
	// ErrDuplicate is returned when an id or slot is registered twice.
	ErrDuplicate = errors.New("duplicate registration")
	// ErrSlotRange is returned for a slot outside the layout.
	ErrSlotRange = errors.New("slot out of range")
	// ErrUnknownButton is returned when a placement names no known button.
	ErrUnknownButton = errors.New("unknown button")
)

// RenderState tracks one session's view of a window.
type RenderState int

const (
	Unrendered RenderState = iota
	Rendering
	Rendered
	Stale
)

func (s RenderState) String() string {
	switch s {
	case Rendering:
		return "rendering"
	case Rendered:
		return "rendered"
	case Stale:
		return "stale"
	default:
		return "unrendered"
	}
}

// RenderHook runs at the start of every render pass, before any button draws.
type RenderHook func(ctx context.Context, rc *RenderContext) error

// ChatHandler receives a captured chat message. The result is advisory.
type ChatHandler func(ctx context.Context, in *ChatInput) bool

// ChatInput is one captured message routed to a window.
type ChatInput struct {
	Session   *session.Session
	Window    types.Key
	CaptureID int
	Message   string
	Nav       button.Navigator
}

// Option configures a Window.
type Option func(*Window)

// WithTitle sets the title template passed to the localizer. The default is
// "$inventories.<cluster>.<window>$".
func WithTitle(template string) Option {
	return func(w *Window) { w.title = template }
}

// WithPermission gates navigation into the window behind a permission key.
func WithPermission(key string) Option {
	return func(w *Window) { w.permission = key }
}

// WithRenderHook installs the window-level render hook.
func WithRenderHook(fn RenderHook) Option {
	return func(w *Window) { w.hook = fn }
}

// WithChatHandler installs the handler for captured chat messages.
func WithChatHandler(fn ChatHandler) Option {
	return func(w *Window) { w.chat = fn }
}

// Window is one screen of a cluster.
type Window struct {
	id         string
	layout     types.Layout
	title      string
	permission string
	hook       RenderHook
	chat       ChatHandler

	mu      sync.RWMutex
	cluster string                         // Protected by mu
	buttons map[string]button.Button       // Protected by mu
	slots   map[int]string                 // Protected by mu
	views   map[types.Identity]*view.View  // Protected by mu
	states  map[types.Identity]RenderState // Protected by mu
}

// New creates a window. The layout is validated on registration.
func New(id string, layout types.Layout, opts ...Option) *Window {
	w := &Window{
		id:      id,
		layout:  layout,
		buttons: make(map[string]button.Button),
		slots:   make(map[int]string),
		views:   make(map[types.Identity]*view.View),
		states:  make(map[types.Identity]RenderState),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Window) ID() string { return w.id }

func (w *Window) Layout() types.Layout { return w.layout }

// Permission returns the key required to enter, or "".
func (w *Window) Permission() string { return w.permission }

// Attach records the owning cluster. A window belongs to exactly one cluster.
func (w *Window) Attach(clusterID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cluster != "" && w.cluster != clusterID {
		return fmt.Errorf("window %q already attached to cluster %q: %w", w.id, w.cluster, ErrDuplicate)
	}
	w.cluster = clusterID
	return nil
}

// Key returns the (cluster, window) pair; Cluster is empty until attached.
func (w *Window) Key() types.Key {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return types.Key{Cluster: w.cluster, Window: w.id}
}

// TitleTemplate returns the unlocalized title.
func (w *Window) TitleTemplate() string {
	if w.title != "" {
		return w.title
	}
	key := w.Key()
	return "$inventories." + key.Cluster + "." + key.Window + "$"
}

// AddButton registers a window-scoped button that is not bound to a slot.
// Render hooks may place it.
func (w *Window) AddButton(b button.Button) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.buttons[b.ID()]; ok {
		return fmt.Errorf("button %q in window %q: %w", b.ID(), w.id, ErrDuplicate)
	}
	w.buttons[b.ID()] = b
	return nil
}

// Bind attaches b to slot. The same button may occupy several slots; a
// different button reusing a registered id is rejected.
func (w *Window) Bind(slot int, b button.Button) error {
	if slot < 0 || slot >= w.layout.Slots() {
		return fmt.Errorf("bind %q to slot %d of %q: %w", b.ID(), slot, w.id, ErrSlotRange)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.slots[slot]; ok {
		return fmt.Errorf("slot %d of %q already holds %q: %w", slot, w.id, existing, ErrDuplicate)
	}
	if prev, ok := w.buttons[b.ID()]; ok && prev != b {
		return fmt.Errorf("button %q in window %q: %w", b.ID(), w.id, ErrDuplicate)
	}
	w.buttons[b.ID()] = b
	w.slots[slot] = b.ID()
	return nil
}

// Button returns a window-scoped button by id.
func (w *Window) Button(id string) (button.Button, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.buttons[id]
	return b, ok
}

// Bindings returns a copy of the static slot bindings.
func (w *Window) Bindings() map[int]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[int]string, len(w.slots))
	for slot, id := range w.slots {
		out[slot] = id
	}
	return out
}

// Lookup resolves global buttons of the owning cluster.
type Lookup func(id string) (button.Button, bool)

func (w *Window) resolve(id string, globals Lookup) (button.Button, bool) {
	if b, ok := w.Button(id); ok {
		return b, true
	}
	if globals != nil {
		return globals(id)
	}
	return nil, false
}

// ButtonAt returns the button occupying slot for the session: a static
// binding first, then a placement made by the last render pass.
func (w *Window) ButtonAt(s *session.Session, slot int, globals Lookup) (button.Button, bool) {
	w.mu.RLock()
	id, ok := w.slots[slot]
	w.mu.RUnlock()
	if ok {
		return w.resolve(id, globals)
	}
	id, ok = s.Cache().Placed(w.Key(), slot)
	if !ok {
		return nil, false
	}
	return w.resolve(id, globals)
}

// SlotButton is one occupied slot.
type SlotButton struct {
	Slot   int
	Button button.Button
}

// Occupied lists every slot holding a button for the session, in increasing
// slot order.
func (w *Window) Occupied(s *session.Session, globals Lookup) []SlotButton {
	ids := s.Cache().Placements(w.Key())
	for slot, id := range w.Bindings() {
		ids[slot] = id
	}
	out := make([]SlotButton, 0, len(ids))
	for slot, id := range ids {
		if b, ok := w.resolve(id, globals); ok {
			out = append(out, SlotButton{Slot: slot, Button: b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// View returns the cached view of the session, if rendered.
func (w *Window) View(id types.Identity) (*view.View, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.views[id]
	return v, ok
}

// State returns the render state of the session.
func (w *Window) State(id types.Identity) RenderState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.states[id]
}

// MarkStale flags a rendered view as out of date.
func (w *Window) MarkStale(id types.Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.states[id] == Rendered {
		w.states[id] = Stale
	}
}

// DropViews forgets the session's view.
func (w *Window) DropViews(id types.Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.views, id)
	delete(w.states, id)
}

// ClearViews forgets every view.
func (w *Window) ClearViews() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.views = make(map[types.Identity]*view.View)
	w.states = make(map[types.Identity]RenderState)
}

// ViewCount returns the number of cached views.
func (w *Window) ViewCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.views)
}

// ParseChat hands a captured message to the chat handler. Windows without a
// handler report false.
func (w *Window) ParseChat(ctx context.Context, in *ChatInput) bool {
	if w.chat == nil {
		return false
	}
	return w.chat(ctx, in)
}

// HasChatHandler reports whether captured messages are consumed here.
func (w *Window) HasChatHandler() bool { return w.chat != nil }

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
