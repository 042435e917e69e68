// Package session holds per-identity navigation state and its registry.
package session

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// RenderRequest is a pending render pass for one window.
type RenderRequest struct {
	Key   types.Key
	Force bool
}

// Session is the navigation state of one identity.
//
// Lock/Unlock serialize whole interactions (a click, a navigation, a render
// pass, a teardown) for the identity. Field accessors are independently
// synchronized and may be called with or without that lock.
type Session struct {
	op sync.Mutex

	identity  types.Identity
	createdAt time.Time
	cache     *cache.Instance

	mu         sync.RWMutex
	cluster    string      // Protected by mu
	window     string      // Protected by mu
	history    []types.Key // Protected by mu
	chatID     int         // Protected by mu
	chatActive bool        // Protected by mu
	hidden     bool        // Protected by mu
	pending    *RenderRequest
	closed     bool
}

// New creates a session owning the given cache instance.
func New(identity types.Identity, c *cache.Instance) *Session {
	return &Session{
		identity:  identity,
		createdAt: time.Now(),
		cache:     c,
	}
}

// Lock starts an interaction for this identity.
func (s *Session) Lock() { s.op.Lock() }

// Unlock ends the interaction started by Lock.
func (s *Session) Unlock() { s.op.Unlock() }

// Identity returns the owning identity.
func (s *Session) Identity() types.Identity { return s.identity }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Cache returns the session's scratch store.
func (s *Session) Cache() *cache.Instance { return s.cache }

// ClusterID returns the current cluster id.
func (s *Session) ClusterID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cluster
}

// SetCluster changes the current cluster without touching the window.
func (s *Session) SetCluster(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cluster = id
}

// Current returns the open window, or a zero key when none is open.
func (s *Session) Current() types.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == "" {
		return types.Key{Cluster: s.cluster}
	}
	return types.Key{Cluster: s.cluster, Window: s.window}
}

// Navigate points the session at key and pushes the previously open window
// onto the back-stack.
func (s *Session) Navigate(key types.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window != "" {
		s.history = append(s.history, types.Key{Cluster: s.cluster, Window: s.window})
	}
	s.cluster = key.Cluster
	s.window = key.Window
}

// Restore points the session at key without touching the back-stack.
func (s *Session) Restore(key types.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cluster = key.Cluster
	s.window = key.Window
}

// PopHistory removes and returns the most recent back-stack entry.
func (s *Session) PopHistory() (types.Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if n == 0 {
		return types.Key{}, false
	}
	key := s.history[n-1]
	s.history = s.history[:n-1]
	return key, true
}

// PushHistory puts key back on top of the back-stack.
func (s *Session) PushHistory(key types.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, key)
}

// History returns a copy of the back-stack, oldest first.
func (s *Session) History() []types.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Key, len(s.history))
	copy(out, s.history)
	return out
}

// ClearWindow closes the current window and disarms any chat capture.
func (s *Session) ClearWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = ""
	s.chatActive = false
	s.hidden = false
	s.pending = nil
}

// StartChatCapture routes the next free-text message to the current window
// under the given capture id.
func (s *Session) StartChatCapture(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = id
	s.chatActive = true
}

// ChatCaptureActive reports whether a chat capture is armed.
func (s *Session) ChatCaptureActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatActive
}

// ChatCaptureID returns the armed capture id.
func (s *Session) ChatCaptureID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID, s.chatActive
}

// TakeChatCapture disarms the capture and returns its id. Capture is
// single-shot; handlers re-arm it explicitly.
func (s *Session) TakeChatCapture() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.chatActive {
		return 0, false
	}
	s.chatActive = false
	return s.chatID, true
}

// CancelChatCapture disarms any capture.
func (s *Session) CancelChatCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatActive = false
}

// SetHidden records whether the surface was taken down while the window
// stays current (chat capture in progress).
func (s *Session) SetHidden(hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = hidden
}

// Hidden reports whether the current window's surface is hidden.
func (s *Session) Hidden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden
}

// RequestRender records a pending render for key. Requests coalesce: the
// latest key wins and force flags are OR-ed.
func (s *Session) RequestRender(key types.Key, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.Key == key {
		s.pending.Force = s.pending.Force || force
		return
	}
	s.pending = &RenderRequest{Key: key, Force: force}
}

// TakeRenderRequest removes and returns the pending render.
func (s *Session) TakeRenderRequest() (RenderRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return RenderRequest{}, false
	}
	req := *s.pending
	s.pending = nil
	return req, true
}

// RenderPending reports whether a render is waiting.
func (s *Session) RenderPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending != nil
}

// Close marks the session dead. Closed sessions ignore pending work.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	s.chatActive = false
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Info is a read-only summary of a session.
type Info struct {
	Identity    types.Identity `json:"identity"`
	Cluster     string         `json:"cluster"`
	Window      string         `json:"window,omitempty"`
	Depth       int            `json:"depth"`
	ChatCapture bool           `json:"chat_capture"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Info summarizes the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		Identity:    s.identity,
		Cluster:     s.cluster,
		Window:      s.window,
		Depth:       len(s.history),
		ChatCapture: s.chatActive,
		CreatedAt:   s.createdAt,
	}
}
