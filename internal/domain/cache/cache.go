// Package cache implements the per-session scratch store.
//
// Each session owns exactly one Instance. An Instance carries an optional
// typed value produced by the application's Factory plus a free-form
// key/value area and the per-window slot placements made during render.
package cache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Factory builds the typed part of a new session cache.
type Factory func() (any, error)

// InitError reports that the cache factory could not produce a value.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("cache init failed: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Provider hands out Instances built by a validated Factory.
type Provider struct {
	factory Factory
}

// NewProvider validates factory by invoking it once. A nil factory yields
// instances without a typed value.
func NewProvider(factory Factory) (*Provider, error) {
	if factory != nil {
		if _, err := call(factory); err != nil {
			return nil, &InitError{Err: err}
		}
	}
	return &Provider{factory: factory}, nil
}

// New returns a fresh Instance. On factory failure the instance is still
// returned, without a typed value, alongside the error.
func (p *Provider) New() (*Instance, error) {
	in := newInstance()
	if p.factory == nil {
		return in, nil
	}
	v, err := call(p.factory)
	if err != nil {
		return in, &InitError{Err: err}
	}
	in.value = v
	return in, nil
}

func call(f Factory) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("factory panic: %v", r)
		}
	}()
	return f()
}

// Instance is one session's scratch store. Safe for concurrent use.
type Instance struct {
	mu         sync.RWMutex
	value      any
	values     map[string]any
	placements map[types.Key]map[int]string
}

func newInstance() *Instance {
	return &Instance{
		values:     make(map[string]any),
		placements: make(map[types.Key]map[int]string),
	}
}

// Value returns the typed value built by the factory (nil when none).
func (in *Instance) Value() any {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.value
}

// As returns the factory value as T.
func As[T any](in *Instance) (T, bool) {
	v, ok := in.Value().(T)
	return v, ok
}

// Get returns a free-form value.
func (in *Instance) Get(key string) (any, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, ok := in.values[key]
	return v, ok
}

// Set stores a free-form value.
func (in *Instance) Set(key string, value any) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.values[key] = value
}

// Delete removes a free-form value.
func (in *Instance) Delete(key string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.values, key)
}

// Keys lists free-form keys in sorted order.
func (in *Instance) Keys() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	keys := make([]string, 0, len(in.values))
	for k := range in.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetTyped fetches a free-form value as T.
func GetTyped[T any](in *Instance, key string) (T, bool) {
	v, ok := in.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Place records that buttonID occupies slot of window for this session.
func (in *Instance) Place(window types.Key, slot int, buttonID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	m, ok := in.placements[window]
	if !ok {
		m = make(map[int]string)
		in.placements[window] = m
	}
	m[slot] = buttonID
}

// Placed returns the button id placed at slot of window.
func (in *Instance) Placed(window types.Key, slot int) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.placements[window][slot]
	return id, ok
}

// Placements returns a copy of the placements of window.
func (in *Instance) Placements(window types.Key) map[int]string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make(map[int]string, len(in.placements[window]))
	for slot, id := range in.placements[window] {
		out[slot] = id
	}
	return out
}

// ClearPlacements forgets every placement of window.
func (in *Instance) ClearPlacements(window types.Key) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.placements, window)
}
