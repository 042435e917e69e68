// Package cluster groups windows under a name, with cluster-global buttons
// and a main menu entry point.
package cluster

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// DefaultCluster is registered by every Registry.
const DefaultCluster = "none"

var (
	// ErrNotFound is returned for unknown clusters and windows.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate aliases window.ErrDuplicate so either matches with errors.Is.
	ErrDuplicate = window.ErrDuplicate
)

// Cluster is a named set of windows.
type Cluster struct {
	id string

	mu       sync.RWMutex
	windows  map[string]*window.Window // Protected by mu
	buttons  map[string]button.Button  // Protected by mu
	mainMenu string                    // Protected by mu
}

func newCluster(id string) *Cluster {
	return &Cluster{
		id:      id,
		windows: make(map[string]*window.Window),
		buttons: make(map[string]button.Button),
	}
}

func (c *Cluster) ID() string { return c.id }

// RegisterWindow adds w and attaches it to this cluster.
func (c *Cluster) RegisterWindow(w *window.Window) error {
	if err := w.Layout().Validate(); err != nil {
		return fmt.Errorf("window %q: %w", w.ID(), err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.windows[w.ID()]; ok {
		return fmt.Errorf("window %q in cluster %q: %w", w.ID(), c.id, ErrDuplicate)
	}
	if err := w.Attach(c.id); err != nil {
		return err
	}
	c.windows[w.ID()] = w
	return nil
}

// RegisterButton adds a cluster-global button. Globals are never placed
// implicitly; window render hooks place them.
func (c *Cluster) RegisterButton(b button.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.buttons[b.ID()]; ok {
		return fmt.Errorf("global button %q in cluster %q: %w", b.ID(), c.id, ErrDuplicate)
	}
	c.buttons[b.ID()] = b
	return nil
}

// Window looks up a window by id.
func (c *Cluster) Window(id string) (*window.Window, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[id]
	return w, ok
}

// Button looks up a global button by id.
func (c *Cluster) Button(id string) (button.Button, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.buttons[id]
	return b, ok
}

// Windows returns the windows sorted by id.
func (c *Cluster) Windows() []*window.Window {
	c.mu.RLock()
	out := make([]*window.Window, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, w)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ButtonIDs returns the global button ids, sorted.
func (c *Cluster) ButtonIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.buttons))
	for id := range c.buttons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetMainMenu names the entry window. It must already be registered.
func (c *Cluster) SetMainMenu(windowID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.windows[windowID]; !ok {
		return fmt.Errorf("main menu %q in cluster %q: %w", windowID, c.id, ErrNotFound)
	}
	c.mainMenu = windowID
	return nil
}

// MainMenu returns the entry window id, or "" when unset.
func (c *Cluster) MainMenu() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mainMenu
}

// Registry holds every cluster of an engine.
type Registry struct {
	mu       sync.RWMutex
	clusters map[string]*Cluster
}

// NewRegistry creates a registry holding DefaultCluster.
func NewRegistry() *Registry {
	r := &Registry{clusters: make(map[string]*Cluster)}
	r.Register(DefaultCluster)
	return r
}

// Register creates the cluster if absent. An existing cluster is returned
// untouched.
func (r *Registry) Register(id string) *Cluster {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clusters[id]; ok {
		return c
	}
	c := newCluster(id)
	r.clusters[id] = c
	return c
}

// Get looks up a cluster.
func (r *Registry) Get(id string) (*Cluster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clusters[id]
	return c, ok
}

// RegisterWindow adds w to an existing cluster.
func (r *Registry) RegisterWindow(clusterID string, w *window.Window) error {
	c, ok := r.Get(clusterID)
	if !ok {
		return fmt.Errorf("cluster %q: %w", clusterID, ErrNotFound)
	}
	return c.RegisterWindow(w)
}

// Window resolves a (cluster, window) key.
func (r *Registry) Window(key types.Key) (*window.Window, bool) {
	c, ok := r.Get(key.Cluster)
	if !ok {
		return nil, false
	}
	return c.Window(key.Window)
}

// Resolve is like Window but reports which part is missing.
func (r *Registry) Resolve(key types.Key) (*Cluster, *window.Window, error) {
	c, ok := r.Get(key.Cluster)
	if !ok {
		return nil, nil, fmt.Errorf("cluster %q: %w", key.Cluster, ErrNotFound)
	}
	w, ok := c.Window(key.Window)
	if !ok {
		return c, nil, fmt.Errorf("window %s: %w", key, ErrNotFound)
	}
	return c, w, nil
}

// Globals returns a lookup over the global buttons of a cluster.
func (r *Registry) Globals(clusterID string) window.Lookup {
	return func(id string) (button.Button, bool) {
		c, ok := r.Get(clusterID)
		if !ok {
			return nil, false
		}
		return c.Button(id)
	}
}

// List returns the clusters sorted by id.
func (r *Registry) List() []*Cluster {
	r.mu.RLock()
	out := make([]*Cluster, 0, len(r.clusters))
	for _, c := range r.clusters {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// DropViews forgets one session's views in every window.
func (r *Registry) DropViews(id types.Identity) {
	for _, c := range r.List() {
		for _, w := range c.Windows() {
			w.DropViews(id)
		}
	}
}

// ClearViews forgets every cached view.
func (r *Registry) ClearViews() {
	for _, c := range r.List() {
		for _, w := range c.Windows() {
			w.ClearViews()
		}
	}
}

// ViewCount sums cached views over all windows.
func (r *Registry) ViewCount() int {
	n := 0
	for _, c := range r.List() {
		for _, w := range c.Windows() {
			n += w.ViewCount()
		}
	}
	return n
}
