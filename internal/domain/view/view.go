// Package view holds the materialized surface one session sees for one window.
package view

import (
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// View is a rendered container: a host surface handle plus the items placed
// into its slots. It is safe for concurrent use.
type View struct {
	handle types.SurfaceHandle
	layout types.Layout
	title  string

	mu    sync.RWMutex
	items map[int]*types.Item
}

// New creates an empty view for a surface the host already created.
func New(handle types.SurfaceHandle, layout types.Layout, title string) *View {
	return &View{
		handle: handle,
		layout: layout,
		title:  title,
		items:  make(map[int]*types.Item),
	}
}

// Handle returns the host surface handle.
func (v *View) Handle() types.SurfaceHandle { return v.handle }

// Layout returns the fixed layout of the surface.
func (v *View) Layout() types.Layout { return v.layout }

// Title returns the localized title.
func (v *View) Title() string { return v.title }

// Size returns the number of slots.
func (v *View) Size() int { return v.layout.Slots() }

// Contains reports whether slot is inside the surface.
func (v *View) Contains(slot int) bool {
	return slot >= 0 && slot < v.Size()
}

// Set places a copy of item into slot. A nil or empty item clears the slot.
// Out-of-range slots are ignored.
func (v *View) Set(slot int, item *types.Item) {
	if !v.Contains(slot) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if item.IsEmpty() {
		delete(v.items, slot)
		return
	}
	v.items[slot] = item.Clone()
}

// Get returns a copy of the slot content, or nil.
func (v *View) Get(slot int) *types.Item {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items[slot].Clone()
}

// Clear empties every slot.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = make(map[int]*types.Item)
}

// FirstSimilar returns the lowest slot holding a stack item would merge into
// and that still has room, or -1.
func (v *View) FirstSimilar(item *types.Item) int {
	if item.IsEmpty() {
		return -1
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for slot := 0; slot < v.Size(); slot++ {
		cur := v.items[slot]
		if cur.Similar(item) && cur.Room() > 0 {
			return slot
		}
	}
	return -1
}

// FirstEmpty returns the lowest empty slot, or -1 when full.
func (v *View) FirstEmpty() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for slot := 0; slot < v.Size(); slot++ {
		if _, ok := v.items[slot]; !ok {
			return slot
		}
	}
	return -1
}

// Snapshot is a serializable copy of a view.
type Snapshot struct {
	Handle types.SurfaceHandle `json:"handle"`
	Title  string              `json:"title"`
	Layout types.Layout        `json:"layout"`
	Slots  []SlotItem          `json:"slots"`
}

// SlotItem pairs a slot with its content.
type SlotItem struct {
	Slot int        `json:"slot"`
	Item types.Item `json:"item"`
}

// Snapshot copies the current contents in slot order.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	slots := make([]SlotItem, 0, len(v.items))
	for slot, item := range v.items {
		slots = append(slots, SlotItem{Slot: slot, Item: *item.Clone()})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	return Snapshot{
		Handle: v.handle,
		Title:  v.title,
		Layout: v.layout,
		Slots:  slots,
	}
}
