package types

import "fmt"

// SurfaceKind names a fixed-shape surface type offered by the host.
type SurfaceKind string

const (
	KindChest     SurfaceKind = "chest"
	KindHopper    SurfaceKind = "hopper"
	KindDispenser SurfaceKind = "dispenser"
	KindWorkbench SurfaceKind = "workbench"
)

var kindSizes = map[SurfaceKind]int{
	KindChest:     27,
	KindHopper:    5,
	KindDispenser: 9,
	KindWorkbench: 10,
}

// SurfaceHandle identifies one materialized surface instance.
type SurfaceHandle string

// Layout describes the fixed size or type of a window's surface. Either Size
// or Kind is set; a Kind implies its own size.
type Layout struct {
	Size int         `json:"size,omitempty"`
	Kind SurfaceKind `json:"kind,omitempty"`
}

// SizedLayout returns a generic rows-of-nine layout.
func SizedLayout(size int) Layout {
	return Layout{Size: size}
}

// KindLayout returns a fixed-type layout.
func KindLayout(kind SurfaceKind) Layout {
	return Layout{Kind: kind}
}

// Slots returns the number of slots of the surface.
func (l Layout) Slots() int {
	if l.Kind != "" {
		return kindSizes[l.Kind]
	}
	return l.Size
}

// Validate checks the layout is something a host can create.
func (l Layout) Validate() error {
	if l.Kind != "" {
		if _, ok := kindSizes[l.Kind]; !ok {
			return fmt.Errorf("unknown surface kind %q", l.Kind)
		}
		return nil
	}
	if l.Size <= 0 || l.Size > 54 || l.Size%9 != 0 {
		return fmt.Errorf("invalid surface size %d: must be a multiple of 9 up to 54", l.Size)
	}
	return nil
}

// Item is the content of one slot.
type Item struct {
	Key      string            `json:"key"`
	Amount   int               `json:"amount"`
	MaxStack int               `json:"max_stack,omitempty"`
	Name     string            `json:"name,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// IsEmpty reports whether the item represents nothing.
func (i *Item) IsEmpty() bool {
	return i == nil || i.Key == "" || i.Amount <= 0
}

// Similar reports whether two items would merge into one stack, ignoring
// amounts.
func (i *Item) Similar(other *Item) bool {
	if i.IsEmpty() || other.IsEmpty() {
		return false
	}
	if i.Key != other.Key || i.Name != other.Name || len(i.Meta) != len(other.Meta) {
		return false
	}
	for k, v := range i.Meta {
		if other.Meta[k] != v {
			return false
		}
	}
	return true
}

// Room returns how many more units fit on this stack.
func (i *Item) Room() int {
	limit := i.MaxStack
	if limit <= 0 {
		limit = 64
	}
	if i.Amount >= limit {
		return 0
	}
	return limit - i.Amount
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Meta != nil {
		c.Meta = make(map[string]string, len(i.Meta))
		for k, v := range i.Meta {
			c.Meta[k] = v
		}
	}
	return &c
}
