package types

// Region tells which side of an open view a click landed on.
type Region string

const (
	// RegionOutside is a click outside any inventory.
	RegionOutside Region = ""
	// RegionManaged is the engine-owned top surface.
	RegionManaged Region = "managed"
	// RegionPlayer is the user's own inventory below it.
	RegionPlayer Region = "player"
)

// Action classifies what a click tries to do.
type Action string

const (
	ActionPickup          Action = "pickup"
	ActionPlace           Action = "place"
	ActionPlaceSome       Action = "place_some"
	ActionSwap            Action = "swap"
	ActionDrop            Action = "drop"
	ActionCollectToCursor Action = "collect_to_cursor"
	ActionMoveToOther     Action = "move_to_other"
)

// ClickEvent is a single-slot interaction delivered by the host. Handlers set
// Cancelled to veto the host's default behavior.
type ClickEvent struct {
	Identity  Identity      `json:"identity"`
	Surface   SurfaceHandle `json:"surface"`
	Region    Region        `json:"region"`
	Slot      int           `json:"slot"`
	Action    Action        `json:"action"`
	Item      *Item         `json:"item,omitempty"`
	Cursor    *Item         `json:"cursor,omitempty"`
	Cancelled bool          `json:"cancelled"`
}

// DragEvent spreads the cursor stack over several slots. Slots maps raw slot
// numbers (managed slots first, then the player's) to the item each receives.
type DragEvent struct {
	Identity  Identity      `json:"identity"`
	Surface   SurfaceHandle `json:"surface"`
	Slots     map[int]Item  `json:"slots"`
	Cursor    *Item         `json:"cursor,omitempty"`
	Cancelled bool          `json:"cancelled"`
}

// ChatEvent is a free-text message about to be published.
type ChatEvent struct {
	Identity  Identity `json:"identity"`
	Message   string   `json:"message"`
	Cancelled bool     `json:"cancelled"`
}
