package ws

import (
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Client frame types.
const (
	TypeClick = "click"
	TypeDrag  = "drag"
	TypeChat  = "chat"
	TypeOpen  = "open"
	TypeBack  = "back"
	TypeClose = "close"
	TypePing  = "ping"
)

// Server frame types.
const (
	TypeSurfaceOpen  = "surface_open"
	TypeSurfaceClose = "surface_close"
	TypeMessage      = "message"
	TypeResult       = "result"
	TypePong         = "pong"
	TypeError        = "error"
)

// Inbound is a frame sent by a client. Fields are used according to Type.
type Inbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`

	Surface types.SurfaceHandle `json:"surface,omitempty"`
	Region  types.Region        `json:"region,omitempty"`
	Slot    int                 `json:"slot,omitempty"`
	Action  types.Action        `json:"action,omitempty"`
	Item    *types.Item         `json:"item,omitempty"`
	Cursor  *types.Item         `json:"cursor,omitempty"`
	Slots   map[int]types.Item  `json:"slots,omitempty"`

	Message string `json:"message,omitempty"`
	Cluster string `json:"cluster,omitempty"`
	Window  string `json:"window,omitempty"`
}

// Outbound is a frame sent to a client.
type Outbound struct {
	Type      string         `json:"type"`
	Event     string         `json:"event,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Cancelled bool           `json:"cancelled,omitempty"`
	Surface   *view.Snapshot `json:"surface,omitempty"`
	Text      string         `json:"text,omitempty"`
	From      string         `json:"from,omitempty"`
	Error     string         `json:"error,omitempty"`
}
