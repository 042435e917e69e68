package engine

import (
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Host is the surface API of the embedding application.
type Host interface {
	CreateSurface(layout types.Layout, title string) (types.SurfaceHandle, error)
	OpenSurface(identity types.Identity, v *view.View) error
	CloseSurface(identity types.Identity) error
	SendMessage(identity types.Identity, text string) error
}

// Localizer expands "$key$" placeholders in window titles.
type Localizer interface {
	ReplaceKeys(template string) string
}

// PermissionChecker is the permission oracle.
type PermissionChecker interface {
	HasPermission(identity types.Identity, key string) bool
}

type allowAll struct{}

func (allowAll) HasPermission(types.Identity, string) bool { return true }

type verbatim struct{}

func (verbatim) ReplaceKeys(template string) string { return template }
