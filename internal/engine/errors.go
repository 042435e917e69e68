package engine

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// ErrForbidden is returned when the permission oracle denies a window.
var ErrForbidden = errors.New("forbidden")

// ConfigError reports a registration or navigation mistake: an unknown
// cluster or window, a duplicate id, or a denied window.
type ConfigError struct {
	Op  string
	Key types.Key
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
