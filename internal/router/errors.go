package router

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// ExecutionError describes a button that failed while handling an event.
type ExecutionError struct {
	ButtonID string
	Slot     int
	Identity types.Identity
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("button %q at slot %d for %s: %v", e.ButtonID, e.Slot, e.Identity, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking button.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
