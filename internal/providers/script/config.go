package script

import (
	"errors"
	"time"
)

var (
	ErrPoolClosed = errors.New("script pool is closed")
	ErrTimeout    = errors.New("script runtime acquisition timeout")
	ErrNoExecute  = errors.New("script does not define an execute function")
)

// Config bounds script execution.
type Config struct {
	// Timeout interrupts a single call.
	Timeout time.Duration
	// MaxCallStack limits recursion depth.
	MaxCallStack int
	// PoolSize is the number of runtimes kept warm.
	PoolSize int
	// AcquireTimeout bounds the wait for a free runtime.
	AcquireTimeout time.Duration
}

// DefaultConfig returns conservative limits.
func DefaultConfig() Config {
	return Config{
		Timeout:        250 * time.Millisecond,
		MaxCallStack:   1024,
		PoolSize:       4,
		AcquireTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = def.MaxCallStack
	}
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = def.AcquireTimeout
	}
	return c
}
