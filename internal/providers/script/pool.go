package script

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// pool hands out runtimes one call at a time.
type pool struct {
	config   Config
	log      *zap.Logger
	runtimes chan *runtime
	mu       sync.RWMutex
	closed   bool // Protected by mu
}

func newPool(config Config, log *zap.Logger) *pool {
	p := &pool{config: config, log: log, runtimes: make(chan *runtime, config.PoolSize)}
	for i := 0; i < config.PoolSize; i++ {
		p.runtimes <- newRuntime(config, log)
	}
	return p
}

func (p *pool) acquire(ctx context.Context) (*runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()
	select {
	case r := <-p.runtimes:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// release resets r and returns it to the pool.
func (p *pool) release(r *runtime) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	r.reset()
	select {
	case p.runtimes <- r:
	default:
	}
}

func (p *pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.runtimes)
	for range p.runtimes {
	}
}

// with runs fn on a pooled runtime.
func (p *pool) with(ctx context.Context, fn func(*runtime) error) error {
	r, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer p.release(r)
	return fn(r)
}
