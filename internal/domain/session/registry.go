package session

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

const shardCount = 32

// CacheSource builds the scratch store for a new session.
type CacheSource interface {
	New() (*cache.Instance, error)
}

// Registry maps identities to sessions. The map is sharded by identity so
// traffic for different users does not contend on a single lock.
type Registry struct {
	shards [shardCount]shard
	caches CacheSource
	onInit func(types.Identity, error)
}

type shard struct {
	mu       sync.RWMutex
	sessions map[types.Identity]*Session // Protected by mu
}

// NewRegistry creates an empty registry drawing caches from caches.
// onCacheError, if set, is told when a cache factory fails for a new session.
func NewRegistry(caches CacheSource, onCacheError func(types.Identity, error)) *Registry {
	r := &Registry{caches: caches, onInit: onCacheError}
	for i := range r.shards {
		r.shards[i].sessions = make(map[types.Identity]*Session)
	}
	return r
}

func (r *Registry) shardFor(id types.Identity) *shard {
	return &r.shards[xxhash.Sum64(id[:])%shardCount]
}

// GetOrCreate returns the identity's session, creating it on first access.
func (r *Registry) GetOrCreate(id types.Identity) *Session {
	s, _ := r.LoadOrCreate(id)
	return s
}

// LoadOrCreate is GetOrCreate that also reports whether the session was
// created by this call.
func (r *Registry) LoadOrCreate(id types.Identity) (*Session, bool) {
	sh := r.shardFor(id)

	sh.mu.RLock()
	s, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if ok {
		return s, false
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok {
		return s, false
	}
	c, err := r.caches.New()
	if err != nil && r.onInit != nil {
		r.onInit(id, err)
	}
	s = New(id, c)
	sh.sessions[id] = s
	return s, true
}

// Lookup returns the identity's session without creating one.
func (r *Registry) Lookup(id types.Identity) (*Session, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Remove detaches and closes the identity's session. The session lock is
// taken so an in-flight interaction finishes before teardown.
func (r *Registry) Remove(id types.Identity) (*Session, bool) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
	}
	sh.mu.Unlock()
	if !ok {
		return nil, false
	}

	s.Lock()
	s.Close()
	s.Unlock()
	return s, true
}

// IfAbsent runs fn while holding the identity's shard, but only when no
// session is tracked for it. It reports whether fn ran. A session for id
// cannot be created while fn runs.
func (r *Registry) IfAbsent(id types.Identity, fn func()) bool {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; ok {
		return false
	}
	fn()
	return true
}

// Clear detaches and closes every session, returning them.
func (r *Registry) Clear() []*Session {
	var removed []*Session
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, s := range sh.sessions {
			removed = append(removed, s)
			delete(sh.sessions, id)
		}
		sh.mu.Unlock()
	}
	for _, s := range removed {
		s.Lock()
		s.Close()
		s.Unlock()
	}
	return removed
}

// List returns every live session.
func (r *Registry) List() []*Session {
	var out []*Session
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, s := range sh.sessions {
			out = append(out, s)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
