package resilience

import (
	"strings"
	"sync"
)

// Guard keeps one Breaker per key, created on first use. The router keys it
// by identity, cluster, window and button id, so a button failing for one
// session keeps working for every other.
type Guard struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewGuard creates a guard whose breakers share settings.
func NewGuard(settings Settings) *Guard {
	return &Guard{
		settings: settings.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// Breaker returns the breaker for key, creating it if needed.
func (g *Guard) Breaker(key string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[key]
	if !ok {
		b = New(key, g.settings)
		g.breakers[key] = b
	}
	return b
}

// Do runs fn through the breaker of key.
func (g *Guard) Do(key string, fn func() error) error {
	return g.Breaker(key).Do(fn)
}

// Open lists the keys whose breakers currently reject calls.
func (g *Guard) Open() []string {
	g.mu.Lock()
	breakers := make([]*Breaker, 0, len(g.breakers))
	for _, b := range g.breakers {
		breakers = append(breakers, b)
	}
	g.mu.Unlock()

	var open []string
	for _, b := range breakers {
		if b.State() == StateOpen {
			open = append(open, b.Name())
		}
	}
	return open
}

// Forget drops every breaker whose key starts with prefix and returns how
// many were dropped.
func (g *Guard) Forget(prefix string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for key := range g.breakers {
		if strings.HasPrefix(key, prefix) {
			delete(g.breakers, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked breakers.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.breakers)
}

// Reset forgets every breaker.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.breakers = make(map[string]*Breaker)
}
