package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while a breaker rejects calls.
	ErrOpen = errors.New("breaker is open")
	// ErrProbing is returned when a half-open breaker already has its probes
	// in flight.
	ErrProbing = errors.New("breaker is probing")
)

// State represents the breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker
type Settings struct {
	// MaxFailures consecutive failures trip the breaker.
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Probes is the number of calls allowed while half-open; that many
	// successes close the breaker again.
	Probes uint32
	// OnStateChange is called, under the breaker lock, on every transition.
	OnStateChange func(name string, from, to State)
	// Now overrides the clock.
	Now func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.Cooldown == 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Probes == 0 {
		s.Probes = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Counts holds the statistics of the current state
type Counts struct {
	Calls                uint32
	Failures             uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Breaker short-circuits a call site after repeated failures
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	epoch    uint64
}

// New creates a closed breaker
func New(name string, settings Settings) *Breaker {
	return &Breaker{name: name, settings: settings.withDefaults()}
}

func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving an expired open breaker to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Counts returns a copy of the counters of the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn unless the breaker rejects it. A panic in fn counts as a
// failure and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	epoch, err := b.admit()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			b.record(epoch, false)
			panic(r)
		}
	}()
	err = fn()
	b.record(epoch, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	switch b.state {
	case StateOpen:
		return b.epoch, ErrOpen
	case StateHalfOpen:
		if b.counts.Calls >= b.settings.Probes {
			return b.epoch, ErrProbing
		}
	}
	b.counts.Calls++
	return b.epoch, nil
}

func (b *Breaker) record(epoch uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	// Results from calls admitted before a transition are stale.
	if epoch != b.epoch {
		return
	}
	if success {
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.transition(StateClosed)
		}
		return
	}
	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	if b.state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.MaxFailures {
		b.transition(StateOpen)
	}
}

// refresh applies the cooldown. Caller holds mu.
func (b *Breaker) refresh() {
	if b.state == StateOpen && !b.settings.Now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		b.transition(StateHalfOpen)
	}
}

// transition changes state and resets counts. Caller holds mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.counts = Counts{}
	b.epoch++
	if to == StateOpen {
		b.openedAt = b.settings.Now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
