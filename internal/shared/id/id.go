// Package id provides centralized ID generation for the windowing engine.
//
// Every id minted by the engine itself is a prefixed ULID:
//   - Lexicographic sortability: surfaces and events order by creation time
//   - Prefixed types: surf_*, evt_*, conn_* make logs readable
//   - Type safety: separate types prevent mixing a surface with an event id
//
// User identities are not generated here; they come from the host as UUIDs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// EventID identifies one routed interaction event in logs.
type EventID string

// ConnectionID identifies one transport connection.
type ConnectionID string

const (
	SurfacePrefix    = "surf"
	EventPrefix      = "evt"
	ConnectionPrefix = "conn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source.
// Tests use it for deterministic ids.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSurfaceHandle mints a handle for a freshly created surface.
func NewSurfaceHandle() types.SurfaceHandle {
	return types.SurfaceHandle(Default().GenerateWithPrefix(SurfacePrefix))
}

// NewEventID mints an id used to correlate log lines of one routed event.
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

// NewConnectionID mints a transport connection id.
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

func (id EventID) String() string      { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// IsValid checks if a prefixed or bare id carries a valid ULID.
func IsValid(id string) bool {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed or bare id.
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
