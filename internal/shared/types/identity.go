package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity is the opaque unique id of a connected user.
type Identity = uuid.UUID

// ParseIdentity parses a textual identity.
func ParseIdentity(s string) (Identity, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	return id, nil
}

// Key addresses one window inside one cluster.
type Key struct {
	Cluster string `json:"cluster"`
	Window  string `json:"window"`
}

// IsZero reports whether the key points nowhere.
func (k Key) IsZero() bool {
	return k.Window == ""
}

func (k Key) String() string {
	return k.Cluster + ":" + k.Window
}

// Scope is where a button is registered. An empty Window means the button is
// global to the cluster.
type Scope struct {
	Cluster string
	Window  string
}

// ClusterScope returns the cluster-global scope for id.
func ClusterScope(id string) Scope {
	return Scope{Cluster: id}
}

// WindowScope returns the scope of a single window.
func WindowScope(key Key) Scope {
	return Scope{Cluster: key.Cluster, Window: key.Window}
}

// IsGlobal reports whether the scope is cluster-wide.
func (s Scope) IsGlobal() bool {
	return s.Window == ""
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return s.Cluster
	}
	return s.Cluster + ":" + s.Window
}
