// Package permissions answers window permission checks from a config store
// holding per-identity grant lists:
//
//	permissions:
//	  default: [shop.home]
//	  3f1c...: ["shop.*"]
//
// A grant is an exact key, "*", a "prefix.*" covering every key below
// prefix, or a glob over the dotted segments.
package permissions

import (
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/configstore"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

const (
	root       = "permissions"
	defaultKey = "default"
)

// Provider implements engine.PermissionChecker.
type Provider struct {
	store *configstore.Store
}

// New creates a provider over store.
func New(store *configstore.Store) *Provider {
	return &Provider{store: store}
}

// Store returns the backing store.
func (p *Provider) Store() *configstore.Store { return p.store }

func path(owner string) string { return root + configstore.Separator + owner }

// List returns the grants of identity, without the defaults.
func (p *Provider) List(identity types.Identity) []string {
	return p.store.GetStringList(path(identity.String()))
}

// Defaults returns the grants every identity holds.
func (p *Provider) Defaults() []string {
	return p.store.GetStringList(path(defaultKey))
}

// HasPermission reports whether identity holds key.
func (p *Provider) HasPermission(identity types.Identity, key string) bool {
	for _, grant := range p.Defaults() {
		if Match(grant, key) {
			return true
		}
	}
	for _, grant := range p.List(identity) {
		if Match(grant, key) {
			return true
		}
	}
	return false
}

// Grant adds key to identity's grants. It reports whether the list changed.
func (p *Provider) Grant(identity types.Identity, key string) bool {
	grants := p.List(identity)
	if slices.Contains(grants, key) {
		return false
	}
	p.store.Set(path(identity.String()), toAny(append(grants, key)))
	return true
}

// Revoke removes key from identity's grants. It reports whether the list
// changed.
func (p *Provider) Revoke(identity types.Identity, key string) bool {
	grants := p.List(identity)
	i := slices.Index(grants, key)
	if i < 0 {
		return false
	}
	grants = slices.Delete(grants, i, i+1)
	if len(grants) == 0 {
		p.store.Delete(path(identity.String()))
		return true
	}
	p.store.Set(path(identity.String()), toAny(grants))
	return true
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// Match reports whether grant covers key.
func Match(grant, key string) bool {
	switch {
	case grant == "" || key == "":
		return false
	case grant == "*" || grant == key:
		return true
	case strings.HasSuffix(grant, ".*"):
		return strings.HasPrefix(key, strings.TrimSuffix(grant, "*"))
	case strings.ContainsAny(grant, "*?[{"):
		ok, err := doublestar.Match(toSlash(grant), toSlash(key))
		return err == nil && ok
	default:
		return false
	}
}

func toSlash(s string) string { return strings.ReplaceAll(s, ".", "/") }
