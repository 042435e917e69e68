// Package language resolves $dotted.key$ placeholders in titles and chat
// prompts against a config store.
package language

import (
	"regexp"
	"strings"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/configstore"
)

var placeholder = regexp.MustCompile(`\$([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\$`)

// colorCodes are the characters that may follow a '&' color marker.
const colorCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

// Provider implements engine.Localizer.
type Provider struct {
	store *configstore.Store
}

// New creates a provider over store.
func New(store *configstore.Store) *Provider {
	return &Provider{store: store}
}

// Store returns the backing store.
func (p *Provider) Store() *configstore.Store { return p.store }

// Translate returns the text for key. Lists are joined with newlines.
func (p *Provider) Translate(key string) (string, bool) {
	v, ok := p.store.Get(key)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []any, []string:
		return strings.Join(p.store.GetStringList(key), "\n"), true
	case map[string]any:
		return "", false
	default:
		return p.store.GetString(key, ""), true
	}
}

// ReplaceKeys substitutes every known placeholder and translates color
// codes. Unknown placeholders are left as written.
func (p *Provider) ReplaceKeys(template string) string {
	out := placeholder.ReplaceAllStringFunc(template, func(token string) string {
		if text, ok := p.Translate(token[1 : len(token)-1]); ok {
			return text
		}
		return token
	})
	return Colorize(out)
}

// Colorize rewrites '&' color markers to the section sign the client renders.
func Colorize(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '&' && i+1 < len(runes) && strings.ContainsRune(colorCodes, runes[i+1]) {
			b.WriteRune('§')
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}
