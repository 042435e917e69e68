package configstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Format is a serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config format: %s", path)
	}
}

// Decode parses data into a generic document.
func Decode(data []byte, f Format) (map[string]any, error) {
	parsed := make(map[string]any)
	if len(strings.TrimSpace(string(data))) == 0 {
		return parsed, nil
	}

	var err error
	switch f {
	case FormatJSON:
		err = sonic.Unmarshal(data, &parsed)
	case FormatYAML:
		err = yaml.Unmarshal(data, &parsed)
	case FormatTOML:
		err = toml.Unmarshal(data, &parsed)
	default:
		return nil, fmt.Errorf("unsupported config format: %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s parse error: %w", f, err)
	}
	return normalize(parsed), nil
}

// Encode serializes a document.
func Encode(doc map[string]any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		return toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported config format: %q", f)
	}
}

// normalize rewrites decoder-specific map types into map[string]any.
func normalize(doc map[string]any) map[string]any {
	for k, v := range doc {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalize(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return out
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	default:
		return v
	}
}
