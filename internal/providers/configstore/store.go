package configstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Separator splits path segments.
const Separator = "."

// ErrNotLinked is returned by Load and Save on a memory-only store.
var ErrNotLinked = errors.New("config store is not linked to a file")

// Store is a thread-safe nested document.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
	format Format
}

// New creates an empty memory-only store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Parse creates a memory-only store from serialized data.
func Parse(data []byte, f Format) (*Store, error) {
	doc, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	return &Store{values: doc}, nil
}

// Open links a store to path and loads it. A missing file yields an empty
// store that is created on the first Save.
func Open(path string) (*Store, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	s := &Store{values: make(map[string]any), path: path, format: f}
	if err := s.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Path returns the linked file, or "".
func (s *Store) Path() string { return s.path }

// Load replaces the contents with the linked file.
func (s *Store) Load() error {
	if s.path == "" {
		return ErrNotLinked
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := Decode(data, s.format)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.values = doc
	s.mu.Unlock()
	return nil
}

// Save writes the contents to the linked file.
func (s *Store) Save() error {
	if s.path == "" {
		return ErrNotLinked
	}
	s.mu.RLock()
	data, err := Encode(s.values, s.format)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func split(path string) []string {
	return strings.Split(path, Separator)
}

// Get returns the value at path.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.values, split(path))
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for i, key := range keys {
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		m = next
	}
	return nil, false
}

// Set stores value at path, creating intermediate sections. A scalar in the
// way of the path is replaced by a section.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := split(path)
	m := s.values
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}

// Delete removes the value at path.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := split(path)
	parent := s.values
	if len(keys) > 1 {
		v, ok := lookup(s.values, keys[:len(keys)-1])
		if !ok {
			return
		}
		if parent, ok = v.(map[string]any); !ok {
			return
		}
	}
	delete(parent, keys[len(keys)-1])
}

// GetString returns the string at path or def.
func (s *Store) GetString(path, def string) string {
	v, ok := s.Get(path)
	if !ok || v == nil {
		return def
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		return def
	default:
		return fmt.Sprint(val)
	}
}

// GetInt returns the integer at path or def. Numeric strings are accepted.
func (s *Store) GetInt(path string, def int) int {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case float64:
		return int(val)
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

// GetBool returns the boolean at path or def.
func (s *Store) GetBool(path string, def bool) bool {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

// GetStringList returns the list at path. A single string is a list of one.
func (s *Store) GetStringList(path string) []string {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Keys returns the top-level keys, or every leaf path when deep is set.
// Results are sorted.
func (s *Store) Keys(deep bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	if deep {
		out = leaves("", s.values, out)
	} else {
		for k := range s.values {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func leaves(prefix string, m map[string]any, out []string) []string {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		if inner, ok := v.(map[string]any); ok && len(inner) > 0 {
			out = leaves(path, inner, out)
			continue
		}
		out = append(out, path)
	}
	return out
}

// Merge folds defaults into the store. Without overwrite only missing leaves
// are filled in.
func (s *Store) Merge(defaults map[string]any, overwrite bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merge(s.values, normalize(copyMap(defaults)), overwrite)
}

func merge(dst, src map[string]any, overwrite bool) {
	for k, v := range src {
		cur, exists := dst[k]
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := cur.(map[string]any)
		switch {
		case srcIsMap && dstIsMap:
			merge(dstMap, srcMap, overwrite)
		case !exists || overwrite:
			dst[k] = v
		}
	}
}

// Values returns a deep copy of the document.
func (s *Store) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.values)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if inner, ok := v.(map[string]any); ok {
			out[k] = copyMap(inner)
			continue
		}
		out[k] = v
	}
	return out
}
