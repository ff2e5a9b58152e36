package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned when setting a key wikibook does not read.
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue is returned when a value cannot be converted to the
// key's type.
var ErrInvalidValue = errors.New("invalid config value")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Source says where an entry's value comes from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
)

// Entry represents a single configuration entry.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Source      Source `json:"source,omitempty" yaml:"source,omitempty"`
}

// Store reads and edits persisted configuration by dotted key.
type Store interface {
	// Get returns a single config entry by key, or nil if the key is
	// neither set nor known.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores value under key. String values are converted to the type
	// of the key's default.
	Set(ctx context.Context, key string, value any) error

	// GetAll returns every known key plus any extra keys in the file.
	GetAll(ctx context.Context) (map[string]Entry, error)

	// GetByPrefix returns config entries matching the prefix.
	GetByPrefix(ctx context.Context, prefix string) (map[string]Entry, error)

	// Delete removes a key from the file so its default applies again.
	Delete(ctx context.Context, key string) error
}

// FileStore implements Store over a YAML config file. Comments in the
// file are not preserved when it is rewritten.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the YAML file at path. The file need
// not exist yet.
func NewStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns a single config entry by key.
func (s *FileStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if v, ok := lookup(doc, key); ok {
		entry := Entry{Key: key, Value: v, Source: SourceFile}
		if def := GetDefault(key); def != nil {
			entry.Description = def.Description
		}
		return &entry, nil
	}
	if def := GetDefault(key); def != nil {
		def.Source = SourceDefault
		return def, nil
	}
	return nil, nil
}

// Set creates or updates a config entry.
func (s *FileStore) Set(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if str, ok := value.(string); ok {
		converted, err := ParseValue(def.Value, str)
		if err != nil {
			return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
		}
		value = converted
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := assign(doc, key, value); err != nil {
		return err
	}
	return s.write(doc)
}

// GetAll returns all config entries.
func (s *FileStore) GetAll(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make(map[string]Entry)
	for _, def := range DefaultEntries() {
		def.Source = SourceDefault
		result[def.Key] = def
	}
	flatten("", doc, func(key string, v any) {
		entry := result[key]
		entry.Key = key
		entry.Value = v
		entry.Source = SourceFile
		result[key] = entry
	})
	return result, nil
}

// GetByPrefix returns config entries matching the prefix.
func (s *FileStore) GetByPrefix(ctx context.Context, prefix string) (map[string]Entry, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Entry)
	for key, entry := range all {
		if strings.HasPrefix(key, prefix) {
			result[key] = entry
		}
	}
	return result, nil
}

// Delete removes a config entry by key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	if !remove(doc, key) {
		return nil // Already doesn't exist
	}
	return s.write(doc)
}

// SortedKeys returns the keys of entries in order.
func SortedKeys(entries map[string]Entry) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseValue converts s to the type of def. Lists are comma separated.
func ParseValue(def any, s string) (any, error) {
	switch def.(type) {
	case int:
		return strconv.Atoi(strings.TrimSpace(s))
	case uint:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 0)
		return uint(n), err
	case bool:
		return strconv.ParseBool(strings.TrimSpace(s))
	case []string:
		out := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case string, nil:
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", reflect.TypeOf(def))
	}
}

func (s *FileStore) read() (map[string]any, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

func lookup(doc map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	cur := doc
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}

func assign(doc map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not a section", ErrInvalidKey, p)
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

func remove(doc map[string]any, key string) bool {
	parts := strings.Split(key, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		m, ok := cur[p].(map[string]any)
		if !ok {
			return false
		}
		cur = m
	}
	last := parts[len(parts)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

func flatten(prefix string, doc map[string]any, fn func(key string, v any)) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, fn)
			continue
		}
		fn(key, v)
	}
}
