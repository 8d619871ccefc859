// Package properties provides string-keyed configuration sources for
// restcall request settings. Sources resolve dotted keys such as
// "http.request.orders.connectionTimeout" from memory, the environment,
// a YAML file, or a chain of other sources.
package properties

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Source is a single string-valued property lookup.
type Source interface {
	Lookup(key string) (value string, ok bool)
}

func stringFrom(src Source, key, fallback string) string {
	raw, ok := src.Lookup(key)
	if !ok {
		return fallback
	}
	return raw
}

func intFrom(src Source, key string, fallback int) int {
	raw, ok := src.Lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func boolFrom(src Source, key string, fallback bool) bool {
	raw, ok := src.Lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

// Map is a mutable in-memory source, safe for concurrent use. Updates are
// visible to lookups immediately, so settings resolved per call pick up
// changes between calls.
type Map struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMap builds an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// Set stores or overwrites one property.
func (m *Map) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Delete removes one property.
func (m *Map) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Replace swaps the whole property set for a copy of values.
func (m *Map) Replace(values map[string]string) {
	next := make(map[string]string, len(values))
	for k, v := range values {
		next[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = next
}

// Lookup reports the stored value for key.
func (m *Map) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the property for key, or fallback when absent.
func (m *Map) GetString(key, fallback string) string { return stringFrom(m, key, fallback) }

// GetInt returns the property for key as an int, or fallback when absent
// or not numeric.
func (m *Map) GetInt(key string, fallback int) int { return intFrom(m, key, fallback) }

// GetBool returns the property for key as a bool, or fallback when absent
// or not parseable.
func (m *Map) GetBool(key string, fallback bool) bool { return boolFrom(m, key, fallback) }

// Env resolves properties from environment variables. Dots and dashes in
// the key map to underscores and the result is upper-cased, so
// "http.request.orders.connectionTimeout" reads
// HTTP_REQUEST_ORDERS_CONNECTIONTIMEOUT. A non-empty Prefix is prepended
// with an underscore.
type Env struct {
	Prefix string
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Lookup reads the mapped environment variable.
func (e Env) Lookup(key string) (string, bool) {
	name := strings.ToUpper(envKeyReplacer.Replace(key))
	if e.Prefix != "" {
		name = e.Prefix + "_" + name
	}
	return os.LookupEnv(name)
}

// GetString returns the mapped environment value, or fallback when unset.
func (e Env) GetString(key, fallback string) string { return stringFrom(e, key, fallback) }

// GetInt returns the mapped environment value as an int, or fallback.
func (e Env) GetInt(key string, fallback int) int { return intFrom(e, key, fallback) }

// GetBool returns the mapped environment value as a bool, or fallback.
func (e Env) GetBool(key string, fallback bool) bool { return boolFrom(e, key, fallback) }

// File resolves properties from a YAML file. Nested mappings flatten to
// dotted keys and ${VAR} references expand from the environment. The file
// is re-read when its modification time changes, so edits take effect on
// the next lookup without a restart.
type File struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	values  map[string]string
}

// NewFile loads path and returns a reloading source backed by it.
func NewFile(path string) (*File, error) {
	f := &File{path: path, logger: slog.Default()}
	if err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) reload() error {
	stat, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("failed to stat properties file: %w", err)
	}
	if stat.ModTime().Equal(f.modTime) && stat.Size() == f.size {
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read properties file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var doc map[interface{}]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return fmt.Errorf("failed to parse properties file: %w", err)
	}

	values := make(map[string]string)
	flatten("", doc, values)
	f.modTime = stat.ModTime()
	f.size = stat.Size()
	f.values = values
	return nil
}

func flatten(prefix string, node map[interface{}]interface{}, out map[string]string) {
	for k, v := range node {
		key := fmt.Sprintf("%v", k)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch child := v.(type) {
		case map[interface{}]interface{}:
			flatten(key, child, out)
		case nil:
		default:
			out[key] = fmt.Sprintf("%v", child)
		}
	}
}

// Lookup reads key from the latest file snapshot, re-reading the file if
// it changed. A failed re-read keeps the previous snapshot.
func (f *File) Lookup(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reload(); err != nil {
		f.logger.Warn("properties file reload failed", "path", f.path, "error", err)
	}
	v, ok := f.values[key]
	return v, ok
}

// GetString returns the file value for key, or fallback when absent.
func (f *File) GetString(key, fallback string) string { return stringFrom(f, key, fallback) }

// GetInt returns the file value for key as an int, or fallback.
func (f *File) GetInt(key string, fallback int) int { return intFrom(f, key, fallback) }

// GetBool returns the file value for key as a bool, or fallback.
func (f *File) GetBool(key string, fallback bool) bool { return boolFrom(f, key, fallback) }

// Chain resolves from an ordered list of sources, first hit wins.
type Chain struct {
	sources []Source
}

// NewChain builds a chain over sources in precedence order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Lookup returns the first value any source reports for key.
func (c *Chain) Lookup(key string) (string, bool) {
	for _, src := range c.sources {
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// GetString returns the first chained value for key, or fallback.
func (c *Chain) GetString(key, fallback string) string { return stringFrom(c, key, fallback) }

// GetInt returns the first chained value for key as an int, or fallback.
func (c *Chain) GetInt(key string, fallback int) int { return intFrom(c, key, fallback) }

// GetBool returns the first chained value for key as a bool, or fallback.
func (c *Chain) GetBool(key string, fallback bool) bool { return boolFrom(c, key, fallback) }
