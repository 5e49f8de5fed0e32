// FILE: lixenwraith/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

// DefaultTagName is the struct tag Scan reads field names from
const DefaultTagName = "config"

// sourceEntry is a registered source
type sourceEntry struct {
	source   Source
	optional bool // a missing backing file is not fatal
}

// Config layers sources in registration order. A lookup scans the sources
// from the most recently added to the first, so later sources override
// earlier ones.
type Config struct {
	sources []sourceEntry
	logger  *slog.Logger
	tagName string
	mutex   sync.RWMutex // Protects sources
}

// Option configures a Config
type Option func(*Config)

// WithLogger sets the logger used to report source loads
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTagName sets the struct tag used by Scan
func WithTagName(tagName string) Option {
	return func(c *Config) {
		if tagName != "" {
			c.tagName = tagName
		}
	}
}

// New creates an empty Config.
func New(opts ...Option) *Config {
	c := &Config{
		logger:  slog.New(slog.DiscardHandler),
		tagName: DefaultTagName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers a source on top of the ones already added.
func (c *Config) Add(src Source) error {
	return c.add(src, false)
}

// AddOptional registers a source whose backing file may be absent. Load
// reports the missing file as ErrConfigNotFound but keeps going.
func (c *Config) AddOptional(src Source) error {
	return c.add(src, true)
}

func (c *Config) add(src Source, optional bool) error {
	if src == nil || (reflect.ValueOf(src).Kind() == reflect.Ptr && reflect.ValueOf(src).IsNil()) {
		return fmt.Errorf("%w: source cannot be nil", ErrInvalidArgument)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.sources = append(c.sources, sourceEntry{source: src, optional: optional})
	return nil
}

// Load loads every source in registration order. The first failing source
// aborts the load with a *SourceError, except for a missing optional file
// which is collected and returned (wrapping ErrConfigNotFound) once all
// sources are loaded.
func (c *Config) Load() error {
	c.mutex.RLock()
	entries := append([]sourceEntry(nil), c.sources...)
	c.mutex.RUnlock()

	var notFound []error

	for _, entry := range entries {
		src := entry.source
		if err := src.Load(); err != nil {
			if entry.optional && errors.Is(err, ErrConfigNotFound) {
				c.logger.Warn("Optional configuration source not found", "source", src.Name())
				notFound = append(notFound, err)
				continue
			}
			c.logger.Error("Failed to load configuration source", "source", src.Name(), "error", err)
			return &SourceError{Source: src.Name(), Err: err}
		}
		c.logger.Debug("Loaded configuration source", "source", src.Name(), "kind", src.Kind(), "keys", len(src.Keys()))
	}

	return errors.Join(notFound...)
}

// Get returns the value of the last-registered source that defines path.
// Matching is exact and ignores case.
func (c *Config) Get(path string) (string, bool) {
	value, _, found := c.lookup(path)
	return value, found
}

// Provenance returns the name of the source that supplies path
func (c *Config) Provenance(path string) (string, bool) {
	_, src, found := c.lookup(path)
	if !found {
		return "", false
	}
	return src.Name(), true
}

func (c *Config) lookup(path string) (string, Source, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for i := len(c.sources) - 1; i >= 0; i-- {
		src := c.sources[i].source
		if value, found := src.TryGet(path); found {
			return value, src, true
		}
	}
	return "", nil, false
}

// Sources returns the registered sources in registration order
func (c *Config) Sources() []Source {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	sources := make([]Source, 0, len(c.sources))
	for _, entry := range c.sources {
		sources = append(sources, entry.source)
	}
	return sources
}

// Keys returns every path defined by any source, each listed once,
// in the order first seen across sources.
func (c *Config) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	seen := make(map[string]bool)
	var keys []string
	for _, entry := range c.sources {
		for _, k := range entry.source.Keys() {
			if norm := normalizeKey(k); !seen[norm] {
				seen[norm] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// ChildKeys returns the distinct segments directly below prefix across all sources
func (c *Config) ChildKeys(prefix string) []string {
	seen := make(map[string]bool)
	var children []string
	for _, k := range c.Keys() {
		child, ok := childSegment(k, prefix)
		if !ok {
			continue
		}
		if norm := normalizeKey(child); !seen[norm] {
			seen[norm] = true
			children = append(children, child)
		}
	}
	return children
}

// Snapshot returns the merged view: every path with its winning value
func (c *Config) Snapshot() map[string]string {
	merged := make(map[string]string)
	for _, k := range c.Keys() {
		if v, found := c.Get(k); found {
			merged[k] = v
		}
	}
	return merged
}

// Section returns a view of the paths below prefix
func (c *Config) Section(prefix string) *Section {
	return &Section{root: c, path: prefix}
}

// Debug returns a formatted string showing every path, its winning value
// and the value each source holds for it
func (c *Config) Debug() string {
	sources := c.Sources()

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	names := make([]string, 0, len(sources))
	for i := len(sources) - 1; i >= 0; i-- {
		names = append(names, sources[i].Name())
	}
	b.WriteString(fmt.Sprintf("Precedence: %v\n", names))
	b.WriteString("Current values:\n")

	for _, path := range c.Keys() {
		value, _ := c.Get(path)
		b.WriteString(fmt.Sprintf("  %s:\n", path))
		b.WriteString(fmt.Sprintf("    Current: %s\n", value))
		for _, src := range sources {
			if v, found := src.TryGet(path); found {
				b.WriteString(fmt.Sprintf("    %s: %s\n", src.Name(), v))
			}
		}
	}

	return b.String()
}

// Section is a view of the configuration below a path prefix.
type Section struct {
	root *Config
	path string
}

// Path returns the full path of the section
func (s *Section) Path() string {
	return s.path
}

// Key returns the last segment of the section path
func (s *Section) Key() string {
	segments := SplitPath(s.path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Value returns the value stored at the section path itself
func (s *Section) Value() (string, bool) {
	return s.root.Get(s.path)
}

// Get looks up key relative to the section
func (s *Section) Get(key string) (string, bool) {
	return s.root.Get(CombinePath(s.path, key))
}

// Section returns a nested section
func (s *Section) Section(key string) *Section {
	return &Section{root: s.root, path: CombinePath(s.path, key)}
}

// ChildKeys returns the segments directly below the section
func (s *Section) ChildKeys() []string {
	return s.root.ChildKeys(s.path)
}
