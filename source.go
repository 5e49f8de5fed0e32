// FILE: lixenwraith/config/source.go
package config

import (
	"fmt"
	"sync"
)

// SourceKind names the variant of a configuration source
type SourceKind string

const (
	// SourceMemory represents values supplied in code, usually defaults
	SourceMemory SourceKind = "memory"
	// SourceCLI represents values parsed from command-line arguments
	SourceCLI SourceKind = "cli"
	// SourceEnv represents values read from environment variables
	SourceEnv SourceKind = "env"
	// SourceXML represents values flattened from an XML document
	SourceXML SourceKind = "xml"
	// SourceINI represents values read from a simple key=value file
	SourceINI SourceKind = "ini"
	// SourceTOML represents values flattened from a TOML file
	SourceTOML SourceKind = "toml"
	// SourceYAML represents values flattened from a YAML file
	SourceYAML SourceKind = "yaml"
	// SourceJSON represents values flattened from a JSON file
	SourceJSON SourceKind = "json"
	// SourceHCL represents values flattened from an HCL file
	SourceHCL SourceKind = "hcl"
)

// Source is one layer of configuration. Load builds a fresh flat store from
// the underlying input; TryGet and Keys read the last successfully loaded store.
type Source interface {
	// Name identifies the source in provenance and debug output
	Name() string
	// Kind reports the source variant
	Kind() SourceKind
	// Load (re)reads the input. On failure the previous store is kept.
	Load() error
	// TryGet looks up an exact path, ignoring case
	TryGet(path string) (string, bool)
	// Keys lists every loaded path
	Keys() []string
}

// baseSource holds the published store shared by all source variants
type baseSource struct {
	mu    sync.RWMutex
	kind  SourceKind
	name  string
	store *Store
}

// setup sets the identity of the source; name may be empty
func (b *baseSource) setup(kind SourceKind, name string) {
	b.kind = kind
	b.name = string(kind)
	if name != "" {
		b.name = fmt.Sprintf("%s:%s", kind, name)
	}
}

// Name returns the source identifier
func (b *baseSource) Name() string {
	return b.name
}

// Kind returns the source variant
func (b *baseSource) Kind() SourceKind {
	return b.kind
}

// TryGet looks up an exact path in the loaded store, ignoring case
func (b *baseSource) TryGet(path string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.TryGet(path)
}

// Keys returns the loaded paths in load order
func (b *baseSource) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Keys()
}

// ChildKeys returns the segments directly below prefix
func (b *baseSource) ChildKeys(prefix string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.ChildKeys(prefix)
}

// Snapshot returns a copy of the loaded values
func (b *baseSource) Snapshot() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Map()
}

// publish swaps in a fully built store
func (b *baseSource) publish(s *Store) {
	b.mu.Lock()
	b.store = s
	b.mu.Unlock()
}
