// FILE: lixenwraith/config/memory.go
package config

import "sort"

// MemorySource serves values supplied in code, typically defaults
// registered first so every other source overrides them.
type MemorySource struct {
	baseSource
	values map[string]string
}

// NewMemorySource creates a source over a copy of values
func NewMemorySource(values map[string]string) *MemorySource {
	s := &MemorySource{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	s.setup(SourceMemory, "")
	return s
}

// Load publishes the values. Paths are added in sorted order so that two
// spellings of the same path resolve deterministically (the later one wins).
func (s *MemorySource) Load() error {
	paths := make([]string, 0, len(s.values))
	for p := range s.values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	store := NewStore()
	for _, p := range paths {
		store.Set(p, s.values[p])
	}
	s.publish(store)
	return nil
}
