// FILE: lixenwraith/config/store.go
package config

// storeEntry keeps the spelling a key was first seen with next to its value
type storeEntry struct {
	key   string
	value string
}

// Store is an ordered, case-insensitive mapping from path to string value.
// A Store is filled by a single load and must not be mutated once it has
// been published to readers; sources swap in a fresh Store on reload.
type Store struct {
	entries map[string]storeEntry // normalized path -> entry
	order   []string              // normalized paths in insertion order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]storeEntry),
	}
}

// Set stores value at path, replacing any earlier value (last wins).
func (s *Store) Set(path, value string) {
	norm := normalizeKey(path)
	if entry, exists := s.entries[norm]; exists {
		entry.value = value
		s.entries[norm] = entry
		return
	}
	s.entries[norm] = storeEntry{key: path, value: value}
	s.order = append(s.order, norm)
}

// Add stores value at path only if the path is new. When the path already
// exists the store is left untouched and the existing value is returned
// with conflict set to true.
func (s *Store) Add(path, value string) (existing string, conflict bool) {
	norm := normalizeKey(path)
	if entry, exists := s.entries[norm]; exists {
		return entry.value, true
	}
	s.entries[norm] = storeEntry{key: path, value: value}
	s.order = append(s.order, norm)
	return "", false
}

// TryGet looks up an exact path, ignoring case. No prefix matching is done.
func (s *Store) TryGet(path string) (string, bool) {
	if s == nil {
		return "", false
	}
	entry, exists := s.entries[normalizeKey(path)]
	return entry.value, exists
}

// Len returns the number of stored paths.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Keys returns stored paths in insertion order, spelled as first seen.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.order))
	for _, norm := range s.order {
		keys = append(keys, s.entries[norm].key)
	}
	return keys
}

// Map returns a copy of the store contents.
func (s *Store) Map() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	m := make(map[string]string, len(s.order))
	for _, norm := range s.order {
		entry := s.entries[norm]
		m[entry.key] = entry.value
	}
	return m
}

// ChildKeys returns the distinct segments found directly below prefix,
// in first-seen order. An empty prefix yields the top-level segments.
func (s *Store) ChildKeys(prefix string) []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var children []string
	for _, norm := range s.order {
		child, ok := childSegment(s.entries[norm].key, prefix)
		if !ok {
			continue
		}
		if folded := normalizeKey(child); !seen[folded] {
			seen[folded] = true
			children = append(children, child)
		}
	}
	return children
}
