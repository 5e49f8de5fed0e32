// File: lixenwraith/config/helper.go
package config

// setNestedValue sets a value in a nested map using a colon-delimited path.
// It creates intermediate maps if they don't exist. Segments are matched
// case-insensitively against existing keys, keeping the first spelling.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return
	}
	current := nested

	// Iterate through segments up to the second-to-last one
	for _, segment := range segments[:len(segments)-1] {
		key := foldedKey(current, segment)

		if nextMap, isMap := current[key].(map[string]any); isMap {
			current = nextMap
			continue
		}
		newMap := make(map[string]any)
		current[key] = newMap
		current = newMap
	}

	lastSegment := segments[len(segments)-1]
	key := foldedKey(current, lastSegment)
	if _, isMap := current[key].(map[string]any); isMap {
		// A parent keeps its children; the leaf value is dropped
		return
	}
	current[key] = value
}

// foldedKey returns the existing key of m equal to segment ignoring case, or segment
func foldedKey(m map[string]any, segment string) string {
	if _, exists := m[segment]; exists {
		return segment
	}
	for k := range m {
		if PathEqual(k, segment) {
			return k
		}
	}
	return segment
}
