// FILE: lixenwraith/config/path.go
package config

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// KeyDelimiter separates the segments of a configuration path.
// There is no escaping: a segment can never contain the delimiter.
const KeyDelimiter = ":"

// CombinePath joins segments into a path, skipping empty segments.
func CombinePath(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(KeyDelimiter)
		}
		b.WriteString(s)
	}
	return b.String()
}

// SplitPath splits a path into its segments. An empty path has no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, KeyDelimiter)
}

// PathEqual reports whether two paths name the same configuration value.
// Segments compare case-insensitively under Unicode case folding, the same
// rule stores use to index paths.
func PathEqual(a, b string) bool {
	return a == b || normalizeKey(a) == normalizeKey(b)
}

// normalizeKey returns the case-folded form used to index stores
func normalizeKey(path string) string {
	if isASCII(path) {
		return strings.ToLower(path)
	}
	// A Caser keeps state between calls and cannot be shared
	return cases.Fold().String(path)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// childSegment returns the segment directly under prefix, if key lives below it
func childSegment(key, prefix string) (string, bool) {
	rest, ok := relativePath(key, prefix)
	if !ok {
		return "", false
	}
	if i := strings.Index(rest, KeyDelimiter); i >= 0 {
		rest = rest[:i]
	}
	return rest, true
}

// relativePath strips prefix and the following delimiter from path.
// The path equal to prefix itself has no relative form. Segments are
// compared one by one since case variants may differ in encoded length.
func relativePath(path, prefix string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	segments := SplitPath(path)
	prefixSegments := SplitPath(prefix)
	if len(segments) <= len(prefixSegments) {
		return "", false
	}
	for i, seg := range prefixSegments {
		if !PathEqual(segments[i], seg) {
			return "", false
		}
	}
	return strings.Join(segments[len(prefixSegments):], KeyDelimiter), true
}
