// FILE: lixenwraith/config/decode.go
package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// unmarshal is the single authoritative function for decoding configuration
// into target structures. All public decoding methods delegate to this.
// With a nil source the merged view is decoded.
func (c *Config) unmarshal(basePath string, source Source, target any) error {
	// Validate target
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: unmarshal target must be non-nil pointer, got %T", ErrInvalidArgument, target)
	}

	keys := c.Keys
	get := c.Get
	if source != nil {
		keys = source.Keys
		get = source.TryGet
	}

	// Walk in key order so a path that is both a leaf and a parent resolves deterministically
	nestedMap := make(map[string]any)
	for _, path := range keys() {
		rel, ok := relativePath(path, basePath)
		if !ok {
			continue
		}
		if value, found := get(path); found {
			setNestedValue(nestedMap, rel, value)
		}
	}

	// Values stay strings; no weak typing or conversion hooks
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: c.tagName,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(nestedMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}

	return nil
}

// Scan decodes the paths below basePath into target, a non-nil pointer to a
// struct or map. Fields must be strings or nested structs/maps of strings;
// converting to other types is left to the caller.
func (c *Config) Scan(basePath string, target any) error {
	return c.unmarshal(basePath, nil, target)
}

// ScanSource decodes only the values held by src, ignoring other layers
func (c *Config) ScanSource(src Source, basePath string, target any) error {
	if src == nil {
		return fmt.Errorf("%w: source cannot be nil", ErrInvalidArgument)
	}
	return c.unmarshal(basePath, src, target)
}

// Scan decodes the section into target
func (s *Section) Scan(target any) error {
	return s.root.Scan(s.path, target)
}
