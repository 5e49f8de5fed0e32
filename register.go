// FILE: lixenwraith/config/register.go
package config

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultsFromStruct flattens a struct holding default values into paths.
// Field names come from tagName (or the field name when untagged), nested
// structs add a segment, and values are rendered as strings. Fields tagged
// "-", unexported fields and nil pointers are skipped.
func DefaultsFromStruct(structWithDefaults any, tagName string) (map[string]string, error) {
	v := reflect.ValueOf(structWithDefaults)

	// Handle pointer or direct struct value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: defaults require a non-nil struct pointer or value", ErrInvalidArgument)
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: defaults require a struct or struct pointer, got %T", ErrInvalidArgument, structWithDefaults)
	}

	if tagName == "" {
		tagName = DefaultTagName
	}

	defaults := make(map[string]string)
	var errs []string
	registerFields(v, "", tagName, defaults, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: failed to register %d field(s): %s", ErrInvalidArgument, len(errs), strings.Join(errs, "; "))
	}
	return defaults, nil
}

// registerFields handles the recursive field registration
func registerFields(v reflect.Value, pathPrefix, tagName string, defaults map[string]string, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		// Get tag value or use field name
		tag := field.Tag.Get(tagName)
		if tag == "-" {
			continue
		}

		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		if strings.Contains(key, KeyDelimiter) {
			*errs = append(*errs, fmt.Sprintf("field %s: name %q contains %q", field.Name, key, KeyDelimiter))
			continue
		}

		currentPath := CombinePath(pathPrefix, key)

		// Dereference pointers; a nil pointer has no default
		if fieldValue.Kind() == reflect.Ptr {
			if fieldValue.IsNil() {
				continue
			}
			fieldValue = fieldValue.Elem()
		}

		switch fieldValue.Kind() {
		case reflect.Struct:
			registerFields(fieldValue, currentPath, tagName, defaults, errs)
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Func, reflect.Chan, reflect.Interface:
			*errs = append(*errs, fmt.Sprintf("field %s (path %s): unsupported kind %s", field.Name, currentPath, fieldValue.Kind()))
		default:
			defaults[currentPath] = scalarString(fieldValue.Interface())
		}
	}
}

// WithDefaultsFrom sets defaults from a struct, see DefaultsFromStruct.
// The builder's tag name applies when set before this call.
func (b *Builder) WithDefaultsFrom(structWithDefaults any) *Builder {
	defaults, err := DefaultsFromStruct(structWithDefaults, b.tagName)
	if err != nil {
		b.err = err
		return b
	}
	return b.WithDefaults(defaults)
}
