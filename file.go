// FILE: lixenwraith/config/file.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Structured file formats understood by FileSource
const (
	FormatAuto = "auto"
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FileSource flattens a TOML, YAML or JSON file. Tables/objects become path
// segments, array elements use their zero-based index as segment, and
// scalars are rendered as strings.
type FileSource struct {
	baseSource
	filePath string
	format   string
}

// NewFileSource creates a structured file source. format is one of "toml",
// "yaml", "json" or "auto"/"" to detect from extension, then content.
func NewFileSource(path, format string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path must be a non-empty string", ErrInvalidArgument)
	}

	format = strings.ToLower(format)
	switch format {
	case "", FormatAuto:
		format = FormatAuto
	case FormatTOML, FormatYAML, FormatJSON:
	case "yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", ErrInvalidArgument, format)
	}

	s := &FileSource{filePath: path, format: format}
	kind := SourceKind(format)
	if format == FormatAuto {
		kind = SourceKind(detectFileFormat(path))
		if kind == "" {
			kind = "file"
		}
	}
	s.setup(kind, path)
	return s, nil
}

// Path returns the backing file path
func (s *FileSource) Path() string {
	return s.filePath
}

// Load reads, parses and flattens the file
func (s *FileSource) Load() error {
	data, err := readConfigFile(s.filePath)
	if err != nil {
		return err
	}

	format := s.format
	if format == FormatAuto {
		// Try extension first, then fall back to content detection
		format = detectFileFormat(s.filePath)
		if format == "" {
			format = detectFormatFromContent(data)
		}
	}

	store, err := parseStructured(data, format)
	if err != nil {
		return fmt.Errorf("failed to parse %s config file '%s': %w", strings.ToUpper(format), s.filePath, err)
	}
	s.publish(store)
	return nil
}

// parseStructured decodes data in the given format and flattens it
func parseStructured(data []byte, format string) (*Store, error) {
	var tree any
	switch format {
	case FormatTOML:
		fileConfig := make(map[string]any)
		if err := toml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		tree = fileConfig
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&tree); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unable to determine config format", ErrFormat)
	}

	store := NewStore()
	if tree == nil {
		return store, nil // empty document
	}
	if err := flattenValue(store, "", tree); err != nil {
		return nil, err
	}
	return store, nil
}

// flattenValue walks a decoded document. Keys that differ only in case
// collide, which is reported unless both carry the same value.
func flattenValue(store *Store, prefix string, value any) error {
	switch v := value.(type) {
	case map[string]any:
		// Map iteration order is random; sort so conflicts are reported deterministically
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := flattenValue(store, CombinePath(prefix, k), v[k]); err != nil {
				return err
			}
		}
		return nil

	case map[any]any:
		converted := make(map[string]any, len(v))
		for k, val := range v {
			converted[fmt.Sprint(k)] = val
		}
		return flattenValue(store, prefix, converted)

	case []any:
		for i, elem := range v {
			if err := flattenValue(store, CombinePath(prefix, strconv.Itoa(i)), elem); err != nil {
				return err
			}
		}
		return nil

	case []map[string]any:
		// TOML arrays of tables
		for i, elem := range v {
			if err := flattenValue(store, CombinePath(prefix, strconv.Itoa(i)), elem); err != nil {
				return err
			}
		}
		return nil
	}

	if prefix == "" {
		return fmt.Errorf("%w: document root must be a table or object", ErrFormat)
	}

	str := scalarString(value)
	if existing, conflict := store.Add(prefix, str); conflict && existing != str {
		return duplicateKeyError(prefix)
	}
	return nil
}

// scalarString renders a decoded scalar the way it would be written in a file
func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// TOML before YAML: most TOML documents are not valid YAML, but plain
	// "key: value" text would never parse as TOML
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}
