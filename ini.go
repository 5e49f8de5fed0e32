// FILE: lixenwraith/config/ini.go
package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// INISource reads a simple key=value file with optional [Section] headers.
//
//	; comment
//	[Data:Inventory]
//	Provider = "MySql"
//
// yields Data:Inventory:Provider = MySql.
type INISource struct {
	baseSource
	filePath string
	reader   io.Reader
	data     []byte
}

// NewINIFileSource creates a source backed by an INI file
func NewINIFileSource(path string) (*INISource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path must be a non-empty string", ErrInvalidArgument)
	}
	s := &INISource{filePath: path}
	s.setup(SourceINI, path)
	return s, nil
}

// NewINISource creates a source reading r on the first Load
func NewINISource(r io.Reader) *INISource {
	s := &INISource{reader: r}
	s.setup(SourceINI, "")
	return s
}

// Load reads and parses the file
func (s *INISource) Load() error {
	if s.filePath != "" {
		data, err := readConfigFile(s.filePath)
		if err != nil {
			return err
		}
		return s.loadBytes(data)
	}

	if s.data == nil {
		if s.reader == nil {
			return fmt.Errorf("%w: INI source has no input", ErrInvalidArgument)
		}
		data, err := io.ReadAll(s.reader)
		if err != nil {
			return fmt.Errorf("failed to read INI stream: %w", err)
		}
		s.data = data
	}
	return s.loadBytes(s.data)
}

// LoadFrom parses the content read from r, replacing the loaded values
func (s *INISource) LoadFrom(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read INI stream: %w", err)
	}
	return s.loadBytes(data)
}

func (s *INISource) loadBytes(data []byte) error {
	store, err := parseINI(strings.NewReader(string(data)))
	if err != nil {
		if s.filePath != "" {
			return fmt.Errorf("failed to parse INI config file '%s': %w", s.filePath, err)
		}
		return err
	}
	s.publish(store)
	return nil
}

// parseINI reads line by line. Duplicate keys are an error: unlike the
// command line, a file is expected to state each key once.
func parseINI(r io.Reader) (*Store, error) {
	store := NewStore()
	scanner := bufio.NewScanner(r)

	section := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" || line[0] == ';' || line[0] == '#' || line[0] == '/' {
			continue
		}

		if line[0] == '[' && line[len(line)-1] == ']' {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		name, value, found := strings.Cut(line, "=")
		if !found {
			return nil, atLine(lineNo, 0, fmt.Errorf("%w: unrecognized line format %q", ErrFormat, line))
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, atLine(lineNo, 0, fmt.Errorf("%w: missing key in %q", ErrFormat, line))
		}

		key := CombinePath(section, name)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		if _, conflict := store.Add(key, value); conflict {
			return nil, atLine(lineNo, 0, duplicateKeyError(key))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read INI content: %w", err)
	}

	return store, nil
}
