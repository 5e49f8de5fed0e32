// FILE: lixenwraith/config/cli.go
package config

import (
	"fmt"
	"strings"
)

// CommandLineSource parses "--key value", "--key=value", "/key value" and
// mapped short switches ("-k value") into a flat store.
type CommandLineSource struct {
	baseSource
	args           []string
	switchMappings map[string]string // normalized switch -> key
}

// NewCommandLineSource creates a command-line source. switchMappings maps a
// switch spelling (which must start with "-" or "--") to the key it stands
// for. The table is validated and copied here, so a bad table fails
// construction rather than Load.
func NewCommandLineSource(args []string, switchMappings map[string]string) (*CommandLineSource, error) {
	if args == nil {
		return nil, fmt.Errorf("%w: command-line arguments cannot be nil", ErrInvalidArgument)
	}

	s := &CommandLineSource{
		args: append([]string(nil), args...),
	}
	s.setup(SourceCLI, "")

	if switchMappings != nil {
		mappings, err := validateSwitchMappings(switchMappings)
		if err != nil {
			return nil, err
		}
		s.switchMappings = mappings
	}

	return s, nil
}

// Args returns a copy of the arguments the source parses
func (s *CommandLineSource) Args() []string {
	return append([]string(nil), s.args...)
}

// Load tokenizes the arguments. Any malformed argument aborts the load and
// the previously loaded values stay in place.
func (s *CommandLineSource) Load() error {
	store, err := parseArgs(s.args, s.switchMappings)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	s.publish(store)
	return nil
}

// validateSwitchMappings copies the table keyed case-insensitively,
// rejecting keys without a leading hyphen and keys that collide once case is ignored
func validateSwitchMappings(switchMappings map[string]string) (map[string]string, error) {
	mappings := make(map[string]string, len(switchMappings))
	for sw, key := range switchMappings {
		if !strings.HasPrefix(sw, "-") {
			return nil, fmt.Errorf("%w: switch %q must start with \"--\" or \"-\"", ErrInvalidSwitchMapping, sw)
		}
		norm := normalizeKey(sw)
		if _, exists := mappings[norm]; exists {
			return nil, fmt.Errorf("%w: switch %q is duplicated (switches are case-insensitive)", ErrInvalidSwitchMapping, sw)
		}
		mappings[norm] = key
	}
	return mappings, nil
}

// parseArgs performs a single left-to-right scan. A token is consumed alone
// when it carries "=value", otherwise together with the token that follows.
func parseArgs(args []string, switchMappings map[string]string) (*Store, error) {
	store := NewStore()

	for i := 0; i < len(args); i++ {
		arg := args[i]
		prefixLen := 0

		switch {
		case strings.HasPrefix(arg, "--"):
			prefixLen = 2
		case strings.HasPrefix(arg, "-"):
			prefixLen = 1
		case strings.HasPrefix(arg, "/"):
			// "/key" is the same as "--key", including for switch mappings
			arg = "--" + arg[1:]
			prefixLen = 2
		}

		var key, value string

		separator := strings.IndexByte(arg, '=')
		if separator < 0 {
			if prefixLen == 0 {
				return nil, fmt.Errorf("%w: %q", ErrUnrecognizedArgument, arg)
			}

			var err error
			if key, err = resolveSwitch(arg, arg, prefixLen, switchMappings); err != nil {
				return nil, err
			}

			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w for key %q", ErrValueMissing, args[i])
			}
			i++
			value = args[i]
		} else {
			var err error
			if key, err = resolveSwitch(arg[:separator], arg, prefixLen, switchMappings); err != nil {
				return nil, err
			}
			value = arg[separator+1:]
		}

		// Last argument wins
		store.Set(key, value)
	}

	return store, nil
}

// resolveSwitch turns the key part of an argument into a configuration key.
// A mapping always takes priority; an unmapped single-hyphen switch is an error.
func resolveSwitch(keySegment, arg string, prefixLen int, switchMappings map[string]string) (string, error) {
	if key, mapped := switchMappings[normalizeKey(keySegment)]; mapped {
		return key, nil
	}
	if prefixLen == 1 {
		return "", fmt.Errorf("%w: %q", ErrShortSwitchNotDefined, arg)
	}
	return keySegment[prefixLen:], nil
}
