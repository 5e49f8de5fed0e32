// File: lixenwraith/config/builder.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully loaded *Config object and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// sourceFactory creates a source at Build time, once every builder option is known
type sourceFactory func(b *Builder) (src Source, optional bool, err error)

// Builder provides a fluent interface for building configurations.
// Sources are layered in the order their With* methods are called, with
// defaults always at the bottom: a later call overrides an earlier one.
type Builder struct {
	options        []Option
	defaults       map[string]string
	factories      []sourceFactory
	args           []string
	switchMappings map[string]string
	prefix         string
	tagName        string
	err            error
	validators     []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		validators: make([]ValidatorFunc, 0),
	}
}

// WithDefaults sets values served when no other source defines a path
func (b *Builder) WithDefaults(defaults map[string]string) *Builder {
	b.defaults = defaults
	return b
}

// WithPrefix sets the section BuildAndScan decodes from
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithLogger sets the logger used while loading sources
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.options = append(b.options, WithLogger(logger))
	return b
}

// WithTagName sets the struct tag used when scanning
func (b *Builder) WithTagName(tagName string) *Builder {
	b.tagName = tagName
	b.options = append(b.options, WithTagName(tagName))
	return b
}

// WithEnvironment layers environment variables filtered by prefix
func (b *Builder) WithEnvironment(prefix string) *Builder {
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		return NewEnvironmentSource(prefix), false, nil
	})
	return b
}

// WithArgs layers command-line arguments. Switch mappings set with
// WithSwitchMappings apply regardless of call order.
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	b.factories = append(b.factories, func(b *Builder) (Source, bool, error) {
		src, err := NewCommandLineSource(b.args, b.switchMappings)
		return src, false, err
	})
	return b
}

// WithSwitchMappings sets the short/alias switch table for WithArgs
func (b *Builder) WithSwitchMappings(mappings map[string]string) *Builder {
	b.switchMappings = mappings
	return b
}

// WithFile layers a configuration file chosen by extension: .xml, .ini,
// .hcl, or a TOML/YAML/JSON file otherwise. A missing file is not fatal.
func (b *Builder) WithFile(path string) *Builder {
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		src, err := newFileSourceByExtension(path)
		return src, true, err
	})
	return b
}

// WithXMLFile layers a required XML file
func (b *Builder) WithXMLFile(path string) *Builder {
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		src, err := NewXMLFileSource(path)
		return src, false, err
	})
	return b
}

// WithINIFile layers a required INI file
func (b *Builder) WithINIFile(path string) *Builder {
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		src, err := NewINIFileSource(path)
		return src, false, err
	})
	return b
}

// WithHCLFile layers a required HCL file
func (b *Builder) WithHCLFile(path string) *Builder {
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		src, err := NewHCLFileSource(path)
		return src, false, err
	})
	return b
}

// WithSource layers a caller-constructed source
func (b *Builder) WithSource(src Source) *Builder {
	if src == nil {
		b.err = fmt.Errorf("%w: source cannot be nil", ErrInvalidArgument)
		return b
	}
	b.factories = append(b.factories, func(*Builder) (Source, bool, error) {
		return src, false, nil
	})
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Config instance with all specified options
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg := New(b.options...)

	if b.defaults != nil {
		if err := cfg.Add(NewMemorySource(b.defaults)); err != nil {
			return nil, err
		}
	}

	for _, factory := range b.factories {
		src, optional, err := factory(b)
		if err != nil {
			return nil, fmt.Errorf("failed to create source: %w", err)
		}
		if optional {
			err = cfg.AddOptional(src)
		} else {
			err = cfg.Add(src)
		}
		if err != nil {
			return nil, err
		}
	}

	// Load configuration
	loadErr := cfg.Load()
	var srcErr *SourceError
	if errors.As(loadErr, &srcErr) {
		// A required source failed, including a missing required file.
		// Only missing optional files are reported alongside the config.
		return nil, loadErr
	}

	// Run validators
	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	// ErrConfigNotFound or nil
	return cfg, loadErr
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		// Ignore ErrConfigNotFound as it is not a fatal error for MustBuild.
		// The application can proceed with defaults/env vars.
		if !errors.Is(err, ErrConfigNotFound) {
			panic(fmt.Sprintf("config build failed: %v", err))
		}
	}
	return cfg
}

// BuildAndScan builds and decodes the section set by WithPrefix into target
func (b *Builder) BuildAndScan(target any) error {
	cfg, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}

	if err := cfg.Scan(b.prefix, target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}

	// ErrConfigNotFound or nil
	return err
}

// newFileSourceByExtension picks the source variant for a file path
func newFileSourceByExtension(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".config":
		return NewXMLFileSource(path)
	case ".ini":
		return NewINIFileSource(path)
	case ".hcl":
		return NewHCLFileSource(path)
	default:
		return NewFileSource(path, FormatAuto)
	}
}
