// FILE: lixenwraith/config/cmd/confdump/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/lixenwraith/config"
)

// Style definitions for the dump output
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	keyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))

	sourceStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
)

// envPrefix selects the environment variables that configure the tool
const envPrefix = "CONFDUMP_"

// switchMappings gives the tool its short switches
var switchMappings = map[string]string{
	"-f": "File",
	"-e": "Env",
	"-p": "Path",
	"-l": "Log",
}

const usage = `usage: confdump [-f file] [-e env-prefix] [-p section] [-l level] [--LogFormat text|json]

Loads the layered configuration (file, then environment) and prints every
resolved path with its value and the source that supplied it. Options may
also be set as CONFDUMP_File, CONFDUMP_Env, CONFDUMP_Path and CONFDUMP_Log.`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dumps the configuration described by args and returns the exit code
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := loadOptions(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n%s\n", err, usage)
		return 2
	}

	level, _ := opts.Get("Log")
	format, _ := opts.Get("LogFormat")
	logger := newLogger(level, format, stderr)

	builder := config.NewBuilder().WithLogger(logger)
	if file, ok := opts.Get("File"); ok && file != "" {
		builder = builder.WithFile(file)
	}
	if prefix, ok := opts.Get("Env"); ok {
		builder = builder.WithEnvironment(prefix)
	}

	cfg, err := builder.Build()
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		logger.Error("Failed to load configuration", "error", err)
		return 1
	}

	section, _ := opts.Get("Path")
	dump(stdout, cfg, section)
	return 0
}

// loadOptions reads the tool's own settings: CONFDUMP_ variables,
// overridden by the command line
func loadOptions(args []string) (*config.Config, error) {
	cli, err := config.NewCommandLineSource(args, switchMappings)
	if err != nil {
		return nil, err
	}

	opts := config.New()
	if err := opts.Add(config.NewEnvironmentSource(envPrefix)); err != nil {
		return nil, err
	}
	if err := opts.Add(cli); err != nil {
		return nil, err
	}
	if err := opts.Load(); err != nil {
		return nil, err
	}
	return opts, nil
}

// dump prints the paths at or below section, one per line
func dump(w io.Writer, cfg *config.Config, section string) {
	title := "Configuration"
	if section != "" {
		title += " [" + section + "]"
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	for _, key := range cfg.Keys() {
		if !inSection(key, section) {
			continue
		}
		value, _ := cfg.Get(key)
		source, _ := cfg.Provenance(key)
		fmt.Fprintf(w, "%s = %s %s\n", keyStyle.Render(key), value, sourceStyle.Render("("+source+")"))
	}
}

// inSection reports whether key is section itself or lies below it
func inSection(key, section string) bool {
	if section == "" {
		return true
	}
	segments := config.SplitPath(key)
	sectionSegments := config.SplitPath(section)
	if len(segments) < len(sectionSegments) {
		return false
	}
	for i, seg := range sectionSegments {
		if !config.PathEqual(segments[i], seg) {
			return false
		}
	}
	return true
}

// newLogger creates a logger for the given level and format names.
// Unknown levels fall back to warn so a normal dump stays quiet.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if strings.EqualFold(formatStr, "json") {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
