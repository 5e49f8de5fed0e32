// FILE: lixenwraith/config/discovery.go
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	// Base name of config file (without extension)
	Name string

	// Extensions to try (in order)
	Extensions []string

	// Custom search paths (in addition to defaults)
	Paths []string

	// Environment variable to check for explicit path
	EnvVar string

	// CLI switch to check (e.g., "--config" or "/config"), matched ignoring case
	CLIFlag string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search in current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns sensible defaults
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".xml", ".ini", ".toml", ".yaml", ".yml", ".json", ".hcl"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery locates a config file and layers it as WithFile would.
// Call it after WithArgs so the CLI switch can be honored.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path := DiscoverFile(opts, b.args); path != "" {
		return b.WithFile(path)
	}
	// No file found is not an error - app can run with defaults/env
	return b
}

// DiscoverFile returns the first config file found, checking in order the
// CLI switch in args, the environment variable, custom paths, the current
// directory and XDG directories. It returns "" when nothing is found.
func DiscoverFile(opts FileDiscoveryOptions, args []string) string {
	// Check CLI args first (highest priority)
	if opts.CLIFlag != "" {
		if path := findSwitchValue(args, opts.CLIFlag); path != "" {
			return path
		}
	}

	// Check environment variable
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path
		}
	}

	// Build search paths
	var searchPaths []string

	// Custom paths first
	searchPaths = append(searchPaths, opts.Paths...)

	// Current directory
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, cwd)
		}
	}

	// XDG paths
	if opts.UseXDG {
		searchPaths = append(searchPaths, getXDGConfigPaths(opts.Name)...)
	}

	// Search for config file
	for _, dir := range searchPaths {
		for _, ext := range opts.Extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}

	return ""
}

// findSwitchValue finds "flag value" or "flag=value" in args, treating a
// leading "/" like "--" as the command-line source does
func findSwitchValue(args []string, flag string) string {
	for i, arg := range args {
		if strings.HasPrefix(arg, "/") {
			arg = "--" + arg[1:]
		}
		if strings.EqualFold(arg, flag) && i+1 < len(args) {
			return args[i+1]
		}
		if name, value, found := strings.Cut(arg, "="); found && strings.EqualFold(name, flag) {
			return value
		}
	}
	return ""
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	// XDG_CONFIG_HOME
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	// XDG_CONFIG_DIRS
	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		// Default system paths
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
