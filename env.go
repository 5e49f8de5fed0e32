// FILE: lixenwraith/config/env.go
package config

import (
	"os"
	"strings"
)

// envNestingSeparator stands in for the key delimiter in variable names,
// since most shells reject ':' in names
const envNestingSeparator = "__"

// connection string prefixes and the provider each implies
const (
	mySQLConnStrPrefix     = "MYSQLCONNSTR_"
	sqlAzureConnStrPrefix  = "SQLAZURECONNSTR_"
	sqlServerConnStrPrefix = "SQLCONNSTR_"
	customConnStrPrefix    = "CUSTOMCONNSTR_"
)

var connStrProviders = []struct {
	prefix   string
	provider string
}{
	{mySQLConnStrPrefix, "MySql.Data.MySqlClient"},
	{sqlAzureConnStrPrefix, "System.Data.SqlClient"},
	{sqlServerConnStrPrefix, "System.Data.SqlClient"},
	{customConnStrPrefix, ""},
}

// EnvironmentSource reads environment variables. With a prefix, only
// variables starting with it (ignoring case) are kept and the prefix is
// removed from the key. A double underscore in a name becomes ':'.
type EnvironmentSource struct {
	baseSource
	prefix  string
	environ func() []string
}

// NewEnvironmentSource creates an environment source filtered by prefix.
// An empty prefix keeps every variable.
func NewEnvironmentSource(prefix string) *EnvironmentSource {
	s := &EnvironmentSource{
		prefix:  prefix,
		environ: os.Environ,
	}
	s.setup(SourceEnv, prefix)
	return s
}

// Prefix returns the variable name filter
func (s *EnvironmentSource) Prefix() string {
	return s.prefix
}

// Load snapshots the environment
func (s *EnvironmentSource) Load() error {
	s.publish(parseEnviron(s.environ(), s.prefix))
	return nil
}

// parseEnviron converts NAME=value pairs into a store. For connection string
// variables the prefix filter applies to the part after the provider prefix:
// with prefix "APP_", SQLCONNSTR_APP_db becomes Data:db:ConnectionString.
func parseEnviron(environ []string, prefix string) *Store {
	store := NewStore()

	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found || name == "" {
			continue
		}

		if addConnectionString(store, name, value, prefix) {
			continue
		}

		key, ok := trimPrefixFold(name, prefix)
		if !ok || key == "" {
			continue
		}
		store.Set(envKey(key), value)
	}

	return store
}

// addConnectionString handles the provider-specific connection string variables
func addConnectionString(store *Store, name, value, prefix string) bool {
	for _, p := range connStrProviders {
		rest, ok := trimPrefixFold(name, p.prefix)
		if !ok {
			continue
		}
		key, ok := trimPrefixFold(rest, prefix)
		if !ok || key == "" {
			return true
		}
		key = envKey(key)
		store.Set(CombinePath("Data", key, "ConnectionString"), value)
		if p.provider != "" {
			store.Set(CombinePath("Data", key, "ProviderName"), p.provider)
		}
		return true
	}
	return false
}

func envKey(name string) string {
	return strings.ReplaceAll(name, envNestingSeparator, KeyDelimiter)
}

// trimPrefixFold removes prefix from s, ignoring case
func trimPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
