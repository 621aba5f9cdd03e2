package config

import (
	"os"
	"strings"
)

// EnvironmentExpander provides functionality to expand environment variable placeholders
// within an input byte slice.
type EnvironmentExpander interface {
	// Expand takes a byte slice as input, expands any environment variable placeholders
	// within it, and returns the expanded byte slice.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands ${VAR}, $VAR and ${VAR:default} from the
// process environment. An unset variable without a default expands to "".
type OsEnvironmentExpander struct {
	lookup func(string) (string, bool)
}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{lookup: os.LookupEnv}
}

// Expand replaces the placeholders in input. It never fails.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	expanded := os.Expand(string(input), func(placeholder string) string {
		name, def, hasDefault := strings.Cut(placeholder, ":")
		if v, ok := e.lookup(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
	return []byte(expanded), nil
}
