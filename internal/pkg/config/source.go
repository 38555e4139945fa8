// Package config provides typed configuration loaders with validation and
// fail-open fallback, plus Prometheus metrics describing what was loaded.
//
// Values are read through a Source so that environment variables, a YAML
// file and command-line flags can be layered without any component reading
// the process environment directly.
package config

import (
	"os"
	"strings"
)

// Source resolves configuration keys to raw string values.
type Source interface {
	// Lookup returns the value for key and whether the key was set.
	Lookup(key string) (string, bool)
}

// EnvSource reads values from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource serves values from an in-memory map keyed by environment names.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Layered consults each Source in order and returns the first non-empty value.
// Put the highest-precedence source first.
type Layered []Source

// Lookup implements Source.
func (l Layered) Lookup(key string) (string, bool) {
	for _, s := range l {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// LookupString returns the value for key, or "" when unset.
func LookupString(src Source, key string) string {
	v, _ := src.Lookup(key)
	return strings.TrimSpace(v)
}
