package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LoadResult represents the result of loading a configuration value.
//
// Fields:
//   - Value: The loaded configuration value (the default if validation failed)
//   - Warnings: One message per fallback applied
//   - FallbackApplied: True if the default value was used due to a parse or validation failure
//
// Example:
//
//	result := LoadDuration(src, "POLL_INTERVAL", 2*time.Hour, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("configuration fallback", slog.String("warning", warning))
//	    }
//	}
//	interval := result.Value
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// load implements the shared loading behavior:
//  1. Read the key from src
//  2. If not set or empty: use the default value (no warning)
//  3. Parse the raw value; on failure use the default and record a warning
//  4. Validate the parsed value; on failure use the default and record a warning
//
// It never returns an error. Callers that need a hard failure (required
// credentials, for instance) check the raw value themselves.
func load[T any](src Source, key string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := LookupString(src, key)
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	parsed, err := parse(raw)
	if err != nil {
		return fallback(key, raw, defaultValue, err)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(key, raw, defaultValue, err)
		}
	}

	return LoadResult[T]{Value: parsed}
}

func fallback[T any](key, raw string, defaultValue T, cause error) LoadResult[T] {
	warning := fmt.Sprintf(
		"Invalid %s='%s': %v, falling back to default '%v'",
		key,
		raw,
		cause,
		defaultValue,
	)
	return LoadResult[T]{
		Value:           defaultValue,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadString loads a string value with optional validation.
//
// Example:
//
//	result := LoadString(src, "LOG_FORMAT", "json", OneOf("json", "text"))
func LoadString(src Source, key, defaultValue string, validator func(string) error) LoadResult[string] {
	return load(src, key, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadDuration loads a Go duration string ("30s", "5m", "2h").
//
// Warning formats:
//   - Parse error: "Invalid {key}='{value}': time: invalid duration ..., falling back to default '{default}'"
//   - Validation error: "Invalid {key}='{value}': {error}, falling back to default '{default}'"
func LoadDuration(src Source, key string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return load(src, key, defaultValue, time.ParseDuration, validator)
}

// LoadInt loads a base-10 integer.
func LoadInt(src Source, key string, defaultValue int, validator func(int) error) LoadResult[int] {
	return load(src, key, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadBool loads a boolean.
//
// True values: "1", "t", "T", "true", "TRUE", "True", "yes", "on"
// False values: "0", "f", "F", "false", "FALSE", "False", "no", "off"
func LoadBool(src Source, key string, defaultValue bool) LoadResult[bool] {
	return load(src, key, defaultValue, ParseBool, nil)
}

// ParseBool parses the boolean spellings accepted by LoadBool.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "0", "f", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
	}
}
