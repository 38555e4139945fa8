package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	pkgconfig "blog-tweeter/internal/pkg/config"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDotEnvFile is read from the working directory when present.
const DefaultDotEnvFile = ".env"

// LoadDotEnv reads a .env file into a source. A missing file yields an
// empty source, as the file is optional.
func LoadDotEnv(path string) (pkgconfig.MapSource, error) {
	if path == "" {
		return pkgconfig.MapSource{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pkgconfig.MapSource{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return pkgconfig.MapSource(values), nil
}

// LoadFile reads a YAML config file into a source. Top-level keys mirror the
// environment names in snake case ("poll_interval" for POLL_INTERVAL) and
// nested maps are flattened with underscores ("twitter: {timeout: 10s}" for
// TWITTER_TIMEOUT).
//
// The path is expected to come from a trusted source (the --config flag).
func LoadFile(path string) (pkgconfig.MapSource, error) {
	// #nosec G304 -- path is provided by the operator on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	out := pkgconfig.MapSource{}
	if err := flatten(out, "", doc); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return out, nil
}

func flatten(out pkgconfig.MapSource, prefix string, doc map[string]any) error {
	for k, v := range doc {
		key := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(out, key, val); err != nil {
				return err
			}
		case []any:
			return fmt.Errorf("key %s: lists are not supported", key)
		case nil:
			// explicit null leaves the key unset
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return nil
}
