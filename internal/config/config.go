// Package config loads and persists gridctl settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Config holds all configurable gridctl settings.
type Config struct {
	Endpoint string `json:"endpoint"`      // cluster control plane endpoint
	Output   string `json:"output"`        // "json" | "yaml" | "table" | "auto"
	Debug    bool   `json:"debug"`         // print full error chains
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Output: "auto",
	}
}

// Path returns the config file location: $XDG_CONFIG_HOME/gridctl/config.json
// or ~/.config/gridctl/config.json.
func Path() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "gridctl", "config.json"), nil
}

// Load reads the config file, returning defaults if it is absent.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Config{}, err
	}
	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}
	return cfg, nil
}

// Save writes the config atomically via a temp file + os.Rename.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	return nil
}

// ErrUnknownField is returned by Get/Set for a field name the config does not
// have.
var ErrUnknownField = errors.New("unknown config field")

// Fields returns the settable field names in stable order.
func Fields() []string {
	names := []string{"endpoint", "output", "debug"}
	sort.Strings(names)
	return names
}

// Get returns the string form of a field's current value.
func (c Config) Get(field string) (string, error) {
	switch field {
	case "endpoint":
		return c.Endpoint, nil
	case "output":
		return c.Output, nil
	case "debug":
		return fmt.Sprintf("%t", c.Debug), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// Set assigns a field from its string form.
func (c *Config) Set(field, value string) error {
	switch field {
	case "endpoint":
		c.Endpoint = value
	case "output":
		switch value {
		case "json", "yaml", "table", "auto":
			c.Output = value
		default:
			return fmt.Errorf("invalid output format %q (want json, yaml, table, or auto)", value)
		}
	case "debug":
		switch value {
		case "true":
			c.Debug = true
		case "false":
			c.Debug = false
		default:
			return fmt.Errorf("invalid boolean %q for debug", value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
