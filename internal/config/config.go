// Package config loads the command line tool's settings from an optional JSON
// file. Flags given on the command line override file values.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/logging"
)

// SelftestConfig sizes the parallel self-test.
type SelftestConfig struct {
	Workers int `json:"workers"`
	Rounds  int `json:"rounds"`
}

// Config holds every setting the tool reads.
type Config struct {
	Curve            string         `json:"curve"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
	NonceHash        string         `json:"nonce_hash"`
	MaxNonceAttempts int            `json:"max_nonce_attempts"`
	Selftest         SelftestConfig `json:"selftest"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Curve:     "secp256k1",
		LogLevel:  "warn",
		LogFormat: "text",
		NonceHash: "sha256",
		Selftest: SelftestConfig{
			Workers: runtime.NumCPU(),
			Rounds:  8,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every field names something the tool understands.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if _, err := detecdsa.Lookup(c.Curve); err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	if _, err := detecdsa.ParseNonceHash(c.NonceHash); err != nil {
		return fmt.Errorf("nonce_hash: %w", err)
	}
	if c.MaxNonceAttempts < 0 {
		return fmt.Errorf("max_nonce_attempts: must not be negative, got %d", c.MaxNonceAttempts)
	}
	if c.Selftest.Workers < 0 || c.Selftest.Rounds < 0 {
		return errors.New("selftest: workers and rounds must not be negative")
	}
	return nil
}

// Overrides carries command line values. Empty strings and zero values leave
// the loaded setting untouched.
type Overrides struct {
	Curve            string
	LogLevel         string
	LogFormat        string
	NonceHash        string
	MaxNonceAttempts int
	Workers          int
	Rounds           int
}

// Apply copies every non-empty override into c and validates the result.
func (c *Config) Apply(o Overrides) error {
	if o.Curve != "" {
		c.Curve = o.Curve
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.NonceHash != "" {
		c.NonceHash = o.NonceHash
	}
	if o.MaxNonceAttempts != 0 {
		c.MaxNonceAttempts = o.MaxNonceAttempts
	}
	if o.Workers != 0 {
		c.Selftest.Workers = o.Workers
	}
	if o.Rounds != 0 {
		c.Selftest.Rounds = o.Rounds
	}
	return c.Validate()
}

// Engine builds a signing engine from the nonce settings and logger.
func (c *Config) Engine(logger logging.Logger) (*detecdsa.Engine, error) {
	nh, err := detecdsa.ParseNonceHash(c.NonceHash)
	if err != nil {
		return nil, err
	}
	return detecdsa.NewEngine().
		WithLogger(logger).
		WithNonceHash(nh).
		WithMaxNonceAttempts(c.MaxNonceAttempts), nil
}

// SecurePath validates that a file path doesn't escape the working directory.
func SecurePath(path string) (string, error) {
	clean := filepath.Clean(path)
	absPath, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes working directory", path)
	}
	return absPath, nil
}
