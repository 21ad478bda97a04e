// Package config loads harness settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/memcheck/internal/verify"
)

// Defaults.
const (
	DefaultBaseURL   = "https://fractal-frontend-1.preview.emergentagent.com"
	DefaultAPIPrefix = "api/fractal/v2.1/admin"
	DefaultSymbol    = "BTC"
	DefaultTimeout   = 30 * time.Second
)

// Config holds everything a run needs.
type Config struct {
	BaseURL   string
	APIPrefix string
	Symbol    string
	Focus     string
	Timeout   time.Duration
}

// fileConfig mirrors Config with the timeout as a duration string.
type fileConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIPrefix string `yaml:"api_prefix"`
	Symbol    string `yaml:"symbol"`
	Focus     string `yaml:"focus"`
	Timeout   string `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIPrefix: DefaultAPIPrefix,
		Symbol:    DefaultSymbol,
		Focus:     verify.DefaultFocus,
		Timeout:   DefaultTimeout,
	}
}

// Load reads path and merges it over the defaults.
// An empty path returns the defaults. A named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes and merges them over the defaults.
// Unknown keys are rejected so typos surface early.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.APIPrefix != "" {
		cfg.APIPrefix = fc.APIPrefix
	}
	if fc.Symbol != "" {
		cfg.Symbol = fc.Symbol
	}
	if fc.Focus != "" {
		cfg.Focus = fc.Focus
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("parse config: timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid config: base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return errors.New("invalid config: symbol is required")
	}
	if !verify.IsHorizon(c.Focus) {
		return fmt.Errorf("invalid config: focus %q must be one of %v", c.Focus, verify.Horizons)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid config: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
