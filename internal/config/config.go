// Package config provides configuration loading and validation for the
// intake pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServiceConfig configures one external verification collaborator.
type ServiceConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// Config represents the pipeline configuration loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided
// via CLI flags.
type Config struct {
	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty runs in-memory

	// Collaborators
	Identity  ServiceConfig `json:"identity,omitempty"`
	Watchlist ServiceConfig `json:"watchlist,omitempty"`
	Fraud     ServiceConfig `json:"fraud,omitempty"`
	CRM       ServiceConfig `json:"crm,omitempty"`

	// Verification behavior
	CallTimeoutMs     int     `json:"call_timeout_ms,omitempty"`     // per-call timeout
	MaxRetries        int     `json:"max_retries,omitempty"`         // retries per service after the first attempt
	InitialBackoffMs  int     `json:"initial_backoff_ms,omitempty"`  // doubled per retry
	MaxBackoffMs      int     `json:"max_backoff_ms,omitempty"`      // backoff ceiling
	VerifyDeadlineMs  int     `json:"verify_deadline_ms,omitempty"`  // overall bound on the verification phase
	FraudThreshold    float64 `json:"fraud_threshold,omitempty"`     // scores at or above are flagged
	ConfidenceCutoff  float64 `json:"confidence_cutoff,omitempty"`   // extraction low-confidence threshold
	ConversionPageMax int     `json:"conversion_page_max,omitempty"` // page limit for the converter

	// Server
	ListenAddr string `json:"listen_addr,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed stage information
}

// DefaultConfig returns the built-in defaults applied under any config file
// or flag values.
func DefaultConfig() Config {
	return Config{
		CallTimeoutMs:     10000,
		MaxRetries:        3,
		InitialBackoffMs:  200,
		MaxBackoffMs:      5000,
		VerifyDeadlineMs:  60000,
		FraudThreshold:    0.8,
		ConfidenceCutoff:  0.6,
		ConversionPageMax: 200,
		ListenAddr:        ":8080",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.CallTimeoutMs < 0 {
		return fmt.Errorf("config error: 'call_timeout_ms' must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.InitialBackoffMs < 0 {
		return fmt.Errorf("config error: 'initial_backoff_ms' must be non-negative")
	}
	if c.MaxBackoffMs < 0 {
		return fmt.Errorf("config error: 'max_backoff_ms' must be non-negative")
	}
	if c.VerifyDeadlineMs < 0 {
		return fmt.Errorf("config error: 'verify_deadline_ms' must be non-negative")
	}
	if c.FraudThreshold < 0 || c.FraudThreshold > 1 {
		return fmt.Errorf("config error: 'fraud_threshold' must be between 0.0 and 1.0")
	}
	if c.ConfidenceCutoff < 0 || c.ConfidenceCutoff > 1 {
		return fmt.Errorf("config error: 'confidence_cutoff' must be between 0.0 and 1.0")
	}
	if c.ConversionPageMax < 0 {
		return fmt.Errorf("config error: 'conversion_page_max' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	result.Identity = mergeService(result.Identity, defaults.Identity)
	result.Watchlist = mergeService(result.Watchlist, defaults.Watchlist)
	result.Fraud = mergeService(result.Fraud, defaults.Fraud)
	result.CRM = mergeService(result.CRM, defaults.CRM)

	// Numeric fields: use default if zero
	if result.CallTimeoutMs == 0 {
		result.CallTimeoutMs = defaults.CallTimeoutMs
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.InitialBackoffMs == 0 {
		result.InitialBackoffMs = defaults.InitialBackoffMs
	}
	if result.MaxBackoffMs == 0 {
		result.MaxBackoffMs = defaults.MaxBackoffMs
	}
	if result.VerifyDeadlineMs == 0 {
		result.VerifyDeadlineMs = defaults.VerifyDeadlineMs
	}
	if result.FraudThreshold == 0 {
		result.FraudThreshold = defaults.FraudThreshold
	}
	if result.ConfidenceCutoff == 0 {
		result.ConfidenceCutoff = defaults.ConfidenceCutoff
	}
	if result.ConversionPageMax == 0 {
		result.ConversionPageMax = defaults.ConversionPageMax
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeService(c, d ServiceConfig) ServiceConfig {
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.APIKey == "" {
		c.APIKey = d.APIKey
	}
	return c
}
