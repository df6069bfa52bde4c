// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads geekdo-sync configuration from an optional YAML
// file with environment variable overrides. Validation happens before
// any I/O so credential mistakes fail fast.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendGrist    = "grist"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Validation strategies.
const (
	ValidationIncremental = "incremental"
	ValidationFull        = "full"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "1500ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// GeekdoConfig configures the source API client.
type GeekdoConfig struct {
	Username     string   `yaml:"username"`
	Token        string   `yaml:"token"`
	BaseURL      string   `yaml:"base_url"`
	RequestDelay Duration `yaml:"request_delay"` // pacing between page requests
}

// GristConfig configures the Grist destination.
type GristConfig struct {
	APIKey  string `yaml:"api_key"`
	DocID   string `yaml:"doc_id"`
	BaseURL string `yaml:"base_url"`
}

// StoreConfig selects the destination backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // grist, sqlite or postgres
	DSN     string `yaml:"dsn"`     // sqlite file path or postgres connection string
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	OverlapLimit int    `yaml:"overlap_limit"`
	Validation   string `yaml:"validation"` // incremental or full
}

// Config is the root configuration.
type Config struct {
	Geekdo GeekdoConfig `yaml:"geekdo"`
	Grist  GristConfig  `yaml:"grist"`
	Store  StoreConfig  `yaml:"store"`
	Sync   SyncConfig   `yaml:"sync"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Geekdo: GeekdoConfig{
			RequestDelay: Duration(1 * time.Second),
		},
		Store: StoreConfig{
			Backend: BackendGrist,
		},
		Sync: SyncConfig{
			OverlapLimit: 100,
			Validation:   ValidationIncremental,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides. The result
// is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfPresent := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setIfPresent(&c.Geekdo.Username, "GEEKDO_USERNAME")
	setIfPresent(&c.Geekdo.Token, "GEEKDO_TOKEN")
	setIfPresent(&c.Geekdo.BaseURL, "GEEKDO_BASE_URL")
	setIfPresent(&c.Grist.APIKey, "GRIST_API_KEY")
	setIfPresent(&c.Grist.DocID, "GRIST_DOC_ID")
	setIfPresent(&c.Grist.BaseURL, "GRIST_BASE_URL")
	setIfPresent(&c.Store.Backend, "GEEKDO_SYNC_STORE_BACKEND")
	setIfPresent(&c.Store.DSN, "GEEKDO_SYNC_STORE_DSN")
}

// Validate reports configuration problems, all at once.
func (c *Config) Validate() error {
	var problems []error

	if c.Geekdo.Username == "" {
		problems = append(problems, errors.New("geekdo username is required (geekdo.username / GEEKDO_USERNAME)"))
	}
	if c.Geekdo.Token == "" {
		problems = append(problems, errors.New("geekdo API token is required (geekdo.token / GEEKDO_TOKEN)"))
	}

	switch c.Store.Backend {
	case BackendGrist:
		if c.Grist.APIKey == "" {
			problems = append(problems, errors.New("grist API key is required (grist.api_key / GRIST_API_KEY)"))
		}
		if c.Grist.DocID == "" {
			problems = append(problems, errors.New("grist doc id is required (grist.doc_id / GRIST_DOC_ID)"))
		}
	case BackendSQLite, BackendPostgres:
		if c.Store.DSN == "" {
			problems = append(problems, fmt.Errorf("store DSN is required for the %s backend (store.dsn / GEEKDO_SYNC_STORE_DSN)", c.Store.Backend))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown store backend %q (want grist, sqlite or postgres)", c.Store.Backend))
	}

	switch c.Sync.Validation {
	case ValidationIncremental, ValidationFull:
	default:
		problems = append(problems, fmt.Errorf("unknown validation mode %q (want incremental or full)", c.Sync.Validation))
	}
	if c.Sync.OverlapLimit <= 0 {
		problems = append(problems, fmt.Errorf("overlap limit must be positive, got %d", c.Sync.OverlapLimit))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
	}
	return nil
}
