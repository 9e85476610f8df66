// Package config loads process configuration: a YAML file with strict
// field checking, then environment overrides. A .env file in the working
// directory is honored when present.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/maishanyun/pantry/internal/forecast"
	"github.com/maishanyun/pantry/internal/shipment"
)

// Environment variables recognized as overrides.
const (
	EnvDBPath    = "PANTRY_DB"
	EnvModelPath = "PANTRY_MODEL_PATH"
)

// Lead-time policy names accepted in config files.
const (
	PolicyZeroFill       = "zero_fill"
	PolicyExcludeUnknown = "exclude_unknown"
)

// Config is the full process configuration.
type Config struct {
	DBPath    string `yaml:"db_path"`
	ModelPath string `yaml:"model_path"`

	Model    forecast.Hyperparameters `yaml:"model"`
	Training forecast.TrainingConfig  `yaml:"training"`

	ReorderThreshold   float64 `yaml:"reorder_threshold"`
	DefaultReorderDays int     `yaml:"default_reorder_days"`
	SyntheticSeed      int64   `yaml:"synthetic_seed"`
	LeadTimePolicy     string  `yaml:"lead_time_policy"`
}

// Default mirrors the production service configuration.
func Default() Config {
	return Config{
		DBPath:             "data/pantry.db",
		ModelPath:          "data/model.json",
		Model:              forecast.DefaultHyperparameters(),
		Training:           forecast.DefaultTrainingConfig(),
		ReorderThreshold:   200,
		DefaultReorderDays: 7,
		SyntheticSeed:      42,
		LeadTimePolicy:     PolicyZeroFill,
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (skipped when path is empty), then environment overrides.
// Unknown YAML fields are rejected to catch typos.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Missing .env is not an error; it only exists in dev setups.
	_ = godotenv.Load()
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		cfg.ModelPath = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model_path is required")
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if c.ReorderThreshold <= 0 {
		return fmt.Errorf("reorder_threshold must be > 0, got %g", c.ReorderThreshold)
	}
	if c.DefaultReorderDays < 0 {
		return fmt.Errorf("default_reorder_days must be >= 0, got %d", c.DefaultReorderDays)
	}
	switch c.LeadTimePolicy {
	case PolicyZeroFill, PolicyExcludeUnknown:
	default:
		return fmt.Errorf("lead_time_policy must be %q or %q, got %q",
			PolicyZeroFill, PolicyExcludeUnknown, c.LeadTimePolicy)
	}
	return nil
}

// ShipmentPolicy converts the configured policy name.
func (c Config) ShipmentPolicy() shipment.LeadTimePolicy {
	if c.LeadTimePolicy == PolicyExcludeUnknown {
		return shipment.ExcludeUnknown
	}
	return shipment.ZeroFill
}

// Orchestrator derives the forecast orchestrator configuration.
func (c Config) Orchestrator() forecast.OrchestratorConfig {
	oc := forecast.DefaultOrchestratorConfig(c.ModelPath)
	oc.Hyper = c.Model
	oc.WindowSize = c.Training.WindowSize
	oc.ReorderThreshold = c.ReorderThreshold
	oc.DefaultReorderDays = c.DefaultReorderDays
	oc.SyntheticSeed = c.SyntheticSeed
	return oc
}
