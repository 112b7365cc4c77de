// Package config provides configuration management for crnsim.
//
// Config file locations (priority order):
//  1. $CRNSIM_CONFIG
//  2. ./crnsim.yaml
//  3. $XDG_CONFIG_HOME/crnsim/config.yaml
//  4. ~/.config/crnsim/config.yaml
//  5. /etc/crnsim/config.yaml
//
// A few values can be overridden from the environment, see ApplyEnv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvLogLevel = "CRNSIM_LOG_LEVEL"
	EnvDatabase = "CRNSIM_DB"
	EnvRecord   = "CRNSIM_RECORD"
)

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied and the result is validated.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		cfg, path, err = LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		Precision: PrecisionBalanced,
		Compile: CompileConfig{
			DefaultRate: 1,
			ODEName:     "odesystem",
			Format:      "go",
		},
		Time: TimeConfig{
			T0:   0,
			T8:   100,
			TLin: 500,
		},
		Database: DatabaseConfig{Path: "./crnsim.db"},
		Logging:  LoggingConfig{Level: "warn", Format: "console"},
		Watch:    WatchConfig{Debounce: Duration(100 * time.Millisecond)},
	}
}

// applyDefaults fills in values a partial file left empty
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Precision == "" {
		c.Precision = PrecisionBalanced
	}
	if c.Compile.ODEName == "" {
		c.Compile.ODEName = "odesystem"
	}
	if c.Compile.Format == "" {
		c.Compile.Format = "go"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./crnsim.db"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(100 * time.Millisecond)
	}
}

// ApplyEnv overrides config values from CRNSIM_* environment variables
func (c *Config) ApplyEnv() error {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv(EnvDatabase); path != "" {
		c.Database.Path = path
	}
	if rec := os.Getenv(EnvRecord); rec != "" {
		b, err := strconv.ParseBool(rec)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRecord, err)
		}
		c.Database.Record = b
	}
	return nil
}

// EffectiveSolver returns the precision profile with solver overrides applied
func (c *Config) EffectiveSolver() SolverProfile {
	base := c.Precision.Profile()

	if c.Solver == nil {
		return base
	}

	if c.Solver.AbsTol != nil {
		base.AbsTol = *c.Solver.AbsTol
	}
	if c.Solver.RelTol != nil {
		base.RelTol = *c.Solver.RelTol
	}
	if c.Solver.MaxSteps != nil {
		base.MaxSteps = *c.Solver.MaxSteps
	}
	if c.Solver.InitialStep != nil {
		base.InitialStep = *c.Solver.InitialStep
	}

	return base
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	s := c.EffectiveSolver()
	summary := fmt.Sprintf("Precision: %s (atol %g, rtol %g, max steps %d)\n",
		c.Precision, s.AbsTol, s.RelTol, s.MaxSteps)
	summary += fmt.Sprintf("Time: %g..%g, %d points\n", c.Time.T0, c.Time.T8, c.Time.TLin)
	summary += fmt.Sprintf("Database: %s (record %v)", c.Database.Path, c.Database.Record)
	return summary
}
