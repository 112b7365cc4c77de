package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version" validate:"gte=1"`
	Precision Precision       `yaml:"precision" validate:"omitempty,oneof=coarse balanced fine"`
	Compile   CompileConfig   `yaml:"compile"`
	Solver    *SolverOverride `yaml:"solver,omitempty"`
	Time      TimeConfig      `yaml:"time"`
	Output    OutputConfig    `yaml:"output"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
}

// CompileConfig holds the defaults of the compile stage
type CompileConfig struct {
	Jacobian    bool    `yaml:"jacobian"`
	RateNames   bool    `yaml:"rate_names"`
	DefaultRate float64 `yaml:"default_rate" validate:"gte=0"`
	ODEName     string  `yaml:"ode_name" validate:"required"`
	Format      string  `yaml:"format" validate:"oneof=go json yaml"`
}

// SolverOverride replaces single values of the precision profile
type SolverOverride struct {
	AbsTol      *float64 `yaml:"atol,omitempty" validate:"omitempty,gt=0"`
	RelTol      *float64 `yaml:"rtol,omitempty" validate:"omitempty,gt=0"`
	MaxSteps    *int     `yaml:"max_steps,omitempty" validate:"omitempty,gt=0"`
	InitialStep *float64 `yaml:"initial_step,omitempty" validate:"omitempty,gte=0"`
}

// TimeConfig holds the default integration window
type TimeConfig struct {
	T0   float64 `yaml:"t0" validate:"gte=0"`
	T8   float64 `yaml:"t8" validate:"gtfield=T0"`
	TLin int     `yaml:"t_lin" validate:"gte=2"`
	TLog int     `yaml:"t_log" validate:"omitempty,gte=2"`
}

// OutputConfig controls trajectory printing
type OutputConfig struct {
	Header bool `yaml:"header"`
	NXY    bool `yaml:"nxy"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Record bool   `yaml:"record"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	File   string `yaml:"file,omitempty"`
}

// WatchConfig holds settings for compile --watch
type WatchConfig struct {
	Debounce Duration `yaml:"debounce"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
