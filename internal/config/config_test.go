package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every discovery location at an empty temp directory
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvRecord, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		input string
		want  Precision
	}{
		{"coarse", PrecisionCoarse},
		{"balanced", PrecisionBalanced},
		{"fine", PrecisionFine},
		{"invalid", PrecisionBalanced},
		{"", PrecisionBalanced},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePrecision(tt.input), "input %q", tt.input)
	}
}

func TestPrecisionProfiles(t *testing.T) {
	coarse := PrecisionCoarse.Profile()
	fine := PrecisionFine.Profile()

	assert.Greater(t, coarse.RelTol, fine.RelTol)
	assert.Less(t, coarse.MaxSteps, fine.MaxSteps)
	assert.Equal(t, PrecisionBalanced.Profile(), Precision("bogus").Profile())
	assert.InDelta(t, 1.49012e-8, PrecisionBalanced.Profile().AbsTol, 1e-20)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "odesystem", cfg.Compile.ODEName)
	assert.Equal(t, 1.0, cfg.Compile.DefaultRate)
	assert.Equal(t, 100.0, cfg.Time.T8)
	assert.Equal(t, 500, cfg.Time.TLin)
	assert.False(t, cfg.Database.Record)
	assert.NoError(t, cfg.Validate())
}

func TestEffectiveSolver(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, PrecisionBalanced.Profile(), cfg.EffectiveSolver())

	rtol := 1e-3
	steps := 42
	cfg.Precision = PrecisionFine
	cfg.Solver = &SolverOverride{RelTol: &rtol, MaxSteps: &steps}

	got := cfg.EffectiveSolver()
	assert.Equal(t, 1e-3, got.RelTol)
	assert.Equal(t, 42, got.MaxSteps)
	assert.Equal(t, PrecisionFine.Profile().AbsTol, got.AbsTol)
}

func TestLoadWithoutFile(t *testing.T) {
	isolate(t)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, ConfigFileName), `
precision: coarse
compile:
  jacobian: true
  rate_names: true
time:
  t8: 20
  t_lin: 11
watch:
  debounce: 250ms
`)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), path)
	assert.Equal(t, PrecisionCoarse, cfg.Precision)
	assert.True(t, cfg.Compile.Jacobian)
	assert.True(t, cfg.Compile.RateNames)
	assert.Equal(t, "odesystem", cfg.Compile.ODEName)
	assert.Equal(t, 20.0, cfg.Time.T8)
	assert.Equal(t, 11, cfg.Time.TLin)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce.Duration())
}

func TestLoadPrefersExplicitPath(t *testing.T) {
	dir := isolate(t)
	explicit := filepath.Join(dir, "elsewhere", "custom.yaml")
	writeConfig(t, explicit, "database:\n  path: /tmp/explicit.db\n")
	writeConfig(t, filepath.Join(dir, ConfigFileName), "database:\n  path: /tmp/local.db\n")
	t.Setenv(EnvConfigPath, explicit)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, "/tmp/explicit.db", cfg.Database.Path)
}

func TestLoadFallsBackToXDG(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvConfigPath, filepath.Join(dir, "missing.yaml"))
	xdg := filepath.Join(dir, "xdg", ConfigDirName, "config.yaml")
	writeConfig(t, xdg, "logging:\n  level: info\n")

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, xdg, path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDatabase, "/var/lib/crnsim/runs.db")
	t.Setenv(EnvRecord, "true")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/crnsim/runs.db", cfg.Database.Path)
	assert.True(t, cfg.Database.Record)

	t.Setenv(EnvRecord, "sometimes")
	_, _, err = Load()
	assert.ErrorContains(t, err, EnvRecord)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "end before start",
			mutate: func(c *Config) { c.Time.T0, c.Time.T8 = 10, 5 },
			want:   "time.t8 must be greater than t0",
		},
		{
			name:   "unknown format",
			mutate: func(c *Config) { c.Compile.Format = "xml" },
			want:   "compile.format must be one of: go json yaml",
		},
		{
			name:   "too few points",
			mutate: func(c *Config) { c.Time.TLin = 1 },
			want:   "time.t_lin must be at least 2",
		},
		{
			name: "negative tolerance",
			mutate: func(c *Config) {
				atol := -1.0
				c.Solver = &SolverOverride{AbsTol: &atol}
			},
			want: "solver.atol must be greater than 0",
		},
		{
			name:   "unknown level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			want:   "logging.level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Compile.Jacobian = true
	cfg.Database.Record = true
	require.NoError(t, cfg.Save(path))

	loaded, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSearchPaths(t *testing.T) {
	t.Setenv(EnvConfigPath, "/opt/crnsim.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/user")

	assert.Equal(t, []string{
		"/opt/crnsim.yaml",
		ConfigFileName,
		"/xdg/crnsim/config.yaml",
		"/home/user/.config/crnsim/config.yaml",
		"/etc/crnsim/config.yaml",
	}, SearchPaths())
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, d.Duration())

	marshaled, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", marshaled)
}
