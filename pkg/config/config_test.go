package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/recovery"
)

// flags mirrors the command-line surface of the pdg-diff binary
func flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("config", DefaultFile, "")
	f.String("strategy", "ged", "")
	f.String("recovery", "global_similarity", "")
	f.Float64("threshold", recovery.DefaultThreshold, "")
	f.Float64("flatten-threshold", recovery.DefaultFlattenThreshold, "")
	f.Float64("heuristic-threshold", matching.DefaultHeuristicThreshold, "")
	f.Int("budget", 1_000_000, "")
	f.Duration("timeout", 5*time.Second, "")
	f.Int("parallelism", 4, "")
	f.Bool("cycles", false, "")
	f.String("format", "text", "")
	f.Int("port", 8080, "")
	f.String("verbosity", "", "")
	f.CountP("verbose", "v", "")
	f.Bool("json-logs", false, "")
	return f
}

// inTempDir keeps a stray pdg-diff.toml in the package directory out of the tests
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "ged", cfg.Strategy)
	assert.Equal(t, "global_similarity", cfg.Recovery.Strategy)
	assert.Equal(t, recovery.DefaultThreshold, cfg.Recovery.Threshold)
	assert.Equal(t, recovery.DefaultFlattenThreshold, cfg.Recovery.Flatten)
	assert.Equal(t, matching.DefaultGEDOptions(), cfg.GED)
	assert.Equal(t, 5*time.Second, cfg.Budget.Timeout)
	assert.Equal(t, 1_000_000, cfg.Budget.Expansions)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.Log.JSON)
}

func TestFlagDefaultsDoNotOverrideEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("PDG_DIFF_RECOVERY_THRESHOLD", "0.5")
	t.Setenv("PDG_DIFF_STRATEGY", "vf2")

	cfg, err := Load(flags())
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Recovery.Threshold)
	assert.Equal(t, "vf2", cfg.Strategy)
}

func TestFlagsOverrideEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("PDG_DIFF_STRATEGY", "vf2")

	f := flags()
	require.NoError(t, f.Parse([]string{
		"--strategy", "heuristic",
		"--recovery", "cleanup-and-flatten",
		"--flatten-threshold", "0.9",
		"--timeout", "250ms",
		"--json-logs",
		"-vv",
	}))

	cfg, err := Load(f)
	require.NoError(t, err)

	assert.Equal(t, "heuristic", cfg.Strategy)
	assert.Equal(t, "cleanup-and-flatten", cfg.Recovery.Strategy)
	assert.Equal(t, 0.9, cfg.Recovery.Flatten)
	assert.Equal(t, 250*time.Millisecond, cfg.Budget.Timeout)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 2, cfg.VerboseCnt)
	assert.Equal(t, logging.LevelTrace, cfg.LogLevel())
}

func TestLoadConfigFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
strategy = "ullmann"
parallelism = 2

[recovery]
strategy = "flatten"
flatten = 0.8

[ged]
alpha = 0.2
beta = 0.8
penalty = 1.0
`), 0o644))

	f := flags()
	require.NoError(t, f.Parse([]string{"--config", path}))

	cfg, err := Load(f)
	require.NoError(t, err)

	assert.Equal(t, "ullmann", cfg.Strategy)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, "flatten", cfg.Recovery.Strategy)
	assert.Equal(t, 0.8, cfg.Recovery.Flatten)
	assert.Equal(t, matching.GEDOptions{Alpha: 0.2, Beta: 0.8, EdgePenalty: 1.0}, cfg.GED)
	assert.Equal(t, recovery.DefaultThreshold, cfg.Recovery.Threshold, "untouched keys keep defaults")
}

func TestDefaultConfigFileIsPickedUp(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("format = \"json\"\n"), 0o644))

	cfg, err := Load(flags())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}

func TestExplicitMissingConfigFile(t *testing.T) {
	inTempDir(t)

	f := flags()
	require.NoError(t, f.Parse([]string{"--config", "nope.toml"}))

	_, err := Load(f)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown strategy", []string{"--strategy", "annealing"}},
		{"unknown recovery", []string{"--recovery", "pagerank"}},
		{"threshold above one", []string{"--threshold", "1.5"}},
		{"negative budget", []string{"--budget", "-1"}},
		{"no workers", []string{"--parallelism", "0"}},
		{"bad format", []string{"--format", "xml"}},
		{"bad verbosity", []string{"--verbosity", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			f := flags()
			require.NoError(t, f.Parse(tt.args))

			_, err := Load(f)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEngineOptions(t *testing.T) {
	inTempDir(t)
	f := flags()
	require.NoError(t, f.Parse([]string{"--strategy", "VF2", "--recovery", "none", "--cycles", "--budget", "10"}))

	cfg, err := Load(f)
	require.NoError(t, err)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyVF2, opts.Strategy)
	assert.Equal(t, recovery.StrategyNone, opts.Recovery)
	assert.Equal(t, 10, opts.Matching.Budget.MaxExpansions)
	assert.True(t, opts.DetectCycles)
	assert.Equal(t, 4, opts.Parallelism)
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		cfg  Config
		want slog.Level
	}{
		{Config{}, slog.LevelInfo},
		{Config{VerboseCnt: 1}, slog.LevelDebug},
		{Config{VerboseCnt: 3}, logging.LevelTrace},
		{Config{Verbosity: "warn", VerboseCnt: 2}, slog.LevelWarn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.LogLevel())
	}
}
