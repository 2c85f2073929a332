package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/recovery"
)

// DefaultFile is the optional configuration file read from the working directory
const DefaultFile = "pdg-diff.toml"

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Config holds all configuration for the application
type Config struct {
	Strategy    string              `koanf:"strategy" validate:"required"`
	Recovery    RecoveryConfig      `koanf:"recovery"`
	Heuristic   HeuristicConfig     `koanf:"heuristic"`
	GED         matching.GEDOptions `koanf:"ged"`
	Budget      BudgetConfig        `koanf:"budget"`
	Parallelism int                 `koanf:"parallelism" validate:"gte=1,lte=256"`
	Cycles      bool                `koanf:"cycles"`

	Format     string    `koanf:"format" validate:"oneof=text plain json"`
	Port       int       `koanf:"port" validate:"gte=1,lte=65535"`
	Verbosity  string    `koanf:"verbosity"`
	VerboseCnt int       `koanf:"verbose" validate:"gte=0"`
	Log        LogConfig `koanf:"log"`
}

// RecoveryConfig selects and tunes the post-processing of edit scripts
type RecoveryConfig struct {
	Strategy  string  `koanf:"strategy" validate:"required"`
	Threshold float64 `koanf:"threshold" validate:"gte=0,lte=1"`
	Flatten   float64 `koanf:"flatten" validate:"gte=0,lte=1"`
}

type HeuristicConfig struct {
	Threshold float64 `koanf:"threshold" validate:"gte=0"`
}

// BudgetConfig bounds each backtracking node search
type BudgetConfig struct {
	Expansions int           `koanf:"expansions" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"gte=0"`
}

type LogConfig struct {
	JSON bool `koanf:"json"`
}

// flagKeys maps command-line flag names onto configuration keys where they differ
var flagKeys = map[string]string{
	"recovery":            "recovery.strategy",
	"threshold":           "recovery.threshold",
	"flatten-threshold":   "recovery.flatten",
	"heuristic-threshold": "heuristic.threshold",
	"budget":              "budget.expansions",
	"timeout":             "budget.timeout",
	"json-logs":           "log.json",
	"config":              "", // consumed by Load itself
	"help":                "",
}

func defaults() map[string]any {
	ged := matching.DefaultGEDOptions()
	budget := matching.DefaultBudget()
	return map[string]any{
		"strategy":            string(matching.StrategyGED),
		"recovery.strategy":   string(recovery.StrategyGlobalSimilarity),
		"recovery.threshold":  recovery.DefaultThreshold,
		"recovery.flatten":    recovery.DefaultFlattenThreshold,
		"heuristic.threshold": matching.DefaultHeuristicThreshold,
		"ged.alpha":           ged.Alpha,
		"ged.beta":            ged.Beta,
		"ged.penalty":         ged.EdgePenalty,
		"budget.expansions":   budget.MaxExpansions,
		"budget.timeout":      budget.Timeout.String(),
		"parallelism":         4,
		"cycles":              false,
		"format":              "text",
		"port":                8080,
		"verbosity":           "",
		"verbose":             0,
		"log.json":            false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File - pdg-diff.toml is optional, an explicit --config is not
	path, explicit := DefaultFile, false
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Value.String() != "" {
			path, explicit = fl.Value.String(), fl.Changed
		}
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: PDG_DIFF_ (e.g., PDG_DIFF_RECOVERY_THRESHOLD=0.5)
	if err := k.Load(env.Provider("PDG_DIFF_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "PDG_DIFF_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			key := fl.Name
			if mapped, ok := flagKeys[fl.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and resolves strategy names
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, formatValidationError(err))
	}
	if _, err := matching.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: strategy: %w", ErrInvalidConfig, err)
	}
	if _, err := recovery.ParseStrategy(c.Recovery.Strategy); err != nil {
		return fmt.Errorf("%w: recovery.strategy: %w", ErrInvalidConfig, err)
	}
	if c.Verbosity != "" {
		if _, err := logging.ParseLevel(c.Verbosity); err != nil {
			return fmt.Errorf("%w: verbosity: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// EngineOptions translates the configuration into diff engine options
func (c *Config) EngineOptions() (engine.Options, error) {
	strategy, err := matching.ParseStrategy(c.Strategy)
	if err != nil {
		return engine.Options{}, err
	}
	rec, err := recovery.ParseStrategy(c.Recovery.Strategy)
	if err != nil {
		return engine.Options{}, err
	}

	return engine.Options{
		Strategy: strategy,
		Matching: matching.Options{
			Budget: matching.Budget{
				MaxExpansions: c.Budget.Expansions,
				Timeout:       c.Budget.Timeout,
			},
			GED:                c.GED,
			HeuristicThreshold: c.Heuristic.Threshold,
		},
		Recovery: rec,
		RecoveryOptions: recovery.Options{
			Threshold:        c.Recovery.Threshold,
			FlattenThreshold: c.Recovery.Flatten,
		},
		Parallelism:  c.Parallelism,
		DetectCycles: c.Cycles,
	}, nil
}

// LogLevel resolves the verbosity setting. An explicit level wins; otherwise
// each -v lowers the threshold one step from info.
func (c *Config) LogLevel() slog.Level {
	if c.Verbosity != "" {
		if level, err := logging.ParseLevel(c.Verbosity); err == nil {
			return level
		}
	}
	switch {
	case c.VerboseCnt >= 2:
		return logging.LevelTrace
	case c.VerboseCnt == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// formatValidationError flattens the first validation failure into a readable message
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

// Read expands dotted keys into nested maps, as the other providers deliver them
func (p *mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p.m, "."), nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
