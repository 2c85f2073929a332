// Command pdg-diff compares two versions of a class through their program
// dependence graphs and prints the edit script between them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/pdg-diff/pkg/config"
	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/recovery"
)

var rootCmd = &cobra.Command{
	Use:   "pdg-diff",
	Short: "Structural diff of program dependence graphs",
	Long: `pdg-diff matches the methods and statements of two versions of a class
through their program dependence graphs and reports the edit script
(inserts, deletes, updates and moves) that turns one into the other.`,
	SilenceUsage: true,
}

func init() {
	budget := matching.DefaultBudget()

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "Configuration file (TOML)")
	flags.String("strategy", string(matching.StrategyGED), fmt.Sprintf("Matching strategy %v", matching.Strategies()))
	flags.String("recovery", string(recovery.StrategyGlobalSimilarity), fmt.Sprintf("Recovery strategy %v", recovery.Strategies()))
	flags.Float64("threshold", recovery.DefaultThreshold, "Similarity threshold for global re-pairing")
	flags.Float64("flatten-threshold", recovery.DefaultFlattenThreshold, "Similarity threshold for merging inserts with deletes")
	flags.Float64("heuristic-threshold", matching.DefaultHeuristicThreshold, "Minimum label similarity for the heuristic matcher")
	flags.Int("budget", budget.MaxExpansions, "Maximum search-state expansions per node search (0 = unlimited)")
	flags.Duration("timeout", budget.Timeout, "Maximum wall-clock time per node search (0 = unlimited)")
	flags.Int("parallelism", 4, "Method pairs diffed concurrently")
	flags.Bool("cycles", false, "Report dependency cycles of every method graph")
	flags.String("format", "text", "Output format: text, plain or json")
	flags.Int("port", 8080, "Port for the web server")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.Bool("json-logs", false, "Log as JSON")

	rootCmd.AddCommand(diffCmd, cyclesCmd, watchCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration of a command and applies its log settings
func setup(cmd *cobra.Command) (*config.Config, engine.Options, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, engine.Options{}, err
	}

	level := cfg.LogLevel()
	if cfg.Log.JSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, engine.Options{}, err
	}
	logging.Debug("configuration loaded",
		"strategy", opts.Strategy,
		"recovery", opts.Recovery,
		"parallelism", opts.Parallelism,
		"budget", opts.Matching.Budget.MaxExpansions,
		"timeout", opts.Matching.Budget.Timeout.Round(time.Millisecond))
	return cfg, opts, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
