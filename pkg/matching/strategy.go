package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Strategy names a node-correspondence search
type Strategy string

const (
	StrategyVF2       Strategy = "vf2"
	StrategyUllmann   Strategy = "ullmann"
	StrategyGED       Strategy = "ged"
	StrategyHeuristic Strategy = "heuristic"
)

// Strategies lists every supported strategy
func Strategies() []Strategy {
	return []Strategy{StrategyVF2, StrategyUllmann, StrategyGED, StrategyHeuristic}
}

// ParseStrategy resolves a strategy name, case-insensitively
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q (want one of %v): %w", name, Strategies(), ErrInvalidStrategy)
}

// Options tunes the matchers
type Options struct {
	Budget Budget
	GED    GEDOptions

	// HeuristicThreshold is the minimum node score for a positional pair to be mapped
	HeuristicThreshold float64
}

// DefaultOptions returns the stock tuning
func DefaultOptions() Options {
	return Options{
		Budget:             DefaultBudget(),
		GED:                DefaultGEDOptions(),
		HeuristicThreshold: DefaultHeuristicThreshold,
	}
}

// Result is the outcome of matching one pair of graphs
type Result struct {
	Mapping *NodeMapping

	// Distance is the edit distance (ged only)
	Distance float64

	// Score is the normalized node score (heuristic only)
	Score float64

	// Expansions is the number of search states explored (vf2 and ullmann)
	Expansions int

	// Exhausted is set when the budget ran out; Mapping is then the best partial found
	Exhausted bool
}

// NodeMatcher finds a node correspondence between two graphs.
// Zero-node graphs yield an empty mapping and no error.
type NodeMatcher interface {
	Match(ctx context.Context, src, dst *pdg.Graph) (*Result, error)
}

// GraphMatcher pairs the method graphs of two program versions
type GraphMatcher interface {
	MatchGraphs(ctx context.Context, src, dst []*pdg.Graph) (*GraphMapping, error)
}

// NewNodeMatcher returns the node-level matcher for a strategy
func NewNodeMatcher(s Strategy, opts Options) (NodeMatcher, error) {
	switch s {
	case StrategyVF2:
		return NewVF2(opts.Budget), nil
	case StrategyUllmann:
		return NewUllmann(opts.Budget), nil
	case StrategyGED:
		return NewGED(opts.GED), nil
	case StrategyHeuristic:
		return NewHeuristic(opts.HeuristicThreshold), nil
	default:
		return nil, fmt.Errorf("%q: %w", s, ErrInvalidStrategy)
	}
}

// NewGraphMatcher returns the graph-level matcher for a strategy
func NewGraphMatcher(s Strategy, opts Options) (GraphMatcher, error) {
	switch s {
	case StrategyVF2:
		return &coverageGraphMatcher{strategy: s, nodes: NewVF2(opts.Budget)}, nil
	case StrategyUllmann:
		return &coverageGraphMatcher{strategy: s, nodes: NewUllmann(opts.Budget)}, nil
	case StrategyGED:
		return &distanceGraphMatcher{nodes: NewGED(opts.GED)}, nil
	case StrategyHeuristic:
		return &heuristicGraphMatcher{nodes: NewHeuristic(opts.HeuristicThreshold)}, nil
	default:
		return nil, fmt.Errorf("%q: %w", s, ErrInvalidStrategy)
	}
}
