// Package recovery refines an edit script after generation. The matchers can
// pair lines that merely happen to sit in similar graph positions; the
// strategies here re-pair, clean up or flatten the resulting operations using
// the text of the lines themselves.
package recovery

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ritzau/pdg-diff/pkg/edit"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/similarity"
)

// Strategy names a recovery pass
type Strategy string

const (
	StrategyGlobalSimilarity    Strategy = "global_similarity"
	StrategyGraphCentrality     Strategy = "graph_centrality"
	StrategyLineLevelUniqueness Strategy = "line_level_uniqueness"
	StrategyDuplicateCleanup    Strategy = "duplicate_cleanup"
	StrategyCleanup             Strategy = "cleanup"
	StrategyFlatten             Strategy = "flatten"
	StrategyCleanupAndFlatten   Strategy = "cleanup_and_flatten"
	StrategyRemoveNegativeLines Strategy = "remove_negative_line_numbers"
	StrategyNone                Strategy = "none"
)

// ErrInvalidStrategy is returned for an unknown strategy name
var ErrInvalidStrategy = errors.New("invalid recovery strategy")

const (
	DefaultThreshold        = 0.3
	DefaultFlattenThreshold = 0.7
)

// Strategies lists every known strategy
func Strategies() []Strategy {
	return []Strategy{
		StrategyGlobalSimilarity,
		StrategyGraphCentrality,
		StrategyLineLevelUniqueness,
		StrategyDuplicateCleanup,
		StrategyCleanup,
		StrategyFlatten,
		StrategyCleanupAndFlatten,
		StrategyRemoveNegativeLines,
		StrategyNone,
	}
}

// ParseStrategy accepts a strategy name in any case, with '-' or '_' separators
func ParseStrategy(name string) (Strategy, error) {
	normalized := Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	for _, s := range Strategies() {
		if s == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrInvalidStrategy)
}

// Options tunes the similarity-driven strategies
type Options struct {
	// Threshold is the minimum similarity for global re-pairing
	Threshold float64
	// FlattenThreshold is the minimum similarity to merge an Insert with a Delete
	FlattenThreshold float64
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, FlattenThreshold: DefaultFlattenThreshold}
}

// Processor applies one recovery strategy to edit scripts
type Processor struct {
	strategy Strategy
	opts     Options
}

// New validates the strategy name up front
func New(strategy Strategy, opts Options) (*Processor, error) {
	s, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	return &Processor{strategy: s, opts: opts}, nil
}

// Strategy returns the configured strategy
func (p *Processor) Strategy() Strategy {
	return p.strategy
}

// Process returns the refined script. The input slice is not modified.
func (p *Processor) Process(ops []edit.Operation) []edit.Operation {
	var out []edit.Operation
	switch p.strategy {
	case StrategyGlobalSimilarity:
		out = globalSimilarity(ops, p.opts.Threshold)
	case StrategyLineLevelUniqueness:
		out = lineLevelUniqueness(ops)
	case StrategyDuplicateCleanup:
		out = removeDuplicates(ops)
	case StrategyCleanup:
		out = cleanup(ops)
	case StrategyFlatten:
		out = flatten(ops, p.opts.FlattenThreshold)
	case StrategyCleanupAndFlatten:
		out = removeDuplicates(removeNegativeLines(flatten(cleanup(ops), p.opts.FlattenThreshold)))
	case StrategyRemoveNegativeLines:
		out = removeNegativeLines(ops)
	case StrategyGraphCentrality:
		logging.Debug("Graph centrality recovery is not implemented, script left unchanged")
		out = append([]edit.Operation(nil), ops...)
	default:
		out = append([]edit.Operation(nil), ops...)
	}

	logging.Trace("Recovery applied", "strategy", p.strategy, "before", len(ops), "after", len(out))
	return out
}

// Process is shorthand for New(strategy, opts) followed by Process(ops)
func Process(ops []edit.Operation, strategy Strategy, opts Options) ([]edit.Operation, error) {
	p, err := New(strategy, opts)
	if err != nil {
		return nil, err
	}
	return p.Process(ops), nil
}

// lineKey identifies one side of an Update
type lineKey struct {
	snippet string
	line    int
}

type assignment struct {
	from, to   int // indices into oldKeys and newKeys
	similarity float64
}

// globalSimilarity discards the matcher's pairing of Updates and re-pairs
// their old and new lines greedily by text similarity, best pairs first.
// Lines left without a partner become Deletes and Inserts.
func globalSimilarity(ops []edit.Operation, threshold float64) []edit.Operation {
	var (
		rest    []edit.Operation
		oldKeys []lineKey
		newKeys []lineKey
		oldSeen = make(map[lineKey]int)
		newSeen = make(map[lineKey]int)
		origin  = make(map[lineKey]edit.Operation) // first Update seen per old key
		pairs   = make(map[[2]lineKey]edit.Operation)
	)

	for _, op := range ops {
		if op.Kind != edit.KindUpdate {
			rest = append(rest, op)
			continue
		}
		ok := lineKey{op.OldSnippet, op.OldLine}
		nk := lineKey{op.NewSnippet, op.NewLine}
		if _, seen := oldSeen[ok]; !seen {
			oldSeen[ok] = len(oldKeys)
			oldKeys = append(oldKeys, ok)
			origin[ok] = op
		}
		if _, seen := newSeen[nk]; !seen {
			newSeen[nk] = len(newKeys)
			newKeys = append(newKeys, nk)
		}
		pairs[[2]lineKey{ok, nk}] = op
	}

	candidates := make([]assignment, 0, len(oldKeys)*len(newKeys))
	for i, ok := range oldKeys {
		for j, nk := range newKeys {
			candidates = append(candidates, assignment{
				from:       i,
				to:         j,
				similarity: similarity.Similarity(ok.snippet, nk.snippet),
			})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].similarity > candidates[b].similarity
	})

	oldUsed := make([]bool, len(oldKeys))
	newUsed := make([]bool, len(newKeys))
	var updates []edit.Operation
	for _, c := range candidates {
		if c.similarity < threshold {
			break
		}
		if oldUsed[c.from] || newUsed[c.to] {
			continue
		}
		oldUsed[c.from] = true
		newUsed[c.to] = true

		ok, nk := oldKeys[c.from], newKeys[c.to]
		update, kept := pairs[[2]lineKey{ok, nk}]
		if !kept {
			update = edit.Update(nil, ok.line, nk.line, ok.snippet, nk.snippet,
				edit.UnifiedDiff(ok.line, nk.line, ok.snippet, nk.snippet))
		}
		update.Node = origin[ok].Node
		updates = append(updates, update)
	}

	out := append([]edit.Operation(nil), rest...)
	out = append(out, updates...)
	for i, ok := range oldKeys {
		if !oldUsed[i] {
			out = append(out, edit.Delete(origin[ok].Node, ok.line, ok.snippet))
		}
	}
	for j, nk := range newKeys {
		if !newUsed[j] {
			out = append(out, edit.Insert(nil, nk.line, nk.snippet))
		}
	}

	logging.Debug("Global similarity recovery",
		"updates_in", len(oldKeys), "updates_out", len(updates), "threshold", threshold)
	return removeDuplicates(out)
}

// removeDuplicates keeps the first operation per Key
func removeDuplicates(ops []edit.Operation) []edit.Operation {
	seen := make(map[string]bool, len(ops))
	out := make([]edit.Operation, 0, len(ops))
	for _, op := range ops {
		key := op.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, op)
	}
	return out
}

// lineLevelUniqueness allows at most one Update per old line and then at most
// one per new line, keeping the one whose texts are most alike.
func lineLevelUniqueness(ops []edit.Operation) []edit.Operation {
	ops = uniqueUpdates(ops, func(op edit.Operation) int { return op.OldLine })
	return uniqueUpdates(ops, func(op edit.Operation) int { return op.NewLine })
}

func uniqueUpdates(ops []edit.Operation, line func(edit.Operation) int) []edit.Operation {
	best := make(map[int]int) // line -> index of the best Update
	for i, op := range ops {
		if op.Kind != edit.KindUpdate {
			continue
		}
		j, ok := best[line(op)]
		if !ok || updateSimilarity(op) > updateSimilarity(ops[j]) {
			best[line(op)] = i
		}
	}

	out := make([]edit.Operation, 0, len(ops))
	for i, op := range ops {
		if op.Kind == edit.KindUpdate && best[line(op)] != i {
			continue
		}
		out = append(out, op)
	}
	return out
}

func updateSimilarity(op edit.Operation) float64 {
	return similarity.Similarity(op.OldSnippet, op.NewSnippet)
}

// cleanup drops Deletes and Inserts on lines an Update already accounts for,
// then applies line-level uniqueness.
func cleanup(ops []edit.Operation) []edit.Operation {
	oldLines := make(map[int]bool)
	newLines := make(map[int]bool)
	for _, op := range ops {
		if op.Kind == edit.KindUpdate {
			oldLines[op.OldLine] = true
			newLines[op.NewLine] = true
		}
	}

	out := make([]edit.Operation, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Kind == edit.KindDelete && oldLines[op.Line]:
		case op.Kind == edit.KindInsert && newLines[op.Line]:
		default:
			out = append(out, op)
		}
	}
	return lineLevelUniqueness(out)
}

// flatten merges an Insert with its most similar Delete. Identical text on
// different lines is a Move, identical text on the same line cancels out and
// anything else similar enough becomes an Update. The merged operation takes
// the place of the Insert.
func flatten(ops []edit.Operation, threshold float64) []edit.Operation {
	var deletes []int
	for i, op := range ops {
		if op.Kind == edit.KindDelete {
			deletes = append(deletes, i)
		}
	}

	used := make(map[int]bool)               // consumed Delete indices
	replaced := make(map[int]*edit.Operation) // Insert index -> merged op, nil when cancelled
	for i, ins := range ops {
		if ins.Kind != edit.KindInsert {
			continue
		}
		bestIdx, bestSim := -1, -1.0
		for _, d := range deletes {
			if used[d] {
				continue
			}
			if sim := similarity.Similarity(ops[d].Snippet, ins.Snippet); sim > bestSim {
				bestIdx, bestSim = d, sim
			}
		}
		if bestIdx < 0 || bestSim < threshold {
			continue
		}

		del := ops[bestIdx]
		used[bestIdx] = true
		switch {
		case del.Snippet == ins.Snippet && del.Line == ins.Line:
			replaced[i] = nil
		case del.Snippet == ins.Snippet:
			op := edit.Move(del.Node, del.Line, ins.Line, del.Snippet, nil, nil)
			replaced[i] = &op
		default:
			op := edit.Update(del.Node, del.Line, ins.Line, del.Snippet, ins.Snippet,
				edit.UnifiedDiff(del.Line, ins.Line, del.Snippet, ins.Snippet))
			replaced[i] = &op
		}
	}

	out := make([]edit.Operation, 0, len(ops))
	for i, op := range ops {
		if used[i] {
			continue
		}
		if merged, ok := replaced[i]; ok {
			if merged != nil {
				out = append(out, *merged)
			}
			continue
		}
		out = append(out, op)
	}
	return out
}

// removeNegativeLines drops operations that refer to an unknown line
func removeNegativeLines(ops []edit.Operation) []edit.Operation {
	out := make([]edit.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Line < 0 || op.OldLine < 0 || op.NewLine < 0 {
			continue
		}
		out = append(out, op)
	}
	return out
}
