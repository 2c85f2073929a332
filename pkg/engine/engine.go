// Package engine runs a complete diff of two program versions: graph-level
// matching, per-method edit scripts, signature and class metadata changes,
// recovery and scoring.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/pdg-diff/pkg/cycles"
	"github.com/ritzau/pdg-diff/pkg/edit"
	"github.com/ritzau/pdg-diff/pkg/loader"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/recovery"
)

var tracer = otel.Tracer("pdgdiff.engine")

// Outcome tells how a method fared between the two versions
type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeAdded   Outcome = "added"
	OutcomeRemoved Outcome = "removed"
)

// Options configures a diff run
type Options struct {
	Strategy matching.Strategy
	Matching matching.Options

	Recovery        recovery.Strategy
	RecoveryOptions recovery.Options

	// Parallelism bounds concurrent per-method script generation
	Parallelism int

	// DetectCycles adds the dependency cycles of every graph to the result
	DetectCycles bool
}

// DefaultOptions returns the stock configuration
func DefaultOptions() Options {
	return Options{
		Strategy:        matching.StrategyGED,
		Matching:        matching.DefaultOptions(),
		Recovery:        recovery.StrategyGlobalSimilarity,
		RecoveryOptions: recovery.DefaultOptions(),
		Parallelism:     4,
	}
}

// MethodResult is the edit script of one method
type MethodResult struct {
	Name       string           `json:"name"`
	OldName    string           `json:"oldName,omitempty"`
	NewName    string           `json:"newName,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	Score      float64          `json:"score"`
	Exhausted  bool             `json:"exhausted,omitempty"`
	Operations []edit.Operation `json:"operations"`
	Counts     edit.Counts      `json:"counts"`
	Distance   int              `json:"distance"`

	OldCycles []cycles.Cycle `json:"oldCycles,omitempty"`
	NewCycles []cycles.Cycle `json:"newCycles,omitempty"`
}

// Result is the outcome of one diff run
type Result struct {
	RunID    string            `json:"runId"`
	Class    string            `json:"class"`
	Strategy matching.Strategy `json:"strategy"`
	Recovery recovery.Strategy `json:"recovery"`

	Methods  []MethodResult   `json:"methods"`
	ClassOps []edit.Operation `json:"classOperations"`

	Counts   edit.Counts   `json:"counts"`
	Distance int           `json:"distance"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Operations returns every operation of the run: class-level ones first, then
// each method's script in result order
func (r *Result) Operations() []edit.Operation {
	ops := append([]edit.Operation(nil), r.ClassOps...)
	for _, m := range r.Methods {
		ops = append(ops, m.Operations...)
	}
	return ops
}

// Engine diffs program versions. It is safe for concurrent use.
type Engine struct {
	opts     Options
	graphs   matching.GraphMatcher
	recovery *recovery.Processor
}

// New validates the options and prepares the matchers
func New(opts Options) (*Engine, error) {
	strategy, err := matching.ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, fmt.Errorf("failed to configure matching: %w", err)
	}
	opts.Strategy = strategy

	graphs, err := matching.NewGraphMatcher(strategy, opts.Matching)
	if err != nil {
		return nil, fmt.Errorf("failed to configure matching: %w", err)
	}

	proc, err := recovery.New(opts.Recovery, opts.RecoveryOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to configure recovery: %w", err)
	}
	opts.Recovery = proc.Strategy()

	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Engine{opts: opts, graphs: graphs, recovery: proc}, nil
}

// Options returns the effective configuration
func (e *Engine) Options() Options {
	return e.opts
}

// side is one program version with its built method graphs
type side struct {
	program *loader.Program
	methods []loader.Method
	byGraph map[*pdg.Graph]loader.Method
}

func buildSide(p *loader.Program) *side {
	s := &side{program: p, methods: p.Graphs(), byGraph: make(map[*pdg.Graph]loader.Method)}
	for _, m := range s.methods {
		s.byGraph[m.Graph] = m
	}
	return s
}

func (s *side) graphs() []*pdg.Graph {
	out := make([]*pdg.Graph, len(s.methods))
	for i, m := range s.methods {
		out[i] = m.Graph
	}
	return out
}

// Diff compares two versions of a class
func (e *Engine) Diff(ctx context.Context, before, after *loader.Program) (result *Result, err error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "engine.Diff",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("matching.strategy", string(e.opts.Strategy)),
			attribute.String("recovery.strategy", string(e.opts.Recovery)),
		),
	)
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("edit.distance", result.Distance))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		diffRuns.WithLabelValues(string(e.opts.Strategy), status).Inc()
		diffDuration.WithLabelValues(string(e.opts.Strategy)).Observe(time.Since(start).Seconds())
	}()

	logging.InfoContext(ctx, "Starting diff", "run", runID, "class", after.Class, "strategy", e.opts.Strategy)

	oldSide, newSide := buildSide(before), buildSide(after)
	result = &Result{
		RunID:    runID,
		Class:    after.Class,
		Strategy: e.opts.Strategy,
		Recovery: e.opts.Recovery,
	}
	result.Warnings = append(result.Warnings, skipped(before, oldSide)...)
	result.Warnings = append(result.Warnings, skipped(after, newSide)...)

	mapping, err := e.graphs.MatchGraphs(ctx, oldSide.graphs(), newSide.graphs())
	if err != nil {
		return nil, fmt.Errorf("failed to match methods: %w", err)
	}

	pairs := mapping.Pairs()
	matched := make([]MethodResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matched[i] = e.diffPair(pair, oldSide, newSide)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to generate edit scripts: %w", err)
	}

	for _, m := range matched {
		if m.Exhausted {
			budgetExhausted.WithLabelValues(string(e.opts.Strategy)).Inc()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %v, mapping is best effort", m.Name, matching.ErrBudgetExhausted))
		}
	}
	result.Methods = append(result.Methods, matched...)

	for _, m := range oldSide.methods {
		if _, ok := mapping.ForSrc(m.Graph); ok {
			continue
		}
		result.Methods = append(result.Methods, e.finish(MethodResult{
			Name:       m.Graph.Name(),
			OldName:    m.Graph.Name(),
			Outcome:    OutcomeRemoved,
			Operations: edit.DeleteScript(m.Graph, m.Signature, before.Snippets()),
			OldCycles:  e.cycles(m.Graph),
		}))
	}
	for _, m := range newSide.methods {
		if mapping.HasDst(m.Graph) {
			continue
		}
		result.Methods = append(result.Methods, e.finish(MethodResult{
			Name:       m.Graph.Name(),
			NewName:    m.Graph.Name(),
			Outcome:    OutcomeAdded,
			Operations: edit.AddScript(m.Graph, m.Signature, after.Snippets()),
			NewCycles:  e.cycles(m.Graph),
		}))
	}

	result.ClassOps = edit.DiffClasses(before.ClassInfo(), after.ClassInfo())

	for _, m := range result.Methods {
		methodPairs.WithLabelValues(string(m.Outcome)).Inc()
		result.Counts = result.Counts.Add(m.Counts)
	}
	result.Counts = result.Counts.Add(edit.Count(result.ClassOps))
	result.Distance = result.Counts.Total()
	result.Duration = time.Since(start)

	editOperations.WithLabelValues(string(edit.KindInsert)).Add(float64(result.Counts.Inserts))
	editOperations.WithLabelValues(string(edit.KindDelete)).Add(float64(result.Counts.Deletes))
	editOperations.WithLabelValues(string(edit.KindUpdate)).Add(float64(result.Counts.Updates))
	editOperations.WithLabelValues(string(edit.KindMove)).Add(float64(result.Counts.Moves))
	scriptDistance.Observe(float64(result.Distance))

	logging.InfoContext(ctx, "Diff complete",
		"run", runID,
		"methods", len(result.Methods),
		"distance", result.Distance,
		"duration", result.Duration)
	return result, nil
}

// diffPair builds the script of one matched method pair
func (e *Engine) diffPair(pair matching.GraphPair, oldSide, newSide *side) MethodResult {
	before := oldSide.byGraph[pair.Src]
	after := newSide.byGraph[pair.Dst]

	var ops []edit.Operation
	if !before.Signature.Equal(after.Signature) {
		ops = append(ops, edit.DiffSignatures(before.Signature, after.Signature)...)
	}
	ops = append(ops, edit.Generate(pair.Src, pair.Dst, pair.Nodes,
		oldSide.program.Snippets(), newSide.program.Snippets())...)

	logging.Trace("Generated script", "old", pair.Src.Name(), "new", pair.Dst.Name(),
		"mapped", pair.Nodes.Len(), "operations", len(ops))

	return e.finish(MethodResult{
		Name:       pair.Dst.Name(),
		OldName:    pair.Src.Name(),
		NewName:    pair.Dst.Name(),
		Outcome:    OutcomeMatched,
		Score:      pair.Score,
		Exhausted:  pair.Exhausted,
		Operations: ops,
		OldCycles:  e.cycles(pair.Src),
		NewCycles:  e.cycles(pair.Dst),
	})
}

// finish applies recovery and scores the script
func (e *Engine) finish(m MethodResult) MethodResult {
	m.Operations = e.recovery.Process(m.Operations)
	if m.Operations == nil {
		m.Operations = []edit.Operation{}
	}
	m.Counts = edit.Count(m.Operations)
	m.Distance = m.Counts.Total()
	return m
}

func (e *Engine) cycles(g *pdg.Graph) []cycles.Cycle {
	if !e.opts.DetectCycles {
		return nil
	}
	return cycles.FindCycles(g)
}

// skipped lists the methods that could not be built
func skipped(p *loader.Program, s *side) []string {
	if len(s.methods) == len(p.Methods) {
		return nil
	}
	built := make(map[string]int)
	for _, m := range s.methods {
		built[m.Graph.Name()]++
	}
	var warnings []string
	for _, doc := range p.Methods {
		if built[doc.Name] > 0 {
			built[doc.Name]--
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s.%s: %v, method skipped", p.Class, doc.Name, pdg.ErrMalformedGraph))
	}
	return warnings
}

// IsCancelled reports whether a Diff error stems from cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
