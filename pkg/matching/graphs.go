package matching

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

var tracer = otel.Tracer("pdgdiff.matching")

// pairResult is the cached outcome of matching src[i] against dst[j]
type pairResult struct {
	i, j   int
	result *Result
	value  float64
}

func startSpan(ctx context.Context, s Strategy, src, dst []*pdg.Graph) (context.Context, trace.Span) {
	return tracer.Start(ctx, "matching.MatchGraphs",
		trace.WithAttributes(
			attribute.String("matching.strategy", string(s)),
			attribute.Int("matching.src_graphs", len(src)),
			attribute.Int("matching.dst_graphs", len(dst)),
		),
	)
}

func endSpan(span trace.Span, gm *GraphMapping, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("matching.pairs", gm.Len()))
	span.SetStatus(codes.Ok, "")
}

// matchAll runs the node matcher over every (src, dst) combination.
// Pairs without a mapping are left out; a cancelled context aborts.
func matchAll(ctx context.Context, nodes NodeMatcher, src, dst []*pdg.Graph, value func(*Result, *pdg.Graph, *pdg.Graph) (float64, bool)) ([]pairResult, error) {
	var results []pairResult
	for i, g1 := range src {
		for j, g2 := range dst {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := nodes.Match(ctx, g1, g2)
			if errors.Is(err, ErrMatchNotFound) {
				logging.Trace("no match", "src", g1.Name(), "dst", g2.Name())
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to match %s -> %s: %w", g1.Name(), g2.Name(), err)
			}
			v, ok := value(res, g1, g2)
			if !ok {
				continue
			}
			results = append(results, pairResult{i: i, j: j, result: res, value: v})
		}
	}
	return results, nil
}

// selectGreedy repeatedly takes the best remaining pair whose graphs are both
// still unmatched. better reports whether a beats b; ties keep the earlier pair.
func selectGreedy(src, dst []*pdg.Graph, results []pairResult, better func(a, b float64) bool) *GraphMapping {
	gm := NewGraphMapping()
	usedSrc := make([]bool, len(src))
	usedDst := make([]bool, len(dst))

	for {
		best := -1
		for k, r := range results {
			if usedSrc[r.i] || usedDst[r.j] {
				continue
			}
			if best < 0 || better(r.value, results[best].value) {
				best = k
			}
		}
		if best < 0 {
			return gm
		}

		r := results[best]
		usedSrc[r.i] = true
		usedDst[r.j] = true
		// both graphs are unused, so Add cannot conflict
		_ = gm.Add(GraphPair{
			Src:       src[r.i],
			Dst:       dst[r.j],
			Nodes:     r.result.Mapping,
			Score:     r.value,
			Exhausted: r.result.Exhausted,
		})
	}
}

// coverageGraphMatcher pairs graphs by the share of nodes a subgraph match covers
type coverageGraphMatcher struct {
	strategy Strategy
	nodes    NodeMatcher
}

func (m *coverageGraphMatcher) MatchGraphs(ctx context.Context, src, dst []*pdg.Graph) (gm *GraphMapping, err error) {
	ctx, span := startSpan(ctx, m.strategy, src, dst)
	defer func() { endSpan(span, gm, err) }()

	results, err := matchAll(ctx, m.nodes, src, dst, coverageScore)
	if err != nil {
		return nil, err
	}
	return selectGreedy(src, dst, results, func(a, b float64) bool { return a > b }), nil
}

// coverageScore is mapped / (mapped + unmapped src + unmapped dst).
// Empty mappings are skipped unless both graphs are empty.
func coverageScore(res *Result, g1, g2 *pdg.Graph) (float64, bool) {
	if g1.Len() == 0 && g2.Len() == 0 {
		return 1, true
	}
	mapped := res.Mapping.Len()
	if mapped == 0 {
		return 0, false
	}
	total := mapped + (g1.Len() - mapped) + (g2.Len() - mapped)
	return float64(mapped) / float64(total), true
}

// distanceGraphMatcher pairs graphs by lowest edit distance
type distanceGraphMatcher struct {
	nodes *GED
}

func (m *distanceGraphMatcher) MatchGraphs(ctx context.Context, src, dst []*pdg.Graph) (gm *GraphMapping, err error) {
	ctx, span := startSpan(ctx, StrategyGED, src, dst)
	defer func() { endSpan(span, gm, err) }()

	distance := func(res *Result, _, _ *pdg.Graph) (float64, bool) {
		return res.Distance, true
	}
	results, err := matchAll(ctx, m.nodes, src, dst, distance)
	if err != nil {
		return nil, err
	}
	return selectGreedy(src, dst, results, func(a, b float64) bool { return a < b }), nil
}

// heuristicGraphMatcher gives each source graph, in order, its best-scoring
// destination among those still unmatched
type heuristicGraphMatcher struct {
	nodes *Heuristic
}

func (m *heuristicGraphMatcher) MatchGraphs(ctx context.Context, src, dst []*pdg.Graph) (gm *GraphMapping, err error) {
	ctx, span := startSpan(ctx, StrategyHeuristic, src, dst)
	defer func() { endSpan(span, gm, err) }()

	gm = NewGraphMapping()
	usedDst := make([]bool, len(dst))

	for _, g1 := range src {
		var (
			bestIdx    = -1
			bestScore  float64
			bestResult *Result
		)
		for j, g2 := range dst {
			if usedDst[j] {
				continue
			}
			res, err := m.nodes.Match(ctx, g1, g2)
			if err != nil {
				return nil, fmt.Errorf("failed to match %s -> %s: %w", g1.Name(), g2.Name(), err)
			}
			score := graphScore(res.Score, g1, g2)
			if bestIdx < 0 || score > bestScore {
				bestIdx, bestScore, bestResult = j, score, res
			}
		}
		if bestIdx < 0 {
			break
		}

		usedDst[bestIdx] = true
		_ = gm.Add(GraphPair{Src: g1, Dst: dst[bestIdx], Nodes: bestResult.Mapping, Score: bestScore})
	}
	return gm, nil
}
