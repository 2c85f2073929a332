package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/pdg/pdgtest"
)

func pairNames(gm *GraphMapping) map[string]string {
	out := make(map[string]string)
	for _, p := range gm.Pairs() {
		out[p.Src.Name()] = p.Dst.Name()
	}
	return out
}

func TestGraphMatchersPairByContent(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			src := []*pdg.Graph{
				pdgtest.SumMethod(t, "add", 0, "+"),
				pdgtest.LoopMethod(t, "loop", 20),
			}
			dst := []*pdg.Graph{
				pdgtest.LoopMethod(t, "loop", 40),
				pdgtest.SumMethod(t, "add", 60, "+"),
			}

			gm, err := mustGraphMatcher(t, s).MatchGraphs(context.Background(), src, dst)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"add": "add", "loop": "loop"}, pairNames(gm))
		})
	}
}

func TestGraphMatchersLeaveSurplusUnmatched(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			src := []*pdg.Graph{
				pdgtest.SumMethod(t, "add", 0, "+"),
				pdgtest.LoopMethod(t, "loop", 20),
			}
			dst := []*pdg.Graph{pdgtest.SumMethod(t, "add", 60, "+")}

			gm, err := mustGraphMatcher(t, s).MatchGraphs(context.Background(), src, dst)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"add": "add"}, pairNames(gm))
			_, ok := gm.ForSrc(src[1])
			assert.False(t, ok)
		})
	}
}

func TestCoverageMatcherSkipsUnmatchable(t *testing.T) {
	src, dst := mismatched(t)
	for _, s := range []Strategy{StrategyVF2, StrategyUllmann} {
		t.Run(string(s), func(t *testing.T) {
			gm, err := mustGraphMatcher(t, s).MatchGraphs(context.Background(), []*pdg.Graph{src}, []*pdg.Graph{dst})
			require.NoError(t, err)
			assert.Zero(t, gm.Len())
		})
	}
}

func TestCoverageScore(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)
	res, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)

	score, ok := coverageScore(res, src, dst)
	require.True(t, ok)
	assert.InDelta(t, 0.6, score, 1e-9, "3 mapped of 3 + 0 + 2")

	_, ok = coverageScore(&Result{Mapping: NewNodeMapping()}, src, dst)
	assert.False(t, ok)
}

func TestGraphMatchersHonorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			src := []*pdg.Graph{pdgtest.SumMethod(t, "add", 0, "+")}
			dst := []*pdg.Graph{pdgtest.SumMethod(t, "add", 10, "+")}

			_, err := mustGraphMatcher(t, s).MatchGraphs(ctx, src, dst)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" VF2 ")
	require.NoError(t, err)
	assert.Equal(t, StrategyVF2, s)

	_, err = ParseStrategy("simulated-annealing")
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = NewNodeMatcher("nope", DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = NewGraphMatcher("nope", DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func mustGraphMatcher(t *testing.T, s Strategy) GraphMatcher {
	t.Helper()
	m, err := NewGraphMatcher(s, DefaultOptions())
	require.NoError(t, err)
	return m
}
