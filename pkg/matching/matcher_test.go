package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/pdg/pdgtest"
)

func allMatchers() map[Strategy]NodeMatcher {
	opts := DefaultOptions()
	matchers := make(map[Strategy]NodeMatcher)
	for _, s := range Strategies() {
		m, err := NewNodeMatcher(s, opts)
		if err != nil {
			panic(err)
		}
		matchers[s] = m
	}
	return matchers
}

// mismatched has a loop header that the plain two-statement graph lacks
func mismatched(t *testing.T) (*pdg.Graph, *pdg.Graph) {
	src := pdgtest.New(t, "m").
		Entry(0).
		Loop(1, "while (true)", 2).
		Control(0, 1).
		Build()
	dst := pdgtest.New(t, "m").
		Entry(10).
		Stmt(11, "x++;", 2).
		Control(10, 11).
		Build()
	return src, dst
}

func TestIdenticalGraphsMapEveryNode(t *testing.T) {
	for s, m := range allMatchers() {
		t.Run(string(s), func(t *testing.T) {
			src := pdgtest.LoopMethod(t, "loop", 0)
			dst := pdgtest.LoopMethod(t, "loop", 100)

			res, err := m.Match(context.Background(), src, dst)
			require.NoError(t, err)
			assert.False(t, res.Exhausted)
			assert.Equal(t, map[int64]int64{0: 100, 1: 101, 2: 102, 3: 103, 4: 104}, asMap(res.Mapping))
		})
	}
}

func TestEmptyGraphsYieldEmptyMapping(t *testing.T) {
	empty := func() *pdg.Graph {
		g, err := pdg.NewBuilder("empty").Build()
		require.NoError(t, err)
		return g
	}
	for s, m := range allMatchers() {
		t.Run(string(s), func(t *testing.T) {
			res, err := m.Match(context.Background(), empty(), empty())
			require.NoError(t, err)
			assert.True(t, res.Mapping.IsEmpty())
		})
	}
}

func TestVF2SubgraphOfAddedLoop(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	res, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{0: 10, 1: 11, 2: 12}, asMap(res.Mapping))
	assert.Positive(t, res.Expansions)
}

func TestVF2IgnoresLabels(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "-")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{0: 10, 1: 11, 2: 12}, asMap(res.Mapping))
}

func TestVF2NoMatch(t *testing.T) {
	src, dst := mismatched(t)
	_, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestVF2SelfLoopMustAgree(t *testing.T) {
	src := pdgtest.New(t, "m").Entry(0).Stmt(1, "i++;", 2).Control(0, 1).Data(1, 1).Build()
	dst := pdgtest.New(t, "m").Entry(10).Stmt(11, "i++;", 2).Control(10, 11).Build()

	_, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestVF2BudgetExhausted(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewVF2(Budget{MaxExpansions: 1}).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, map[int64]int64{0: 10}, asMap(res.Mapping))
}

func TestVF2LargerSourceFixesDestinationNodes(t *testing.T) {
	src := pdgtest.LoopMethod(t, "sum", 0)
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewVF2(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{0: 10, 1: 11, 2: 12}, asMap(res.Mapping))
}

func TestVF2FailingSearchStaysWithinSmallBudget(t *testing.T) {
	// Five interchangeable statements against four plus one that depends on
	// itself: exploring each pairing once takes 66 expansions, trying every
	// order of the same pairings takes thousands.
	src := pdgtest.New(t, "m").Entry(0)
	dst := pdgtest.New(t, "m").Entry(10)
	for i := int64(1); i <= 5; i++ {
		src.Stmt(i, "s();", int(i)).Control(0, i)
		dst.Stmt(10+i, "s();", int(i)).Control(10, 10+i)
	}
	dst.Data(15, 15)

	_, err := NewVF2(Budget{MaxExpansions: 100}).Match(context.Background(), src.Build(), dst.Build())
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestVF2CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewVF2(DefaultBudget()).Match(ctx, src, dst)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.True(t, res.Mapping.IsEmpty())
}

func TestUllmannSubgraphOfAddedLoop(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	res, err := NewUllmann(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{0: 10, 1: 11, 2: 12}, asMap(res.Mapping))
}

func TestUllmannLargerSourceIsInverted(t *testing.T) {
	src := pdgtest.LoopMethod(t, "sum", 10)
	dst := pdgtest.SumMethod(t, "sum", 0, "+")

	res, err := NewUllmann(DefaultBudget()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{10: 0, 11: 1, 12: 2}, asMap(res.Mapping))
}

func TestUllmannNoMatch(t *testing.T) {
	src, dst := mismatched(t)
	_, err := NewUllmann(DefaultBudget()).Match(context.Background(), src, dst)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestUllmannBudgetExhausted(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewUllmann(Budget{MaxExpansions: 1}).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 1, res.Mapping.Len())
}

func TestGEDAddedLoop(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	res, err := NewGED(DefaultGEDOptions()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{0: 10, 1: 11, 2: 12}, asMap(res.Mapping))
	assert.InDelta(t, 2.0, res.Distance, 1e-9, "two inserted nodes, no edge penalty")
}

func TestGEDLabelChange(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "-")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewGED(DefaultGEDOptions()).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Mapping.Len())
	assert.Greater(t, res.Distance, 0.0)
	assert.Less(t, res.Distance, 0.1)
}

func TestGEDEdgePenalty(t *testing.T) {
	src := pdgtest.New(t, "m").Entry(0).Stmt(1, "x = 1;", 2).Control(0, 1).Build()
	dst := pdgtest.New(t, "m").Entry(10).Stmt(11, "x = 1;", 2).Build()

	opts := DefaultGEDOptions()
	res, err := NewGED(opts).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.InDelta(t, opts.EdgePenalty, res.Distance, 1e-9)

	opts.EdgePenalty = 2
	res, err = NewGED(opts).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Distance, 1e-9)
}

func TestGEDCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGED(DefaultGEDOptions()).Match(ctx, pdgtest.SumMethod(t, "a", 0, "+"), pdgtest.SumMethod(t, "a", 10, "+"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeuristicIdentical(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewHeuristic(DefaultHeuristicThreshold).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Mapping.Len())
	assert.InDelta(t, 4.5, res.Score, 1e-9)
}

func TestHeuristicIsPositional(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	res, err := NewHeuristic(DefaultHeuristicThreshold).Match(context.Background(), src, dst)
	require.NoError(t, err)

	m := asMap(res.Mapping)
	assert.Equal(t, int64(10), m[0])
	assert.Equal(t, int64(11), m[1])
	assert.NotEqual(t, int64(12), m[2], "third BFS position of dst is the loop header")
}

func TestHeuristicThreshold(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	res, err := NewHeuristic(100).Match(context.Background(), src, dst)
	require.NoError(t, err)
	assert.True(t, res.Mapping.IsEmpty())
	assert.InDelta(t, 4.5, res.Score, 1e-9, "score does not depend on the threshold")
}

func TestNodeScore(t *testing.T) {
	g := pdgtest.SumMethod(t, "sum", 0, "+")
	n0, _ := g.Node(0)
	n1, _ := g.Node(1)

	assert.InDelta(t, 4.5, NodeScore(g, g, n1, n1), 1e-9)
	assert.Less(t, NodeScore(g, g, n0, n1), 2.5)
}
