package edit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/pdg/pdgtest"
)

func match(t *testing.T, s matching.Strategy, src, dst *pdg.Graph) *matching.NodeMapping {
	t.Helper()
	m, err := matching.NewNodeMatcher(s, matching.DefaultOptions())
	require.NoError(t, err)
	res, err := m.Match(context.Background(), src, dst)
	require.NoError(t, err)
	return res.Mapping
}

func ids(ops []Operation, kind Kind) []int64 {
	var out []int64
	for _, op := range ops {
		if op.Kind == kind && op.Node != nil {
			out = append(out, op.Node.ID)
		}
	}
	return out
}

func TestIdenticalGraphsHaveEmptyScript(t *testing.T) {
	for _, s := range matching.Strategies() {
		t.Run(string(s), func(t *testing.T) {
			src := pdgtest.LoopMethod(t, "loop", 0)
			dst := pdgtest.LoopMethod(t, "loop", 100)

			ops := Generate(src, dst, match(t, s, src, dst), nil, nil)
			assert.Empty(t, ops)
			assert.Zero(t, Distance(ops))
		})
	}
}

func TestChangedOperatorIsOneUpdate(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "-")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")

	for _, s := range []matching.Strategy{matching.StrategyVF2, matching.StrategyUllmann, matching.StrategyGED} {
		t.Run(string(s), func(t *testing.T) {
			ops := Generate(src, dst, match(t, s, src, dst), nil, nil)

			require.Len(t, ops, 1)
			op := ops[0]
			assert.Equal(t, KindUpdate, op.Kind)
			assert.Equal(t, "int sum = a - b;", op.OldSnippet)
			assert.Equal(t, "int sum = a + b;", op.NewSnippet)
			assert.Equal(t, 3, op.OldLine)
			assert.Equal(t, 3, op.NewLine)
			assert.Contains(t, op.Diff, "@@")
			assert.Contains(t, op.Diff, "-int sum = a - b;")
			assert.Contains(t, op.Diff, "+int sum = a + b;")
		})
	}
}

func TestAddedLoopIsInsertedNodes(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	for _, s := range []matching.Strategy{matching.StrategyVF2, matching.StrategyUllmann, matching.StrategyGED} {
		t.Run(string(s), func(t *testing.T) {
			ops := Generate(src, dst, match(t, s, src, dst), nil, nil)

			assert.ElementsMatch(t, []int64{13, 14}, ids(ops, KindInsert))
			assert.Equal(t, Counts{Inserts: 2}, Count(ops))
		})
	}
}

func TestDeletesAndInsertsCoverUnmatchedNodes(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "+")
	dst := pdgtest.LoopMethod(t, "sum", 10)

	partial := matching.NewNodeMapping()
	require.NoError(t, partial.Add(0, 10))

	ops := Generate(src, dst, partial, nil, nil)
	assert.Equal(t, []int64{1, 2}, ids(ops, KindDelete))
	assert.Equal(t, []int64{11, 13, 12, 14}, ids(ops, KindInsert), "inserts follow BFS order")

	ops = Generate(src, dst, nil, nil, nil)
	assert.Len(t, ids(ops, KindDelete), src.Len())
	assert.Len(t, ids(ops, KindInsert), dst.Len())
}

func TestMoveWhenPredecessorsChange(t *testing.T) {
	src := pdgtest.New(t, "m").
		Entry(0).Stmt(1, "a();", 2).Stmt(2, "b();", 3).
		Control(0, 1).Control(0, 2).
		Build()
	dst := pdgtest.New(t, "m").
		Entry(10).Stmt(11, "a();", 2).Stmt(12, "b();", 3).
		Control(10, 11).Control(11, 12).
		Build()

	mapping := matching.NewNodeMapping()
	for _, p := range [][2]int64{{0, 10}, {1, 11}, {2, 12}} {
		require.NoError(t, mapping.Add(p[0], p[1]))
	}

	ops := Generate(src, dst, mapping, nil, nil)

	var move *Operation
	for i := range ops {
		if ops[i].Kind == KindMove {
			move = &ops[i]
		}
	}
	require.NotNil(t, move)
	assert.Equal(t, int64(2), move.Node.ID)
	assert.Equal(t, []int64{10}, move.OldPredecessors)
	assert.Equal(t, []int64{11}, move.NewPredecessors)
	assert.Equal(t, "b();", move.Snippet)
	assert.ElementsMatch(t, []int64{0, 1}, ids(ops, KindUpdate), "their dependents changed")
}

// scriptEntry is the part of an operation the table below checks
type scriptEntry struct {
	Node   int64
	Kind   Kind
	Reason Reason
}

func entries(ops []Operation) []scriptEntry {
	out := make([]scriptEntry, 0, len(ops))
	for _, op := range ops {
		out = append(out, scriptEntry{Node: op.Node.ID, Kind: op.Kind, Reason: op.Reason})
	}
	return out
}

func TestMatchedNodesWithUnchangedText(t *testing.T) {
	tests := []struct {
		name    string
		src     func(t *testing.T) *pdg.Graph
		dst     func(t *testing.T) *pdg.Graph
		mapping [][2]int64
		want    []scriptEntry
	}{
		{
			name: "dependency type changes",
			src: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(0).Stmt(1, "x = 1;", 2).
					Control(0, 1).Data(0, 1).
					Build()
			},
			dst: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(10).Stmt(11, "x = 1;", 2).
					Control(10, 11).
					Build()
			},
			mapping: [][2]int64{{0, 10}, {1, 11}},
			want:    []scriptEntry{{Node: 0, Kind: KindUpdate, Reason: ReasonDependencies}},
		},
		{
			name: "predecessor changes",
			src: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(0).Stmt(1, "a();", 2).Stmt(2, "b();", 3).
					Control(0, 1).Control(0, 2).
					Build()
			},
			dst: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(10).Stmt(11, "a();", 2).Stmt(12, "b();", 3).
					Control(10, 11).Control(11, 12).
					Build()
			},
			mapping: [][2]int64{{0, 10}, {1, 11}, {2, 12}},
			want: []scriptEntry{
				{Node: 0, Kind: KindUpdate, Reason: ReasonDependencies},
				{Node: 1, Kind: KindUpdate, Reason: ReasonDependencies},
				{Node: 2, Kind: KindMove},
			},
		},
		{
			name: "text and dependencies change",
			src: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(0).Stmt(1, "x = 1;", 2).
					Control(0, 1).
					Build()
			},
			dst: func(t *testing.T) *pdg.Graph {
				return pdgtest.New(t, "m").Entry(10).Stmt(11, "x = 2;", 2).
					Control(10, 11).Data(10, 11).
					Build()
			},
			mapping: [][2]int64{{0, 10}, {1, 11}},
			want: []scriptEntry{
				{Node: 0, Kind: KindUpdate, Reason: ReasonDependencies},
				{Node: 1, Kind: KindUpdate, Reason: ReasonContent},
			},
		},
		{
			name: "nothing changes",
			src: func(t *testing.T) *pdg.Graph {
				return pdgtest.SumMethod(t, "sum", 0, "+")
			},
			dst: func(t *testing.T) *pdg.Graph {
				return pdgtest.SumMethod(t, "sum", 10, "+")
			},
			mapping: [][2]int64{{0, 10}, {1, 11}, {2, 12}},
			want:    []scriptEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping := matching.NewNodeMapping()
			for _, p := range tt.mapping {
				require.NoError(t, mapping.Add(p[0], p[1]))
			}

			ops := Generate(tt.src(t), tt.dst(t), mapping, nil, nil)
			assert.ElementsMatch(t, tt.want, entries(ops))

			for _, op := range ops {
				if op.Reason == ReasonDependencies {
					assert.Equal(t, op.OldSnippet, op.NewSnippet)
					assert.Contains(t, op.Diff, "dependencies of")
				}
			}
		})
	}
}

func TestSnippetsPreferSourceText(t *testing.T) {
	src := pdgtest.SumMethod(t, "sum", 0, "-")
	dst := pdgtest.SumMethod(t, "sum", 10, "+")
	mapping := match(t, matching.StrategyVF2, src, dst)

	oldText := func(line int) string {
		if line == 3 {
			return "    int sum = a - b; // old"
		}
		return ""
	}
	ops := Generate(src, dst, mapping, oldText, nil)

	require.Len(t, ops, 1)
	assert.Equal(t, "int sum = a - b; // old", ops[0].OldSnippet)
	assert.Equal(t, "int sum = a + b;", ops[0].NewSnippet, "falls back to the label")
}

func TestDistanceCountsEveryOperation(t *testing.T) {
	assert.Zero(t, Distance(nil))

	ops := []Operation{
		Insert(nil, 1, "a"),
		Delete(nil, 2, "b"),
		Update(nil, 3, 3, "c", "d", ""),
		Move(nil, 4, 5, "e", nil, nil),
		Insert(nil, 6, "f"),
	}
	assert.Equal(t, 5, Distance(ops))
	assert.Equal(t, Counts{Inserts: 2, Deletes: 1, Updates: 1, Moves: 1}, Count(ops))
}

func TestOperationJSON(t *testing.T) {
	node := &pdg.Node{ID: 7}

	data, err := json.Marshal(Insert(node, 4, "x++;"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"Insert","node":7,"line":4,"code":"x++;"}`, string(data))

	data, err = json.Marshal(Update(nil, 1, 2, "a", "b", "changed"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"Update","oldLine":1,"newLine":2,"oldCode":"a","newCode":"b","difference":"changed","reason":"content"}`, string(data))

	data, err = json.Marshal(DependencyUpdate(nil, 3, 3, "a", "a", "dependencies of a changed"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"Update","oldLine":3,"newLine":3,"oldCode":"a","newCode":"a","difference":"dependencies of a changed","reason":"dependencies"}`, string(data))

	data, err = json.Marshal(Move(nil, 1, 2, "a", nil, []int64{3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"Move","oldLine":1,"newLine":2,"code":"a","oldPredecessors":[],"newPredecessors":[3]}`, string(data))
}

func TestOperationKey(t *testing.T) {
	a := Insert(&pdg.Node{ID: 1}, 3, "x")
	b := Insert(&pdg.Node{ID: 2}, 3, "x")
	assert.Equal(t, a.Key(), b.Key(), "the node does not take part in the key")
	assert.NotEqual(t, a.Key(), Delete(nil, 3, "x").Key())
	assert.Equal(t, "Insert at line 3: x", a.String())
}
