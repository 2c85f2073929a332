package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/pdg/pdgtest"
)

func asMap(m *NodeMapping) map[int64]int64 {
	out := make(map[int64]int64)
	for _, p := range m.Pairs() {
		out[p[0]] = p[1]
	}
	return out
}

func TestNodeMappingAdd(t *testing.T) {
	m := NewNodeMapping()
	require.NoError(t, m.Add(1, 10))
	require.NoError(t, m.Add(1, 10), "re-adding the same pair is a no-op")
	require.NoError(t, m.Add(2, 20))

	assert.ErrorIs(t, m.Add(1, 30), ErrConflictingPair)
	assert.ErrorIs(t, m.Add(3, 20), ErrConflictingPair)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, [][2]int64{{1, 10}, {2, 20}}, m.Pairs())

	dst, ok := m.Dst(2)
	assert.True(t, ok)
	assert.Equal(t, int64(20), dst)
	src, ok := m.Src(10)
	assert.True(t, ok)
	assert.Equal(t, int64(1), src)
}

func TestNodeMappingRemove(t *testing.T) {
	m := NewNodeMapping()
	require.NoError(t, m.Add(1, 10))
	require.NoError(t, m.Add(2, 20))

	m.Remove(1)
	m.Remove(42)

	assert.False(t, m.HasSrc(1))
	assert.False(t, m.HasDst(10))
	assert.Equal(t, [][2]int64{{2, 20}}, m.Pairs())
	require.NoError(t, m.Add(3, 10), "destination is free again after Remove")
}

func TestNodeMappingCloneAndInverse(t *testing.T) {
	m := NewNodeMapping()
	require.NoError(t, m.Add(1, 10))
	require.NoError(t, m.Add(2, 20))

	c := m.Clone()
	c.Remove(1)
	assert.Equal(t, 2, m.Len(), "clone must not share state")

	inv := m.Inverse()
	assert.Equal(t, map[int64]int64{10: 1, 20: 2}, asMap(inv))
}

func TestGraphMappingRejectsReuse(t *testing.T) {
	a := pdgtest.SumMethod(t, "a", 0, "+")
	b := pdgtest.SumMethod(t, "b", 10, "+")
	c := pdgtest.SumMethod(t, "c", 20, "+")

	gm := NewGraphMapping()
	require.NoError(t, gm.Add(GraphPair{Src: a, Dst: b}))
	assert.ErrorIs(t, gm.Add(GraphPair{Src: a, Dst: c}), ErrConflictingPair)
	assert.ErrorIs(t, gm.Add(GraphPair{Src: c, Dst: b}), ErrConflictingPair)

	pair, ok := gm.ForSrc(a)
	require.True(t, ok)
	assert.NotNil(t, pair.Nodes, "nil node mapping is replaced with an empty one")
	assert.True(t, gm.HasDst(b))
	assert.False(t, gm.HasDst(c))
}
