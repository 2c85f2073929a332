package matching

import (
	"errors"
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/pdg"
)

var (
	// ErrMatchNotFound is returned when a matcher cannot produce a mapping for a pair.
	// Callers treat the pair as fully unmatched.
	ErrMatchNotFound = errors.New("no match found")

	// ErrInvalidStrategy rejects an unknown matching strategy name
	ErrInvalidStrategy = errors.New("invalid matching strategy")

	// ErrConflictingPair rejects a pair that would break injectivity
	ErrConflictingPair = errors.New("conflicting node pair")
)

// NodeMapping is a partial injective correspondence between the nodes of two graphs.
// Pairs are kept in insertion order.
type NodeMapping struct {
	forward map[int64]int64
	reverse map[int64]int64
	order   []int64
}

// NewNodeMapping creates an empty mapping
func NewNodeMapping() *NodeMapping {
	return &NodeMapping{
		forward: make(map[int64]int64),
		reverse: make(map[int64]int64),
	}
}

// Add maps src to dst. Re-adding an existing pair is a no-op; mapping either
// side to a different counterpart fails with ErrConflictingPair.
func (m *NodeMapping) Add(src, dst int64) error {
	if cur, ok := m.forward[src]; ok {
		if cur == dst {
			return nil
		}
		return fmt.Errorf("source %d already mapped to %d: %w", src, cur, ErrConflictingPair)
	}
	if cur, ok := m.reverse[dst]; ok {
		return fmt.Errorf("destination %d already mapped from %d: %w", dst, cur, ErrConflictingPair)
	}

	m.forward[src] = dst
	m.reverse[dst] = src
	m.order = append(m.order, src)
	return nil
}

// Remove drops the pair for src, if any
func (m *NodeMapping) Remove(src int64) {
	dst, ok := m.forward[src]
	if !ok {
		return
	}
	delete(m.forward, src)
	delete(m.reverse, dst)
	for i, id := range m.order {
		if id == src {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Dst returns the destination counterpart of a source node
func (m *NodeMapping) Dst(src int64) (int64, bool) {
	dst, ok := m.forward[src]
	return dst, ok
}

// Src returns the source counterpart of a destination node
func (m *NodeMapping) Src(dst int64) (int64, bool) {
	src, ok := m.reverse[dst]
	return src, ok
}

// HasSrc reports whether a source node is mapped
func (m *NodeMapping) HasSrc(src int64) bool {
	_, ok := m.forward[src]
	return ok
}

// HasDst reports whether a destination node is mapped
func (m *NodeMapping) HasDst(dst int64) bool {
	_, ok := m.reverse[dst]
	return ok
}

// Len returns the number of mapped pairs
func (m *NodeMapping) Len() int {
	return len(m.order)
}

// IsEmpty reports whether nothing is mapped
func (m *NodeMapping) IsEmpty() bool {
	return len(m.order) == 0
}

// Pairs returns (src, dst) pairs in insertion order
func (m *NodeMapping) Pairs() [][2]int64 {
	pairs := make([][2]int64, 0, len(m.order))
	for _, src := range m.order {
		pairs = append(pairs, [2]int64{src, m.forward[src]})
	}
	return pairs
}

// Clone returns an independent copy
func (m *NodeMapping) Clone() *NodeMapping {
	c := NewNodeMapping()
	for _, p := range m.Pairs() {
		c.forward[p[0]] = p[1]
		c.reverse[p[1]] = p[0]
		c.order = append(c.order, p[0])
	}
	return c
}

// Inverse returns the mapping with source and destination swapped
func (m *NodeMapping) Inverse() *NodeMapping {
	inv := NewNodeMapping()
	for _, p := range m.Pairs() {
		inv.forward[p[1]] = p[0]
		inv.reverse[p[0]] = p[1]
		inv.order = append(inv.order, p[1])
	}
	return inv
}

func (m *NodeMapping) String() string {
	return fmt.Sprintf("NodeMapping%v", m.Pairs())
}

// GraphPair is one matched pair of method graphs with its node correspondence
type GraphPair struct {
	Src   *pdg.Graph
	Dst   *pdg.Graph
	Nodes *NodeMapping

	// Score is the strategy's pair score: similarity for vf2, ullmann and
	// heuristic, edit distance for ged
	Score float64

	// Exhausted is set when the node search ran out of budget and Nodes is best effort
	Exhausted bool
}

// GraphMapping is the correspondence between the method graphs of two program versions
type GraphMapping struct {
	pairs []GraphPair
	bySrc map[*pdg.Graph]int
	byDst map[*pdg.Graph]int
}

// NewGraphMapping creates an empty graph mapping
func NewGraphMapping() *GraphMapping {
	return &GraphMapping{
		bySrc: make(map[*pdg.Graph]int),
		byDst: make(map[*pdg.Graph]int),
	}
}

// Add records a matched pair. Each graph may take part in at most one pair.
func (gm *GraphMapping) Add(p GraphPair) error {
	if _, ok := gm.bySrc[p.Src]; ok {
		return fmt.Errorf("graph %q already matched: %w", p.Src.Name(), ErrConflictingPair)
	}
	if _, ok := gm.byDst[p.Dst]; ok {
		return fmt.Errorf("graph %q already matched: %w", p.Dst.Name(), ErrConflictingPair)
	}
	if p.Nodes == nil {
		p.Nodes = NewNodeMapping()
	}
	gm.bySrc[p.Src] = len(gm.pairs)
	gm.byDst[p.Dst] = len(gm.pairs)
	gm.pairs = append(gm.pairs, p)
	return nil
}

// Pairs returns matched pairs in the order they were selected
func (gm *GraphMapping) Pairs() []GraphPair {
	pairs := make([]GraphPair, len(gm.pairs))
	copy(pairs, gm.pairs)
	return pairs
}

// Len returns the number of matched pairs
func (gm *GraphMapping) Len() int {
	return len(gm.pairs)
}

// ForSrc returns the pair a source graph takes part in
func (gm *GraphMapping) ForSrc(src *pdg.Graph) (GraphPair, bool) {
	i, ok := gm.bySrc[src]
	if !ok {
		return GraphPair{}, false
	}
	return gm.pairs[i], true
}

// HasDst reports whether a destination graph is matched
func (gm *GraphMapping) HasDst(dst *pdg.Graph) bool {
	_, ok := gm.byDst[dst]
	return ok
}
