package matching

import (
	"context"
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// VF2 searches for a subgraph correspondence covering min(|V1|, |V2|) nodes.
//
// Candidates are drawn from the terminal sets (unmapped neighbours of mapped
// nodes) when both are non-empty, otherwise from all unmapped nodes. Each depth
// fixes one node of the smaller graph and varies its partner. A pair is
// feasible when category and structural attribute agree and its CONTROL/DATA
// edge pattern towards every mapped node is the same on both sides.
//
// Candidates are tried in BFS order and the first complete mapping wins; when
// several mappings exist the result depends on that order, not on a global optimum.
type VF2 struct {
	budget Budget
}

// NewVF2 creates a VF2 matcher bounded by the given budget
func NewVF2(budget Budget) *VF2 {
	return &VF2{budget: budget}
}

// Match searches for a correspondence. It returns ErrMatchNotFound when the
// search space is exhausted without success, and the best partial mapping with
// Result.Exhausted set when the budget runs out first.
func (v *VF2) Match(ctx context.Context, src, dst *pdg.Graph) (*Result, error) {
	s := newVF2State(src, dst)
	if s.target == 0 {
		return &Result{Mapping: NewNodeMapping()}, nil
	}

	s.budget = v.budget.start(ctx)
	found := s.search()

	result := &Result{Expansions: s.budget.expansions}
	switch {
	case found:
		result.Mapping = s.mapping()
	case s.budget.exhausted:
		result.Mapping = s.best
		result.Exhausted = true
		logging.Debug("vf2 budget exhausted",
			"src", src.Name(), "dst", dst.Name(),
			"expansions", s.budget.expansions, "best", s.best.Len(), "target", s.target)
	default:
		return nil, fmt.Errorf("vf2 %s -> %s: %w", src.Name(), dst.Name(), ErrMatchNotFound)
	}
	return result, nil
}

// undoKind tags what an undo log entry restores
type undoKind uint8

const (
	undoCore undoKind = iota
	undoTerm1
	undoTerm2
)

type undoEntry struct {
	kind  undoKind
	depth int
	index int
}

// vf2State is the explicit search state. core1/core2 hold the mapping by
// enumeration index (-1 when unmapped); term1/term2 hold the depth at which a
// node entered its terminal set (0 when outside). Every change made by push is
// logged and reverted by pop.
type vf2State struct {
	src, dst *pdg.Graph
	nodes1   []*pdg.Node
	nodes2   []*pdg.Node
	index1   map[int64]int
	index2   map[int64]int

	core1, core2 []int
	term1, term2 []int
	order        []int // mapped src indices in push order
	depth        int
	log          []undoEntry

	target int
	best   *NodeMapping
	budget *budgetTracker
}

func newVF2State(src, dst *pdg.Graph) *vf2State {
	s := &vf2State{
		src:    src,
		dst:    dst,
		nodes1: pdg.CollectNodes(src),
		nodes2: pdg.CollectNodes(dst),
		best:   NewNodeMapping(),
	}
	s.index1 = indexNodes(s.nodes1)
	s.index2 = indexNodes(s.nodes2)
	s.core1 = filled(len(s.nodes1), -1)
	s.core2 = filled(len(s.nodes2), -1)
	s.term1 = make([]int, len(s.nodes1))
	s.term2 = make([]int, len(s.nodes2))
	s.target = min(len(s.nodes1), len(s.nodes2))
	return s
}

func (s *vf2State) search() bool {
	if len(s.order) == s.target {
		return true
	}
	if !s.budget.spend() {
		return false
	}

	for _, c := range s.candidates() {
		if !s.feasible(c[0], c[1]) {
			continue
		}
		s.push(c[0], c[1])
		if s.search() {
			return true
		}
		s.pop()
		if s.budget.exhausted {
			return false
		}
	}
	return false
}

// candidates returns (src index, dst index) pairs for the next depth. One node
// of the smaller graph is fixed, the first in enumeration order, and paired with
// every node of the other side. Every node of the smaller graph is mapped in a
// complete match, so no mapping is reached twice in different orders.
func (s *vf2State) candidates() [][2]int {
	t1 := s.terminal(s.core1, s.term1)
	t2 := s.terminal(s.core2, s.term2)
	if len(t1) == 0 || len(t2) == 0 {
		t1 = unmapped(s.core1)
		t2 = unmapped(s.core2)
	}
	if len(t1) == 0 || len(t2) == 0 {
		return nil
	}

	if len(s.nodes1) <= len(s.nodes2) {
		pairs := make([][2]int, 0, len(t2))
		for _, j := range t2 {
			pairs = append(pairs, [2]int{t1[0], j})
		}
		return pairs
	}
	pairs := make([][2]int, 0, len(t1))
	for _, i := range t1 {
		pairs = append(pairs, [2]int{i, t2[0]})
	}
	return pairs
}

func (s *vf2State) terminal(core, term []int) []int {
	var result []int
	for i := range core {
		if core[i] < 0 && term[i] > 0 {
			result = append(result, i)
		}
	}
	return result
}

func (s *vf2State) feasible(i, j int) bool {
	n1, n2 := s.nodes1[i], s.nodes2[j]
	if !syntacticallyFeasible(n1, n2) {
		return false
	}
	if s.src.HasSelfLoop(n1.ID) != s.dst.HasSelfLoop(n2.ID) {
		return false
	}

	for _, mi := range s.order {
		m1 := s.nodes1[mi]
		m2 := s.nodes2[s.core1[mi]]
		if patternBetween(s.src, n1.ID, m1.ID) != patternBetween(s.dst, n2.ID, m2.ID) {
			return false
		}
	}
	return true
}

func (s *vf2State) push(i, j int) {
	s.depth++
	s.core1[i] = j
	s.core2[j] = i
	s.order = append(s.order, i)
	s.log = append(s.log, undoEntry{kind: undoCore, depth: s.depth, index: i})

	s.grow(s.src, s.nodes1[i].ID, s.index1, s.term1, undoTerm1)
	s.grow(s.dst, s.nodes2[j].ID, s.index2, s.term2, undoTerm2)

	if len(s.order) > s.best.Len() {
		s.best = s.mapping()
	}
}

// grow adds the unmapped neighbours of a newly mapped node to its terminal set
func (s *vf2State) grow(g *pdg.Graph, id int64, index map[int64]int, term []int, kind undoKind) {
	for _, nb := range pdg.Neighbors(g, id) {
		k := index[nb]
		if term[k] == 0 {
			term[k] = s.depth
			s.log = append(s.log, undoEntry{kind: kind, depth: s.depth, index: k})
		}
	}
}

// pop reverts every log entry written at the current depth
func (s *vf2State) pop() {
	for len(s.log) > 0 {
		e := s.log[len(s.log)-1]
		if e.depth != s.depth {
			break
		}
		s.log = s.log[:len(s.log)-1]

		switch e.kind {
		case undoCore:
			j := s.core1[e.index]
			s.core1[e.index] = -1
			s.core2[j] = -1
			s.order = s.order[:len(s.order)-1]
		case undoTerm1:
			s.term1[e.index] = 0
		case undoTerm2:
			s.term2[e.index] = 0
		}
	}
	s.depth--
}

func (s *vf2State) mapping() *NodeMapping {
	m := NewNodeMapping()
	for _, i := range s.order {
		// indices are unique by construction
		_ = m.Add(s.nodes1[i].ID, s.nodes2[s.core1[i]].ID)
	}
	return m
}

func indexNodes(nodes []*pdg.Node) map[int64]int {
	index := make(map[int64]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	return index
}

func unmapped(core []int) []int {
	var result []int
	for i, c := range core {
		if c < 0 {
			result = append(result, i)
		}
	}
	return result
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
