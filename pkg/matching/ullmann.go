package matching

import (
	"context"
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Ullmann refines a compatibility matrix depth first, fixing one row per level.
//
// Adjacency preservation uses an undirected "linked by any edge" test, which
// is weaker than the directed, type-aware test of VF2. Only a mapping of
// every node of the smaller graph counts as success.
type Ullmann struct {
	budget Budget
}

// NewUllmann creates an Ullmann matcher bounded by the given budget
func NewUllmann(budget Budget) *Ullmann {
	return &Ullmann{budget: budget}
}

// Match searches for a complete mapping of the smaller graph into the larger.
// When src is the larger graph the search runs the other way and the
// mapping is inverted.
func (u *Ullmann) Match(ctx context.Context, src, dst *pdg.Graph) (*Result, error) {
	if src.Len() > dst.Len() {
		res, err := u.Match(ctx, dst, src)
		if err != nil {
			return nil, err
		}
		res.Mapping = res.Mapping.Inverse()
		return res, nil
	}

	s := newUllmannState(src, dst)
	if s.n == 0 {
		return &Result{Mapping: NewNodeMapping()}, nil
	}

	s.budget = u.budget.start(ctx)
	found := s.search(0)

	result := &Result{Expansions: s.budget.expansions}
	switch {
	case found:
		result.Mapping = s.mapping(s.n)
	case s.budget.exhausted:
		result.Mapping = s.best
		result.Exhausted = true
		logging.Debug("ullmann budget exhausted",
			"src", src.Name(), "dst", dst.Name(),
			"expansions", s.budget.expansions, "best", s.best.Len(), "target", s.n)
	default:
		return nil, fmt.Errorf("ullmann %s -> %s: %w", src.Name(), dst.Name(), ErrMatchNotFound)
	}
	return result, nil
}

// cell addresses one entry of the compatibility matrix
type cell struct {
	row, col int
}

// ullmannState holds the n×m matrix plus per-row counts of remaining candidates.
// Each level records the cells it clears so backtracking restores exactly those.
type ullmannState struct {
	src, dst *pdg.Graph
	nodes1   []*pdg.Node
	nodes2   []*pdg.Node
	n, m     int

	matrix  [][]bool
	rowOnes []int
	assign  []int // row -> column, -1 while unassigned
	colUsed []bool

	best   *NodeMapping
	budget *budgetTracker
}

func newUllmannState(src, dst *pdg.Graph) *ullmannState {
	s := &ullmannState{
		src:    src,
		dst:    dst,
		nodes1: pdg.CollectNodes(src),
		nodes2: pdg.CollectNodes(dst),
		best:   NewNodeMapping(),
	}
	s.n, s.m = len(s.nodes1), len(s.nodes2)
	s.matrix = make([][]bool, s.n)
	s.rowOnes = make([]int, s.n)
	s.assign = filled(s.n, -1)
	s.colUsed = make([]bool, s.m)

	for i, n1 := range s.nodes1 {
		s.matrix[i] = make([]bool, s.m)
		for j, n2 := range s.nodes2 {
			if syntacticallyFeasible(n1, n2) {
				s.matrix[i][j] = true
				s.rowOnes[i]++
			}
		}
	}
	return s
}

func (s *ullmannState) search(row int) bool {
	if row == s.n {
		return true
	}
	if !s.budget.spend() {
		return false
	}

	for col := 0; col < s.m; col++ {
		if !s.matrix[row][col] || s.colUsed[col] {
			continue
		}
		if !s.adjacencyPreserved(row, col) {
			continue
		}

		cleared, ok := s.refine(row, col)
		s.assign[row] = col
		s.colUsed[col] = true
		if row+1 > s.best.Len() {
			s.best = s.mapping(row + 1)
		}

		if ok && s.search(row+1) {
			return true
		}

		s.assign[row] = -1
		s.colUsed[col] = false
		s.restore(cleared)
		if s.budget.exhausted {
			return false
		}
	}
	return false
}

// adjacencyPreserved compares adjacency to every fixed row on both sides
func (s *ullmannState) adjacencyPreserved(row, col int) bool {
	a := s.nodes1[row].ID
	b := s.nodes2[col].ID
	for k := 0; k < row; k++ {
		adj1 := undirectedAdjacent(s.src, a, s.nodes1[k].ID)
		adj2 := undirectedAdjacent(s.dst, b, s.nodes2[s.assign[k]].ID)
		if adj1 != adj2 {
			return false
		}
	}
	return true
}

// refine clears the chosen column in later rows and the other columns of the
// chosen row. It reports false when some later row is left without candidates.
func (s *ullmannState) refine(row, col int) ([]cell, bool) {
	var cleared []cell
	drop := func(r, c int) {
		if s.matrix[r][c] {
			s.matrix[r][c] = false
			s.rowOnes[r]--
			cleared = append(cleared, cell{r, c})
		}
	}

	for r := row + 1; r < s.n; r++ {
		drop(r, col)
	}
	for c := 0; c < s.m; c++ {
		if c != col {
			drop(row, c)
		}
	}

	for r := row + 1; r < s.n; r++ {
		if s.rowOnes[r] == 0 {
			return cleared, false
		}
	}
	return cleared, true
}

func (s *ullmannState) restore(cleared []cell) {
	for _, c := range cleared {
		s.matrix[c.row][c.col] = true
		s.rowOnes[c.row]++
	}
}

// mapping builds the correspondence for the first rows rows
func (s *ullmannState) mapping(rows int) *NodeMapping {
	m := NewNodeMapping()
	for i := 0; i < rows; i++ {
		if s.assign[i] >= 0 {
			_ = m.Add(s.nodes1[i].ID, s.nodes2[s.assign[i]].ID)
		}
	}
	return m
}
