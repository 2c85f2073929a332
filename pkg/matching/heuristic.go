package matching

import (
	"context"

	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/similarity"
)

// DefaultHeuristicThreshold is the minimum score for a positional pair to be mapped
const DefaultHeuristicThreshold = 0.6

// Heuristic pairs nodes by BFS position and keeps pairs that score well enough.
//
// Pairing is positional: node i of src is only ever compared with node i of
// dst, so an insertion early in a method shifts every later pair.
type Heuristic struct {
	threshold float64
}

// NewHeuristic creates a positional matcher
func NewHeuristic(threshold float64) *Heuristic {
	return &Heuristic{threshold: threshold}
}

// Match scores positional pairs. Result.Score is the node-score sum divided by
// the larger node count.
func (h *Heuristic) Match(ctx context.Context, src, dst *pdg.Graph) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes1 := pdg.CollectNodes(src)
	nodes2 := pdg.CollectNodes(dst)
	mapping := NewNodeMapping()

	largest := max(len(nodes1), len(nodes2))
	if largest == 0 {
		return &Result{Mapping: mapping}, nil
	}

	total := 0.0
	for i := 0; i < min(len(nodes1), len(nodes2)); i++ {
		score := NodeScore(src, dst, nodes1[i], nodes2[i])
		total += score
		if score >= h.threshold {
			_ = mapping.Add(nodes1[i].ID, nodes2[i].ID)
		}
	}

	return &Result{Mapping: mapping, Score: total / float64(largest)}, nil
}

// NodeScore rates how alike two nodes are, from 0 up to 4.5
func NodeScore(g1, g2 *pdg.Graph, n1, n2 *pdg.Node) float64 {
	score := 0.0
	if SameCategory(n1, n2) {
		score += 1
	}
	if n1.Attribute == n2.Attribute {
		score += 0.5
	}
	if len(g1.SuccessorIDs(n1.ID)) == len(g2.SuccessorIDs(n2.ID)) {
		score += 0.5
	}
	if len(g1.PredecessorIDs(n1.ID)) == len(g2.PredecessorIDs(n2.ID)) {
		score += 0.5
	}
	score += 2 * similarity.JaroWinkler(n1.Label, n2.Label)
	return score
}

// graphScore adds method-name similarity to the normalized node score
func graphScore(nodeScore float64, src, dst *pdg.Graph) float64 {
	return nodeScore + 2*similarity.JaroWinkler(src.Name(), dst.Name())
}
