package matching

import (
	"context"
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/pdg"
	"github.com/ritzau/pdg-diff/pkg/similarity"
)

// GEDOptions weights the graph edit distance cost model
type GEDOptions struct {
	// Alpha weights label dissimilarity
	Alpha float64 `koanf:"alpha" validate:"gte=0"`

	// Beta weights structural attribute mismatch
	Beta float64 `koanf:"beta" validate:"gte=0"`

	// EdgePenalty is added per mapped dependent whose edge is missing on the destination side
	EdgePenalty float64 `koanf:"penalty" validate:"gte=0"`
}

// DefaultGEDOptions returns the stock weights, where the attribute term dominates
func DefaultGEDOptions() GEDOptions {
	return GEDOptions{
		Alpha:       0.1,
		Beta:        0.9,
		EdgePenalty: 0.5,
	}
}

const (
	categoryMismatchCost = 1.0
	attributeMismatch    = 0.8
	insertionCost        = 1.0
	deletionCost         = 1.0
)

// GED approximates graph edit distance with an optimal node assignment.
// The assignment is optimal for the node cost matrix; the edge penalty is
// added afterwards and is not part of the optimization.
type GED struct {
	opts GEDOptions
}

// NewGED creates an assignment-based matcher
func NewGED(opts GEDOptions) *GED {
	return &GED{opts: opts}
}

// Match assigns src nodes to dst nodes at minimum total cost.
// Result.Distance carries the assignment cost plus edge penalties.
func (g *GED) Match(ctx context.Context, src, dst *pdg.Graph) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ged %s -> %s: %w", src.Name(), dst.Name(), err)
	}

	nodes1 := pdg.CollectNodes(src)
	nodes2 := pdg.CollectNodes(dst)
	if len(nodes1) == 0 && len(nodes2) == 0 {
		return &Result{Mapping: NewNodeMapping()}, nil
	}

	cost := g.costMatrix(nodes1, nodes2)
	assignment, total, err := Hungarian(cost)
	if err != nil {
		return nil, fmt.Errorf("ged %s -> %s: %w", src.Name(), dst.Name(), err)
	}

	mapping := NewNodeMapping()
	for i, j := range assignment {
		if i < len(nodes1) && j < len(nodes2) {
			// the assignment is a permutation, so pairs never conflict
			_ = mapping.Add(nodes1[i].ID, nodes2[j].ID)
		}
	}

	total += g.edgePenalty(src, dst, mapping)
	return &Result{Mapping: mapping, Distance: total}, nil
}

// costMatrix builds the square matrix padded with dummy rows and columns
func (g *GED) costMatrix(nodes1, nodes2 []*pdg.Node) [][]float64 {
	n := max(len(nodes1), len(nodes2))
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			switch {
			case i < len(nodes1) && j < len(nodes2):
				cost[i][j] = g.substitutionCost(nodes1[i], nodes2[j])
			case i < len(nodes1):
				cost[i][j] = insertionCost
			case j < len(nodes2):
				cost[i][j] = deletionCost
			}
		}
	}
	return cost
}

func (g *GED) substitutionCost(n1, n2 *pdg.Node) float64 {
	if !SameCategory(n1, n2) {
		return categoryMismatchCost
	}
	labelCost := 1 - similarity.JaroWinkler(n1.Label, n2.Label)
	attrCost := 0.0
	if n1.Attribute != n2.Attribute {
		attrCost = attributeMismatch
	}
	return g.opts.Alpha*labelCost + g.opts.Beta*attrCost
}

// edgePenalty charges every mapped dependent whose edge has no counterpart in dst
func (g *GED) edgePenalty(src, dst *pdg.Graph, mapping *NodeMapping) float64 {
	penalty := 0.0
	for _, pair := range mapping.Pairs() {
		for _, succ := range src.SuccessorIDs(pair[0]) {
			mapped, ok := mapping.Dst(succ)
			if !ok {
				continue
			}
			if !dst.HasAnyEdge(pair[1], mapped) {
				penalty += g.opts.EdgePenalty
			}
		}
	}
	return penalty
}
