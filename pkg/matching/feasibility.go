package matching

import (
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// SameCategory is the cheapest pre-filter used by every matcher
func SameCategory(n1, n2 *pdg.Node) bool {
	return n1.Category == n2.Category
}

// syntacticallyFeasible requires the same category and structural attribute
func syntacticallyFeasible(n1, n2 *pdg.Node) bool {
	return SameCategory(n1, n2) && n1.Attribute == n2.Attribute
}

// edgePattern encodes which dependency labels run in each direction between two nodes
type edgePattern uint8

const (
	patternForwardControl edgePattern = 1 << iota
	patternForwardData
	patternBackwardControl
	patternBackwardData
)

func patternBetween(g *pdg.Graph, a, b int64) edgePattern {
	var p edgePattern
	if g.HasEdge(a, b, pdg.DependencyControl) {
		p |= patternForwardControl
	}
	if g.HasEdge(a, b, pdg.DependencyData) {
		p |= patternForwardData
	}
	if g.HasEdge(b, a, pdg.DependencyControl) {
		p |= patternBackwardControl
	}
	if g.HasEdge(b, a, pdg.DependencyData) {
		p |= patternBackwardData
	}
	return p
}

// undirectedAdjacent reports whether two nodes are linked in either direction by any label
func undirectedAdjacent(g *pdg.Graph, a, b int64) bool {
	return g.HasAnyEdge(a, b) || g.HasAnyEdge(b, a)
}
