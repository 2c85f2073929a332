// Package cycles reports cyclic dependency regions of a dependence graph.
// Loop-carried dependencies are expected, so a cycle is a diagnostic and not
// an error.
package cycles

import (
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Cycle is a strongly connected component that contains a dependency cycle
type Cycle struct {
	Nodes    []int64 `json:"nodes"`
	SelfLoop bool    `json:"selfLoop,omitempty"` // a single node that depends on itself
}

// FindCycles returns every component of more than one node and every node
// with a self-loop, ordered by smallest node id
func FindCycles(g *pdg.Graph) []Cycle {
	tarjan := NewTarjanSCC(g.Directed())

	var cycles []Cycle
	for _, scc := range tarjan.FindSCCs() {
		switch {
		case len(scc) > 1:
			cycles = append(cycles, Cycle{Nodes: scc})
		case g.HasSelfLoop(scc[0]):
			cycles = append(cycles, Cycle{Nodes: scc, SelfLoop: true})
		}
	}
	return cycles
}

// HasCycle reports whether the graph contains any dependency cycle
func HasCycle(g *pdg.Graph) bool {
	return len(FindCycles(g)) > 0
}
