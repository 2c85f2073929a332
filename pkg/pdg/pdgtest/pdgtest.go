// Package pdgtest builds small dependence graphs for tests.
package pdgtest

import (
	"testing"

	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// G accumulates nodes and edges until Build is called.
// The first node added becomes the start node.
type G struct {
	tb      testing.TB
	b       *pdg.Builder
	started bool
}

// New starts a graph for the named method
func New(tb testing.TB, name string) *G {
	tb.Helper()
	return &G{tb: tb, b: pdg.NewBuilder(name)}
}

// Stmt adds a Statement node
func (g *G) Stmt(id int64, label string, line int) *G {
	return g.Node(pdg.Node{ID: id, Category: pdg.CategoryStatement, Label: label, Line: line})
}

// Cond adds a ControlFlow node with the COND_HEADER attribute
func (g *G) Cond(id int64, label string, line int) *G {
	return g.Node(pdg.Node{ID: id, Category: pdg.CategoryControlFlow, Attribute: pdg.AttributeCondHeader, Label: label, Line: line})
}

// Loop adds a ControlFlow node with the LOOP_HEADER attribute
func (g *G) Loop(id int64, label string, line int) *G {
	return g.Node(pdg.Node{ID: id, Category: pdg.CategoryControlFlow, Attribute: pdg.AttributeLoopHeader, Label: label, Line: line})
}

// Entry adds a Region node with the ENTRY attribute
func (g *G) Entry(id int64) *G {
	return g.Node(pdg.Node{ID: id, Category: pdg.CategoryRegion, Attribute: pdg.AttributeEntry, Label: "entry"})
}

// Node adds an arbitrary node
func (g *G) Node(n pdg.Node) *G {
	g.tb.Helper()
	if err := g.b.AddNode(n); err != nil {
		g.tb.Fatalf("pdgtest: add node %d: %v", n.ID, err)
	}
	if !g.started {
		if err := g.b.SetStart(n.ID); err != nil {
			g.tb.Fatalf("pdgtest: set start: %v", err)
		}
		g.started = true
	}
	return g
}

// Control adds a CONTROL edge
func (g *G) Control(from, to int64) *G {
	return g.Edge(from, to, pdg.DependencyControl)
}

// Data adds a DATA edge
func (g *G) Data(from, to int64) *G {
	return g.Edge(from, to, pdg.DependencyData)
}

// Edge adds an edge of the given type
func (g *G) Edge(from, to int64, t pdg.DependencyType) *G {
	g.tb.Helper()
	if err := g.b.AddEdge(from, to, t); err != nil {
		g.tb.Fatalf("pdgtest: add edge %d->%d: %v", from, to, err)
	}
	return g
}

// Build freezes the graph
func (g *G) Build() *pdg.Graph {
	g.tb.Helper()
	built, err := g.b.Build()
	if err != nil {
		g.tb.Fatalf("pdgtest: build: %v", err)
	}
	return built
}

// SumMethod is the running example: entry, sum = a <op> b, return sum.
// Node ids start at base so source and destination graphs can use distinct ids.
func SumMethod(tb testing.TB, name string, base int64, op string) *pdg.Graph {
	tb.Helper()
	return New(tb, name).
		Entry(base).
		Stmt(base+1, "int sum = a "+op+" b;", 3).
		Stmt(base+2, "return sum;", 4).
		Control(base, base+1).
		Control(base, base+2).
		Data(base+1, base+2).
		Build()
}

// LoopMethod is SumMethod with an accumulating for loop before the return
func LoopMethod(tb testing.TB, name string, base int64) *pdg.Graph {
	tb.Helper()
	return New(tb, name).
		Entry(base).
		Stmt(base+1, "int sum = a + b;", 3).
		Loop(base+3, "for (int i = 0; i < n; i++)", 4).
		Stmt(base+4, "sum += i;", 5).
		Stmt(base+2, "return sum;", 7).
		Control(base, base+1).
		Control(base, base+3).
		Control(base+3, base+4).
		Control(base, base+2).
		Data(base+1, base+4).
		Data(base+4, base+4).
		Data(base+4, base+2).
		Data(base+1, base+2).
		Build()
}
