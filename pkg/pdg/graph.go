package pdg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// ErrMalformedGraph reports a graph that cannot be matched as delivered
var ErrMalformedGraph = errors.New("malformed graph")

// Edge is a labeled dependency between two nodes
type Edge struct {
	From int64
	To   int64
	Type DependencyType
}

type edgeKey struct {
	from, to int64
}

// Graph is an immutable program dependence graph for one method body.
// Node and neighbour enumeration follows insertion order so results are reproducible.
type Graph struct {
	name     string
	start    int64
	directed *simple.DirectedGraph
	nodes    map[int64]*Node
	order    []int64
	succ     map[int64][]int64
	pred     map[int64][]int64
	labels   map[edgeKey][]DependencyType
	edges    []Edge
}

func newGraph(name string) *Graph {
	return &Graph{
		name:     name,
		start:    -1,
		directed: simple.NewDirectedGraph(),
		nodes:    make(map[int64]*Node),
		succ:     make(map[int64][]int64),
		pred:     make(map[int64][]int64),
		labels:   make(map[edgeKey][]DependencyType),
	}
}

// Name returns the name of the method this graph was built for
func (g *Graph) Name() string {
	return g.name
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.order)
}

// Start returns the designated start node, nil for an empty graph
func (g *Graph) Start() *Node {
	return g.nodes[g.start]
}

// Node returns the node with the given id
func (g *Graph) Node(id int64) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all labeled edges in insertion order
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// Successors returns the dependents of a node
func (g *Graph) Successors(id int64) []*Node {
	return g.lookup(g.succ[id])
}

// Predecessors returns the back-dependents of a node
func (g *Graph) Predecessors(id int64) []*Node {
	return g.lookup(g.pred[id])
}

// SuccessorIDs returns the dependent ids of a node
func (g *Graph) SuccessorIDs(id int64) []int64 {
	return g.succ[id]
}

// PredecessorIDs returns the back-dependent ids of a node
func (g *Graph) PredecessorIDs(id int64) []int64 {
	return g.pred[id]
}

func (g *Graph) lookup(ids []int64) []*Node {
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// HasEdge reports whether an edge of the given type runs from -> to
func (g *Graph) HasEdge(from, to int64, t DependencyType) bool {
	for _, l := range g.labels[edgeKey{from, to}] {
		if l == t {
			return true
		}
	}
	return false
}

// HasAnyEdge reports whether any edge runs from -> to
func (g *Graph) HasAnyEdge(from, to int64) bool {
	return len(g.labels[edgeKey{from, to}]) > 0
}

// EdgeTypes returns all dependency labels on from -> to
func (g *Graph) EdgeTypes(from, to int64) []DependencyType {
	return g.labels[edgeKey{from, to}]
}

// HasSelfLoop reports whether a node depends on itself
func (g *Graph) HasSelfLoop(id int64) bool {
	return g.HasAnyEdge(id, id)
}

// Directed returns a gonum view of the graph. Self-loops are not part of it.
func (g *Graph) Directed() graph.Directed {
	return g.directed
}

// Builder assembles a Graph. A Graph cannot be modified once built.
type Builder struct {
	g     *Graph
	built bool
}

// NewBuilder creates a builder for the graph of the named method
func NewBuilder(name string) *Builder {
	return &Builder{g: newGraph(name)}
}

// AddNode adds a node. Ids must be unique and non-negative.
func (b *Builder) AddNode(n Node) error {
	if n.ID < 0 {
		return fmt.Errorf("node id %d is negative: %w", n.ID, ErrMalformedGraph)
	}
	if _, exists := b.g.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node id %d: %w", n.ID, ErrMalformedGraph)
	}

	node := n
	b.g.nodes[n.ID] = &node
	b.g.order = append(b.g.order, n.ID)
	b.g.directed.AddNode(simple.Node(n.ID))
	return nil
}

// AddEdge adds a labeled dependency. Both endpoints must already exist.
// Adding the same (from, to, type) twice is a no-op.
func (b *Builder) AddEdge(from, to int64, t DependencyType) error {
	g := b.g
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("edge %d->%d: unknown source node: %w", from, to, ErrMalformedGraph)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("edge %d->%d: unknown target node: %w", from, to, ErrMalformedGraph)
	}
	if g.HasEdge(from, to, t) {
		return nil
	}

	key := edgeKey{from, to}
	if len(g.labels[key]) == 0 {
		g.succ[from] = append(g.succ[from], to)
		g.pred[to] = append(g.pred[to], from)
		// gonum simple graphs reject self edges
		if from != to {
			g.directed.SetEdge(g.directed.NewEdge(g.directed.Node(from), g.directed.Node(to)))
		}
	}
	g.labels[key] = append(g.labels[key], t)
	g.edges = append(g.edges, Edge{From: from, To: to, Type: t})
	return nil
}

// SetStart designates the start node
func (b *Builder) SetStart(id int64) error {
	if _, ok := b.g.nodes[id]; !ok {
		return fmt.Errorf("start node %d not in graph: %w", id, ErrMalformedGraph)
	}
	b.g.start = id
	return nil
}

// Build freezes the graph. A non-empty graph needs a start node.
func (b *Builder) Build() (*Graph, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.g.Len() > 0 && b.g.Start() == nil {
		return nil, fmt.Errorf("graph %q has no start node: %w", b.g.name, ErrMalformedGraph)
	}
	b.built = true
	return b.g, nil
}
