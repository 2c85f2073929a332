package loader

import (
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/edit"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Method is a built method graph together with its declaration
type Method struct {
	Graph     *pdg.Graph
	Signature edit.Signature
}

// Graphs builds the graph of every method. Malformed nodes and edges are
// skipped with a warning; a method whose start node is missing or skipped is
// left out entirely.
func (p *Program) Graphs() []Method {
	var methods []Method
	for _, doc := range p.Methods {
		g, err := doc.Build()
		if err != nil {
			logging.Warn("Skipping malformed method graph", "class", p.Class, "method", doc.Name, "error", err)
			continue
		}
		methods = append(methods, Method{Graph: g, Signature: doc.Declaration()})
	}
	return methods
}

// Build assembles the dependence graph of the method. Unknown categories,
// attributes and dependency types as well as dangling edges only drop the
// offending element; the returned error is reserved for graphs without a
// usable start node.
func (m MethodDoc) Build() (*pdg.Graph, error) {
	b := pdg.NewBuilder(m.Name)

	for _, nd := range m.Nodes {
		node, err := nd.node()
		if err == nil {
			err = b.AddNode(node)
		}
		if err != nil {
			logging.Warn("Skipping malformed node", "method", m.Name, "node", nd.ID, "error", err)
		}
	}

	for _, ed := range m.Edges {
		t, err := pdg.ParseDependencyType(ed.Type)
		if err == nil {
			err = b.AddEdge(ed.From, ed.To, t)
		}
		if err != nil {
			logging.Warn("Skipping malformed edge", "method", m.Name, "from", ed.From, "to", ed.To, "error", err)
		}
	}

	if len(m.Nodes) > 0 {
		if m.Start == nil {
			return nil, fmt.Errorf("method %s has no start node: %w", m.Name, pdg.ErrMalformedGraph)
		}
		if err := b.SetStart(*m.Start); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build graph of %s: %w", m.Name, err)
	}
	return g, nil
}

func (nd NodeDoc) node() (pdg.Node, error) {
	category, err := pdg.ParseCategory(nd.Category)
	if err != nil {
		return pdg.Node{}, err
	}
	attribute, err := pdg.ParseAttribute(nd.Attribute)
	if err != nil {
		return pdg.Node{}, err
	}
	if category == pdg.CategoryRegion && nd.Region < 0 {
		return pdg.Node{}, fmt.Errorf("negative region id %d: %w", nd.Region, pdg.ErrMalformedGraph)
	}
	return pdg.Node{
		ID:        nd.ID,
		Category:  category,
		Attribute: attribute,
		Label:     nd.Label,
		Line:      nd.Line,
		RegionID:  nd.Region,
	}, nil
}
