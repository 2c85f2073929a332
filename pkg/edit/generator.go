package edit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Snippets returns the source text of a line, or "" when it is unknown
type Snippets func(line int) string

// NoSnippets makes every node fall back to its label
func NoSnippets(int) string { return "" }

// Generator derives the edit script of one matched pair of method graphs
type Generator struct {
	src, dst *pdg.Graph
	mapping  *matching.NodeMapping
	oldText  Snippets
	newText  Snippets
}

// NewGenerator prepares script generation for src -> dst under mapping.
// A nil mapping means nothing is matched.
func NewGenerator(src, dst *pdg.Graph, mapping *matching.NodeMapping, oldText, newText Snippets) *Generator {
	if mapping == nil {
		mapping = matching.NewNodeMapping()
	}
	if oldText == nil {
		oldText = NoSnippets
	}
	if newText == nil {
		newText = NoSnippets
	}
	return &Generator{src: src, dst: dst, mapping: mapping, oldText: oldText, newText: newText}
}

// Generate is shorthand for NewGenerator(...).Script()
func Generate(src, dst *pdg.Graph, mapping *matching.NodeMapping, oldText, newText Snippets) []Operation {
	return NewGenerator(src, dst, mapping, oldText, newText).Script()
}

// Script emits Update and Move operations for mapped pairs in mapping order,
// then one Delete per unmapped source node and one Insert per unmapped
// destination node, both in BFS order.
func (g *Generator) Script() []Operation {
	var ops []Operation

	for _, pair := range g.mapping.Pairs() {
		n1, ok1 := g.src.Node(pair[0])
		n2, ok2 := g.dst.Node(pair[1])
		if !ok1 || !ok2 {
			continue
		}
		if op, changed := g.compare(n1, n2); changed {
			ops = append(ops, op)
		}
	}

	for _, n := range pdg.CollectNodes(g.src) {
		if !g.mapping.HasSrc(n.ID) {
			ops = append(ops, Delete(n, n.Line, snippet(n, g.oldText)))
		}
	}
	for _, n := range pdg.CollectNodes(g.dst) {
		if !g.mapping.HasDst(n.ID) {
			ops = append(ops, Insert(n, n.Line, snippet(n, g.newText)))
		}
	}
	return ops
}

// compare classifies one mapped pair as unchanged, updated or moved
func (g *Generator) compare(n1, n2 *pdg.Node) (Operation, bool) {
	oldSnippet := snippet(n1, g.oldText)
	newSnippet := snippet(n2, g.newText)

	if !sameContent(n1, n2) {
		return Update(n1, n1.Line, n2.Line, oldSnippet, newSnippet, UnifiedDiff(n1.Line, n2.Line, oldSnippet, newSnippet)), true
	}

	// fresh state per top-level comparison; pairs still in progress count as equal
	memo := make(map[int64]bool)
	if !g.sameDependents(n1, n2, memo) {
		return DependencyUpdate(n1, n1.Line, n2.Line, oldSnippet, newSnippet,
			fmt.Sprintf("dependencies of %s changed", n1)), true
	}

	oldPreds, newPreds := g.predecessors(n1, n2)
	if !slices.Equal(oldPreds, newPreds) {
		return Move(n1, n1.Line, n2.Line, oldSnippet, oldPreds, newPreds), true
	}
	return Operation{}, false
}

// sameContent compares what a node says, not where it sits
func sameContent(n1, n2 *pdg.Node) bool {
	if n1.Category != n2.Category || n1.Attribute != n2.Attribute {
		return false
	}
	if n1.Category == pdg.CategoryRegion {
		return n1.RegionID == n2.RegionID
	}
	return n1.Label == n2.Label
}

// sameDependents checks, recursively, that every mapped dependent is reached
// through the same dependency types on both sides. Unmapped dependents are
// Inserts or Deletes of their own and are skipped.
func (g *Generator) sameDependents(n1, n2 *pdg.Node, memo map[int64]bool) bool {
	if result, seen := memo[n1.ID]; seen {
		return result
	}
	memo[n1.ID] = true

	result := g.checkDependents(n1, n2, memo)
	memo[n1.ID] = result
	return result
}

func (g *Generator) checkDependents(n1, n2 *pdg.Node, memo map[int64]bool) bool {
	for _, succ := range g.src.SuccessorIDs(n1.ID) {
		image, ok := g.mapping.Dst(succ)
		if !ok {
			continue
		}
		if !sameTypes(g.src.EdgeTypes(n1.ID, succ), g.dst.EdgeTypes(n2.ID, image)) {
			return false
		}
		if succ == n1.ID {
			continue
		}
		s1, _ := g.src.Node(succ)
		s2, ok := g.dst.Node(image)
		if !ok || !g.sameDependents(s1, s2, memo) {
			return false
		}
	}

	for _, succ := range g.dst.SuccessorIDs(n2.ID) {
		origin, ok := g.mapping.Src(succ)
		if !ok {
			continue
		}
		if !g.src.HasAnyEdge(n1.ID, origin) {
			return false
		}
	}
	return true
}

// predecessors returns the mapped source predecessors translated into
// destination ids, and the destination predecessors that have a source
// counterpart. Both are sorted.
func (g *Generator) predecessors(n1, n2 *pdg.Node) ([]int64, []int64) {
	var oldPreds, newPreds []int64
	for _, pred := range g.src.PredecessorIDs(n1.ID) {
		if image, ok := g.mapping.Dst(pred); ok {
			oldPreds = append(oldPreds, image)
		}
	}
	for _, pred := range g.dst.PredecessorIDs(n2.ID) {
		if g.mapping.HasDst(pred) {
			newPreds = append(newPreds, pred)
		}
	}
	slices.Sort(oldPreds)
	slices.Sort(newPreds)
	return oldPreds, newPreds
}

func sameTypes(a, b []pdg.DependencyType) bool {
	if len(a) != len(b) {
		return false
	}
	for _, t := range a {
		if !slices.Contains(b, t) {
			return false
		}
	}
	return true
}

// snippet prefers the source line text and falls back to the node label
func snippet(n *pdg.Node, text Snippets) string {
	if n.Line > 0 {
		if s := strings.TrimSpace(text(n.Line)); s != "" {
			return s
		}
	}
	return n.Label
}

// UnifiedDiff renders the replacement of one snippet by another as a unified diff hunk
func UnifiedDiff(oldLine, newLine int, oldSnippet, newSnippet string) string {
	var body strings.Builder
	for _, l := range strings.Split(oldSnippet, "\n") {
		body.WriteString("-" + l + "\n")
	}
	for _, l := range strings.Split(newSnippet, "\n") {
		body.WriteString("+" + l + "\n")
	}

	hunk := &diff.Hunk{
		OrigStartLine: int32(max(oldLine, 0)),
		OrigLines:     int32(strings.Count(oldSnippet, "\n") + 1),
		NewStartLine:  int32(max(newLine, 0)),
		NewLines:      int32(strings.Count(newSnippet, "\n") + 1),
		Body:          []byte(body.String()),
	}
	out, err := diff.PrintHunks([]*diff.Hunk{hunk})
	if err != nil {
		return fmt.Sprintf("-%s\n+%s\n", oldSnippet, newSnippet)
	}
	return string(out)
}
