package edit

import (
	"strings"

	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// signatureRange is the span of lines a declaration occupies, annotations included.
// ok is false when the declaration has no known position.
func signatureRange(sig Signature) (start, end int, ok bool) {
	start, end = sig.Line, sig.EndLine
	if end < start {
		end = start
	}
	for _, a := range sig.Annotations {
		if a.Line > 0 && (start <= 0 || a.Line < start) {
			start = a.Line
		}
	}
	return start, end, start > 0 && end >= start
}

// AddScript describes a method that only exists in the new version: its
// declaration lines followed by every node of its graph, all as Inserts.
func AddScript(g *pdg.Graph, sig Signature, text Snippets) []Operation {
	if text == nil {
		text = NoSnippets
	}
	var ops []Operation
	if start, end, ok := signatureRange(sig); ok {
		for line := start; line <= end; line++ {
			ops = append(ops, Insert(nil, line, strings.TrimSpace(text(line))))
		}
	}
	for _, n := range pdg.CollectNodes(g) {
		ops = append(ops, Insert(n, n.Line, snippet(n, text)))
	}
	return ops
}

// DeleteScript describes a method that no longer exists: its declaration
// lines followed by every node of its graph, all as Deletes.
func DeleteScript(g *pdg.Graph, sig Signature, text Snippets) []Operation {
	if text == nil {
		text = NoSnippets
	}
	var ops []Operation
	if start, end, ok := signatureRange(sig); ok {
		for line := start; line <= end; line++ {
			ops = append(ops, Delete(nil, line, strings.TrimSpace(text(line))))
		}
	}
	for _, n := range pdg.CollectNodes(g) {
		ops = append(ops, Delete(n, n.Line, snippet(n, text)))
	}
	return ops
}
