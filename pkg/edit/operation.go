// Package edit derives edit scripts from node correspondences between two
// versions of a method, plus the signature and class-level differences that
// sit outside the dependence graphs.
package edit

import (
	"encoding/json"
	"fmt"

	"github.com/ritzau/pdg-diff/pkg/pdg"
)

// Kind tags the variant of an Operation
type Kind string

const (
	KindInsert Kind = "Insert"
	KindDelete Kind = "Delete"
	KindUpdate Kind = "Update"
	KindMove   Kind = "Move"
)

// Reason tells why a matched line is reported as an Update
type Reason string

const (
	// ReasonContent is a change of the line's text
	ReasonContent Reason = "content"
	// ReasonDependencies keeps the text but reaches its dependents through
	// other dependency types
	ReasonDependencies Reason = "dependencies"
)

// Operation is one entry of an edit script. Which fields are meaningful
// depends on Kind:
//
//	Insert, Delete: Line, Snippet
//	Update:         OldLine, NewLine, OldSnippet, NewSnippet, Diff, Reason
//	Move:           OldLine, NewLine, Snippet, OldPredecessors, NewPredecessors
//
// Node is nil for operations that do not stem from a graph node (signature,
// field and class changes).
type Operation struct {
	Kind Kind
	Node *pdg.Node

	Line    int
	Snippet string

	OldLine    int
	NewLine    int
	OldSnippet string
	NewSnippet string
	Diff       string
	Reason     Reason

	OldPredecessors []int64
	NewPredecessors []int64
}

// Insert creates an insertion of a destination line
func Insert(node *pdg.Node, line int, snippet string) Operation {
	return Operation{Kind: KindInsert, Node: node, Line: line, Snippet: snippet}
}

// Delete creates a deletion of a source line
func Delete(node *pdg.Node, line int, snippet string) Operation {
	return Operation{Kind: KindDelete, Node: node, Line: line, Snippet: snippet}
}

// Update creates a change of a source line into a destination line
func Update(node *pdg.Node, oldLine, newLine int, oldSnippet, newSnippet, diff string) Operation {
	return Operation{
		Kind:       KindUpdate,
		Node:       node,
		OldLine:    oldLine,
		NewLine:    newLine,
		OldSnippet: oldSnippet,
		NewSnippet: newSnippet,
		Diff:       diff,
		Reason:     ReasonContent,
	}
}

// DependencyUpdate creates an Update for a line whose text is unchanged while
// its outgoing dependencies differ
func DependencyUpdate(node *pdg.Node, oldLine, newLine int, oldSnippet, newSnippet, diff string) Operation {
	op := Update(node, oldLine, newLine, oldSnippet, newSnippet, diff)
	op.Reason = ReasonDependencies
	return op
}

// Move creates a relocation of unchanged code. Predecessors are destination ids.
func Move(node *pdg.Node, oldLine, newLine int, snippet string, oldPreds, newPreds []int64) Operation {
	return Operation{
		Kind:            KindMove,
		Node:            node,
		OldLine:         oldLine,
		NewLine:         newLine,
		Snippet:         snippet,
		OldPredecessors: oldPreds,
		NewPredecessors: newPreds,
	}
}

// Key identifies an operation by its visible content, ignoring the node
func (o Operation) Key() string {
	switch o.Kind {
	case KindUpdate:
		return fmt.Sprintf("Update-%d-%d-%s-%s", o.OldLine, o.NewLine, o.OldSnippet, o.NewSnippet)
	case KindMove:
		return fmt.Sprintf("Move-%d-%d-%s", o.OldLine, o.NewLine, o.Snippet)
	default:
		return fmt.Sprintf("%s-%d-%s", o.Kind, o.Line, o.Snippet)
	}
}

func (o Operation) String() string {
	switch o.Kind {
	case KindInsert:
		return fmt.Sprintf("Insert at line %d: %s", o.Line, o.Snippet)
	case KindDelete:
		return fmt.Sprintf("Delete at line %d: %s", o.Line, o.Snippet)
	case KindUpdate:
		return fmt.Sprintf("Update at lines %d -> %d: %s -> %s", o.OldLine, o.NewLine, o.OldSnippet, o.NewSnippet)
	case KindMove:
		return fmt.Sprintf("Move from line %d to line %d: %s", o.OldLine, o.NewLine, o.Snippet)
	default:
		return fmt.Sprintf("%s operation", o.Kind)
	}
}

type lineJSON struct {
	Action string `json:"action"`
	Node   *int64 `json:"node,omitempty"`
	Line   int    `json:"line"`
	Code   string `json:"code"`
}

type updateJSON struct {
	Action     string `json:"action"`
	Node       *int64 `json:"node,omitempty"`
	OldLine    int    `json:"oldLine"`
	NewLine    int    `json:"newLine"`
	OldCode    string `json:"oldCode"`
	NewCode    string `json:"newCode"`
	Difference string `json:"difference,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
}

type moveJSON struct {
	Action          string  `json:"action"`
	Node            *int64  `json:"node,omitempty"`
	OldLine         int     `json:"oldLine"`
	NewLine         int     `json:"newLine"`
	Code            string  `json:"code"`
	OldPredecessors []int64 `json:"oldPredecessors"`
	NewPredecessors []int64 `json:"newPredecessors"`
}

// MarshalJSON writes only the fields of the operation's variant
func (o Operation) MarshalJSON() ([]byte, error) {
	var node *int64
	if o.Node != nil {
		id := o.Node.ID
		node = &id
	}

	switch o.Kind {
	case KindInsert, KindDelete:
		return json.Marshal(lineJSON{Action: string(o.Kind), Node: node, Line: o.Line, Code: o.Snippet})
	case KindUpdate:
		return json.Marshal(updateJSON{
			Action:     string(o.Kind),
			Node:       node,
			OldLine:    o.OldLine,
			NewLine:    o.NewLine,
			OldCode:    o.OldSnippet,
			NewCode:    o.NewSnippet,
			Difference: o.Diff,
			Reason:     o.Reason,
		})
	case KindMove:
		return json.Marshal(moveJSON{
			Action:          string(o.Kind),
			Node:            node,
			OldLine:         o.OldLine,
			NewLine:         o.NewLine,
			Code:            o.Snippet,
			OldPredecessors: nonNil(o.OldPredecessors),
			NewPredecessors: nonNil(o.NewPredecessors),
		})
	default:
		return nil, fmt.Errorf("unknown operation kind %q", o.Kind)
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
