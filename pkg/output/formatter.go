// Package output renders diff results for people and for machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/pdg-diff/pkg/cycles"
	"github.com/ritzau/pdg-diff/pkg/edit"
	"github.com/ritzau/pdg-diff/pkg/engine"
)

// Format names accepted by Write
const (
	FormatText  = "text"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Write renders the result in the named format
func Write(w io.Writer, format string, r *engine.Result) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatPlain:
		return WriteText(w, r)
	case FormatText, "":
		PrintReport(w, r)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// PrintReport prints a nicely formatted diff report with colors
func PrintReport(w io.Writer, r *engine.Result) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	title := fmt.Sprintf("PDG Diff - %s", r.Class)
	bold.Fprintln(w, title)
	bold.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy: %s (recovery: %s)\n", r.Strategy, r.Recovery)
	fmt.Fprintln(w)

	opColor := func(k edit.Kind) *color.Color {
		switch k {
		case edit.KindInsert:
			return green
		case edit.KindDelete:
			return red
		case edit.KindUpdate:
			return yellow
		default:
			return cyan
		}
	}
	printOps := func(ops []edit.Operation) {
		for _, op := range ops {
			opColor(op.Kind).Fprintf(w, "  %s\n", Line(op))
		}
	}

	for _, m := range r.Methods {
		switch m.Outcome {
		case engine.OutcomeMatched:
			bold.Fprintf(w, "%s", m.Name)
			if m.OldName != m.NewName {
				fmt.Fprintf(w, " (was %s)", m.OldName)
			}
			fmt.Fprintf(w, " [matched, score %.2f, distance %d]\n", m.Score, m.Distance)
		case engine.OutcomeAdded:
			green.Fprintf(w, "%s [added, distance %d]\n", m.Name, m.Distance)
		case engine.OutcomeRemoved:
			red.Fprintf(w, "%s [removed, distance %d]\n", m.Name, m.Distance)
		}
		printOps(m.Operations)
		for _, c := range m.NewCycles {
			cyan.Fprintf(w, "  cycle: %s\n", formatCycle(c))
		}
	}

	if len(r.ClassOps) > 0 {
		bold.Fprintln(w, "Class")
		printOps(r.ClassOps)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		yellow.Fprintln(w, "WARNINGS:")
		for _, warning := range r.Warnings {
			yellow.Fprintf(w, "  %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	summaryColor := yellow
	if r.Distance == 0 {
		summaryColor = green
	}
	summaryColor.Fprintf(w, "Summary: %d inserts, %d deletes, %d updates, %d moves (distance %d)\n",
		r.Counts.Inserts, r.Counts.Deletes, r.Counts.Updates, r.Counts.Moves, r.Distance)

	if r.Distance == 0 {
		green.Fprintln(w, "✓ No differences")
	}
}

// WriteText writes one operation per line followed by the distance
func WriteText(w io.Writer, r *engine.Result) error {
	for _, op := range r.Operations() {
		if _, err := fmt.Fprintln(w, Line(op)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Distance: %d\n", r.Distance)
	return err
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// Line renders a single operation
func Line(op edit.Operation) string {
	switch op.Kind {
	case edit.KindInsert:
		return fmt.Sprintf("Insert line %d: %s", op.Line, op.Snippet)
	case edit.KindDelete:
		return fmt.Sprintf("Delete line %d: %s", op.Line, op.Snippet)
	case edit.KindUpdate:
		s := fmt.Sprintf("Update line %d -> %d: %s -> %s", op.OldLine, op.NewLine, op.OldSnippet, op.NewSnippet)
		if op.Diff != "" && !strings.Contains(op.Diff, "\n") {
			s += " (" + op.Diff + ")"
		}
		return s
	case edit.KindMove:
		return fmt.Sprintf("Move line %d -> %d: %s", op.OldLine, op.NewLine, op.Snippet)
	default:
		return op.String()
	}
}

// MethodCycles lists the dependency cycles of one method graph
type MethodCycles struct {
	Method string         `json:"method"`
	Cycles []cycles.Cycle `json:"cycles"`
}

// PrintCycles prints the cycle report of one program version
func PrintCycles(w io.Writer, class string, methods []MethodCycles) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "Dependency cycles - %s\n", class)
	total := 0
	for _, m := range methods {
		if len(m.Cycles) == 0 {
			continue
		}
		total += len(m.Cycles)
		bold.Fprintf(w, "%s\n", m.Method)
		for _, c := range m.Cycles {
			yellow.Fprintf(w, "  %s\n", formatCycle(c))
		}
	}
	if total == 0 {
		green.Fprintln(w, "✓ No cycles found")
		return
	}
	fmt.Fprintf(w, "Found %d cycle(s)\n", total)
}

func formatCycle(c cycles.Cycle) string {
	ids := make([]string, len(c.Nodes))
	for i, id := range c.Nodes {
		ids[i] = fmt.Sprintf("%d", id)
	}
	if c.SelfLoop {
		return fmt.Sprintf("%s -> %s (self-loop)", ids[0], ids[0])
	}
	return strings.Join(ids, " -> ") + " -> " + ids[0]
}
