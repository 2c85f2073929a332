package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/pdg-diff/pkg/cycles"
	"github.com/ritzau/pdg-diff/pkg/edit"
	"github.com/ritzau/pdg-diff/pkg/engine"
)

func init() {
	color.NoColor = true
}

func sampleResult() *engine.Result {
	add := []edit.Operation{
		edit.Update(nil, 5, 5, "int sum = a - b;", "int sum = a + b;", ""),
	}
	twice := []edit.Operation{
		edit.Insert(nil, 9, "public int twice(int a) {"),
		edit.Insert(nil, 10, "return a * 2;"),
	}
	return &engine.Result{
		RunID:    "run-1",
		Class:    "Calculator",
		Strategy: "ged",
		Recovery: "global_similarity",
		Methods: []engine.MethodResult{
			{Name: "add", OldName: "add", NewName: "add", Outcome: engine.OutcomeMatched,
				Score: 1, Operations: add, Counts: edit.Count(add), Distance: 1},
			{Name: "twice", NewName: "twice", Outcome: engine.OutcomeAdded,
				Operations: twice, Counts: edit.Count(twice), Distance: 2,
				NewCycles: []cycles.Cycle{{Nodes: []int64{3, 4}}}},
		},
		ClassOps: []edit.Operation{edit.Move(nil, 2, 4, "private int count;", nil, nil)},
		Counts:   edit.Counts{Inserts: 2, Updates: 1, Moves: 1},
		Distance: 4,
		Warnings: []string{"Calculator.broken: malformed graph, method skipped"},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleResult()))

	assert.Equal(t, strings.Join([]string{
		"Move line 2 -> 4: private int count;",
		"Update line 5 -> 5: int sum = a - b; -> int sum = a + b;",
		"Insert line 9: public int twice(int a) {",
		"Insert line 10: return a * 2;",
		"Distance: 4",
	}, "\n")+"\n", buf.String())
}

func TestLine(t *testing.T) {
	assert.Equal(t, "Delete line 3: x++;", Line(edit.Delete(nil, 3, "x++;")))
	assert.Equal(t, `Update line 2 -> 2: int a -> long a (Field a differs)`,
		Line(edit.Update(nil, 2, 2, "int a", "long a", "Field a differs")))
	assert.Equal(t, "Update line 1 -> 1: a -> b",
		Line(edit.Update(nil, 1, 1, "a", "b", "@@ -1 +1 @@\n-a\n+b\n")), "multi-line diffs are left out")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Calculator", decoded["class"])
	assert.Equal(t, float64(4), decoded["distance"])

	methods := decoded["methods"].([]any)
	require.Len(t, methods, 2)
	ops := methods[0].(map[string]any)["operations"].([]any)
	assert.Equal(t, "Update", ops[0].(map[string]any)["action"])
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "PDG Diff - Calculator")
	assert.Contains(t, out, "add [matched, score 1.00, distance 1]")
	assert.Contains(t, out, "twice [added, distance 2]")
	assert.Contains(t, out, "  cycle: 3 -> 4 -> 3")
	assert.Contains(t, out, "WARNINGS:")
	assert.Contains(t, out, "Summary: 2 inserts, 0 deletes, 1 updates, 1 moves (distance 4)")
	assert.NotContains(t, out, "No differences")
}

func TestPrintReportWithoutDifferences(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, &engine.Result{Class: "A"})
	assert.Contains(t, buf.String(), "✓ No differences")
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "xml", sampleResult()))
	assert.NoError(t, Write(&buf, FormatPlain, sampleResult()))
}

func TestPrintCycles(t *testing.T) {
	var buf bytes.Buffer
	PrintCycles(&buf, "Loop", []MethodCycles{
		{Method: "count", Cycles: []cycles.Cycle{{Nodes: []int64{4}, SelfLoop: true}}},
		{Method: "plain"},
	})
	out := buf.String()
	assert.Contains(t, out, "count\n  4 -> 4 (self-loop)")
	assert.NotContains(t, out, "plain")
	assert.Contains(t, out, "Found 1 cycle(s)")

	buf.Reset()
	PrintCycles(&buf, "Flat", nil)
	assert.Contains(t, buf.String(), "No cycles found")
}
