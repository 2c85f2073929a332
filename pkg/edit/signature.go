package edit

import (
	"fmt"
	"slices"

	"github.com/ritzau/pdg-diff/pkg/similarity"
)

// Token is a signature element with the line it appears on
type Token struct {
	Text string `json:"text" yaml:"text" validate:"required"`
	Line int    `json:"line" yaml:"line"`
}

// Signature is the declaration part of a method
type Signature struct {
	Name        string
	ReturnType  string
	Modifiers   []string
	Parameters  []Token
	Annotations []Token
	Throws      []string

	// Line is the first line of the declaration, EndLine its last (0 when unknown)
	Line    int
	EndLine int
}

// declarationLine is the line signature-wide changes are reported on
func (s Signature) declarationLine() int {
	if s.Line > 0 {
		return s.Line
	}
	return -1
}

// Equal reports whether two signatures declare the same method
func (s Signature) Equal(other Signature) bool {
	return s.Name == other.Name &&
		s.ReturnType == other.ReturnType &&
		sameSet(s.Modifiers, other.Modifiers) &&
		slices.Equal(tokenTexts(s.Parameters), tokenTexts(other.Parameters)) &&
		slices.Equal(tokenTexts(s.Annotations), tokenTexts(other.Annotations)) &&
		sameSet(s.Throws, other.Throws)
}

// DiffSignatures lists what changed between two declarations of a method:
// modifiers, return type, name, parameters, annotations and thrown exceptions.
func DiffSignatures(before, after Signature) []Operation {
	var ops []Operation
	oldLine := before.declarationLine()
	newLine := after.declarationLine()

	for _, mod := range difference(before.Modifiers, after.Modifiers) {
		ops = append(ops, Delete(nil, oldLine, "Removed modifier: "+mod))
	}
	for _, mod := range difference(after.Modifiers, before.Modifiers) {
		ops = append(ops, Insert(nil, newLine, "Added modifier: "+mod))
	}

	if before.ReturnType != after.ReturnType {
		ops = append(ops, Update(nil, oldLine, newLine, before.ReturnType, after.ReturnType,
			fmt.Sprintf("Return type changed from %s to %s", before.ReturnType, after.ReturnType)))
	}
	if before.Name != after.Name {
		ops = append(ops, Update(nil, oldLine, newLine, before.Name, after.Name,
			fmt.Sprintf("Method name changed from %s to %s", before.Name, after.Name)))
	}

	ops = append(ops, diffTokens(before.Parameters, after.Parameters, "Parameter changed")...)
	ops = append(ops, diffTokens(before.Annotations, after.Annotations, "Annotation changed")...)

	for _, ex := range difference(before.Throws, after.Throws) {
		ops = append(ops, Delete(nil, oldLine, "Removed exception from signature: "+ex))
	}
	for _, ex := range difference(after.Throws, before.Throws) {
		ops = append(ops, Insert(nil, newLine, "Added exception to signature: "+ex))
	}
	return ops
}

type step uint8

const (
	stepNoChange step = iota
	stepDelete
	stepInsert
	stepUpdate
)

// diffTokens aligns two token lists with a weighted edit distance, where
// replacing one token by another costs 1 - jaro(old, new), and reports the
// aligned changes in list order.
func diffTokens(before, after []Token, label string) []Operation {
	m, n := len(before), len(after)
	cost := make([][]float64, m+1)
	steps := make([][]step, m+1)
	for i := range cost {
		cost[i] = make([]float64, n+1)
		steps[i] = make([]step, n+1)
		cost[i][0] = float64(i)
		steps[i][0] = stepDelete
	}
	for j := 0; j <= n; j++ {
		cost[0][j] = float64(j)
		steps[0][j] = stepInsert
	}
	steps[0][0] = stepNoChange

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			a, b := before[i-1].Text, after[j-1].Text
			if a == b {
				cost[i][j] = cost[i-1][j-1]
				steps[i][j] = stepNoChange
				continue
			}

			del := cost[i-1][j] + 1
			ins := cost[i][j-1] + 1
			upd := cost[i-1][j-1] + (1 - similarity.Jaro(a, b))
			switch {
			case del <= ins && del <= upd:
				cost[i][j], steps[i][j] = del, stepDelete
			case ins <= upd:
				cost[i][j], steps[i][j] = ins, stepInsert
			default:
				cost[i][j], steps[i][j] = upd, stepUpdate
			}
		}
	}

	var ops []Operation
	for i, j := m, n; i > 0 || j > 0; {
		switch steps[i][j] {
		case stepNoChange:
			i--
			j--
		case stepDelete:
			ops = append(ops, Delete(nil, before[i-1].Line, before[i-1].Text))
			i--
		case stepInsert:
			ops = append(ops, Insert(nil, after[j-1].Line, after[j-1].Text))
			j--
		case stepUpdate:
			a, b := before[i-1], after[j-1]
			ops = append(ops, Update(nil, a.Line, b.Line, a.Text, b.Text,
				fmt.Sprintf("%s from %q to %q", label, a.Text, b.Text)))
			i--
			j--
		}
	}
	slices.Reverse(ops)
	return ops
}

func tokenTexts(tokens []Token) []string {
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return texts
}

// difference returns the elements of a missing from b, in a's order, without duplicates
func difference(a, b []string) []string {
	var out []string
	for _, s := range a {
		if !slices.Contains(b, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	return len(difference(a, b)) == 0 && len(difference(b, a)) == 0
}
