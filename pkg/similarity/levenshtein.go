package similarity

import (
	"regexp"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Levenshtein returns the edit distance between two strings, counted in runes
func Levenshtein(s, t string) int {
	a, b := []rune(s), []rune(t)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rolling rows of the classic DP table
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// Normalize strips comments and all whitespace from a code snippet
func Normalize(code string) string {
	code = blockComment.ReplaceAllString(code, "")
	code = lineComment.ReplaceAllString(code, "")
	return whitespace.ReplaceAllString(code, "")
}

// Similarity is 1 - distance/maxLen over normalized text.
// Two snippets that normalize to empty are identical.
func Similarity(s1, s2 string) float64 {
	n1, n2 := Normalize(s1), Normalize(s2)
	maxLen := max(len([]rune(n1)), len([]rune(n2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(n1, n2))/float64(maxLen)
}
