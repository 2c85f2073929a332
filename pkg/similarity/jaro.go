// Package similarity provides the string similarity measures used by the
// matchers and the recovery pass. All functions are pure.
package similarity

const (
	winklerScaling   = 0.1
	winklerMaxPrefix = 4
)

// Jaro returns the Jaro similarity of two strings in [0, 1].
// Equal strings score 1; if exactly one is empty the score is 0.
func Jaro(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	window := max(len(r1), len(r2))/2 - 1
	if window < 0 {
		window = 0
	}

	m1 := make([]bool, len(r1))
	m2 := make([]bool, len(r2))

	matches := 0
	for i := range r1 {
		start := max(0, i-window)
		end := min(i+window+1, len(r2))
		for j := start; j < end; j++ {
			if !m2[j] && r1[i] == r2[j] {
				m1[i] = true
				m2[j] = true
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range r1 {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-float64(transpositions))/m) / 3.0
}

// JaroWinkler boosts the Jaro score by the common prefix (at most 4 runes)
func JaroWinkler(s1, s2 string) float64 {
	jaro := Jaro(s1, s2)
	prefix := commonPrefix(s1, s2)
	return jaro + float64(prefix)*winklerScaling*(1-jaro)
}

func commonPrefix(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	limit := min(winklerMaxPrefix, len(r1), len(r2))
	n := 0
	for n < limit && r1[n] == r2[n] {
		n++
	}
	return n
}
