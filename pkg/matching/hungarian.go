package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCostMatrix rejects matrices the potentials cannot settle on
var ErrInvalidCostMatrix = errors.New("invalid cost matrix")

// Hungarian solves the minimum-cost perfect assignment on a square cost
// matrix in O(n³) using row/column potentials. It returns assignment[row] =
// column and the total cost of that assignment. Every cost must be finite.
func Hungarian(cost [][]float64) ([]int, float64, error) {
	n := len(cost)
	if n == 0 {
		return nil, 0, nil
	}
	if err := checkCosts(cost); err != nil {
		return nil, 0, err
	}

	// 1-indexed potentials; column 0 is the virtual start
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)   // p[col] = row assigned to col
	way := make([]int, n+1) // previous column on the augmenting path

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path back to the virtual column
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}

	total := 0.0
	for i, j := range assignment {
		total += cost[i][j]
	}
	return assignment, total, nil
}

func checkCosts(cost [][]float64) error {
	for i, row := range cost {
		if len(row) != len(cost) {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), len(cost), ErrInvalidCostMatrix)
		}
		for j, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("cost[%d][%d] = %v: %w", i, j, c, ErrInvalidCostMatrix)
			}
		}
	}
	return nil
}
