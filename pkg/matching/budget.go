package matching

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted marks a match that stopped early and carries a partial mapping
var ErrBudgetExhausted = errors.New("search budget exhausted")

// Budget bounds the backtracking searches. Zero fields mean unlimited.
type Budget struct {
	// MaxExpansions limits the number of search states explored
	MaxExpansions int

	// Timeout is the wall-clock limit for a single node-level match
	Timeout time.Duration
}

// DefaultBudget returns the budget used when none is configured
func DefaultBudget() Budget {
	return Budget{
		MaxExpansions: 1_000_000,
		Timeout:       5 * time.Second,
	}
}

// checkInterval is how many expansions pass between clock and context checks
const checkInterval = 256

// budgetTracker counts expansions for one search
type budgetTracker struct {
	ctx        context.Context
	max        int
	deadline   time.Time
	expansions int
	exhausted  bool
}

func (b Budget) start(ctx context.Context) *budgetTracker {
	t := &budgetTracker{ctx: ctx, max: b.MaxExpansions}
	if b.Timeout > 0 {
		t.deadline = time.Now().Add(b.Timeout)
	}
	if ctx.Err() != nil {
		t.exhausted = true
	}
	return t
}

// spend records one expansion and reports whether the search may continue
func (t *budgetTracker) spend() bool {
	if t.exhausted {
		return false
	}
	t.expansions++

	if t.max > 0 && t.expansions > t.max {
		t.exhausted = true
		return false
	}

	if t.expansions%checkInterval == 0 {
		if t.ctx.Err() != nil {
			t.exhausted = true
			return false
		}
		if !t.deadline.IsZero() && time.Now().After(t.deadline) {
			t.exhausted = true
			return false
		}
	}
	return true
}
