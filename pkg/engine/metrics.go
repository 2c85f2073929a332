package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	diffRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdgdiff_runs_total",
		Help: "Number of diff runs",
	}, []string{"strategy", "status"})

	diffDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdgdiff_run_duration_seconds",
		Help:    "Wall-clock time of a diff run",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	}, []string{"strategy"})

	methodPairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdgdiff_method_pairs_total",
		Help: "Methods by outcome: matched, added or removed",
	}, []string{"outcome"})

	budgetExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdgdiff_budget_exhausted_total",
		Help: "Matched pairs whose node search ran out of budget",
	}, []string{"strategy"})

	editOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdgdiff_edit_operations_total",
		Help: "Edit operations emitted after recovery",
	}, []string{"kind"})

	scriptDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdgdiff_edit_distance",
		Help:    "Aggregate edit distance per run",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})
)
