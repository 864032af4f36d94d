// Package metrics holds the Prometheus collectors exported on the metrics port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RankingComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "admissions",
		Name:      "ranking_computations_total",
		Help:      "TOPSIS ranking computations by outcome.",
	}, []string{"outcome"})

	RankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "admissions",
		Name:      "ranking_duration_seconds",
		Help:      "Time to load inputs and compute a period ranking.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	RankingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "admissions",
		Name:      "ranking_cache_total",
		Help:      "Ranking cache lookups by result.",
	}, []string{"result"})

	RankedCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "admissions",
		Name:      "ranked_candidates",
		Help:      "Number of candidates per ranking computation.",
		Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	CandidatesImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "admissions",
		Name:      "candidates_imported_total",
		Help:      "Candidates stored through spreadsheet import.",
	})

	ImportRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "admissions",
		Name:      "import_rejected_total",
		Help:      "Spreadsheet imports rejected by validation.",
	})
)
