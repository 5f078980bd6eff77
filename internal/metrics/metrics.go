// Package metrics holds the prometheus collectors for spill and balancing work.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Spill codec
	SpillRecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "spill",
		Name:      "records_written_total",
		Help:      "Total contact records written to spill files",
	})

	SpillFilesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "spill",
		Name:      "files_created_total",
		Help:      "Total spill files created",
	}, []string{"compression"})

	SpillRecordsRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "spill",
		Name:      "records_read_total",
		Help:      "Total contact records replayed from spill files",
	})

	SpillReadFaults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "spill",
		Name:      "read_faults_total",
		Help:      "Spill replays that ended on an I/O or format fault instead of end of file",
	})

	// Balancer
	BalanceIterations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "balance",
		Name:      "iterations_total",
		Help:      "Total scaling iterations across all balancing runs",
	})

	BalanceEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "balance",
		Name:      "escalations_total",
		Help:      "Total exclusion severity escalations after stalled convergence",
	})

	BalanceRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hicnorm",
		Subsystem: "balance",
		Name:      "restarts_total",
		Help:      "Total escalations that restarted the scaling vector from the initial row sums",
	})

	BalanceExcludedBins = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hicnorm",
		Subsystem: "balance",
		Name:      "excluded_bins",
		Help:      "Bins excluded by the most recent balancing run",
	})

	BalanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hicnorm",
		Subsystem: "balance",
		Name:      "run_duration_seconds",
		Help:      "Balancing run duration",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	})
)
