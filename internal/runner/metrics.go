package runner

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for run outcomes.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipebench_runner_runs_total",
			Help: "Total number of pipeline process runs by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipebench_runner_run_seconds",
			Help:    "Wall-clock duration of pipeline process runs, in seconds.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	densityTrials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipebench_density_trials_total",
			Help: "Total number of stream counts tried by density sweeps.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(densityTrials)

	// Pre-initialize label combinations so they appear in /metrics with value 0.
	for _, o := range []string{outcomeCompleted, outcomeFailed, outcomeCancelled} {
		runsTotal.WithLabelValues(o)
	}
}
