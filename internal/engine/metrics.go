package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/pipebench/internal/model"
)

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipebench_jobs_submitted_total",
			Help: "Total number of test jobs submitted.",
		},
		[]string{"kind"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipebench_jobs_finished_total",
			Help: "Total number of test jobs that reached a terminal state.",
		},
		[]string{"kind", "state"},
	)

	jobsRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipebench_jobs_running",
			Help: "Number of test jobs currently running.",
		},
		[]string{"kind"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipebench_job_duration_seconds",
			Help:    "Duration of finished test jobs, in seconds.",
			Buckets: []float64{1, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted, jobsFinished, jobsRunning, jobDuration)

	for _, k := range []model.JobKind{model.KindPerformance, model.KindDensity} {
		jobsSubmitted.WithLabelValues(string(k))
		jobsRunning.WithLabelValues(string(k))
		for _, s := range []model.JobState{model.StateCompleted, model.StateError, model.StateAborted} {
			jobsFinished.WithLabelValues(string(k), string(s))
		}
	}
}
