package jobx

import "github.com/prometheus/client_golang/prometheus"

var (
	taskRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobx_task_runs_total",
		Help: "Periodic task runs, by task and outcome.",
	}, []string{"task", "outcome"})

	taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobx_task_duration_seconds",
		Help:    "Periodic task run latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
)

// RegisterMetrics registers the scheduler collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(taskRuns, taskDuration)
}
