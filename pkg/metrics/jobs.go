package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records janitor job runs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

// NewJobMetrics registers the janitor metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_job_duration_seconds",
		Help:    "Duration of cart janitor jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_job_runs_total",
		Help: "Cart janitor job runs by result.",
	}, []string{"job", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_job_rows_deleted_total",
		Help: "Rows deleted by cart janitor jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &JobMetrics{duration: duration, runs: runs, rows: rows}
}

// ObserveRun records one run of the named job.
func (j *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if j == nil || j.duration == nil {
		return
	}
	job = normalizeLabel(job)
	j.duration.WithLabelValues(job).Observe(duration.Seconds())
	j.runs.WithLabelValues(job, resultLabel(err)).Inc()
}

// AddRowsDeleted counts rows removed by the named job.
func (j *JobMetrics) AddRowsDeleted(job string, n int64) {
	if j == nil || j.rows == nil || n <= 0 {
		return
	}
	j.rows.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
