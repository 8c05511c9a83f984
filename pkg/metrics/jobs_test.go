package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestJobMetricsRecordRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	metrics.ObserveRun("snapshot-purge", 50*time.Millisecond, nil)
	metrics.ObserveRun("snapshot-purge", 10*time.Millisecond, errors.New("db down"))
	metrics.AddRowsDeleted("snapshot-purge", 7)
	metrics.AddRowsDeleted("snapshot-purge", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_job_runs_total", "result", "error"); err != nil {
		t.Fatalf("fetch failed runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one failed run, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_job_rows_deleted_total", "job", "snapshot-purge"); err != nil {
		t.Fatalf("fetch rows: %v", err)
	} else if got != 7 {
		t.Fatalf("expected 7 rows, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cart_job_duration_seconds", "job", "snapshot-purge"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilJobMetricsAreNoops(t *testing.T) {
	var metrics *JobMetrics
	metrics.ObserveRun("job", time.Second, nil)
	metrics.AddRowsDeleted("job", 1)
}
