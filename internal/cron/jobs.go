package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartd/pkg/logger"
)

const (
	snapshotPurgeJobName  = "snapshot-purge"
	abandonedRowsJobName  = "abandoned-guest-rows"
	defaultGuestRetention = 30 * 24 * time.Hour
)

type rowsMetrics interface {
	AddRowsDeleted(job string, n int64)
}

// SnapshotPurgeFunc deletes cart snapshots that expired before now.
type SnapshotPurgeFunc func(ctx context.Context, now time.Time) (int64, error)

// NewSnapshotPurgeJob removes expired database-store carts.
func NewSnapshotPurgeJob(logg *logger.Logger, purge SnapshotPurgeFunc, metrics rowsMetrics) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if purge == nil {
		return nil, fmt.Errorf("purge func required")
	}
	return &snapshotPurgeJob{logg: logg, purge: purge, metrics: metrics, now: time.Now}, nil
}

type snapshotPurgeJob struct {
	logg    *logger.Logger
	purge   SnapshotPurgeFunc
	metrics rowsMetrics
	now     func() time.Time
}

func (j *snapshotPurgeJob) Name() string { return snapshotPurgeJobName }

func (j *snapshotPurgeJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.purge(ctx, now)
	if err != nil {
		return fmt.Errorf("purge cart snapshots: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddRowsDeleted(j.Name(), deleted)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"now":          now,
		"rows_deleted": deleted,
	}), "cart snapshot purge complete")
	return nil
}

type abandonedRowsRepo interface {
	DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAbandonedRowsJob removes guest cart rows untouched for longer than retention.
func NewAbandonedRowsJob(logg *logger.Logger, repo abandonedRowsRepo, retention time.Duration, metrics rowsMetrics) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart item repository required")
	}
	if retention <= 0 {
		retention = defaultGuestRetention
	}
	return &abandonedRowsJob{logg: logg, repo: repo, retention: retention, metrics: metrics, now: time.Now}, nil
}

type abandonedRowsJob struct {
	logg      *logger.Logger
	repo      abandonedRowsRepo
	retention time.Duration
	metrics   rowsMetrics
	now       func() time.Time
}

func (j *abandonedRowsJob) Name() string { return abandonedRowsJobName }

func (j *abandonedRowsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteAnonymousBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete abandoned guest rows: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddRowsDeleted(j.Name(), deleted)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "abandoned guest rows removed")
	return nil
}
