package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBatchSize = 500
	maxBatchesPerRun = 20
)

type OrphanCleaner interface {
	ClearOrphanMatches(ctx context.Context, batchSize int) (int64, error)
}

type Metrics interface {
	OrphansCleared(n int64)
}

// Job resets matched records whose mirror record was removed out of band,
// so both sides of a pair agree on the matched flag again.
type Job struct {
	cleaner   OrphanCleaner
	metrics   Metrics
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func New(cleaner OrphanCleaner, batchSize int, metrics Metrics, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		cleaner:   cleaner,
		metrics:   metrics,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Run clears orphans batch by batch until a batch comes back short.
func (j *Job) Run(ctx context.Context) (int64, error) {
	if j.cleaner == nil {
		return 0, nil
	}

	started := j.now()
	var total int64
	for i := 0; i < maxBatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		cleared, err := j.cleaner.ClearOrphanMatches(ctx, j.batchSize)
		if err != nil {
			return total, fmt.Errorf("clear orphan matches: %w", err)
		}
		total += cleared
		if j.metrics != nil {
			j.metrics.OrphansCleared(cleared)
		}
		if cleared < int64(j.batchSize) {
			break
		}
	}

	if total > 0 {
		j.logger.Info("orphan matches reconciled",
			zap.Int64("cleared", total),
			zap.Duration("took", j.now().Sub(started)),
		)
	}
	return total, nil
}
