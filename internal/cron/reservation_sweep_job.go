package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/harborwell/stockroom-backend/pkg/logger"
)

const defaultSweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiredReleaser interface {
	ReleaseExpired(ctx context.Context, batchSize int) (int, error)
}

// ReservationSweepJobParams configure the expired hold sweep.
type ReservationSweepJobParams struct {
	Logger       *logger.Logger
	Reservations expiredReleaser
	BatchSize    int
}

// NewReservationSweepJob builds the cron job that expires abandoned holds and
// returns their stock to the sellable pool.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &reservationSweepJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		batchSize:    batchSize,
	}, nil
}

type reservationSweepJob struct {
	logg         *logger.Logger
	reservations expiredReleaser
	batchSize    int
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

// Run drains expired holds in batches until a batch comes back short, so a
// backlog after downtime clears in one cycle instead of one batch per cycle.
func (j *reservationSweepJob) Run(ctx context.Context) error {
	total := 0
	for {
		released, err := j.reservations.ReleaseExpired(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("reservation sweep: %w", err)
		}
		total += released
		if released < j.batchSize {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released":   total,
		"batch_size": j.batchSize,
	})
	j.logg.Info(logCtx, "reservation sweep complete")
	return nil
}
