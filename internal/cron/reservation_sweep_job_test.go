package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/harborwell/stockroom-backend/pkg/logger"
)

type fakeReleaser struct {
	batches []int
	calls   int
	err     error
}

func (f *fakeReleaser) ReleaseExpired(_ context.Context, batchSize int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	released := f.batches[f.calls]
	f.calls++
	return released, nil
}

func newSweepJob(t *testing.T, releaser *fakeReleaser, batchSize int) Job {
	t.Helper()
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Reservations: releaser,
		BatchSize:    batchSize,
	})
	if err != nil {
		t.Fatalf("NewReservationSweepJob: %v", err)
	}
	return job
}

func TestReservationSweepDrainsBacklog(t *testing.T) {
	// two full batches then a short one; the job keeps going until short
	releaser := &fakeReleaser{batches: []int{5, 5, 2}}
	job := newSweepJob(t, releaser, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if releaser.calls != 3 {
		t.Fatalf("expected 3 sweep calls, got %d", releaser.calls)
	}
}

func TestReservationSweepStopsOnShortBatch(t *testing.T) {
	releaser := &fakeReleaser{batches: []int{0}}
	job := newSweepJob(t, releaser, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if releaser.calls > 1 {
		t.Fatalf("expected single sweep call, got %d", releaser.calls)
	}
}

func TestReservationSweepPropagatesError(t *testing.T) {
	releaser := &fakeReleaser{err: errors.New("db down")}
	job := newSweepJob(t, releaser, 5)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReservationSweepJobName(t *testing.T) {
	job := newSweepJob(t, &fakeReleaser{}, 0)
	if job.Name() != "reservation-sweep" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}
