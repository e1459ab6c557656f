package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/jobswipe/backend/internal/domain/enums"
	"github.com/jobswipe/backend/internal/domain/model"
	"github.com/jobswipe/backend/internal/services/swipes/swipestest"
)

type cleanerStub struct {
	batches []int64
	calls   int
	err     error
}

func (s *cleanerStub) ClearOrphanMatches(_ context.Context, _ int) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.calls >= len(s.batches) {
		return 0, nil
	}
	n := s.batches[s.calls]
	s.calls++
	return n, nil
}

type metricsStub struct {
	total int64
}

func (m *metricsStub) OrphansCleared(n int64) {
	m.total += n
}

func TestRunLoopsUntilShortBatch(t *testing.T) {
	cleaner := &cleanerStub{batches: []int64{2, 2, 1, 2}}
	metrics := &metricsStub{}
	job := New(cleaner, 2, metrics, nil)

	total, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if total != 5 || cleaner.calls != 3 {
		t.Fatalf("expected 5 cleared in 3 batches, got %d in %d", total, cleaner.calls)
	}
	if metrics.total != 5 {
		t.Fatalf("expected metrics to see 5, got %d", metrics.total)
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	job := New(&cleanerStub{err: errors.New("db down")}, 10, nil, nil)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := New(&cleanerStub{batches: []int64{1}}, 10, nil, nil)
	if _, err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunResetsOrphanedRecord(t *testing.T) {
	store := swipestest.NewStore()
	store.Put(model.SwipeRecord{
		ID: swipestest.ID(1), ActorID: "u1", TargetID: "u2",
		TargetKind: enums.TargetKindUser, Action: enums.SwipeActionLike,
		Matched: true, MatchID: swipestest.ID(1),
	})

	total, err := New(store, 0, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 orphan cleared, got %d", total)
	}

	rec, err := store.GetByID(context.Background(), swipestest.ID(1))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Matched || rec.MatchID != "" {
		t.Fatalf("expected record to be reset: %+v", rec)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	job := New(&cleanerStub{}, 10, nil, nil)
	if _, err := NewScheduler(job, "not a schedule", 0, nil); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
	s, err := NewScheduler(job, "@every 1h", 0, nil)
	if err != nil {
		t.Fatalf("valid spec: %v", err)
	}
	s.tick()
}
