// Package swipestest provides an in-memory swipe store that mirrors the
// postgres repository semantics, including transactional pair locks.
package swipestest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobswipe/backend/internal/domain/enums"
	"github.com/jobswipe/backend/internal/domain/model"
	pgrepo "github.com/jobswipe/backend/internal/repo/postgres"
)

type txKey struct{}

type txState struct {
	locked   []*sync.Mutex
	inserted []string
}

type Store struct {
	mu      sync.Mutex
	records map[string]model.SwipeRecord
	order   []string
	seq     int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	jobs map[string]model.JobPosting

	// Fail, when set, is returned by every store call.
	Fail error
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]model.SwipeRecord),
		locks:   make(map[string]*sync.Mutex),
		jobs:    make(map[string]model.JobPosting),
	}
}

// RunInTx releases pair locks when fn returns and drops inserted records on error.
func (s *Store) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.Fail != nil {
		return s.Fail
	}
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := fn(context.WithValue(ctx, txKey{}, state))

	if err != nil {
		s.mu.Lock()
		for _, id := range state.inserted {
			delete(s.records, id)
		}
		s.mu.Unlock()
	}
	for i := len(state.locked) - 1; i >= 0; i-- {
		state.locked[i].Unlock()
	}
	return err
}

func (s *Store) LockPair(ctx context.Context, a, b string) error {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return pgrepo.ErrNotInTx
	}
	if s.Fail != nil {
		return s.Fail
	}

	key := pgrepo.PairKey(a, b)
	s.locksMu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	state.locked = append(state.locked, lock)
	return nil
}

func (s *Store) Insert(ctx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error) {
	if s.Fail != nil {
		return model.SwipeRecord{}, s.Fail
	}
	if rec.TargetKind == "" {
		rec.TargetKind = enums.TargetKindUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.ActorID == rec.ActorID && existing.TargetID == rec.TargetID && existing.TargetKind == rec.TargetKind {
			return model.SwipeRecord{}, pgrepo.ErrUniqueViolation
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.seq++
	// Keep created_at strictly increasing so ordering is deterministic.
	rec.CreatedAt = rec.CreatedAt.Add(time.Duration(s.seq) * time.Microsecond)

	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.inserted = append(state.inserted, rec.ID)
	}
	return rec, nil
}

func (s *Store) MarkMutualMatch(_ context.Context, actorID, targetID string, at time.Time) (string, int64, error) {
	if s.Fail != nil {
		return "", 0, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mirror, ok := s.findLocked(targetID, actorID)
	if !ok || !isUserLike(mirror) {
		return "", 0, nil
	}
	own, ok := s.findLocked(actorID, targetID)
	if !ok || !isUserLike(own) {
		return "", 0, nil
	}

	canonical := mirror
	if own.CreatedAt.Before(mirror.CreatedAt) || (own.CreatedAt.Equal(mirror.CreatedAt) && own.ID < mirror.ID) {
		canonical = own
	}

	var flipped int64
	for _, rec := range []model.SwipeRecord{own, mirror} {
		if rec.Matched {
			continue
		}
		stamp := at
		rec.Matched = true
		rec.MatchID = canonical.ID
		rec.MatchedAt = &stamp
		s.records[rec.ID] = rec
		flipped++
	}
	if flipped == 0 {
		return "", 0, nil
	}
	return canonical.ID, flipped, nil
}

func (s *Store) FindMatchID(_ context.Context, actorID, targetID string) (string, bool, error) {
	if s.Fail != nil {
		return "", false, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	own, ok := s.findLocked(actorID, targetID)
	if !ok || !own.Matched {
		return "", false, nil
	}
	return own.MatchID, true, nil
}

func (s *Store) GetByID(_ context.Context, id string) (model.SwipeRecord, error) {
	if s.Fail != nil {
		return model.SwipeRecord{}, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.SwipeRecord{}, pgrepo.ErrSwipeNotFound
	}
	return rec, nil
}

func (s *Store) GetByPair(_ context.Context, actorID, targetID string) (model.SwipeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.findLocked(actorID, targetID)
	if !ok {
		return model.SwipeRecord{}, pgrepo.ErrSwipeNotFound
	}
	return rec, nil
}

func (s *Store) ListMatches(_ context.Context, userID string, skip, limit int) ([]model.Match, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.SwipeRecord, 0)
	for _, rec := range s.records {
		if rec.ActorID == userID && rec.Matched {
			items = append(items, rec)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		ti, tj := matchedAt(items[i]), matchedAt(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].ID > items[j].ID
	})

	out := make([]model.Match, 0, len(items))
	for _, rec := range window(items, skip, limit) {
		id := rec.MatchID
		if id == "" {
			id = rec.ID
		}
		out = append(out, model.Match{
			ID:            id,
			RecordID:      rec.ID,
			CounterpartID: rec.TargetID,
			MatchedAt:     matchedAt(rec),
		})
	}
	return out, nil
}

func (s *Store) ListHistory(_ context.Context, actorID string, filter model.HistoryFilter) ([]model.SwipeRecord, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	return s.list(func(rec model.SwipeRecord) bool {
		if rec.ActorID != actorID {
			return false
		}
		if filter.Action != "" && rec.Action != filter.Action {
			return false
		}
		return filter.TargetKind == "" || rec.TargetKind == filter.TargetKind
	}, filter.Skip, filter.Limit), nil
}

func (s *Store) ListLikers(_ context.Context, targetID string, kind enums.TargetKind, skip, limit int) ([]model.SwipeRecord, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	return s.list(func(rec model.SwipeRecord) bool {
		return rec.TargetID == targetID && rec.TargetKind == kind && rec.Action == enums.SwipeActionLike
	}, skip, limit), nil
}

func (s *Store) DeleteMatched(_ context.Context, actorID, targetID string) (bool, error) {
	if s.Fail != nil {
		return false, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	own, ok := s.findLocked(actorID, targetID)
	if !ok || !own.Matched {
		return false, nil
	}
	delete(s.records, own.ID)

	if mirror, ok := s.findLocked(targetID, actorID); ok && mirror.Matched {
		mirror.Matched = false
		mirror.MatchID = ""
		mirror.MatchedAt = nil
		s.records[mirror.ID] = mirror
	}
	return true, nil
}

func (s *Store) ClearOrphanMatches(_ context.Context, batchSize int) (int64, error) {
	if s.Fail != nil {
		return 0, s.Fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for _, id := range s.order {
		if batchSize > 0 && cleared >= int64(batchSize) {
			break
		}
		rec, ok := s.records[id]
		if !ok || !rec.Matched {
			continue
		}
		if mirror, ok := s.findLocked(rec.TargetID, rec.ActorID); ok && mirror.Matched {
			continue
		}
		rec.Matched = false
		rec.MatchID = ""
		rec.MatchedAt = nil
		s.records[id] = rec
		cleared++
	}
	return cleared, nil
}

// Put stores rec as is, bypassing validation; tests use it to seed
// inconsistent states.
func (s *Store) Put(rec model.SwipeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) AddJob(job model.JobPosting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *Store) GetPosting(_ context.Context, jobID string) (model.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return model.JobPosting{}, pgrepo.ErrJobNotFound
	}
	return job, nil
}

// findLocked looks up actor's user-targeted record for the pair.
func (s *Store) findLocked(actorID, targetID string) (model.SwipeRecord, bool) {
	for _, rec := range s.records {
		if rec.ActorID == actorID && rec.TargetID == targetID && rec.TargetKind == enums.TargetKindUser {
			return rec, true
		}
	}
	return model.SwipeRecord{}, false
}

func (s *Store) list(keep func(model.SwipeRecord) bool, skip, limit int) []model.SwipeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.SwipeRecord, 0)
	for _, rec := range s.records {
		if keep(rec) {
			items = append(items, rec)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return window(items, skip, limit)
}

func window[T any](items []T, skip, limit int) []T {
	if limit <= 0 {
		limit = 100
	}
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}

// ID returns a stable record id for seeding, e.g. ID(1) -> "rec-000001".
func ID(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 6 {
		s = "0" + s
	}
	return "rec-" + s
}

// matchedAt tolerates matched records seeded through Put without a timestamp.
func matchedAt(rec model.SwipeRecord) time.Time {
	if rec.MatchedAt == nil {
		return time.Time{}
	}
	return *rec.MatchedAt
}

func isUserLike(rec model.SwipeRecord) bool {
	return rec.Action == enums.SwipeActionLike && rec.TargetKind == enums.TargetKindUser
}
