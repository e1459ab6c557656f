package swipes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jobswipe/backend/internal/domain/enums"
	"github.com/jobswipe/backend/internal/domain/model"
	pgrepo "github.com/jobswipe/backend/internal/repo/postgres"
	"github.com/jobswipe/backend/internal/services/swipes/swipestest"
)

type rateLimiterStub struct {
	allowed    bool
	retryAfter int64
	err        error
	calls      int
}

func (s *rateLimiterStub) AllowSwipe(context.Context, string) (int64, bool, error) {
	s.calls++
	return s.retryAfter, s.allowed, s.err
}

type metricsStub struct {
	mu        sync.Mutex
	swipes    map[string]int
	matches   int
	unmatches int
}

func (m *metricsStub) SwipeRecorded(_ enums.SwipeAction, _ enums.TargetKind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.swipes == nil {
		m.swipes = map[string]int{}
	}
	m.swipes[status]++
}

func (m *metricsStub) MatchCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches++
}

func (m *metricsStub) Unmatched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmatches++
}

func newTestService(t *testing.T) (*Service, *swipestest.Store, *metricsStub) {
	t.Helper()

	store := swipestest.NewStore()
	metrics := &metricsStub{}
	svc := NewService(Dependencies{
		Tx:      store,
		Store:   store,
		Jobs:    store,
		Metrics: metrics,
	}, Config{MatchesDefaultLimit: 20, HistoryDefaultLimit: 50, MaxLimit: 100})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, metrics
}

func like(actor, target string) SwipeInput {
	return SwipeInput{ActorID: actor, TargetID: target, Action: "like"}
}

func TestSwipePassIsRecordedWithoutMatch(t *testing.T) {
	svc, store, metrics := newTestService(t)

	res, err := svc.Swipe(context.Background(), SwipeInput{ActorID: "u1", TargetID: "u2", Action: "PASS"})
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if res.Status != StatusSwipeRecorded {
		t.Fatalf("expected %s, got %s", StatusSwipeRecorded, res.Status)
	}
	if res.Match.IsMatched() || res.Record.Matched {
		t.Fatalf("pass must never match: %+v", res)
	}
	if res.Record.Action != enums.SwipeActionPass || res.Record.TargetKind != enums.TargetKindUser {
		t.Fatalf("unexpected record: %+v", res.Record)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", store.Len())
	}
	if metrics.swipes[StatusSwipeRecorded] != 1 {
		t.Fatalf("expected swipe metric, got %+v", metrics.swipes)
	}
}

func TestSwipeOneSidedLikeIsNoMatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Swipe(context.Background(), like("u1", "u2"))
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if res.Status != StatusLikeRecorded {
		t.Fatalf("expected %s, got %s", StatusLikeRecorded, res.Status)
	}
	if res.Match.Status != model.MatchStatusNoMatch {
		t.Fatalf("expected NO_MATCH, got %s", res.Match.Status)
	}
}

func TestSwipeMutualLikeCreatesSingleMatch(t *testing.T) {
	svc, store, metrics := newTestService(t)
	ctx := context.Background()

	first, err := svc.Swipe(ctx, like("u1", "u2"))
	if err != nil {
		t.Fatalf("first swipe: %v", err)
	}
	second, err := svc.Swipe(ctx, like("u2", "u1"))
	if err != nil {
		t.Fatalf("second swipe: %v", err)
	}

	if second.Status != StatusMatch || !second.Match.Transitioned {
		t.Fatalf("expected transition to match, got %+v", second)
	}
	if second.Match.MatchID != first.Record.ID {
		t.Fatalf("match id must be the first liker's record id: %s vs %s", second.Match.MatchID, first.Record.ID)
	}

	a, err := store.GetByPair(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("get u1 record: %v", err)
	}
	b, err := store.GetByPair(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("get u2 record: %v", err)
	}
	if !a.Matched || !b.Matched {
		t.Fatalf("both records must be matched: %+v %+v", a, b)
	}
	if a.MatchID != b.MatchID || a.MatchID != first.Record.ID {
		t.Fatalf("records disagree on match id: %q %q", a.MatchID, b.MatchID)
	}
	if metrics.matches != 1 {
		t.Fatalf("expected 1 match metric, got %d", metrics.matches)
	}
}

func TestEvaluateMatchIsIdempotent(t *testing.T) {
	svc, _, metrics := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("u1", "u2")); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	created, err := svc.Swipe(ctx, like("u2", "u1"))
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		res, err := svc.EvaluateMatch(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("evaluate %v: %v", pair, err)
		}
		if !res.IsMatched() || res.Transitioned {
			t.Fatalf("expected existing match without transition, got %+v", res)
		}
		if res.MatchID != created.Match.MatchID {
			t.Fatalf("expected match id %s, got %s", created.Match.MatchID, res.MatchID)
		}
	}
	if metrics.matches != 1 {
		t.Fatalf("re-evaluation must not count a new match, got %d", metrics.matches)
	}
}

func TestEvaluateMatchWithoutMirrorLike(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("u1", "u2")); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	res, err := svc.Swipe(ctx, SwipeInput{ActorID: "u2", TargetID: "u1", Action: "pass"})
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if res.Match.IsMatched() {
		t.Fatalf("like against pass must not match")
	}

	eval, err := svc.EvaluateMatch(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Status != model.MatchStatusNoMatch {
		t.Fatalf("expected NO_MATCH, got %+v", eval)
	}

	eval, err = svc.EvaluateMatch(ctx, "u3", "u4")
	if err != nil {
		t.Fatalf("evaluate unknown pair: %v", err)
	}
	if eval.Status != model.MatchStatusNoMatch {
		t.Fatalf("expected NO_MATCH for unknown pair, got %+v", eval)
	}
}

func TestSwipeRejectsDuplicate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("u1", "u2")); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	_, err := svc.Swipe(ctx, SwipeInput{ActorID: "u1", TargetID: "u2", Action: "pass"})
	if !errors.Is(err, ErrDuplicateSwipe) {
		t.Fatalf("expected ErrDuplicateSwipe, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("duplicate must not be stored, got %d records", store.Len())
	}
}

func TestSwipeValidation(t *testing.T) {
	svc, store, _ := newTestService(t)

	cases := []SwipeInput{
		{ActorID: "", TargetID: "u2", Action: "like"},
		{ActorID: "u1", TargetID: "  ", Action: "like"},
		{ActorID: "u1", TargetID: "u1", Action: "like"},
		{ActorID: "u1", TargetID: "u2", Action: "superlike"},
		{ActorID: "u1", TargetID: "u2", Action: "like", TargetKind: "COMPANY"},
	}
	for _, in := range cases {
		if _, err := svc.Swipe(context.Background(), in); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation for %+v, got %v", in, err)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("invalid swipes must not be stored")
	}
}

func TestSwipeJobTargets(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.AddJob(model.JobPosting{ID: "job-1", EmployerID: "emp-1", IsActive: true})
	store.AddJob(model.JobPosting{ID: "job-2", EmployerID: "emp-1", IsActive: false})
	store.AddJob(model.JobPosting{ID: "job-3", EmployerID: "emp-1", IsActive: true, ExpiresAt: &past})

	res, err := svc.Swipe(ctx, SwipeInput{ActorID: "seeker", TargetID: "job-1", TargetKind: "job", Action: "like"})
	if err != nil {
		t.Fatalf("like job: %v", err)
	}
	if res.Match.IsMatched() || res.Status != StatusLikeRecorded {
		t.Fatalf("job likes never match: %+v", res)
	}

	for _, in := range []SwipeInput{
		{ActorID: "seeker", TargetID: "job-2", TargetKind: "JOB", Action: "like"},
		{ActorID: "seeker", TargetID: "job-3", TargetKind: "JOB", Action: "like"},
		{ActorID: "seeker", TargetID: "job-404", TargetKind: "JOB", Action: "like"},
		{ActorID: "emp-1", TargetID: "job-1", TargetKind: "JOB", Action: "like"},
	} {
		if _, err := svc.Swipe(ctx, in); !errors.Is(err, ErrInvalidOperation) {
			t.Fatalf("expected ErrInvalidOperation for %+v, got %v", in, err)
		}
	}

	liked, err := svc.ListLikedJobs(ctx, "seeker", 0, 0)
	if err != nil {
		t.Fatalf("list liked jobs: %v", err)
	}
	if len(liked) != 1 || liked[0].TargetID != "job-1" {
		t.Fatalf("unexpected liked jobs: %+v", liked)
	}
}

func TestListJobLikersOwnerOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.AddJob(model.JobPosting{ID: "job-1", EmployerID: "emp-1", IsActive: true})

	for _, seeker := range []string{"s1", "s2"} {
		if _, err := svc.Swipe(ctx, SwipeInput{ActorID: seeker, TargetID: "job-1", TargetKind: "JOB", Action: "like"}); err != nil {
			t.Fatalf("like: %v", err)
		}
	}
	if _, err := svc.Swipe(ctx, SwipeInput{ActorID: "s3", TargetID: "job-1", TargetKind: "JOB", Action: "pass"}); err != nil {
		t.Fatalf("pass: %v", err)
	}

	likers, err := svc.ListJobLikers(ctx, "emp-1", "job-1", 0, 0)
	if err != nil {
		t.Fatalf("list likers: %v", err)
	}
	if len(likers) != 2 || likers[0].ActorID != "s2" || likers[1].ActorID != "s1" {
		t.Fatalf("unexpected likers: %+v", likers)
	}

	if _, err := svc.ListJobLikers(ctx, "emp-2", "job-1", 0, 0); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected ErrNotFoundOrUnauthorized for stranger, got %v", err)
	}
	if _, err := svc.ListJobLikers(ctx, "emp-1", "job-404", 0, 0); !errors.Is(err, ErrNotFoundOrUnauthorized) {
		t.Fatalf("expected ErrNotFoundOrUnauthorized for missing job, got %v", err)
	}
}

func TestListMatchesOnePerPairWithPaging(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		other := fmt.Sprintf("p%d", i)
		if _, err := svc.Swipe(ctx, like("me", other)); err != nil {
			t.Fatalf("swipe: %v", err)
		}
		if _, err := svc.Swipe(ctx, like(other, "me")); err != nil {
			t.Fatalf("swipe: %v", err)
		}
	}
	if _, err := svc.Swipe(ctx, like("me", "lonely")); err != nil {
		t.Fatalf("swipe: %v", err)
	}

	all, err := svc.ListMatches(ctx, "me", 0, 0)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 matches, got %d: %+v", len(all), all)
	}
	seen := map[string]bool{}
	for _, m := range all {
		if seen[m.CounterpartID] {
			t.Fatalf("pair listed twice: %s", m.CounterpartID)
		}
		seen[m.CounterpartID] = true
	}

	page, err := svc.ListMatches(ctx, "me", 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].CounterpartID != all[1].CounterpartID {
		t.Fatalf("unexpected page: %+v", page)
	}

	other, err := svc.ListMatches(ctx, "p2", 0, 0)
	if err != nil {
		t.Fatalf("list counterpart matches: %v", err)
	}
	if len(other) != 1 || other[0].CounterpartID != "me" {
		t.Fatalf("unexpected counterpart matches: %+v", other)
	}

	if _, err := svc.ListMatches(ctx, "me", -1, 10); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for negative skip, got %v", err)
	}
}

func TestListHistoryFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	inputs := []SwipeInput{
		like("me", "a"),
		{ActorID: "me", TargetID: "b", Action: "pass"},
		like("me", "c"),
		like("x", "me"),
	}
	for _, in := range inputs {
		if _, err := svc.Swipe(ctx, in); err != nil {
			t.Fatalf("swipe %+v: %v", in, err)
		}
	}

	all, err := svc.ListHistory(ctx, "me", "", 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 || all[0].TargetID != "c" || all[2].TargetID != "a" {
		t.Fatalf("expected newest first own swipes, got %+v", all)
	}

	likes, err := svc.ListHistory(ctx, "me", "like", 0, 0)
	if err != nil {
		t.Fatalf("history likes: %v", err)
	}
	if len(likes) != 2 {
		t.Fatalf("expected 2 likes, got %d", len(likes))
	}

	passes, err := svc.ListHistory(ctx, "me", "PASS", 0, 1)
	if err != nil {
		t.Fatalf("history passes: %v", err)
	}
	if len(passes) != 1 || passes[0].TargetID != "b" {
		t.Fatalf("unexpected passes: %+v", passes)
	}

	if _, err := svc.ListHistory(ctx, "me", "maybe", 0, 0); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for bad filter, got %v", err)
	}
}

func TestUnmatchDissolvesForBothSides(t *testing.T) {
	svc, store, metrics := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("u1", "u2")); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	res, err := svc.Swipe(ctx, like("u2", "u1"))
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}

	if ok, err := svc.Unmatch(ctx, "stranger", res.Match.MatchID); err != nil || ok {
		t.Fatalf("stranger unmatch must be rejected, got %v %v", ok, err)
	}

	ok, err := svc.Unmatch(ctx, "u2", res.Match.MatchID)
	if err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if !ok {
		t.Fatalf("expected unmatch to succeed")
	}

	for _, user := range []string{"u1", "u2"} {
		items, err := svc.ListMatches(ctx, user, 0, 0)
		if err != nil {
			t.Fatalf("list matches: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("expected no matches for %s, got %+v", user, items)
		}
	}

	if _, err := store.GetByPair(ctx, "u2", "u1"); !errors.Is(err, pgrepo.ErrSwipeNotFound) {
		t.Fatalf("caller's own record must be deleted, got %v", err)
	}
	rest, err := store.GetByPair(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("counterpart record must survive: %v", err)
	}
	if rest.Matched || rest.MatchID != "" || rest.MatchedAt != nil {
		t.Fatalf("counterpart record must be cleared: %+v", rest)
	}

	if ok, err := svc.Unmatch(ctx, "u2", res.Match.MatchID); err != nil || ok {
		t.Fatalf("second unmatch must report false, got %v %v", ok, err)
	}
	if ok, err := svc.Unmatch(ctx, "u1", "missing"); err != nil || ok {
		t.Fatalf("unknown id must report false, got %v %v", ok, err)
	}
	if _, err := svc.Unmatch(ctx, "u1", ""); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for empty id, got %v", err)
	}
	if metrics.unmatches != 1 {
		t.Fatalf("expected 1 unmatch metric, got %d", metrics.unmatches)
	}
}

func TestUnmatchBySecondLikerCannotBeUndoneByCounterpart(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("a", "b")); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if _, err := svc.Swipe(ctx, like("b", "a")); err != nil {
		t.Fatalf("swipe: %v", err)
	}

	items, err := svc.ListMatches(ctx, "b", 0, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one match for b, got %+v %v", items, err)
	}
	if ok, err := svc.Unmatch(ctx, "b", items[0].ID); err != nil || !ok {
		t.Fatalf("unmatch: %v %v", ok, err)
	}

	if _, err := store.GetByPair(ctx, "b", "a"); !errors.Is(err, pgrepo.ErrSwipeNotFound) {
		t.Fatalf("b's own record must be deleted, got %v", err)
	}
	if _, err := svc.Swipe(ctx, like("a", "b")); !errors.Is(err, ErrDuplicateSwipe) {
		t.Fatalf("a still owns its like, expected ErrDuplicateSwipe, got %v", err)
	}
	result, err := svc.EvaluateMatch(ctx, "a", "b")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.IsMatched() {
		t.Fatalf("a must not rebuild the match alone: %+v", result)
	}
	for _, user := range []string{"a", "b"} {
		items, err := svc.ListMatches(ctx, user, 0, 0)
		if err != nil || len(items) != 0 {
			t.Fatalf("expected no matches for %s, got %+v %v", user, items, err)
		}
	}
}

func TestUnmatchAcceptsOwnRecordID(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Swipe(ctx, like("a", "b"))
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if _, err := svc.Swipe(ctx, like("b", "a")); err != nil {
		t.Fatalf("swipe: %v", err)
	}

	if ok, err := svc.Unmatch(ctx, "a", first.Record.ID); err != nil || !ok {
		t.Fatalf("unmatch: %v %v", ok, err)
	}
	if _, err := store.GetByPair(ctx, "a", "b"); !errors.Is(err, pgrepo.ErrSwipeNotFound) {
		t.Fatalf("a's record must be deleted, got %v", err)
	}
	rest, err := store.GetByPair(ctx, "b", "a")
	if err != nil || rest.Matched {
		t.Fatalf("b's like must remain unmatched: %+v %v", rest, err)
	}
}

func TestSwipeSameIDAcrossTargetKinds(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.AddJob(model.JobPosting{ID: "x1", EmployerID: "emp", IsActive: true})

	if _, err := svc.Swipe(ctx, like("u1", "x1")); err != nil {
		t.Fatalf("user swipe: %v", err)
	}
	if _, err := svc.Swipe(ctx, SwipeInput{ActorID: "u1", TargetID: "x1", TargetKind: "job", Action: "like"}); err != nil {
		t.Fatalf("job swipe with a colliding id must not be a duplicate: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", store.Len())
	}
}

func TestListMatchesToleratesMissingMatchedAt(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.Put(model.SwipeRecord{ID: swipestest.ID(1), ActorID: "u1", TargetID: "u2", TargetKind: enums.TargetKindUser, Action: enums.SwipeActionLike, Matched: true, MatchID: swipestest.ID(1)})
	store.Put(model.SwipeRecord{ID: swipestest.ID(2), ActorID: "u2", TargetID: "u1", TargetKind: enums.TargetKindUser, Action: enums.SwipeActionLike, Matched: true, MatchID: swipestest.ID(1)})

	items, err := svc.ListMatches(context.Background(), "u1", 0, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one match, got %+v %v", items, err)
	}
}

func TestUnmatchRejectsUnmatchedRecord(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Swipe(ctx, like("u1", "u2"))
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if ok, err := svc.Unmatch(ctx, "u1", rec.Record.ID); err != nil || ok {
		t.Fatalf("plain like cannot be unmatched, got %v %v", ok, err)
	}
}

func TestConcurrentMutualLikesMatchExactlyOnce(t *testing.T) {
	svc, _, metrics := newTestService(t)
	ctx := context.Background()
	const pairs = 40

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions = map[int]int{}
		ids         = map[int]map[string]struct{}{}
	)
	for i := 0; i < pairs; i++ {
		a, b := fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)
		for _, in := range []SwipeInput{like(a, b), like(b, a)} {
			wg.Add(1)
			go func(pair int, in SwipeInput) {
				defer wg.Done()
				res, err := svc.Swipe(ctx, in)
				if err != nil {
					t.Errorf("swipe %+v: %v", in, err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if res.Match.Transitioned {
					transitions[pair]++
				}
				if res.Match.IsMatched() {
					if ids[pair] == nil {
						ids[pair] = map[string]struct{}{}
					}
					ids[pair][res.Match.MatchID] = struct{}{}
				}
			}(i, in)
		}
	}
	wg.Wait()

	for i := 0; i < pairs; i++ {
		if transitions[i] != 1 {
			t.Fatalf("pair %d transitioned %d times", i, transitions[i])
		}
		if len(ids[i]) != 1 {
			t.Fatalf("pair %d reported %d match ids", i, len(ids[i]))
		}
	}
	if metrics.matches != pairs {
		t.Fatalf("expected %d match metrics, got %d", pairs, metrics.matches)
	}
}

func TestSwipeRateLimited(t *testing.T) {
	svc, store, _ := newTestService(t)
	limiter := &rateLimiterStub{allowed: false, retryAfter: 7}
	svc.rateLimiter = limiter

	_, err := svc.Swipe(context.Background(), like("u1", "u2"))
	tooFast, ok := IsTooFast(err)
	if !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tooFast.RetryAfter() != 7 {
		t.Fatalf("expected retry after 7, got %d", tooFast.RetryAfter())
	}
	if store.Len() != 0 {
		t.Fatalf("rate limited swipe must not be stored")
	}

	limiter.allowed = true
	limiter.err = errors.New("redis down")
	if _, err := svc.Swipe(context.Background(), like("u1", "u2")); err != nil {
		t.Fatalf("limiter failure must not block swipes: %v", err)
	}
}

func TestStorageUnavailable(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.Fail = fmt.Errorf("dial: %w", pgrepo.ErrUnavailable)
	ctx := context.Background()

	if _, err := svc.Swipe(ctx, like("u1", "u2")); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("swipe: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := svc.ListMatches(ctx, "u1", 0, 0); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("list matches: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := svc.ListHistory(ctx, "u1", "", 0, 0); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("history: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := svc.Unmatch(ctx, "u1", "m1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("unmatch: expected ErrStorageUnavailable, got %v", err)
	}
}

func TestRecordDoesNotEvaluate(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Record(ctx, like("u1", "u2")); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec, err := svc.Record(ctx, like("u2", "u1"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Matched {
		t.Fatalf("record alone must not match")
	}

	res, err := svc.EvaluateMatch(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Transitioned {
		t.Fatalf("expected deferred evaluation to transition: %+v", res)
	}
	first, _ := store.GetByPair(ctx, "u1", "u2")
	if res.MatchID != first.ID {
		t.Fatalf("expected canonical id %s, got %s", first.ID, res.MatchID)
	}
}
