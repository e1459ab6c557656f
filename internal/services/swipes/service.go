package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobswipe/backend/internal/domain/enums"
	"github.com/jobswipe/backend/internal/domain/model"
	pgrepo "github.com/jobswipe/backend/internal/repo/postgres"
)

const (
	StatusSwipeRecorded = "swipe_recorded"
	StatusLikeRecorded  = "like_recorded"
	StatusMatch         = "match"
)

// SwipeStore is the typed set of operations the engine may run against the
// swipe log. Methods run inside the transaction carried by ctx, if any.
type SwipeStore interface {
	Insert(ctx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error)
	LockPair(ctx context.Context, a, b string) error
	MarkMutualMatch(ctx context.Context, actorID, targetID string, at time.Time) (string, int64, error)
	FindMatchID(ctx context.Context, actorID, targetID string) (string, bool, error)
	GetByID(ctx context.Context, id string) (model.SwipeRecord, error)
	ListMatches(ctx context.Context, userID string, skip, limit int) ([]model.Match, error)
	ListHistory(ctx context.Context, actorID string, filter model.HistoryFilter) ([]model.SwipeRecord, error)
	ListLikers(ctx context.Context, targetID string, kind enums.TargetKind, skip, limit int) ([]model.SwipeRecord, error)
	DeleteMatched(ctx context.Context, actorID, targetID string) (bool, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(context.Context) error) error
}

type JobDirectory interface {
	GetPosting(ctx context.Context, jobID string) (model.JobPosting, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, actorID string) (int64, bool, error)
}

type Metrics interface {
	SwipeRecorded(action enums.SwipeAction, kind enums.TargetKind, status string)
	MatchCreated()
	Unmatched()
}

type Config struct {
	MatchesDefaultLimit int
	HistoryDefaultLimit int
	MaxLimit            int
}

type Dependencies struct {
	Tx          TxRunner
	Store       SwipeStore
	Jobs        JobDirectory
	RateLimiter RateLimiter
	Metrics     Metrics
	Logger      *zap.Logger
}

type SwipeInput struct {
	ActorID    string
	TargetID   string
	TargetKind string
	Action     string
}

type SwipeResult struct {
	Status string
	Record model.SwipeRecord
	Match  model.MatchResult
}

type Service struct {
	tx          TxRunner
	store       SwipeStore
	jobs        JobDirectory
	rateLimiter RateLimiter
	metrics     Metrics
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.MatchesDefaultLimit <= 0 {
		cfg.MatchesDefaultLimit = 20
	}
	if cfg.HistoryDefaultLimit <= 0 {
		cfg.HistoryDefaultLimit = 50
	}
	cfg.MatchesDefaultLimit = min(cfg.MatchesDefaultLimit, cfg.MaxLimit)
	cfg.HistoryDefaultLimit = min(cfg.HistoryDefaultLimit, cfg.MaxLimit)

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Service{
		tx:          deps.Tx,
		store:       deps.Store,
		jobs:        deps.Jobs,
		rateLimiter: deps.RateLimiter,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Swipe records the swipe and, for a LIKE on a user, evaluates the match in
// the same transaction while holding the pair lock.
func (s *Service) Swipe(ctx context.Context, in SwipeInput) (SwipeResult, error) {
	rec, err := s.validate(in)
	if err != nil {
		return SwipeResult{}, err
	}
	if err := s.ready(); err != nil {
		return SwipeResult{}, err
	}
	if err := s.allow(ctx, rec.ActorID); err != nil {
		return SwipeResult{}, err
	}
	if err := s.checkTarget(ctx, rec); err != nil {
		return SwipeResult{}, err
	}

	var result SwipeResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		saved, err := s.recordLocked(txCtx, rec)
		if err != nil {
			return err
		}
		result.Record = saved
		result.Match = model.NoMatch()

		if !evaluable(saved) {
			return nil
		}

		match, err := s.evaluateLocked(txCtx, saved.ActorID, saved.TargetID)
		if err != nil {
			return err
		}
		result.Match = match
		if match.IsMatched() {
			result.Record.Matched = true
			result.Record.MatchID = match.MatchID
		}
		return nil
	})
	if err != nil {
		return SwipeResult{}, s.storeError("swipe", err)
	}

	result.Status = swipeStatus(result)
	s.metrics.SwipeRecorded(result.Record.Action, result.Record.TargetKind, result.Status)
	if result.Match.Transitioned {
		s.metrics.MatchCreated()
		s.logger.Info("match created",
			zap.String("match_id", result.Match.MatchID),
			zap.String("actor_id", result.Record.ActorID),
			zap.String("target_id", result.Record.TargetID),
		)
	}

	return result, nil
}

// Record persists a single swipe without evaluating a match.
func (s *Service) Record(ctx context.Context, in SwipeInput) (model.SwipeRecord, error) {
	rec, err := s.validate(in)
	if err != nil {
		return model.SwipeRecord{}, err
	}
	if err := s.ready(); err != nil {
		return model.SwipeRecord{}, err
	}
	if err := s.checkTarget(ctx, rec); err != nil {
		return model.SwipeRecord{}, err
	}

	var saved model.SwipeRecord
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.recordLocked(txCtx, rec)
		return err
	})
	if err != nil {
		return model.SwipeRecord{}, s.storeError("record swipe", err)
	}
	return saved, nil
}

// EvaluateMatch is idempotent: an already matched pair reports MATCHED with
// its existing match id and Transitioned=false.
func (s *Service) EvaluateMatch(ctx context.Context, actorID, targetID string) (model.MatchResult, error) {
	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	if actorID == "" || targetID == "" {
		return model.MatchResult{}, invalid("actor_id and target_id are required")
	}
	if actorID == targetID {
		return model.MatchResult{}, invalid("self-swipe is not allowed")
	}
	if err := s.ready(); err != nil {
		return model.MatchResult{}, err
	}

	var result model.MatchResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.LockPair(txCtx, actorID, targetID); err != nil {
			return err
		}
		var err error
		result, err = s.evaluateLocked(txCtx, actorID, targetID)
		return err
	})
	if err != nil {
		return model.MatchResult{}, s.storeError("evaluate match", err)
	}

	if result.Transitioned {
		s.metrics.MatchCreated()
		s.logger.Info("match created",
			zap.String("match_id", result.MatchID),
			zap.String("actor_id", actorID),
			zap.String("target_id", targetID),
		)
	}
	return result, nil
}

func (s *Service) ListMatches(ctx context.Context, userID string, skip, limit int) ([]model.Match, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id is required")
	}
	skip, limit, err := s.page(skip, limit, s.cfg.MatchesDefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	items, err := s.store.ListMatches(ctx, userID, skip, limit)
	if err != nil {
		return nil, s.storeError("list matches", err)
	}
	return collapseMatches(userID, items), nil
}

func (s *Service) ListHistory(ctx context.Context, userID, action string, skip, limit int) ([]model.SwipeRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id is required")
	}

	filter := model.HistoryFilter{}
	if strings.TrimSpace(action) != "" {
		parsed, ok := enums.ParseSwipeAction(action)
		if !ok {
			return nil, invalid("unsupported action filter")
		}
		filter.Action = parsed
	}

	var err error
	filter.Skip, filter.Limit, err = s.page(skip, limit, s.cfg.HistoryDefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	items, err := s.store.ListHistory(ctx, userID, filter)
	if err != nil {
		return nil, s.storeError("list history", err)
	}
	return items, nil
}

func (s *Service) ListLikedJobs(ctx context.Context, userID string, skip, limit int) ([]model.SwipeRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("user_id is required")
	}
	skip, limit, err := s.page(skip, limit, s.cfg.HistoryDefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	items, err := s.store.ListHistory(ctx, userID, model.HistoryFilter{
		Action:     enums.SwipeActionLike,
		TargetKind: enums.TargetKindJob,
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		return nil, s.storeError("list liked jobs", err)
	}
	return items, nil
}

// ListJobLikers lists seekers who liked a posting. Only the posting's
// employer may read it; anything else looks like a missing posting.
func (s *Service) ListJobLikers(ctx context.Context, ownerID, jobID string, skip, limit int) ([]model.SwipeRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	jobID = strings.TrimSpace(jobID)
	if ownerID == "" || jobID == "" {
		return nil, invalid("owner_id and job_id are required")
	}
	skip, limit, err := s.page(skip, limit, s.cfg.HistoryDefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.jobs == nil {
		return nil, fmt.Errorf("%w: job directory is not configured", ErrStorageUnavailable)
	}

	job, err := s.jobs.GetPosting(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrJobNotFound) {
			return nil, ErrNotFoundOrUnauthorized
		}
		return nil, s.storeError("get job posting", err)
	}
	if job.EmployerID != ownerID {
		return nil, ErrNotFoundOrUnauthorized
	}

	items, err := s.store.ListLikers(ctx, jobID, enums.TargetKindJob, skip, limit)
	if err != nil {
		return nil, s.storeError("list job likers", err)
	}
	return items, nil
}

// Unmatch dissolves the match for both parties by deleting the caller's own
// record of the pair. matchID may name either record of the pair. It returns
// false, not an error, when nothing matched belongs to the caller.
func (s *Service) Unmatch(ctx context.Context, userID, matchID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	matchID = strings.TrimSpace(matchID)
	if userID == "" || matchID == "" {
		return false, invalid("user_id and match_id are required")
	}
	if err := s.ready(); err != nil {
		return false, err
	}

	var (
		deleted       bool
		counterpartID string
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rec, err := s.store.GetByID(txCtx, matchID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrSwipeNotFound) {
				return nil
			}
			return err
		}
		if !rec.Matched {
			return nil
		}
		switch userID {
		case rec.ActorID:
			counterpartID = rec.TargetID
		case rec.TargetID:
			counterpartID = rec.ActorID
		default:
			return nil
		}
		if err := s.store.LockPair(txCtx, userID, counterpartID); err != nil {
			return err
		}
		deleted, err = s.store.DeleteMatched(txCtx, userID, counterpartID)
		return err
	})
	if err != nil {
		return false, s.storeError("unmatch", err)
	}

	if deleted {
		s.metrics.Unmatched()
		s.logger.Info("match dissolved",
			zap.String("match_id", matchID),
			zap.String("user_id", userID),
			zap.String("counterpart_id", counterpartID),
		)
	}
	return deleted, nil
}

func (s *Service) recordLocked(txCtx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error) {
	if rec.TargetKind == enums.TargetKindUser {
		if err := s.store.LockPair(txCtx, rec.ActorID, rec.TargetID); err != nil {
			return model.SwipeRecord{}, err
		}
	}
	return s.store.Insert(txCtx, rec)
}

func (s *Service) evaluateLocked(txCtx context.Context, actorID, targetID string) (model.MatchResult, error) {
	matchID, flipped, err := s.store.MarkMutualMatch(txCtx, actorID, targetID, s.now().UTC())
	if err != nil {
		return model.MatchResult{}, err
	}
	if flipped > 0 {
		return model.MatchResult{Status: model.MatchStatusMatched, MatchID: matchID, Transitioned: true}, nil
	}

	existing, ok, err := s.store.FindMatchID(txCtx, actorID, targetID)
	if err != nil {
		return model.MatchResult{}, err
	}
	if ok {
		return model.MatchResult{Status: model.MatchStatusMatched, MatchID: existing}, nil
	}
	return model.NoMatch(), nil
}

func (s *Service) validate(in SwipeInput) (model.SwipeRecord, error) {
	actorID := strings.TrimSpace(in.ActorID)
	targetID := strings.TrimSpace(in.TargetID)
	if actorID == "" || targetID == "" {
		return model.SwipeRecord{}, invalid("actor_id and target_id are required")
	}
	if actorID == targetID {
		return model.SwipeRecord{}, invalid("self-swipe is not allowed")
	}

	action, ok := enums.ParseSwipeAction(in.Action)
	if !ok {
		return model.SwipeRecord{}, invalid("unsupported action")
	}
	kind, ok := enums.ParseTargetKind(in.TargetKind)
	if !ok {
		return model.SwipeRecord{}, invalid("unsupported target kind")
	}

	return model.SwipeRecord{
		ActorID:    actorID,
		TargetID:   targetID,
		TargetKind: kind,
		Action:     action,
		CreatedAt:  s.now().UTC(),
	}, nil
}

func (s *Service) checkTarget(ctx context.Context, rec model.SwipeRecord) error {
	if rec.TargetKind != enums.TargetKindJob || s.jobs == nil {
		return nil
	}

	job, err := s.jobs.GetPosting(ctx, rec.TargetID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrJobNotFound) {
			return invalid("job posting is not available")
		}
		return s.storeError("get job posting", err)
	}
	if !job.Available(s.now().UTC()) {
		return invalid("job posting is not available")
	}
	if job.EmployerID == rec.ActorID {
		return invalid("employers cannot swipe on their own postings")
	}
	return nil
}

func (s *Service) allow(ctx context.Context, actorID string) error {
	if s.rateLimiter == nil {
		return nil
	}
	retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, actorID)
	if err != nil {
		// The limiter is advisory; a redis outage must not block swipes.
		s.logger.Warn("swipe rate limiter unavailable", zap.String("actor_id", actorID), zap.Error(err))
		return nil
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

func (s *Service) page(skip, limit, fallback int) (int, int, error) {
	if skip < 0 || limit < 0 {
		return 0, 0, invalid("skip and limit must not be negative")
	}
	if limit == 0 {
		limit = fallback
	}
	return skip, min(limit, s.cfg.MaxLimit), nil
}

func (s *Service) ready() error {
	if s.tx == nil || s.store == nil {
		return fmt.Errorf("%w: swipe store is not configured", ErrStorageUnavailable)
	}
	return nil
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrDuplicateSwipe),
		errors.Is(err, ErrNotFoundOrUnauthorized),
		errors.Is(err, ErrStorageUnavailable):
		return err
	case errors.Is(err, pgrepo.ErrUniqueViolation):
		return ErrDuplicateSwipe
	case errors.Is(err, pgrepo.ErrUnavailable):
		s.logger.Error("swipe storage unavailable", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// collapseMatches keeps one entry per pair, using the queried user's own
// record as the canonical side.
func collapseMatches(userID string, items []model.Match) []model.Match {
	out := make([]model.Match, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.CounterpartID == "" || item.CounterpartID == userID {
			continue
		}
		if _, ok := seen[item.CounterpartID]; ok {
			continue
		}
		seen[item.CounterpartID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func evaluable(rec model.SwipeRecord) bool {
	return rec.Action == enums.SwipeActionLike && rec.TargetKind == enums.TargetKindUser
}

func swipeStatus(result SwipeResult) string {
	switch {
	case result.Match.IsMatched():
		return StatusMatch
	case result.Record.Action == enums.SwipeActionLike:
		return StatusLikeRecorded
	default:
		return StatusSwipeRecorded
	}
}

type nopMetrics struct{}

func (nopMetrics) SwipeRecorded(enums.SwipeAction, enums.TargetKind, string) {}
func (nopMetrics) MatchCreated()                                           {}
func (nopMetrics) Unmatched()                                              {}
