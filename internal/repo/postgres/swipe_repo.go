package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobswipe/backend/internal/domain/enums"
	"github.com/jobswipe/backend/internal/domain/model"
)

var ErrSwipeNotFound = errors.New("swipe not found")

const swipeColumns = "id, actor_id, target_id, target_kind, action, created_at, matched, match_id, matched_at"

const defaultPageLimit = 100

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type SwipeRepo struct {
	db Querier
}

func NewSwipeRepo(db Querier) *SwipeRepo {
	return &SwipeRepo{db: db}
}

// Insert relies on swipes_actor_kind_target_uidx to reject a second swipe
// for the same (actor, target kind, target).
func (r *SwipeRepo) Insert(ctx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error) {
	if strings.TrimSpace(rec.ActorID) == "" || strings.TrimSpace(rec.TargetID) == "" || rec.Action == "" {
		return model.SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.TargetKind == "" {
		rec.TargetKind = enums.TargetKindUser
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := querierFromCtx(ctx, r.db).QueryRow(ctx, `
INSERT INTO swipes (
	id,
	actor_id,
	target_id,
	target_kind,
	action,
	created_at,
	matched
) VALUES ($1, $2, $3, $4, $5, $6, FALSE)
RETURNING `+swipeColumns,
		rec.ID,
		rec.ActorID,
		rec.TargetID,
		string(rec.TargetKind),
		string(rec.Action),
		rec.CreatedAt.UTC(),
	)

	out, err := scanSwipe(row)
	if err != nil {
		return model.SwipeRecord{}, fmt.Errorf("insert swipe: %w", mapError(err))
	}
	return out, nil
}

// LockPair serializes every writer of the unordered pair {a, b} until the
// surrounding transaction ends.
func (r *SwipeRepo) LockPair(ctx context.Context, a, b string) error {
	tx, ok := txFromCtx(ctx)
	if !ok {
		return ErrNotInTx
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, PairKey(a, b)); err != nil {
		return fmt.Errorf("lock swipe pair: %w", mapError(err))
	}
	return nil
}

// MarkMutualMatch flips matched on both LIKE records of the pair in one
// statement. Nothing changes unless both directions are LIKEs; the earliest
// LIKE's id becomes the shared match id. Returns the number of rows flipped.
func (r *SwipeRepo) MarkMutualMatch(ctx context.Context, actorID, targetID string, at time.Time) (string, int64, error) {
	if actorID == "" || targetID == "" {
		return "", 0, fmt.Errorf("invalid match payload")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, `
WITH likes AS (
	SELECT id, created_at
	FROM swipes
	WHERE
		((actor_id = $1 AND target_id = $2) OR (actor_id = $2 AND target_id = $1))
		AND action = 'LIKE'
		AND target_kind = 'USER'
), canonical AS (
	SELECT id
	FROM likes
	ORDER BY created_at, id
	LIMIT 1
)
UPDATE swipes
SET
	matched = TRUE,
	match_id = canonical.id,
	matched_at = $3
FROM canonical
WHERE
	swipes.id IN (SELECT id FROM likes)
	AND swipes.matched = FALSE
	AND (SELECT COUNT(*) FROM likes) = 2
RETURNING swipes.match_id
`, actorID, targetID, at.UTC())
	if err != nil {
		return "", 0, fmt.Errorf("mark mutual match: %w", mapError(err))
	}
	defer rows.Close()

	var (
		matchID string
		flipped int64
	)
	for rows.Next() {
		if err := rows.Scan(&matchID); err != nil {
			return "", 0, fmt.Errorf("scan mutual match: %w", err)
		}
		flipped++
	}
	if err := rows.Err(); err != nil {
		return "", 0, fmt.Errorf("iterate mutual match: %w", mapError(err))
	}

	return matchID, flipped, nil
}

// FindMatchID returns the match id stored on actor's record when it is matched.
func (r *SwipeRepo) FindMatchID(ctx context.Context, actorID, targetID string) (string, bool, error) {
	var matchID *string
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, `
SELECT match_id
FROM swipes
WHERE actor_id = $1 AND target_id = $2 AND target_kind = 'USER' AND matched = TRUE
`, actorID, targetID).Scan(&matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find match id: %w", mapError(err))
	}
	if matchID == nil {
		return "", false, nil
	}
	return *matchID, true, nil
}

func (r *SwipeRepo) GetByID(ctx context.Context, id string) (model.SwipeRecord, error) {
	if strings.TrimSpace(id) == "" {
		return model.SwipeRecord{}, ErrSwipeNotFound
	}

	row := querierFromCtx(ctx, r.db).QueryRow(ctx, `
SELECT `+swipeColumns+`
FROM swipes
WHERE id = $1
`, id)
	rec, err := scanSwipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipeRecord{}, ErrSwipeNotFound
		}
		return model.SwipeRecord{}, fmt.Errorf("get swipe: %w", mapError(err))
	}
	return rec, nil
}

// GetByPair returns actor's user-targeted record for the pair.
func (r *SwipeRepo) GetByPair(ctx context.Context, actorID, targetID string) (model.SwipeRecord, error) {
	row := querierFromCtx(ctx, r.db).QueryRow(ctx, `
SELECT `+swipeColumns+`
FROM swipes
WHERE actor_id = $1 AND target_id = $2 AND target_kind = 'USER'
`, actorID, targetID)
	rec, err := scanSwipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipeRecord{}, ErrSwipeNotFound
		}
		return model.SwipeRecord{}, fmt.Errorf("get swipe by pair: %w", mapError(err))
	}
	return rec, nil
}

// ListMatches reads only the user's own matched records, so each pair
// yields exactly one row and skip/limit count pairs.
func (r *SwipeRepo) ListMatches(ctx context.Context, userID string, skip, limit int) ([]model.Match, error) {
	query, args, err := psql.
		Select("id", "target_id", "match_id", "matched_at").
		From("swipes").
		Where(sq.Eq{"actor_id": userID, "matched": true}).
		OrderBy("matched_at DESC", "id DESC").
		Offset(uint64(max(skip, 0))).
		Limit(uint64(pageLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", mapError(err))
	}
	defer rows.Close()

	items := make([]model.Match, 0, pageLimit(limit))
	for rows.Next() {
		var (
			item      model.Match
			matchID   *string
			matchedAt *time.Time
		)
		if err := rows.Scan(&item.RecordID, &item.CounterpartID, &matchID, &matchedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		item.ID = item.RecordID
		if matchID != nil && *matchID != "" {
			item.ID = *matchID
		}
		if matchedAt != nil {
			item.MatchedAt = matchedAt.UTC()
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", mapError(err))
	}

	return items, nil
}

func (r *SwipeRepo) ListHistory(ctx context.Context, actorID string, filter model.HistoryFilter) ([]model.SwipeRecord, error) {
	where := sq.Eq{"actor_id": actorID}
	if filter.Action != "" {
		where["action"] = string(filter.Action)
	}
	if filter.TargetKind != "" {
		where["target_kind"] = string(filter.TargetKind)
	}

	return r.list(ctx, where, filter.Skip, filter.Limit, "list swipe history")
}

// ListLikers returns LIKE records pointing at target, newest first.
func (r *SwipeRepo) ListLikers(ctx context.Context, targetID string, kind enums.TargetKind, skip, limit int) ([]model.SwipeRecord, error) {
	where := sq.Eq{
		"target_id":   targetID,
		"target_kind": string(kind),
		"action":      string(enums.SwipeActionLike),
	}
	return r.list(ctx, where, skip, limit, "list likers")
}

func (r *SwipeRepo) list(ctx context.Context, where sq.Eq, skip, limit int, op string) ([]model.SwipeRecord, error) {
	query, args, err := psql.
		Select(swipeColumns).
		From("swipes").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Offset(uint64(max(skip, 0))).
		Limit(uint64(pageLimit(limit))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	rows, err := querierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	items := make([]model.SwipeRecord, 0, pageLimit(limit))
	for rows.Next() {
		rec, err := scanSwipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, mapError(err))
	}

	return items, nil
}

// DeleteMatched removes actorID's own matched record towards targetID and,
// in the same statement, clears the mirror's match flag. Only the caller's
// side is ever deleted; the counterpart keeps an unmatched LIKE.
func (r *SwipeRepo) DeleteMatched(ctx context.Context, actorID, targetID string) (bool, error) {
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" {
		return false, nil
	}

	var removed, cleared int64
	err := querierFromCtx(ctx, r.db).QueryRow(ctx, `
WITH removed AS (
	DELETE FROM swipes
	WHERE actor_id = $1
		AND target_id = $2
		AND target_kind = 'USER'
		AND matched = TRUE
	RETURNING actor_id, target_id
), cleared AS (
	UPDATE swipes s
	SET
		matched = FALSE,
		match_id = NULL,
		matched_at = NULL
	FROM removed r
	WHERE s.actor_id = r.target_id
		AND s.target_id = r.actor_id
		AND s.target_kind = 'USER'
	RETURNING s.id
)
SELECT
	(SELECT COUNT(*) FROM removed),
	(SELECT COUNT(*) FROM cleared)
`, actorID, targetID).Scan(&removed, &cleared)
	if err != nil {
		return false, fmt.Errorf("delete matched swipe: %w", mapError(err))
	}

	return removed > 0, nil
}

// ClearOrphanMatches resets matched records whose mirror is gone or no
// longer matched. Rows locked by a concurrent writer are skipped.
func (r *SwipeRepo) ClearOrphanMatches(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	result, err := querierFromCtx(ctx, r.db).Exec(ctx, `
WITH orphans AS (
	SELECT s.id
	FROM swipes s
	WHERE s.matched = TRUE
		AND NOT EXISTS (
			SELECT 1
			FROM swipes m
			WHERE m.actor_id = s.target_id
				AND m.target_id = s.actor_id
				AND m.target_kind = 'USER'
				AND m.action = 'LIKE'
				AND m.matched = TRUE
		)
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
UPDATE swipes
SET
	matched = FALSE,
	match_id = NULL,
	matched_at = NULL
WHERE id IN (SELECT id FROM orphans)
`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("clear orphan matches: %w", mapError(err))
	}

	return result.RowsAffected(), nil
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	return limit
}

// PairKey is order-independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + "|" + b
}

func scanSwipe(row pgx.Row) (model.SwipeRecord, error) {
	var (
		rec        model.SwipeRecord
		targetKind string
		action     string
		matchID    *string
		matchedAt  *time.Time
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ActorID,
		&rec.TargetID,
		&targetKind,
		&action,
		&rec.CreatedAt,
		&rec.Matched,
		&matchID,
		&matchedAt,
	); err != nil {
		return model.SwipeRecord{}, err
	}

	rec.TargetKind = enums.TargetKind(targetKind)
	rec.Action = enums.SwipeAction(action)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if matchID != nil {
		rec.MatchID = *matchID
	}
	if matchedAt != nil {
		t := matchedAt.UTC()
		rec.MatchedAt = &t
	}
	return rec, nil
}
