package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jobswipe/backend/internal/domain/model"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/dto"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

const maxBodyBytes = 16 << 10

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeServiceError maps swipe service errors to their HTTP status.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, swipesvc.ErrInvalidOperation):
		writeBadRequest(w, "INVALID_OPERATION", err.Error())
	case errors.Is(err, swipesvc.ErrDuplicateSwipe):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "DUPLICATE_SWIPE",
			Message: "target was already swiped",
		})
	case errors.Is(err, swipesvc.ErrNotFoundOrUnauthorized):
		writeNotFound(w, "NOT_FOUND", "not found or not authorized")
	case errors.Is(err, swipesvc.ErrStorageUnavailable):
		httperrors.WriteRetryable(w, http.StatusServiceUnavailable, 1, httperrors.APIError{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "storage is temporarily unavailable, retry later",
		})
	default:
		if tf, ok := swipesvc.IsTooFast(err); ok {
			httperrors.WriteRetryable(w, http.StatusTooManyRequests, tf.RetryAfter(), httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "too many swipes, slow down",
				RetryAfterSec: tf.RetryAfter(),
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

// parsePage reads skip and limit; a missing limit is returned as 0 so the
// service applies its own default.
func parsePage(r *http.Request) (int, int, error) {
	skip, err := parseNonNegative(r.URL.Query().Get("skip"))
	if err != nil {
		return 0, 0, fmt.Errorf("skip: %w", err)
	}
	limit, err := parseNonNegative(r.URL.Query().Get("limit"))
	if err != nil {
		return 0, 0, fmt.Errorf("limit: %w", err)
	}
	return skip, limit, nil
}

func parseNonNegative(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return value, nil
}

func mapSwipeRecords(items []model.SwipeRecord) []dto.SwipeRecordResponse {
	out := make([]dto.SwipeRecordResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.SwipeRecordResponse{
			ID:         item.ID,
			ActorID:    item.ActorID,
			TargetID:   item.TargetID,
			TargetKind: string(item.TargetKind),
			Action:     string(item.Action),
			CreatedAt:  item.CreatedAt,
			Matched:    item.Matched,
			MatchID:    item.MatchID,
			MatchedAt:  item.MatchedAt,
		})
	}
	return out
}
