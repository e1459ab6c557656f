package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/jobswipe/backend/internal/services/auth"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/dto"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *swipesvc.Service
}

func NewMatchesHandler(service *swipesvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	skip, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	items, err := h.service.ListMatches(r.Context(), identity.UserID, skip, limit)
	if err != nil {
		writeServiceError(w, err, "failed to load matches")
		return
	}

	responseItems := make([]dto.MatchItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.MatchItemResponse{
			MatchID:       item.ID,
			RecordID:      item.RecordID,
			CounterpartID: item.CounterpartID,
			MatchedAt:     item.MatchedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	deleted, err := h.service.Unmatch(r.Context(), identity.UserID, chi.URLParam(r, "match_id"))
	if err != nil {
		writeServiceError(w, err, "failed to unmatch")
		return
	}
	if !deleted {
		writeNotFound(w, "NOT_FOUND", "match not found or not authorized")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
