package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/jobswipe/backend/internal/services/auth"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/dto"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

type JobsHandler struct {
	service *swipesvc.Service
}

func NewJobsHandler(service *swipesvc.Service) *JobsHandler {
	return &JobsHandler{service: service}
}

// Liked lists postings the caller liked.
func (h *JobsHandler) Liked(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	skip, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	items, err := h.service.ListLikedJobs(r.Context(), identity.UserID, skip, limit)
	if err != nil {
		writeServiceError(w, err, "failed to load liked jobs")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeListResponse{Items: mapSwipeRecords(items)})
}

// Likers lists seekers who liked one of the caller's postings.
func (h *JobsHandler) Likers(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	skip, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	items, err := h.service.ListJobLikers(r.Context(), identity.UserID, chi.URLParam(r, "job_id"), skip, limit)
	if err != nil {
		writeServiceError(w, err, "failed to load job likers")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeListResponse{Items: mapSwipeRecords(items)})
}
