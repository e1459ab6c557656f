package handlers

import (
	"net/http"

	authsvc "github.com/jobswipe/backend/internal/services/auth"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/dto"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

type HistoryHandler struct {
	service *swipesvc.Service
}

func NewHistoryHandler(service *swipesvc.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
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

	items, err := h.service.ListHistory(r.Context(), identity.UserID, r.URL.Query().Get("action"), skip, limit)
	if err != nil {
		writeServiceError(w, err, "failed to load swipe history")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeListResponse{Items: mapSwipeRecords(items)})
}
