package handlers

import (
	"net/http"

	"github.com/jobswipe/backend/internal/pkg/validate"
	authsvc "github.com/jobswipe/backend/internal/services/auth"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/dto"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.service.Swipe(r.Context(), swipesvc.SwipeInput{
		ActorID:    identity.UserID,
		TargetID:   req.TargetID,
		TargetKind: req.TargetKind,
		Action:     req.Action,
	})
	if err != nil {
		writeServiceError(w, err, "failed to process swipe")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.SwipeResponse{
		Status:     result.Status,
		SwipeID:    result.Record.ID,
		TargetID:   result.Record.TargetID,
		TargetKind: string(result.Record.TargetKind),
		Action:     string(result.Record.Action),
		MatchID:    result.Match.MatchID,
	})
}
