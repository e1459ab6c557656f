package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jobswipe/backend/internal/infra/metrics"
	authsvc "github.com/jobswipe/backend/internal/services/auth"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	httperrors "github.com/jobswipe/backend/internal/transport/http/errors"
	"github.com/jobswipe/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	SwipeService *swipesvc.Service
	JWTManager   *authsvc.JWTManager
	Metrics      *metrics.Collector
	Postgres     handlers.Pinger
	Logger       *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Postgres)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.SwipeService)
	historyHandler := handlers.NewHistoryHandler(deps.SwipeService)
	jobsHandler := handlers.NewJobsHandler(deps.SwipeService)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Post("/swipes", swipeHandler.Handle)
		r.Get("/history", historyHandler.List)
		r.Get("/matches", matchesHandler.List)
		r.Delete("/matches/{match_id}", matchesHandler.Unmatch)
		r.Get("/jobs/liked", jobsHandler.Liked)
		r.Get("/jobs/{job_id}/likers", jobsHandler.Likers)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "NOT_FOUND",
			Message: "route not found",
		})
	})
}
