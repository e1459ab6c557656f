package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobswipe/backend/internal/config"
	"github.com/jobswipe/backend/internal/infra/metrics"
	"github.com/jobswipe/backend/internal/jobs/reconcile"
	pgrepo "github.com/jobswipe/backend/internal/repo/postgres"
	redrepo "github.com/jobswipe/backend/internal/repo/redis"
	authsvc "github.com/jobswipe/backend/internal/services/auth"
	ratesvc "github.com/jobswipe/backend/internal/services/rate"
	swipesvc "github.com/jobswipe/backend/internal/services/swipes"
	"github.com/jobswipe/backend/internal/transport/http/handlers"
	"github.com/jobswipe/backend/migrations"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	scheduler  *reconcile.Scheduler
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	collector := metrics.New()
	r := chi.NewRouter()
	ApplyMiddlewares(r, log, MiddlewareOptions{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        collector,
	})

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	if pool != nil && cfg.Postgres.ApplyMigrations {
		if err := applyMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateLimiter := ratesvc.NewSwipeLimiter(
		redrepo.NewRateRepo(redisClient),
		cfg.Swipes.RatePerMinute,
		cfg.Swipes.RatePer10Sec,
	)
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	swipeDeps := swipesvc.Dependencies{
		RateLimiter: rateLimiter,
		Metrics:     collector,
		Logger:      log.Named("swipes"),
	}
	var (
		health    handlers.Pinger
		scheduler *reconcile.Scheduler
	)
	if pool != nil {
		swipeRepo := pgrepo.NewSwipeRepo(pool)
		swipeDeps.Tx = pgrepo.NewTxManager(pool)
		swipeDeps.Store = swipeRepo
		swipeDeps.Jobs = pgrepo.NewJobRepo(pool)
		health = pool

		if cfg.Reconcile.Schedule != "" {
			job := reconcile.New(swipeRepo, cfg.Reconcile.BatchSize, collector, log.Named("reconcile"))
			s, err := reconcile.NewScheduler(job, cfg.Reconcile.Schedule, 0, log.Named("reconcile"))
			if err != nil {
				pool.Close()
				_ = redisClient.Close()
				return nil, err
			}
			scheduler = s
		}
	}

	swipeService := swipesvc.NewService(swipeDeps, swipesvc.Config{
		MatchesDefaultLimit: cfg.Swipes.MatchesDefaultLimit,
		HistoryDefaultLimit: cfg.Swipes.HistoryDefaultLimit,
		MaxLimit:            cfg.Swipes.MaxLimit,
	})

	RegisterRoutes(r, Dependencies{
		SwipeService: swipeService,
		JWTManager:   jwtManager,
		Metrics:      collector,
		Postgres:     health,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		scheduler:  scheduler,
		httpRouter: r,
	}, nil
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("postgres migrations applied", zap.Int("applied", applied))
	return nil
}

func (a *App) Run() error {
	if a.scheduler != nil {
		a.scheduler.Start()
		a.logger.Info("reconcile scheduler started", zap.String("schedule", a.cfg.Reconcile.Schedule))
	}

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
