package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pitchdata/footystats/external/apifootball"
	"github.com/pitchdata/footystats/internal/config"
	"github.com/pitchdata/footystats/internal/infrastructure/repository/postgres"
	"github.com/pitchdata/footystats/internal/platform/logging"
	"github.com/pitchdata/footystats/internal/platform/metrics"
	"github.com/pitchdata/footystats/internal/platform/resilience"
	"github.com/pitchdata/footystats/internal/usecase"
)

const dbPingTimeout = 5 * time.Second

// App owns the worker's wired dependencies.
type App struct {
	Config    config.Config
	Logger    *logging.Logger
	DB        *sqlx.DB
	Metrics   *metrics.Metrics
	Scheduler *usecase.Scheduler

	metricsServer *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New(cfg.ServiceName)
	matchRepo := postgres.NewMatchRepository(db)
	leagueRepo := postgres.NewLeagueRepository(db)

	client := apifootball.NewClient(apifootball.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.FootballAPITimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:    cfg.FootballAPIBaseURL,
		APIKey:     cfg.FootballAPIKey,
		MaxRetries: cfg.FootballAPIMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FootballAPICircuitEnabled,
			FailureThreshold: cfg.FootballAPICircuitFailureCount,
			OpenTimeout:      cfg.FootballAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FootballAPICircuitHalfOpenReq,
		},
	})

	stats := usecase.NewStatsService(matchRepo, logger)
	ingestion := usecase.NewIngestionService(client, matchRepo, leagueRepo, stats, usecase.IngestionConfig{
		AllowedLeagueIDs:   cfg.LeagueAllowlist,
		PastWindowMonths:   cfg.PastWindowMonths,
		FutureWindowMonths: cfg.FutureWindowMonths,
	}, m, logger)
	transition := usecase.NewTransitionService(client, matchRepo, leagueRepo, stats, cfg.TransitionWorkers, m, logger)

	scheduler, err := usecase.NewScheduler(ingestion, transition, usecase.SchedulerConfig{
		IngestOnStartup: cfg.IngestOnStartup,
		TransitionRunAt: cfg.TransitionRunAt,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	application := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Metrics:   m,
		Scheduler: scheduler,
	}

	if cfg.MetricsEnabled {
		application.metricsServer = startMetricsServer(cfg, m, logger)
	}

	return application, nil
}

// Run blocks on the scheduler until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	return a.Scheduler.Run(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func startMetricsServer(cfg config.Config, m *metrics.Metrics, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}
