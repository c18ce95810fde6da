package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maxidea1024/gatrix-sub012/internal/app"
	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/confirm"
	"github.com/maxidea1024/gatrix-sub012/internal/console"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/observability"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/cache"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/db"
	"github.com/maxidea1024/gatrix-sub012/internal/prefs"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/resources/banners"
	"github.com/maxidea1024/gatrix-sub012/internal/resources/flags"
	"github.com/maxidea1024/gatrix-sub012/internal/resources/notices"
	"github.com/maxidea1024/gatrix-sub012/internal/resources/surveys"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/timesync"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
	"github.com/maxidea1024/gatrix-sub012/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "gatrix_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	profiles := shared.NewProfileManager(cfg.ProfileTTL, cfg.IsProduction())

	catalog, err := resources.DefaultCatalog()
	if err != nil {
		logger.Error("load list catalog", slog.Any("error", err))
		os.Exit(1)
	}
	nav, err := console.CatalogNav(catalog, flags.List, banners.List, notices.List, surveys.List)
	if err != nil {
		logger.Error("build navigation", slog.Any("error", err))
		os.Exit(1)
	}
	templates, err := view.NewEngine(view.Config{Nav: nav})
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	clock := timesync.NewService(timesync.BackendSource{Client: backendClient}, cfg.TimeSyncInterval, logger)
	if err := clock.Start(ctx); err != nil {
		logger.Error("start time sync", slog.Any("error", err))
		os.Exit(1)
	}
	defer clock.Stop()

	metrics := observability.NewMetrics()
	deps := console.Deps{
		Logger:      logger,
		Templates:   templates,
		CSRF:        csrfManager,
		Catalog:     catalog,
		Store:       prefs.NewRedisStore(redisClient, cfg.PrefsTTL),
		Confirm:     confirm.NewRegistry(cfg.ConfirmTTL),
		Validator:   entityform.NewValidator(),
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Audit:       shared.NewAuditLogger(dbpool),
		Metrics:     metrics,
		Debounce:    cfg.ListSearchDebounce,
		ViewTTL:     cfg.ListViewTTL,
	}

	modules, err := buildModules(deps, backendClient, catalog, clock)
	if err != nil {
		logger.Error("build resource modules", slog.Any("error", err))
		os.Exit(1)
	}
	hub := console.NewHub(deps, 0, modules...)
	if err := hub.Start(ctx); err != nil {
		logger.Error("start console hub", slog.Any("error", err))
		os.Exit(1)
	}
	defer hub.Stop()

	redisOpts := jobs.RedisOpt(cfg.RedisOptions())
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Profiles:       profiles,
		Hub:            hub,
		JobHandler:     jobs.NewHandler(inspector, jobsClient, logger),
		Clock:          clock,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func buildModules(deps console.Deps, client *backend.Client, cat *resources.Catalog, clock timesync.Clock) ([]console.Module, error) {
	flagRes, err := flags.New(client, cat)
	if err != nil {
		return nil, err
	}
	bannerRes, err := banners.New(client, cat, clock)
	if err != nil {
		return nil, err
	}
	noticeRes, err := notices.New(client, cat, clock)
	if err != nil {
		return nil, err
	}
	surveyRes, err := surveys.New(client, cat)
	if err != nil {
		return nil, err
	}

	flagHandler, err := console.NewHandler[flags.Flag](deps, flagRes)
	if err != nil {
		return nil, err
	}
	bannerHandler, err := console.NewHandler[banners.Banner](deps, bannerRes)
	if err != nil {
		return nil, err
	}
	noticeHandler, err := console.NewHandler[notices.Notice](deps, noticeRes)
	if err != nil {
		return nil, err
	}
	surveyHandler, err := console.NewHandler[surveys.Survey](deps, surveyRes)
	if err != nil {
		return nil, err
	}
	return []console.Module{flagHandler, bannerHandler, noticeHandler, surveyHandler}, nil
}
