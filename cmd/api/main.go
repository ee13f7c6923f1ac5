package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/access"
	httptransport "github.com/studio-ops/studio-erp/internal/api/http"
	"github.com/studio-ops/studio-erp/internal/api/http/handlers"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/config"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/line"
	"github.com/studio-ops/studio-erp/internal/observability"
	"github.com/studio-ops/studio-erp/internal/persistence"
	"github.com/studio-ops/studio-erp/internal/repository"
	"github.com/studio-ops/studio-erp/internal/service"
	"github.com/studio-ops/studio-erp/internal/session"
	"github.com/studio-ops/studio-erp/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table, err := access.LoadTable(cfg.Access.PolicyFile)
	if err != nil {
		logger.Fatal("invalid access policy", zap.String("file", cfg.Access.PolicyFile), zap.Error(err))
	}
	logger.Info("access policy loaded", zap.Any("policy", table.Snapshot()))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	pool := pg.PoolHandle()
	staffRepo := repository.NewStaffRepository(pool)
	sessionStore := repository.NewSessionStore(redis.Client, cfg.Redis.KeyPrefix)
	surveyRepo := repository.NewSurveyRepository(pool)
	lineGroupRepo := repository.NewLineGroupRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger.Named("events"))
	resolver := session.NewResolver(staffRepo, logger.Named("resolver"))
	dispatcher.Subscribe(events.EventStaffChanged, func(_ context.Context, ev events.Event) error {
		resolver.Invalidate(ev.Email)
		return nil
	})

	providerLogger := logger.Named("session")
	registry, err := session.NewRegistry(cfg.Session.RegistrySize, func(sessionID string) *session.Provider {
		source := auth.NewSessionSource(sessionID, sessionStore, dispatcher, providerLogger)
		p := session.NewProvider(source, resolver,
			session.WithLogger(providerLogger.With(zap.String("session_id", sessionID))),
			session.WithRecorder(metrics),
		)
		p.Start(ctx)
		return p
	})
	if err != nil {
		logger.Fatal("failed to build session registry", zap.Error(err))
	}
	defer registry.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		StaffRepo:    staffRepo,
		SessionStore: sessionStore,
		Dispatcher:   dispatcher,
		Releaser:     registry,
		Logger:       logger.Named("auth"),
	})
	staffService := service.NewStaffService(staffRepo, dispatcher, cfg.Auth.BcryptCost, logger.Named("staff"))
	surveyService := service.NewSurveyService(surveyRepo)
	lineClient := line.NewClient(cfg.Line.APIBaseURL, cfg.Line.ChannelAccessToken, cfg.Line.RequestTimeout)
	lineService := service.NewLineService(cfg.Line.ChannelSecret, lineGroupRepo, logger.Named("line"))
	notificationService := service.NewNotificationService(dispatcher, lineClient, cfg.Line.NotifyGroupID, logger.Named("notifications"), metrics)

	notificationWorker := worker.NewNotificationWorker(dispatcher, notificationService, 64, cfg.Line.RequestTimeout, logger.Named("worker"))
	notificationWorker.Start(ctx)
	defer notificationWorker.Stop()

	sessionMiddleware := auth.NewSessionMiddleware(
		authService.TokenManager(),
		registry,
		table,
		cfg.Auth.CookieName,
		cfg.Session.ResolveTimeout,
		providerLogger,
	)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, table, registry),
		Auth:              handlers.NewAuthHandler(authService, cfg.Auth.CookieName, cfg.Auth.CookieSecure),
		Staff:             handlers.NewStaffHandler(staffService),
		Session:           handlers.NewSessionHandler(table, logger.Named("stream")),
		Surveys:           handlers.NewSurveyHandler(surveyService),
		Line:              handlers.NewLineHandler(lineService, notificationService),
		SessionMiddleware: sessionMiddleware,
		Table:             table,
		Metrics:           metrics,
		MetricsPath:       cfg.Metrics.Path,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
