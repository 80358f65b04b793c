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

	httptransport "github.com/spec-kit/staff-portal/internal/api/http"
	"github.com/spec-kit/staff-portal/internal/api/http/handlers"
	"github.com/spec-kit/staff-portal/internal/auth"
	"github.com/spec-kit/staff-portal/internal/config"
	"github.com/spec-kit/staff-portal/internal/events"
	"github.com/spec-kit/staff-portal/internal/identity"
	"github.com/spec-kit/staff-portal/internal/observability"
	"github.com/spec-kit/staff-portal/internal/persistence"
	"github.com/spec-kit/staff-portal/internal/repository"
	"github.com/spec-kit/staff-portal/internal/service"
	"github.com/spec-kit/staff-portal/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	var redisPinger handlers.Pinger
	if redis != nil {
		redisPinger = redis
	}

	metrics := observability.NewMetrics()

	roblox := identity.NewClient(cfg.Roblox, identity.ClientDependencies{
		Avatars: identity.NewRedisAvatarCache(redis.Handle(), cfg.Roblox.AvatarCacheTTL()),
		Metrics: metrics,
		Logger:  logger.Named("identity"),
	})

	dispatcher := events.NewInMemoryDispatcher()
	var publisher events.Publisher
	if amqpPublisher := events.NewAMQPPublisher(cfg.Notification.AMQPURL, cfg.Notification.Queue); amqpPublisher != nil {
		publisher = amqpPublisher
	}
	service.NewNotificationService(dispatcher, publisher, logger.Named("events")).RegisterHandlers()

	staffRepo := repository.NewStaffRepository(pool)
	sessionRepo := repository.NewVerificationSessionRepository(pool)
	attemptRepo := repository.NewLoginAttemptRepository(pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	credentials := service.NewCredentialService(*cfg, service.CredentialDependencies{
		StaffRepo:  staffRepo,
		Identity:   roblox,
		Dispatcher: dispatcher,
		Logger:     logger.Named("credentials"),
	})
	verification := service.NewVerificationService(*cfg, service.VerificationDependencies{
		SessionRepo: sessionRepo,
		Identity:    roblox,
		Staff:       credentials,
		Dispatcher:  dispatcher,
		Logger:      logger.Named("verification"),
	})
	gate := service.NewLoginGate(*cfg, service.LoginGateDependencies{
		AttemptRepo: attemptRepo,
		Credentials: credentials,
		Tokens:      tokens,
		Dispatcher:  dispatcher,
		Logger:      logger.Named("login"),
	})

	worker.NewCleanupWorker(verification, gate, cfg.Worker.CleanupInterval(), cfg.Lockout.AttemptRetentionDays, logger.Named("cleanup")).Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisPinger),
		Auth:           handlers.NewAuthHandler(gate),
		Verification:   handlers.NewVerificationHandler(verification),
		Staff:          handlers.NewStaffHandler(credentials),
		Identity:       handlers.NewIdentityHandler(roblox),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, staffRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
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
