package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/config"
	"github.com/KattaManasa0402/Marine-life/internal/db"
	"github.com/KattaManasa0402/Marine-life/internal/handler"
	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/queue"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
	"github.com/KattaManasa0402/Marine-life/internal/router"
	"github.com/KattaManasa0402/Marine-life/internal/service"
	"github.com/KattaManasa0402/Marine-life/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	middleware.InitLogger(cfg.LogLevel, "marine-api")

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Error().Err(err).Msg("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	metrics.RegisterPoolGauges(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	objects, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object storage client")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bucket")
	}

	tasks := queue.NewTaskClient(cfg.QueueRedisAddr)
	defer tasks.Close()

	store := repository.NewStore(pool)
	ledger := service.NewRewardLedger(store)

	// Rewards go through JetStream when configured; otherwise they are
	// applied in-process.
	var rewards service.RewardNotifier
	if cfg.NATSURL != "" {
		pub, err := queue.NewRewardPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		if err := pub.EnsureStream(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure rewards stream")
		}
		defer pub.Close()
		rewards = pub
	} else {
		local := service.NewLocalRewardDispatcher(ledger.Apply, 256)
		local.Start(context.Background())
		defer local.Stop()
		rewards = local
	}

	evaluator := service.NewEvaluator(cfg.ConsensusThreshold)
	userSvc := service.NewUserService(store.Users(), cfg.JWTSecret, cfg.JWTTTL)
	mediaSvc := service.NewMediaService(store.Media(), objects, tasks, cache, cfg.MaxUploadMB)
	validationSvc := service.NewValidationService(service.NewPGValidationStore(store), evaluator, rewards, cache, cfg.PointsPerVote)
	projectionSvc := service.NewProjectionService(store.Media())

	app := fiber.New(fiber.Config{
		AppName:      "Marine-life API",
		ServerHeader: "Marine-life",
		BodyLimit:    (cfg.MaxUploadMB + 1) << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	router.Setup(app, &router.Handlers{
		Health:       handler.NewHealthHandler(pool, cache.Client(), objects),
		User:         handler.NewUserHandler(userSvc),
		Media:        handler.NewMediaHandler(mediaSvc),
		Validation:   handler.NewValidationHandler(validationSvc),
		Gamification: handler.NewGamificationHandler(ledger),
		Projection:   handler.NewProjectionHandler(projectionSvc),
	}, userSvc, cfg.CORSOrigins)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).
			Int("consensus_threshold", evaluator.Threshold()).Msg("marine-life api starting")
		if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}
