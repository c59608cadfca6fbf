package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/classifier"
	"github.com/KattaManasa0402/Marine-life/internal/config"
	"github.com/KattaManasa0402/Marine-life/internal/db"
	"github.com/KattaManasa0402/Marine-life/internal/middleware"
	"github.com/KattaManasa0402/Marine-life/internal/queue"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
	"github.com/KattaManasa0402/Marine-life/internal/service"
)

const rewardConsumerName = "reward-ledger"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	middleware.InitLogger(cfg.LogLevel, "marine-worker")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
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

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	store := repository.NewStore(pool)
	ledger := service.NewRewardLedger(store)

	// The worker never awards: only vote submission does.
	validationSvc := service.NewValidationService(service.NewPGValidationStore(store), service.NewEvaluator(cfg.ConsensusThreshold), nil, cache, cfg.PointsPerVote)
	classSvc := service.NewClassificationService(store.Media(), classifier.New(cfg.Classifier), validationSvc, cache)

	srv := queue.NewServer(cfg.QueueRedisAddr, cfg.WorkerConcurrency)
	srv.Handle(queue.TaskTypeClassify, queue.HandleClassify(classSvc.Process, service.ErrPermanent))
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start task server")
	}
	defer srv.Shutdown()

	if cfg.NATSURL != "" {
		pub, err := queue.NewRewardPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		if err := pub.EnsureStream(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure rewards stream")
		}
		pub.Close()

		consumer, err := queue.NewRewardConsumer(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer consumer.Close()
		if err := consumer.Consume(ctx, rewardConsumerName, ledger.Apply); err != nil {
			log.Fatal().Err(err).Msg("failed to start reward consumer")
		}
	} else {
		log.Info().Msg("NATS_URL not set, rewards are applied by the API process")
	}

	consensusWorker := service.NewConsensusWorker(pool, validationSvc, cfg.ConsensusBatchWindow)
	go consensusWorker.Start(ctx)

	backfillWorker := service.NewBackfillWorker(store.Media(), validationSvc, cfg.BackfillInterval)
	go backfillWorker.Start(ctx)

	log.Info().Msg("marine-life worker running")
	<-ctx.Done()
	log.Info().Msg("shutting down worker")
}
