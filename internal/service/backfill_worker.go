package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
)

const backfillBatch = 500

// StaleLister finds items whose votes changed after their last evaluation.
type StaleLister interface {
	ListStale(ctx context.Context, limit int) ([]int64, error)
}

// BackfillWorker periodically re-evaluates items the notification path
// missed, such as those whose in-transaction recompute failed.
type BackfillWorker struct {
	stale     StaleLister
	consensus ReEvaluator
	interval  time.Duration
	stopCh    chan struct{}
}

func NewBackfillWorker(stale StaleLister, consensus ReEvaluator, interval time.Duration) *BackfillWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &BackfillWorker{
		stale:     stale,
		consensus: consensus,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one tick immediately, then every interval.
func (w *BackfillWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("backfill-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("backfill-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Msg("backfill-worker: stopping (stop signal)")
			return
		}
	}
}

func (w *BackfillWorker) Stop() {
	close(w.stopCh)
}

// tick re-evaluates one batch of stale items and returns how many succeeded.
func (w *BackfillWorker) tick(ctx context.Context) int {
	start := time.Now()

	ids, err := w.stale.ListStale(ctx, backfillBatch)
	if err != nil {
		log.Error().Err(err).Msg("backfill-worker: list stale items")
		return 0
	}

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.consensus.ReEvaluate(ctx, id); err != nil {
			log.Error().Err(err).Int64("media_id", id).Msg("backfill-worker: re-evaluate error")
			continue
		}
		done++
	}
	metrics.WorkerBatchSize.WithLabelValues("backfill").Observe(float64(done))

	log.Info().Int("stale", len(ids)).Int("re_evaluated", done).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).Msg("backfill-worker: tick complete")
	return done
}
