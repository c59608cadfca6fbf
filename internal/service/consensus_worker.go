package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
)

// VoteChangesChannel is the NOTIFY channel vote writes publish item ids on.
const VoteChangesChannel = "vote_changes"

// ConsensusWorker listens for vote_changes notifications and re-evaluates
// each touched item once per batch window, however many votes hit it.
type ConsensusWorker struct {
	pool      *pgxpool.Pool
	consensus ReEvaluator
	window    time.Duration

	mu      sync.Mutex
	pending map[int64]struct{}
}

func NewConsensusWorker(pool *pgxpool.Pool, consensus ReEvaluator, window time.Duration) *ConsensusWorker {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &ConsensusWorker{
		pool:      pool,
		consensus: consensus,
		window:    window,
		pending:   make(map[int64]struct{}),
	}
}

// Start blocks until ctx is cancelled, reconnecting after listen errors.
func (w *ConsensusWorker) Start(ctx context.Context) {
	log.Info().Dur("batch_window", w.window).Msg("consensus-worker: starting")

	for {
		err := w.listenLoop(ctx)
		if ctx.Err() != nil {
			log.Info().Msg("consensus-worker: stopping (context cancelled)")
			return
		}
		log.Warn().Err(err).Msg("consensus-worker: listen error, reconnecting in 5s")
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			log.Info().Msg("consensus-worker: stopping (context cancelled)")
			return
		}
	}
}

func (w *ConsensusWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+VoteChangesChannel); err != nil {
		return err
	}
	log.Info().Str("channel", VoteChangesChannel).Msg("consensus-worker: listening")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.enqueue(n.Payload)
	}
}

// enqueue adds the item id carried by a notification payload.
func (w *ConsensusWorker) enqueue(payload string) {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		log.Warn().Str("payload", payload).Msg("consensus-worker: ignoring malformed notification")
		return
	}
	w.mu.Lock()
	w.pending[id] = struct{}{}
	w.mu.Unlock()
}

func (w *ConsensusWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush so queued items are not lost on reconnect or shutdown.
			w.flush(context.Background())
			return
		}
	}
}

// flush drains the pending set and re-evaluates each item. It returns the
// number of items successfully re-evaluated.
func (w *ConsensusWorker) flush(ctx context.Context) int {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return 0
	}
	batch := w.pending
	w.pending = make(map[int64]struct{})
	w.mu.Unlock()

	done := 0
	for id := range batch {
		if _, err := w.consensus.ReEvaluate(ctx, id); err != nil {
			log.Error().Err(err).Int64("media_id", id).Msg("consensus-worker: re-evaluate error")
			continue
		}
		done++
	}
	metrics.WorkerBatchSize.WithLabelValues("consensus").Observe(float64(done))

	if done > 0 {
		log.Info().Int("items", done).Int("queued", len(batch)).Msg("consensus-worker: batch complete")
	}
	return done
}
