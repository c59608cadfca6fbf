package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

// Badge is a named score milestone.
type Badge struct {
	Name     string
	MinScore int
}

// Badges are ordered by ascending threshold.
var Badges = []Badge{
	{Name: "first_vote", MinScore: 5},
	{Name: "validator", MinScore: 50},
	{Name: "expert_validator", MinScore: 250},
	{Name: "reef_guardian", MinScore: 1000},
}

// BadgesForScore returns every badge a score qualifies for.
func BadgesForScore(score int) []string {
	var out []string
	for _, b := range Badges {
		if score >= b.MinScore {
			out = append(out, b.Name)
		}
	}
	return out
}

// NextBadge returns the next milestone above score and the points missing,
// or nil once every badge is earned.
func NextBadge(score int) (*Badge, int) {
	for _, b := range Badges {
		if score < b.MinScore {
			next := b
			return &next, b.MinScore - score
		}
	}
	return nil, 0
}

// RewardLedger applies reward events to users' scores and badges.
type RewardLedger struct {
	store *repository.Store
}

func NewRewardLedger(store *repository.Store) *RewardLedger {
	return &RewardLedger{store: store}
}

// Apply records ev and credits its points exactly once per EventID, then
// grants any newly reached badges. Redelivered events are no-ops.
func (l *RewardLedger) Apply(ctx context.Context, ev model.RewardEvent) error {
	return l.store.Atomic(ctx, func(tx *repository.Store) error {
		recorded, err := tx.Rewards().Record(ctx, ev)
		if err != nil {
			return fmt.Errorf("record reward: %w", err)
		}
		if !recorded {
			metrics.RewardsTotal.WithLabelValues("duplicate").Inc()
			return nil
		}

		score, err := tx.Users().AddScore(ctx, ev.UserID, ev.Points)
		if err != nil {
			return fmt.Errorf("add score: %w", err)
		}

		granted, err := tx.Users().GrantBadges(ctx, ev.UserID, BadgesForScore(score))
		if err != nil {
			return fmt.Errorf("grant badges: %w", err)
		}
		metrics.RewardsTotal.WithLabelValues("applied").Inc()

		evt := log.Info().Int64("user_id", ev.UserID).Int("points", ev.Points).Int("score", score)
		if len(granted) > 0 {
			evt = evt.Strs("badges", granted)
		}
		evt.Msg("reward applied")
		return nil
	})
}

// Summary returns a user's score, badges and latest ledger entries.
func (l *RewardLedger) Summary(ctx context.Context, userID int64) (*model.GamificationResponse, error) {
	u, err := l.store.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	recent, err := l.store.Rewards().Recent(ctx, userID, 20)
	if err != nil {
		return nil, err
	}

	resp := &model.GamificationResponse{
		UserID: u.ID,
		Score:  u.Score,
		Badges: u.Badges,
		Recent: recent,
	}
	if next, missing := NextBadge(u.Score); next != nil {
		resp.NextBadge = &next.Name
		resp.PointsToNext = missing
	}
	return resp, nil
}

// LocalRewardDispatcher applies awards in-process on a background goroutine.
// It is the RewardNotifier used when no message broker is configured. Award
// never blocks: when the buffer is full the event is dropped and logged.
type LocalRewardDispatcher struct {
	apply func(context.Context, model.RewardEvent) error
	ch    chan model.RewardEvent
	wg    sync.WaitGroup
}

func NewLocalRewardDispatcher(apply func(context.Context, model.RewardEvent) error, buffer int) *LocalRewardDispatcher {
	if buffer < 1 {
		buffer = 256
	}
	return &LocalRewardDispatcher{apply: apply, ch: make(chan model.RewardEvent, buffer)}
}

// Start drains the queue until ctx is cancelled or Stop is called.
func (d *LocalRewardDispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for ev := range d.ch {
			if err := d.apply(ctx, ev); err != nil {
				metrics.RewardsTotal.WithLabelValues("failed").Inc()
				log.Error().Err(err).Str("event_id", ev.EventID).Msg("reward-dispatcher: apply failed")
			}
		}
	}()
}

// Award enqueues ev without blocking.
func (d *LocalRewardDispatcher) Award(_ context.Context, ev model.RewardEvent) error {
	select {
	case d.ch <- ev:
		return nil
	default:
		metrics.RewardsTotal.WithLabelValues("dropped").Inc()
		return errors.New("reward queue full")
	}
}

// Stop closes the queue and waits for pending events to drain.
func (d *LocalRewardDispatcher) Stop() {
	close(d.ch)
	d.wg.Wait()
}
