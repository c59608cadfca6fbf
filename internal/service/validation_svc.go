package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

// DefaultPointsPerVote is awarded for a user's first vote on an item.
const DefaultPointsPerVote = 5

// RewardReasonVote tags ledger entries for new validation votes.
const RewardReasonVote = "validation_vote"

// ValidationStore is the persistence the validation service needs. Lookups
// return repository.ErrNotFound on a miss. Atomic runs fn in a transaction;
// nested calls run in a savepoint so an inner failure can be rolled back
// without losing the outer work.
type ValidationStore interface {
	FindClassification(ctx context.Context, mediaItemID int64) (*model.Classification, error)
	GetVote(ctx context.Context, mediaItemID, userID int64) (*model.Vote, error)
	GetVoteByID(ctx context.Context, voteID int64) (*model.Vote, error)
	UpsertVote(ctx context.Context, mediaItemID, userID int64, p model.VotePayload) (*model.Vote, bool, error)
	ListVotes(ctx context.Context, mediaItemID int64) ([]model.Vote, error)
	DeleteVote(ctx context.Context, voteID int64) (int64, error)
	SaveConsensus(ctx context.Context, mediaItemID int64, res model.ConsensusResult) error
	Atomic(ctx context.Context, fn func(ValidationStore) error) error
}

// RewardNotifier receives "award points to user" signals. Implementations
// must not block on downstream delivery.
type RewardNotifier interface {
	Award(ctx context.Context, ev model.RewardEvent) error
}

// ValidationService owns the vote lifecycle: it upserts votes, recomputes
// the item's consensus from the full vote set and signals rewards.
type ValidationService struct {
	store     ValidationStore
	evaluator *Evaluator
	rewards   RewardNotifier
	cache     *CacheService
	points    int
}

// NewValidationService wires the orchestrator. rewards and cache may be nil.
// pointsPerVote of zero or less disables rewards.
func NewValidationService(store ValidationStore, evaluator *Evaluator, rewards RewardNotifier, cache *CacheService, pointsPerVote int) *ValidationService {
	if pointsPerVote < 0 {
		pointsPerVote = 0
	}
	return &ValidationService{
		store:     store,
		evaluator: evaluator,
		rewards:   rewards,
		cache:     cache,
		points:    pointsPerVote,
	}
}

// SubmitVote records userID's vote on an item and recomputes its consensus.
// The recompute runs in a savepoint inside the vote's transaction; if it
// fails the vote still commits and the item is repaired by a later vote,
// an explicit ReEvaluate or the background workers.
func (s *ValidationService) SubmitVote(ctx context.Context, mediaItemID, userID int64, p model.VotePayload) (*model.VoteResponse, error) {
	p.Normalize()

	var (
		vote    *model.Vote
		created bool
		prior   bool
	)
	err := s.store.Atomic(ctx, func(st ValidationStore) error {
		c, err := st.FindClassification(ctx, mediaItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMediaNotFound
			}
			return fmt.Errorf("find media: %w", err)
		}
		if err := p.Validate(); err != nil {
			return err
		}

		existing, err := st.GetVote(ctx, mediaItemID, userID)
		switch {
		case err == nil:
			prior = existing != nil
		case errors.Is(err, repository.ErrNotFound):
		default:
			return fmt.Errorf("get vote: %w", err)
		}

		vote, created, err = st.UpsertVote(ctx, mediaItemID, userID, p)
		if err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}

		if _, err := s.recompute(ctx, st, c); err != nil {
			log.Error().Err(err).Int64("media_id", mediaItemID).Msg("consensus recompute failed, vote kept")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, mediaItemID)

	if !prior && created {
		s.award(ctx, userID, mediaItemID)
	}

	return &model.VoteResponse{Vote: vote, Created: created}, nil
}

// GetVote returns userID's vote on an item, or ErrVoteNotFound.
func (s *ValidationService) GetVote(ctx context.Context, mediaItemID, userID int64) (*model.Vote, error) {
	v, err := s.store.GetVote(ctx, mediaItemID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrVoteNotFound
	}
	return v, err
}

// GetVoteByID returns a vote by id, or ErrVoteNotFound.
func (s *ValidationService) GetVoteByID(ctx context.Context, voteID int64) (*model.Vote, error) {
	v, err := s.store.GetVoteByID(ctx, voteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrVoteNotFound
	}
	return v, err
}

// ListVotes returns every vote on an item, newest first.
func (s *ValidationService) ListVotes(ctx context.Context, mediaItemID int64) ([]model.Vote, error) {
	var votes []model.Vote
	if hit, err := s.cache.GetVotes(ctx, mediaItemID, &votes); err != nil {
		log.Warn().Err(err).Int64("media_id", mediaItemID).Msg("cache: get votes error")
	} else if hit {
		metrics.CacheHits.Inc()
		return votes, nil
	}
	metrics.CacheMisses.Inc()

	if _, err := s.store.FindClassification(ctx, mediaItemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}

	votes, err := s.store.ListVotes(ctx, mediaItemID)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []model.Vote{}
	}

	if err := s.cache.SetVotes(ctx, mediaItemID, votes); err != nil {
		log.Warn().Err(err).Int64("media_id", mediaItemID).Msg("cache: set votes error")
	}
	return votes, nil
}

// DeleteVote removes a vote and recomputes the consensus of its item, which
// may un-validate it.
func (s *ValidationService) DeleteVote(ctx context.Context, voteID int64) error {
	var mediaItemID int64
	err := s.store.Atomic(ctx, func(st ValidationStore) error {
		id, err := st.DeleteVote(ctx, voteID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVoteNotFound
			}
			return fmt.Errorf("delete vote: %w", err)
		}
		mediaItemID = id

		c, err := st.FindClassification(ctx, id)
		if err != nil {
			log.Error().Err(err).Int64("media_id", id).Msg("consensus recompute failed after delete")
			return nil
		}
		if _, err := s.recompute(ctx, st, c); err != nil {
			log.Error().Err(err).Int64("media_id", id).Msg("consensus recompute failed after delete")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, mediaItemID)
	return nil
}

// ReEvaluate recomputes and persists an item's consensus from scratch.
// Running it twice with no vote change in between yields the same result.
func (s *ValidationService) ReEvaluate(ctx context.Context, mediaItemID int64) (*model.Classification, error) {
	var out *model.Classification
	err := s.store.Atomic(ctx, func(st ValidationStore) error {
		c, err := st.FindClassification(ctx, mediaItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrMediaNotFound
			}
			return err
		}
		res, err := s.evaluate(ctx, st, c)
		if err != nil {
			return err
		}
		c.ConsensusResult = res
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, mediaItemID)
	return out, nil
}

// recompute evaluates and saves inside a nested transaction so a failure
// rolls back only the consensus write.
func (s *ValidationService) recompute(ctx context.Context, st ValidationStore, c *model.Classification) (model.ConsensusResult, error) {
	var res model.ConsensusResult
	err := st.Atomic(ctx, func(inner ValidationStore) error {
		var err error
		res, err = s.evaluate(ctx, inner, c)
		return err
	})
	return res, err
}

func (s *ValidationService) evaluate(ctx context.Context, st ValidationStore, c *model.Classification) (model.ConsensusResult, error) {
	start := time.Now()
	defer func() {
		metrics.ConsensusDuration.Observe(time.Since(start).Seconds())
	}()

	votes, err := st.ListVotes(ctx, c.MediaItemID)
	if err != nil {
		return model.ConsensusResult{}, fmt.Errorf("list votes: %w", err)
	}
	res := s.evaluator.Evaluate(c.AISpeciesGuess, c.AIHealthGuess, votes)
	if err := st.SaveConsensus(ctx, c.MediaItemID, res); err != nil {
		return model.ConsensusResult{}, fmt.Errorf("save consensus: %w", err)
	}
	if res.IsValidated && !c.IsValidated {
		metrics.ItemsValidated.Inc()
	}
	return res, nil
}

func (s *ValidationService) award(ctx context.Context, userID, mediaItemID int64) {
	if s.rewards == nil || s.points == 0 {
		return
	}
	mediaID := mediaItemID
	ev := model.RewardEvent{
		EventID:     fmt.Sprintf("vote:%d:%d", mediaItemID, userID),
		UserID:      userID,
		MediaItemID: &mediaID,
		Points:      s.points,
		Reason:      RewardReasonVote,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.rewards.Award(ctx, ev); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Int64("media_id", mediaItemID).Msg("reward signal failed")
	}
}

func (s *ValidationService) invalidate(ctx context.Context, mediaItemID int64) {
	if err := s.cache.InvalidateMedia(ctx, mediaItemID); err != nil {
		log.Warn().Err(err).Int64("media_id", mediaItemID).Msg("cache: invalidate media error")
	}
}

// pgValidationStore adapts repository.Store to ValidationStore.
type pgValidationStore struct {
	s *repository.Store
}

// NewPGValidationStore returns a ValidationStore backed by Postgres.
func NewPGValidationStore(s *repository.Store) ValidationStore {
	return &pgValidationStore{s: s}
}

func (p *pgValidationStore) FindClassification(ctx context.Context, id int64) (*model.Classification, error) {
	return p.s.Media().FindClassification(ctx, id)
}

func (p *pgValidationStore) GetVote(ctx context.Context, mediaItemID, userID int64) (*model.Vote, error) {
	return p.s.Votes().Get(ctx, mediaItemID, userID)
}

func (p *pgValidationStore) GetVoteByID(ctx context.Context, voteID int64) (*model.Vote, error) {
	return p.s.Votes().GetByID(ctx, voteID)
}

func (p *pgValidationStore) UpsertVote(ctx context.Context, mediaItemID, userID int64, pl model.VotePayload) (*model.Vote, bool, error) {
	return p.s.Votes().Upsert(ctx, mediaItemID, userID, pl)
}

func (p *pgValidationStore) ListVotes(ctx context.Context, mediaItemID int64) ([]model.Vote, error) {
	return p.s.Votes().ListForItem(ctx, mediaItemID)
}

func (p *pgValidationStore) DeleteVote(ctx context.Context, voteID int64) (int64, error) {
	return p.s.Votes().Delete(ctx, voteID)
}

func (p *pgValidationStore) SaveConsensus(ctx context.Context, mediaItemID int64, res model.ConsensusResult) error {
	return p.s.Media().SaveConsensus(ctx, mediaItemID, res)
}

func (p *pgValidationStore) Atomic(ctx context.Context, fn func(ValidationStore) error) error {
	return p.s.Atomic(ctx, func(tx *repository.Store) error {
		return fn(&pgValidationStore{s: tx})
	})
}
