package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/classifier"
	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
)

// ErrPermanent marks a classification failure that retrying will not fix.
var ErrPermanent = errors.New("permanent classification failure")

// ClassificationStore is the media persistence the classification job needs.
type ClassificationStore interface {
	SetStatus(ctx context.Context, id int64, status model.ProcessingStatus) error
	SaveAIResult(ctx context.Context, id int64, res model.AIResult) (bool, error)
}

// ReEvaluator recomputes an item's consensus.
type ReEvaluator interface {
	ReEvaluate(ctx context.Context, mediaItemID int64) (*model.Classification, error)
}

// ClassificationService runs the AI classification of one uploaded item.
type ClassificationService struct {
	store      ClassificationStore
	classifier classifier.Classifier
	consensus  ReEvaluator
	cache      *CacheService
}

func NewClassificationService(store ClassificationStore, c classifier.Classifier, consensus ReEvaluator, cache *CacheService) *ClassificationService {
	return &ClassificationService{store: store, classifier: c, consensus: consensus, cache: cache}
}

// Process classifies the image at fileURL and stores the result on the item.
// lastAttempt tells it whether a transient failure should be recorded as
// final. Errors wrapping ErrPermanent must not be retried.
func (s *ClassificationService) Process(ctx context.Context, mediaItemID int64, fileURL string, lastAttempt bool) error {
	logger := log.With().Int64("media_id", mediaItemID).Logger()

	if err := s.store.SetStatus(ctx, mediaItemID, model.StatusProcessing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn().Msg("classify: media item gone, dropping task")
			return fmt.Errorf("%w: %w", ErrPermanent, ErrMediaNotFound)
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	res, err := s.classifier.Classify(ctx, fileURL)
	if err != nil {
		status, permanent := failureStatus(err, lastAttempt)
		if status != "" {
			if serr := s.store.SetStatus(ctx, mediaItemID, status); serr != nil {
				logger.Error().Err(serr).Msg("classify: record failure status")
			}
			metrics.ClassificationsTotal.WithLabelValues(string(status)).Inc()
		}
		logger.Warn().Err(err).Str("status", string(status)).Bool("permanent", permanent).Msg("classify: failed")
		if permanent {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return err
	}

	applied, err := s.store.SaveAIResult(ctx, mediaItemID, *res)
	if err != nil {
		return fmt.Errorf("save ai result: %w", err)
	}
	metrics.ClassificationsTotal.WithLabelValues(string(model.StatusCompleted)).Inc()
	if !applied {
		logger.Info().Msg("classify: item already classified, result discarded")
		return nil
	}
	logger.Info().Str("species", res.SpeciesGuess()).Str("health", res.HealthStatus).Msg("classify: completed")

	// Votes may have been cast before the AI guess existed.
	if _, err := s.consensus.ReEvaluate(ctx, mediaItemID); err != nil {
		logger.Error().Err(err).Msg("classify: re-evaluate after ai result")
	}
	if err := s.cache.InvalidateMedia(ctx, mediaItemID); err != nil {
		logger.Warn().Err(err).Msg("cache: invalidate media error")
	}
	return nil
}

// failureStatus maps a classifier error to the status to record. An empty
// status means the item stays in processing until the next attempt.
func failureStatus(err error, lastAttempt bool) (model.ProcessingStatus, bool) {
	switch {
	case errors.Is(err, classifier.ErrUnparseable):
		return model.StatusFailedParse, true
	case errors.Is(err, classifier.ErrRejected):
		return model.StatusFailedUnhandled, true
	case lastAttempt:
		return model.StatusFailedNetwork, true
	default:
		return "", false
	}
}
