package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/metrics"
	"github.com/KattaManasa0402/Marine-life/internal/model"
	"github.com/KattaManasa0402/Marine-life/internal/repository"
	"github.com/KattaManasa0402/Marine-life/pkg/hash"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MediaStore is the media persistence the upload and read paths need.
type MediaStore interface {
	Create(ctx context.Context, m model.NewMedia) (*model.MediaItem, error)
	GetByID(ctx context.Context, id int64) (*model.MediaItem, error)
	List(ctx context.Context, species string, skip, limit int) ([]model.MediaItem, error)
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]model.MediaItem, error)
}

// ObjectStore holds the uploaded files.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// ClassifyEnqueuer schedules AI classification of an uploaded item.
type ClassifyEnqueuer interface {
	EnqueueClassify(ctx context.Context, mediaItemID int64, fileURL string) error
}

// UploadRequest is one sighting upload.
type UploadRequest struct {
	UserID      int64
	Filename    string
	Body        io.Reader
	Description *string
	Latitude    *float64
	Longitude   *float64
	CapturedAt  *time.Time
}

type MediaService struct {
	repo     MediaStore
	objects  ObjectStore
	tasks    ClassifyEnqueuer
	cache    *CacheService
	maxBytes int64
}

func NewMediaService(repo MediaStore, objects ObjectStore, tasks ClassifyEnqueuer, cache *CacheService, maxUploadMB int) *MediaService {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &MediaService{
		repo:     repo,
		objects:  objects,
		tasks:    tasks,
		cache:    cache,
		maxBytes: int64(maxUploadMB) << 20,
	}
}

// Upload stores the image, creates the item in pending state and schedules
// classification. A failed enqueue leaves the item pending; the upload
// itself still succeeds.
func (s *MediaService) Upload(ctx context.Context, req UploadRequest) (*model.MediaItem, error) {
	if err := validateLocation(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d MB", ErrInvalidInput, s.maxBytes>>20)
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	digest := hash.SHA256Bytes(data)
	key := hash.ObjectKey(req.UserID, digest, req.Filename)
	if err := s.objects.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}

	item, err := s.repo.Create(ctx, model.NewMedia{
		UserID:      req.UserID,
		ObjectKey:   key,
		FileURL:     s.objects.ObjectURL(key),
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Checksum:    digest,
		Description: trimmedOrNil(req.Description),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		CapturedAt:  req.CapturedAt,
	})
	if err != nil {
		if derr := s.objects.DeleteObject(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("upload: orphaned object after failed insert")
		}
		return nil, fmt.Errorf("create media item: %w", err)
	}

	if err := s.tasks.EnqueueClassify(ctx, item.ID, item.FileURL); err != nil {
		metrics.ClassificationsTotal.WithLabelValues("enqueue_failed").Inc()
		log.Error().Err(err).Int64("media_id", item.ID).Msg("upload: classification not scheduled")
	}

	log.Info().Int64("media_id", item.ID).Int64("user_id", req.UserID).Str("content_type", contentType).
		Int("bytes", len(data)).Msg("media uploaded")
	return item, nil
}

// Get returns one item, served from cache when possible.
func (s *MediaService) Get(ctx context.Context, id int64) (*model.MediaItem, error) {
	var cached model.MediaItem
	if hit, err := s.cache.GetMedia(ctx, id, &cached); err != nil {
		log.Warn().Err(err).Int64("media_id", id).Msg("cache: get media error")
	} else if hit {
		metrics.CacheHits.Inc()
		return &cached, nil
	}
	metrics.CacheMisses.Inc()

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if err := s.cache.SetMedia(ctx, id, item); err != nil {
		log.Warn().Err(err).Int64("media_id", id).Msg("cache: set media error")
	}
	return item, nil
}

// List returns items newest first, optionally filtered by species.
func (s *MediaService) List(ctx context.Context, species string, skip, limit int) ([]model.MediaItem, error) {
	skip, limit = clampPage(skip, limit)
	return s.repo.List(ctx, strings.TrimSpace(species), skip, limit)
}

// ListMine returns the caller's own uploads.
func (s *MediaService) ListMine(ctx context.Context, userID int64, skip, limit int) ([]model.MediaItem, error) {
	skip, limit = clampPage(skip, limit)
	return s.repo.ListByUser(ctx, userID, skip, limit)
}

func validateLocation(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidInput)
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// clampPage bounds pagination to 0 <= skip and 1 <= limit <= 100.
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return skip, limit
}
