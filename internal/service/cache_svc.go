package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	MediaCacheTTL = 5 * time.Minute
	VotesCacheTTL = 2 * time.Minute
)

// CacheService provides a Redis cache-aside layer for media detail and vote
// list lookups. With a nil client every operation is a no-op.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService connects to Redis. If redisURL is empty or the connection
// fails, caching is disabled rather than failing startup.
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetMedia decodes a cached media item into dst. It reports false on a miss
// or when caching is disabled.
func (c *CacheService) GetMedia(ctx context.Context, mediaID int64, dst any) (bool, error) {
	return c.get(ctx, mediaKey(mediaID), dst)
}

func (c *CacheService) SetMedia(ctx context.Context, mediaID int64, v any) error {
	return c.set(ctx, mediaKey(mediaID), v, MediaCacheTTL)
}

// GetVotes decodes a cached vote list into dst.
func (c *CacheService) GetVotes(ctx context.Context, mediaID int64, dst any) (bool, error) {
	return c.get(ctx, votesKey(mediaID), dst)
}

func (c *CacheService) SetVotes(ctx context.Context, mediaID int64, v any) error {
	return c.set(ctx, votesKey(mediaID), v, VotesCacheTTL)
}

// InvalidateMedia drops both the detail and vote list entries for an item.
// Called after every vote change and consensus write.
func (c *CacheService) InvalidateMedia(ctx context.Context, mediaID int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, mediaKey(mediaID), votesKey(mediaID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) get(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CacheService) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func mediaKey(mediaID int64) string {
	return fmt.Sprintf("media:%d", mediaID)
}

func votesKey(mediaID int64) string {
	return fmt.Sprintf("media:%d:votes", mediaID)
}
