package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// TaskTypeClassify asks a worker to run the AI classifier on one media item.
const TaskTypeClassify = "media:classify"

const classifyMaxRetry = 3

// ClassifyPayload is the body of a TaskTypeClassify task.
type ClassifyPayload struct {
	MediaItemID int64  `json:"media_item_id"`
	FileURL     string `json:"file_url"`
}

// NewClassifyTask builds a classification task with the standard retry policy.
func NewClassifyTask(p ClassifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal classify payload: %w", err)
	}
	return asynq.NewTask(TaskTypeClassify, body,
		asynq.MaxRetry(classifyMaxRetry),
		asynq.Timeout(2*time.Minute),
	), nil
}

// TaskClient enqueues background tasks.
type TaskClient struct {
	client *asynq.Client
}

func NewTaskClient(redisAddr string) *TaskClient {
	log.Info().Str("redis_addr", redisAddr).Msg("asynq client created")
	return &TaskClient{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueClassify schedules classification of a freshly uploaded item.
func (c *TaskClient) EnqueueClassify(ctx context.Context, mediaItemID int64, fileURL string) error {
	task, err := NewClassifyTask(ClassifyPayload{MediaItemID: mediaItemID, FileURL: fileURL})
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		log.Error().Err(err).Str("task_type", task.Type()).Int64("media_id", mediaItemID).Msg("failed to enqueue task")
		return fmt.Errorf("enqueue classify: %w", err)
	}
	log.Debug().Str("task_id", info.ID).Str("task_type", task.Type()).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}

func (c *TaskClient) Close() error {
	return c.client.Close()
}

// ClassifyFunc processes one item. lastAttempt is true when asynq will not
// retry a failure. Errors wrapping permanent are not retried.
type ClassifyFunc func(ctx context.Context, mediaItemID int64, fileURL string, lastAttempt bool) error

// HandleClassify adapts fn to an asynq handler. permanent is the sentinel fn
// wraps around failures that must skip the remaining retries.
func HandleClassify(fn ClassifyFunc, permanent error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p ClassifyPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode classify payload: %v: %w", err, asynq.SkipRetry)
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, ok := asynq.GetMaxRetry(ctx)
		if !ok {
			maxRetry = classifyMaxRetry
		}

		err := fn(ctx, p.MediaItemID, p.FileURL, retried >= maxRetry)
		if err != nil && errors.Is(err, permanent) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
}

// Server runs task handlers.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(redisAddr string, concurrency int) *Server {
	if concurrency < 1 {
		concurrency = 10
	}
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			// 2s, 4s, 8s between attempts.
			RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
				return time.Duration(1<<uint(n+1)) * time.Second
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("task_type", task.Type()).Bytes("payload", task.Payload()).Msg("task processing failed")
			}),
			ShutdownTimeout: 25 * time.Second,
		},
	)

	log.Info().Str("redis_addr", redisAddr).Int("concurrency", concurrency).Msg("asynq server created")
	return &Server{server: server, mux: asynq.NewServeMux()}
}

func (s *Server) Handle(pattern string, h asynq.Handler) {
	s.mux.Handle(pattern, h)
}

// Start processes tasks in the background until Shutdown.
func (s *Server) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() {
	log.Info().Msg("shutting down asynq server")
	s.server.Shutdown()
}
