package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

const (
	RewardsStreamName = "REWARDS"
	RewardsSubject    = "rewards.vote"
)

// ErrPublishBacklog is returned when too many publishes are awaiting acks.
var ErrPublishBacklog = errors.New("reward publish backlog full")

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc, jetstream.WithPublishAsyncMaxPending(1024))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

// RewardPublisher sends award signals to JetStream. It implements the
// validation service's RewardNotifier.
type RewardPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewRewardPublisher(natsURL string) (*RewardPublisher, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &RewardPublisher{nc: nc, js: js}, nil
}

// EnsureStream creates the rewards stream, retrying while NATS starts up.
func (p *RewardPublisher) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        RewardsStreamName,
		Subjects:    []string{RewardsSubject},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Duplicates:  10 * time.Minute,
		Description: "Validation reward events",
	}

	const maxAttempts = 30
	for attempt := 1; ; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			log.Info().Str("name", RewardsStreamName).Msg("ensured NATS stream")
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", RewardsStreamName, err, maxAttempts)
		}
		log.Warn().Err(err).Str("name", RewardsStreamName).Int("attempt", attempt).Msg("ensure NATS stream (retrying...)")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Award publishes ev asynchronously. The event ID doubles as the JetStream
// message ID so redelivered publishes inside the dedupe window collapse.
func (p *RewardPublisher) Award(_ context.Context, ev model.RewardEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal reward: %w", err)
	}
	_, err = p.js.PublishAsync(RewardsSubject, payload,
		jetstream.WithMsgID(ev.EventID),
		jetstream.WithStallWait(50*time.Millisecond),
	)
	if err != nil {
		if errors.Is(err, jetstream.ErrTooManyStalledMsgs) {
			return ErrPublishBacklog
		}
		return fmt.Errorf("publish reward: %w", err)
	}
	return nil
}

func (p *RewardPublisher) Ping() error {
	if !p.nc.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

// Close waits briefly for in-flight publishes, then disconnects.
func (p *RewardPublisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		log.Warn().Int("pending", p.js.PublishAsyncPending()).Msg("nats: closing with unacked reward publishes")
	}
	p.nc.Close()
}

// RewardHandler applies one reward event. It must be idempotent on EventID.
type RewardHandler func(ctx context.Context, ev model.RewardEvent) error

// RewardConsumer pulls reward events from JetStream.
type RewardConsumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewRewardConsumer(natsURL string) (*RewardConsumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &RewardConsumer{nc: nc, js: js}, nil
}

// Consume starts a durable consumer that feeds events to handler until ctx
// is cancelled. Failed events are nak'd and redelivered up to five times.
func (c *RewardConsumer) Consume(ctx context.Context, consumerName string, handler RewardHandler) error {
	stream, err := c.js.Stream(ctx, RewardsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", RewardsStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		FilterSubject: RewardsSubject,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			batch, err := cons.Fetch(20, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("fetch rewards error")
				time.Sleep(time.Second)
				continue
			}
			for msg := range batch.Messages() {
				c.handle(ctx, msg, handler)
			}
		}
	}()

	log.Info().Str("consumer", consumerName).Msg("reward consumer started")
	return nil
}

func (c *RewardConsumer) handle(ctx context.Context, msg jetstream.Msg, handler RewardHandler) {
	var ev model.RewardEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		log.Error().Err(err).Msg("reward consumer: malformed event, discarding")
		_ = msg.Term()
		return
	}
	if err := handler(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("reward consumer: apply failed")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

func (c *RewardConsumer) Close() {
	c.nc.Close()
}
