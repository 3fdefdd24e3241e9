package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const busChannel = "relay:fanout"

// busMessage wraps an Envelope with the publishing instance's identity so
// each instance can discard its own messages on the subscription side.
type busMessage struct {
	Origin   string   `json:"origin"`
	Envelope Envelope `json:"envelope"`
}

// RedisBus fans relayed events out across relay instances over a Redis
// pub/sub channel. Nothing is persisted: a message reaches whichever
// instances are subscribed at publish time, matching the relay's
// fire-and-forget delivery contract.
type RedisBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

// RedisBusConfig describes the connection to the shared Redis instance.
type RedisBusConfig struct {
	Address string
	DB      int
	Logger  *zap.Logger
}

// NewRedisBus connects to Redis and verifies connectivity.
func NewRedisBus(ctx context.Context, cfg RedisBusConfig) (*RedisBus, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = serviceNopLogger
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Address,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisBus{
		client:     client,
		instanceID: uuid.NewString(),
		logger:     logger,
	}, nil
}

// Publish sends one fan-out envelope to every subscribed instance.
func (b *RedisBus) Publish(ctx context.Context, envelope Envelope) error {
	raw, err := json.Marshal(busMessage{Origin: b.instanceID, Envelope: envelope})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, busChannel, raw).Err()
}

// Subscribe delivers envelopes published by other instances to fn until the
// context is cancelled. Messages this instance published are skipped.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(Envelope)) {
	pubsub := b.client.Subscribe(ctx, busChannel)
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var message busMessage
			if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
				b.logger.Warn("failed to decode bus message", zap.Error(err))
				continue
			}
			if message.Origin == b.instanceID || message.Envelope.RoomID == "" {
				continue
			}
			fn(message.Envelope)
		}
	}
}

// Close shuts down the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
