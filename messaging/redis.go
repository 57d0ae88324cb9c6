package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/domain"
)

// RedisEventBus publishes committed events on a Redis channel and hands
// them to subscribers. Delivery is fire-and-forget: the durable event log
// stays authoritative and the projection poll loop recovers anything the
// channel drops.
type RedisEventBus struct {
	client  *redis.Client
	channel string
}

// NewRedisEventBus creates an event bus over the configured channel
func NewRedisEventBus(cfg config.RedisConfig) (*RedisEventBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	channel := cfg.EventChannel
	if channel == "" {
		channel = "emr:events"
	}
	return &RedisEventBus{client: client, channel: channel}, nil
}

// Publish sends one event to the channel
func (b *RedisEventBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish event")
	}
	return nil
}

// Subscribe delivers published events until ctx is cancelled. Messages
// that fail to decode are logged and skipped.
func (b *RedisEventBus) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Receive forces the subscription to be established before we return
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe to event channel")
	}

	events := make(chan domain.Event)
	go func() {
		defer close(events)
		defer pubsub.Close()

		for {
			select {
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Msg("Failed to decode event from channel")
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Close shuts down the underlying client
func (b *RedisEventBus) Close() error {
	return b.client.Close()
}
