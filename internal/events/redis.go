package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of *redis.Client used for forwarding
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisForwarder republishes bus events as JSON on a redis channel so
// other processes can follow a bot.
type RedisForwarder struct {
	client  Publisher
	channel string
	timeout time.Duration
	onError func(error)
}

// NewRedisClient connects using a redis:// URL
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisForwarder creates a forwarder; onError may be nil
func NewRedisForwarder(client Publisher, channel string, onError func(error)) *RedisForwarder {
	if onError == nil {
		onError = func(error) {}
	}
	return &RedisForwarder{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
		onError: onError,
	}
}

// Attach subscribes the forwarder to every event on bus
func (f *RedisForwarder) Attach(bus EventBus) SubscriptionID {
	return bus.Subscribe(EventTypeAll, func(event Event) {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		if err := f.Forward(ctx, event); err != nil {
			f.onError(err)
		}
	})
}

// Forward publishes a single event
func (f *RedisForwarder) Forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.Type, f.channel, err)
	}
	return nil
}
