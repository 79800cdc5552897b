package querycache

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fleetdesk/backend/logging"
)

// RedisBroadcaster publishes invalidations on a redis pub/sub channel. Each
// message carries the publishing instance id so an instance ignores its own.
type RedisBroadcaster struct {
	client     *redis.Client
	channel    string
	instanceID string
}

func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, channel: channel, instanceID: uuid.NewString()}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (b *RedisBroadcaster) Publish(ctx context.Context, key Key) error {
	return b.client.Publish(ctx, b.channel, encodeMessage(b.instanceID, key)).Err()
}

func (b *RedisBroadcaster) Listen(ctx context.Context, fn func(Key)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logging.FromContext(ctx).WithField("channel", b.channel).Info("Listening for cache invalidations")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, key, ok := decodeMessage(msg.Payload)
			if !ok || origin == b.instanceID {
				continue
			}
			fn(key)
		}
	}
}

func encodeMessage(instanceID string, key Key) string {
	return instanceID + "|" + string(key)
}

func decodeMessage(payload string) (string, Key, bool) {
	origin, key, ok := strings.Cut(payload, "|")
	if !ok || origin == "" || key == "" {
		return "", "", false
	}
	return origin, Key(key), true
}
