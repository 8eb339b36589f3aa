package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenTTL is how long a delivered event id stays marked. Slack retries a
// delivery for at most a few minutes; an hour is comfortably past that.
const seenTTL = time.Hour

// RedisDeduper marks delivered event ids in Redis so that retried webhook
// deliveries are acknowledged without being dispatched twice.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper connects to redisURL.
func NewRedisDeduper(ctx context.Context, redisURL string) (*RedisDeduper, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisDeduper{client: client}, nil
}

func seenKey(eventID string) string {
	return fmt.Sprintf("seen:event:%s", eventID)
}

// MarkSeen records an event id, reporting whether this is its first
// delivery. SETNX makes the check-and-set atomic across instances.
func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	return d.client.SetNX(ctx, seenKey(eventID), 1, seenTTL).Result()
}

// Ping checks the Redis connection.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

var _ EventDeduper = (*RedisDeduper)(nil)
