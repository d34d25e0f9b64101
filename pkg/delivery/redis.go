package delivery

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/auditkit/pkg/event"
)

// DefaultRedisKey is the list key RedisSink appends events to.
const DefaultRedisKey = "auditkit:events"

// RedisSink appends JSON-encoded events to a Redis list. It is the local
// durable alternative to HTTPSink for deployments that collect events out of
// band instead of syncing to a server.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink wraps an existing Redis client. An empty key falls back to
// DefaultRedisKey.
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Target() string {
	return "redis:" + s.key
}

func (s *RedisSink) Deliver(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Join(ErrMarshalFailed, err)
	}
	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}
