package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus is an alternate EventBus backend for deployments that already run
// a Redis instance as shared infrastructure. Each topic maps to a Redis
// list; Publish does RPUSH (append to the tail), ReadAll does LRANGE 0 -1
// (the full list, head to tail) — together they give the same insertion-
// order append-only semantics as FileBus, just backed by Redis instead of
// the local filesystem.
type RedisBus struct {
	client *redis.Client
	prefix string
}

// NewRedisBus parses url (a redis:// connection string) and returns a
// RedisBus that namespaces its keys under prefix (e.g. "pipeline:"). No
// connection is made here; the client connects on its first command.
func NewRedisBus(url, prefix string) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("bus: parse redis url: %w", err)
	}
	return &RedisBus{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (b *RedisBus) key(topic string) string {
	return b.prefix + topic
}

// Publish RPUSHes the canonical-JSON record onto the topic's list.
func (b *RedisBus) Publish(ctx context.Context, topic string, record interface{}) error {
	line, err := Canonicalize(record)
	if err != nil {
		return fmt.Errorf("bus: canonicalize record for %q: %w", topic, err)
	}
	if err := b.client.RPush(ctx, b.key(topic), line).Err(); err != nil {
		return fmt.Errorf("bus: rpush %q: %w", topic, err)
	}
	return nil
}

// ReadAll returns the full list for topic, head to tail (insertion order).
func (b *RedisBus) ReadAll(ctx context.Context, topic string) ([]json.RawMessage, error) {
	vals, err := b.client.LRange(ctx, b.key(topic), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: lrange %q: %w", topic, err)
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// Close releases the underlying Redis connection pool.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
