package bus

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryBus is an in-process EventBus backed by a slice per topic. Per
// design note §9, implementations may substitute an in-memory vector for a
// topic in tests so long as insertion order is preserved and each read
// returns a snapshot; that is exactly what this type does.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string][]json.RawMessage
}

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string][]json.RawMessage)}
}

// Publish appends the canonicalized record to topic.
func (b *MemoryBus) Publish(ctx context.Context, topic string, record interface{}) error {
	line, err := Canonicalize(record)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], json.RawMessage(line))
	return nil
}

// ReadAll returns a snapshot slice of every record published to topic so far.
func (b *MemoryBus) ReadAll(ctx context.Context, topic string) ([]json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.topics[topic]
	out := make([]json.RawMessage, len(src))
	copy(out, src)
	return out, nil
}
