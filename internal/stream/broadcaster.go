// Package stream exposes an optional live-tail broadcaster: external
// observers can open a WebSocket connection and receive every record
// published to a chosen topic as it happens. It is a read-only side channel
// onto the event bus — it never influences pipeline state — grounded on the
// teacher's subscriber-channel-map fan-out pattern, adapted here for
// outbound broadcast instead of inbound exchange feeds.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Broadcaster fans out published records to WebSocket subscribers, grouped
// by topic.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string][]chan json.RawMessage
	bufferSize  int
	upgrader    websocket.Upgrader
}

// NewBroadcaster builds a Broadcaster. bufferSize bounds each subscriber's
// channel so one slow reader cannot block publication to others.
func NewBroadcaster(bufferSize int) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string][]chan json.RawMessage),
		bufferSize:  bufferSize,
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Publish fans record out to every subscriber currently watching topic. A
// subscriber whose buffer is full has the record dropped for it rather than
// blocking the publisher — this is a best-effort tail, not a durable log.
func (b *Broadcaster) Publish(topic string, record json.RawMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- record:
		default:
		}
	}
}

func (b *Broadcaster) subscribe(topic string) chan json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan json.RawMessage, b.bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

func (b *Broadcaster) unsubscribe(topic string, ch chan json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[topic]) == 0 {
		delete(b.subscribers, topic)
	}
	close(ch)
}

// ServeHTTP upgrades the request to a WebSocket and streams every record
// published to the "topic" query parameter until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "missing topic query parameter", http.StatusBadRequest)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := b.subscribe(topic)
	defer b.unsubscribe(topic, ch)

	for record := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, record); err != nil {
			return
		}
	}
}
