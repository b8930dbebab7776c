// Package audit publishes the append-only audit.records.v1 trail. Audit
// records are never read back by the pipeline itself — they exist purely
// for external observers and tests, so this package only ever writes.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/streamforge/pipeline/internal/bus"
)

// Record is the canonical audit envelope: {id, event_type, ts_ms, payload_json}.
type Record struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	TsMs        int64  `json:"ts_ms"`
	PayloadJSON string `json:"payload_json"`
}

// Publisher emits audit records onto audit.records.v1. NowMs is injectable
// so callers can pin emitted_ts_ms-equivalent fields in tests.
type Publisher struct {
	Bus   bus.EventBus
	NowMs func() int64
}

// NewPublisher wires a Publisher against an EventBus and a time source.
func NewPublisher(b bus.EventBus, nowMs func() int64) *Publisher {
	return &Publisher{Bus: b, NowMs: nowMs}
}

// Emit canonicalizes payload (sorted keys, compact) and publishes one audit
// record of eventType.
func (p *Publisher) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := bus.Canonicalize(payload)
	if err != nil {
		return err
	}
	rec := Record{
		ID:          uuid.New().String(),
		EventType:   eventType,
		TsMs:        p.NowMs(),
		PayloadJSON: string(payloadJSON),
	}
	return p.Bus.Publish(ctx, bus.TopicAuditRecords, rec)
}

// Decode unmarshals a raw audit.records.v1 line into Record.
func Decode(raw json.RawMessage) (Record, error) {
	var r Record
	err := json.Unmarshal(raw, &r)
	return r, err
}
