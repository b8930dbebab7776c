// Package bus implements the append-only topic log that every pipeline
// component reads from and publishes to. A publish appends exactly one
// canonical-JSON record (keys lexicographically sorted, no whitespace)
// terminated by a newline; a read returns every record published so far, in
// insertion order. The bus never interprets payloads — schema enforcement
// happens at the producer, per §4.1 of the design.
package bus

import (
	"context"
	"encoding/json"
)

// Topic names from the external interface catalog.
const (
	TopicMarketTick        = "market.tick.v1"
	TopicOhlcvBar          = "ohlcv.bar.v1"
	TopicOhlcvCorrection   = "ohlcv.correction.v1"
	TopicMetricsOhlcv      = "metrics.ohlcv.v1"
	TopicIndicatorsBar     = "indicators.bar.v1"
	TopicSignalDisplay     = "signal.display.v1"
	TopicArticleAnalysis   = "article.analysis.v1"
	TopicFusionPlan        = "fusion.plan.v1"
	TopicFusionTrace       = "fusion.trace.v1"
	TopicCandidate         = "candidate.v1"
	TopicAuditRecords      = "audit.records.v1"
	TopicOrderbookSnapshot = "orderbook.snap.v1"
)

// EventBus is the contract every component programs against. Implementations
// must preserve insertion order per topic and must never tear a record: a
// read either sees a full line or it doesn't see it at all.
type EventBus interface {
	// Publish atomically appends record to topic as one canonical-JSON line.
	Publish(ctx context.Context, topic string, record interface{}) error
	// ReadAll returns every record published to topic so far, in insertion
	// order. An empty/absent topic returns an empty, non-nil slice.
	ReadAll(ctx context.Context, topic string) ([]json.RawMessage, error)
}

// Canonicalize re-marshals v so that object keys are sorted lexicographically
// and the output carries no insignificant whitespace. encoding/json already
// marshals map[string]interface{} with sorted keys; round-tripping through a
// generic interface{} gets the same guarantee for arbitrary structs without
// requiring every producer to build a map by hand.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
