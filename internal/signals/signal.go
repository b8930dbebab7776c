// Package signals defines the signal envelope shared by the indicator
// engine, the rule-engine framework, and the fusion engine, and the stable,
// content-addressed ID formula that makes signal emission idempotent across
// replays.
package signals

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signal is one trading signal emitted onto signal.display.v1.
type Signal struct {
	ID                string                 `json:"id"`
	Symbol            string                 `json:"symbol"`
	Side              string                 `json:"side"`
	SignalType        string                 `json:"signal_type"`
	GeneratedTsMs     int64                  `json:"generated_ts_ms"`
	EntryPriceTicks   int64                  `json:"entry_price_ticks"`
	StopPriceTicks    int64                  `json:"stop_price_ticks"`
	TargetPriceTicks  []int64                `json:"target_price_ticks"`
	ConfidencePct     int                    `json:"confidence_pct"`
	RR                *float64               `json:"rr,omitempty"`
	TTLMs             *int64                 `json:"ttl_ms,omitempty"`
	ModelVersion      string                 `json:"model_version,omitempty"`
	Source            string                 `json:"source,omitempty"`
	ExplanationShort  string                 `json:"explanation_short,omitempty"`
	ExplanationLong   string                 `json:"explanation_long,omitempty"`
	Debug             map[string]interface{} `json:"debug,omitempty"`
}

// StableID computes the §3 stable signal ID: the first 24 hex characters of
// SHA-256 over "{symbol}|{signal_type}|{anchor_ts}|{entry}|{stop}". Identical
// inputs always produce the identical ID, which is how replay idempotence is
// achieved at the signal layer — a rule engine re-run over the same bars
// emits the same signal IDs rather than duplicates.
func StableID(symbol, signalType string, anchorTsMs, entry, stop int64) string {
	material := fmt.Sprintf("%s|%s|%d|%d|%d", symbol, signalType, anchorTsMs, entry, stop)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:24]
}
