// Package ticks defines the market.tick.v1 envelope and its dedupe identity.
package ticks

import (
	"fmt"
)

// Tick is one trade report, keyed by (symbol, ts_ms, price_ticks, ...).
type Tick struct {
	Symbol     string `json:"symbol"`
	TsMs       int64  `json:"ts_ms"`
	PriceTicks int64  `json:"price_ticks"`
	Size       int64  `json:"size"`
	TradeID    string `json:"trade_id,omitempty"`
	Seq        *int64 `json:"seq,omitempty"`
	Venue      string `json:"venue,omitempty"`
}

// Validate checks the minimal shape a tick must have to be processed at
// all. A malformed tick (empty symbol, price_ticks or size below 1) is an
// InvalidInput error — no state changes, nothing published. ts_ms is not
// checked: a tick whose ts_ms is absent decodes as 0 and is accepted.
func (t Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if t.PriceTicks < 1 {
		return fmt.Errorf("%w: price_ticks must be >= 1", ErrInvalidInput)
	}
	if t.Size < 1 {
		return fmt.Errorf("%w: size must be >= 1", ErrInvalidInput)
	}
	return nil
}

// DedupeKey returns the identity used for duplicate detection, and whether
// the tick is dedupable at all. A tick with neither trade_id nor seq is not
// dedupable and is always accepted (ok == false).
func (t Tick) DedupeKey() (key string, ok bool) {
	if t.TradeID != "" {
		return t.TradeID, true
	}
	if t.Seq != nil {
		return fmt.Sprintf("%d:%d:%d:%d", *t.Seq, t.TsMs, t.PriceTicks, t.Size), true
	}
	return "", false
}
