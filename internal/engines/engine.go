// Package engines is the rule-engine framework (§4.4): stateless readers
// that scan bus topics and emit well-formed signals with stable,
// content-addressed IDs. The business rules in this package (day, scalp,
// swing) are illustrative examples; the framework contract — read topics,
// compute a stable ID, validate, publish — is what the pipeline depends on.
package engines

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/signals"
	"github.com/streamforge/pipeline/internal/validate"
)

// RuleEngine is a stateless signal reader: given a symbol, it re-derives
// whatever signals currently apply from the bus topics it reads and submits
// them through the validator. Rule engines hold no in-memory state across
// calls — re-running Evaluate over the same bus contents is always safe and
// produces the same stable IDs, which is how replay dedupe works without a
// transactional store.
type RuleEngine interface {
	Name() string
	Evaluate(ctx context.Context, b bus.EventBus, validator *validate.Validator, symbol string) error
}

func readBarsForSymbol(ctx context.Context, b bus.EventBus, symbol string) ([]barJSON, error) {
	raws, err := b.ReadAll(ctx, bus.TopicOhlcvBar)
	if err != nil {
		return nil, fmt.Errorf("engines: read %s: %w", bus.TopicOhlcvBar, err)
	}
	var bars []barJSON
	for _, raw := range raws {
		var bar barJSON
		if err := json.Unmarshal(raw, &bar); err != nil {
			return nil, fmt.Errorf("engines: decode bar: %w", err)
		}
		if bar.Symbol == symbol {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

type barJSON struct {
	Symbol           string `json:"symbol"`
	TimeframeStartMs int64  `json:"timeframe_start_ms"`
	Open             int64  `json:"open"`
	High             int64  `json:"high"`
	Low              int64  `json:"low"`
	Close            int64  `json:"close"`
	Volume           int64  `json:"volume"`
	TradeCount       int64  `json:"trade_count"`
}

func buildSignal(id, symbol, side, signalType string, anchorTs, entry, stop, target int64, rr float64, conf int, explShort, explLong, modelVersion, source string, ttlMs int64, debug map[string]interface{}) signals.Signal {
	ttl := ttlMs
	rrCopy := rr
	return signals.Signal{
		ID:               id,
		Symbol:           symbol,
		Side:             side,
		SignalType:       signalType,
		GeneratedTsMs:    anchorTs,
		EntryPriceTicks:  entry,
		StopPriceTicks:   stop,
		TargetPriceTicks: []int64{target},
		ConfidencePct:    conf,
		RR:               &rrCopy,
		TTLMs:            &ttl,
		ModelVersion:     modelVersion,
		Source:           source,
		ExplanationShort: explShort,
		ExplanationLong:  explLong,
		Debug:            debug,
	}
}

func publishSignal(ctx context.Context, validator *validate.Validator, sig signals.Signal) error {
	_, err := validator.ValidateAndPublishSignal(ctx, sig)
	return err
}
