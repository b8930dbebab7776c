package engines

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/signals"
	"github.com/streamforge/pipeline/internal/ticks"
	"github.com/streamforge/pipeline/internal/validate"
)

type orderbookLevel struct {
	BidPriceTicks int64 `json:"bid_price_ticks"`
	AskPriceTicks int64 `json:"ask_price_ticks"`
}

type orderbookSnapshot struct {
	Symbol string           `json:"symbol"`
	TsMs   int64            `json:"ts_ms"`
	Levels []orderbookLevel `json:"levels"`
}

// ScalpEngine emits a SCALP signal when the top-of-book spread is tight
// (<= 1 tick) and the symbol's trade prints on market.tick.v1 show at least
// 2x as many prints at the ask as at the bid (and at least one). Example rule body, supplemented from the original
// pipeline's orderbook-driven scalp rule (orderbook.snap.v1 is not part of
// the core topic catalog but is a natural companion input for this engine).
type ScalpEngine struct{}

func (ScalpEngine) Name() string { return "scalp_engine" }

func (ScalpEngine) Evaluate(ctx context.Context, b bus.EventBus, validator *validate.Validator, symbol string) error {
	tickRaws, err := b.ReadAll(ctx, bus.TopicMarketTick)
	if err != nil {
		return fmt.Errorf("engines: read %s: %w", bus.TopicMarketTick, err)
	}
	var symbolTicks []ticks.Tick
	for _, raw := range tickRaws {
		var t ticks.Tick
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("engines: decode tick: %w", err)
		}
		if t.Symbol == symbol {
			symbolTicks = append(symbolTicks, t)
		}
	}

	bookRaws, err := b.ReadAll(ctx, bus.TopicOrderbookSnapshot)
	if err != nil {
		return fmt.Errorf("engines: read %s: %w", bus.TopicOrderbookSnapshot, err)
	}

	for _, raw := range bookRaws {
		var ob orderbookSnapshot
		if err := json.Unmarshal(raw, &ob); err != nil {
			return fmt.Errorf("engines: decode orderbook: %w", err)
		}
		if ob.Symbol != symbol || len(ob.Levels) == 0 {
			continue
		}
		top := ob.Levels[0]
		spread := top.AskPriceTicks - top.BidPriceTicks
		if spread > 1 {
			continue
		}

		var buys, sells int64
		for _, t := range symbolTicks {
			switch {
			case t.PriceTicks >= top.AskPriceTicks:
				buys++
			case t.PriceTicks <= top.BidPriceTicks:
				sells++
			}
		}
		if buys < max64(1, sells*2) {
			continue
		}

		entry := top.AskPriceTicks
		stop := top.BidPriceTicks
		target := entry + spread*5
		anchorTs := ob.TsMs

		sig := buildSignal(
			signals.StableID(symbol, "SCALP", anchorTs, entry, stop),
			symbol, "LONG", "SCALP", anchorTs, entry, stop, target, 1.0, 55,
			"scalp spread compression + buy prints", "scalp_engine minimal rule fired",
			"scalp_v1", "scalp_engine", 300_000,
			map[string]interface{}{"spread_ticks": spread},
		)
		if err := publishSignal(ctx, validator, sig); err != nil {
			return err
		}
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
