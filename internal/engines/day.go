package engines

import (
	"context"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/signals"
	"github.com/streamforge/pipeline/internal/validate"
)

// DayEngine emits a DAY breakout signal when the latest bar closes above the
// previous bar's high on more than 1.2x its volume. Example rule body; the
// contract (stable ID, validate, publish) is the part that matters.
type DayEngine struct{}

func (DayEngine) Name() string { return "day_engine" }

func (DayEngine) Evaluate(ctx context.Context, b bus.EventBus, validator *validate.Validator, symbol string) error {
	bars, err := readBarsForSymbol(ctx, b, symbol)
	if err != nil {
		return err
	}
	if len(bars) < 2 {
		return nil
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]

	if cur.Close <= prev.High || float64(cur.Volume) <= float64(prev.Volume)*1.2 {
		return nil
	}

	entry := cur.Close
	stop := prev.Low
	target := entry + (entry-stop)*2
	anchorTs := cur.TimeframeStartMs

	sig := buildSignal(
		signals.StableID(symbol, "DAY", anchorTs, entry, stop),
		symbol, "LONG", "DAY", anchorTs, entry, stop, target, 2.0, 62,
		"day breakout with volume expansion", "day_engine minimal breakout rule fired",
		"day_v1", "day_engine", 3_600_000,
		map[string]interface{}{"prev_high": prev.High},
	)
	return publishSignal(ctx, validator, sig)
}
