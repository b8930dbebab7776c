package engines

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/signals"
	"github.com/streamforge/pipeline/internal/validate"
)

type articleJSON struct {
	ArticleID      string  `json:"article_id"`
	AnalysisTsMs   int64   `json:"analysis_ts_ms"`
	SentimentScore float64 `json:"sentiment_score"`
}

// SwingEngine emits a SWING breakout signal when the current close exceeds
// the prior swing high over the last 20 bars, suppressed if any recent news
// analysis carries strongly negative sentiment. Example rule body.
type SwingEngine struct{}

func (SwingEngine) Name() string { return "swing_engine" }

func (SwingEngine) Evaluate(ctx context.Context, b bus.EventBus, validator *validate.Validator, symbol string) error {
	bars, err := readBarsForSymbol(ctx, b, symbol)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	window := bars
	if len(window) > 20 {
		window = window[len(window)-20:]
	}

	var swingHigh int64
	if len(window) > 1 {
		swingHigh = window[0].High
		for _, b := range window[:len(window)-1] {
			if b.High > swingHigh {
				swingHigh = b.High
			}
		}
	} else {
		swingHigh = window[len(window)-1].High
	}

	swingLow := window[0].Low
	for _, b := range window {
		if b.Low < swingLow {
			swingLow = b.Low
		}
	}

	last := window[len(window)-1]
	if last.Close <= swingHigh {
		return nil
	}

	nowMs := last.TimeframeStartMs
	raws, err := b.ReadAll(ctx, bus.TopicArticleAnalysis)
	if err != nil {
		return fmt.Errorf("engines: read %s: %w", bus.TopicArticleAnalysis, err)
	}
	for _, raw := range raws {
		var a articleJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("engines: decode article: %w", err)
		}
		if a.AnalysisTsMs == 0 || nowMs-a.AnalysisTsMs >= 3_600_000 {
			continue
		}
		if a.SentimentScore < -0.5 {
			return nil
		}
	}

	entry := last.Close
	stop := swingLow
	target := entry + (entry-stop)*2

	sig := buildSignal(
		signals.StableID(symbol, "SWING", nowMs, entry, stop),
		symbol, "LONG", "SWING", nowMs, entry, stop, target, 2.0, 66,
		"swing breakout above structure", "swing_engine minimal structure rule fired",
		"swing_v1", "swing_engine", 86_400_000,
		map[string]interface{}{"swing_high": swingHigh, "swing_low": swingLow},
	)
	return publishSignal(ctx, validator, sig)
}
