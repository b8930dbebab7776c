// Package indicators implements the stateful per-instrument rolling
// EMA/ATR indicator engine (§4.3): it folds each published bar into rolling
// state, emits an indicators.bar.v1 record unconditionally, and on a strict
// upward EMA crossover emits a LONG scalp signal to signal.display.v1.
package indicators

import (
	"context"
	"fmt"
	"math"

	"github.com/streamforge/pipeline/internal/audit"
	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/metrics"
	"github.com/streamforge/pipeline/internal/ohlcv"
	"github.com/streamforge/pipeline/internal/signals"
	"github.com/streamforge/pipeline/internal/validate"
)

const crossoverEpsilon = 1e-9

// Config holds the warm-up periods and signal-sizing knobs.
type Config struct {
	EMAShort           int
	EMALong            int
	ATRPeriod          int
	StopATRMultiplier  float64
	TargetRRMultiplier float64
}

// Engine is one indicator engine instance, keyed by symbol.
type Engine struct {
	cfg       Config
	bus       bus.EventBus
	audit     *audit.Publisher
	validator *validate.Validator
	nowMs     func() int64
	metrics   *metrics.Registry

	states map[string]*state
}

// SetMetrics attaches a Prometheus registry that the engine reports real
// emitted-signal counts into, labeled by signal_type. Optional: a nil or
// never-set registry means metrics reporting is simply skipped.
func (e *Engine) SetMetrics(reg *metrics.Registry) {
	e.metrics = reg
}

// New builds an Engine. nowMs is used only for emitted_ts_ms /
// generated_ts_ms fields, never for indicator math.
func New(cfg Config, b bus.EventBus, validator *validate.Validator, nowMs func() int64) *Engine {
	return &Engine{
		cfg:       cfg,
		bus:       b,
		audit:     audit.NewPublisher(b, nowMs),
		validator: validator,
		nowMs:     nowMs,
		states:    make(map[string]*state),
	}
}

// barView is the subset of ohlcv.Bar this engine consumes, so callers can
// feed it either the aggregator's own Bar type or a deserialized wire record.
type barView struct {
	Symbol           string
	TimeframeStartMs int64
	Open             int64
	High             int64
	Low              int64
	Close            int64
	Volume           int64
	TradeCount       int64
	Version          int64
}

func barViewFrom(b ohlcv.Bar) barView {
	return barView{
		Symbol:           b.Symbol,
		TimeframeStartMs: b.TimeframeStartMs,
		Open:             b.Open,
		High:             b.High,
		Low:              b.Low,
		Close:            b.Close,
		Volume:           b.Volume,
		TradeCount:       b.TradeCount,
		Version:          b.Version,
	}
}

type indicatorsRecord struct {
	Symbol           string      `json:"symbol"`
	TimeframeStartMs int64       `json:"timeframe_start_ms"`
	Indicators       indicatorsJSON `json:"indicators"`
	Bar              barJSON     `json:"bar"`
	EmittedTsMs      int64       `json:"emitted_ts_ms"`
}

type indicatorsJSON struct {
	EMAShort *float64 `json:"ema_short"`
	EMALong  *float64 `json:"ema_long"`
	ATR      *float64 `json:"atr"`
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
	Version          int64  `json:"version"`
}

// HandleBar folds bar into the engine's rolling state for its symbol,
// publishes indicators.bar.v1 unconditionally, and emits a crossover signal
// to signal.display.v1 when the crossover condition of §4.3 fires.
func (e *Engine) HandleBar(ctx context.Context, bar ohlcv.Bar) error {
	v := barViewFrom(bar)
	st, ok := e.states[v.Symbol]
	if !ok {
		st = newState(e.cfg.EMAShort, e.cfg.EMALong, e.cfg.ATRPeriod)
		e.states[v.Symbol] = st
	}

	snap, prevShort, prevLong := st.update(float64(v.High), float64(v.Low), float64(v.Close))

	rec := indicatorsRecord{
		Symbol:           v.Symbol,
		TimeframeStartMs: v.TimeframeStartMs,
		Indicators:       indicatorsJSON{EMAShort: snap.EMAShort, EMALong: snap.EMALong, ATR: snap.ATR},
		Bar: barJSON{
			Symbol: v.Symbol, TimeframeStartMs: v.TimeframeStartMs,
			Open: v.Open, High: v.High, Low: v.Low, Close: v.Close,
			Volume: v.Volume, TradeCount: v.TradeCount, Version: v.Version,
		},
		EmittedTsMs: e.nowMs(),
	}
	if err := e.bus.Publish(ctx, bus.TopicIndicatorsBar, rec); err != nil {
		return fmt.Errorf("indicators: publish %s: %w", bus.TopicIndicatorsBar, err)
	}

	if snap.EMAShort == nil || snap.EMALong == nil || snap.ATR == nil {
		return nil // Starvation: not warm yet, no signal possible.
	}

	crossedUp := prevShort != nil && prevLong != nil &&
		(*prevShort-*prevLong) <= crossoverEpsilon &&
		(*snap.EMAShort-*snap.EMALong) > crossoverEpsilon
	if !crossedUp || *snap.ATR <= 0 {
		return nil
	}

	return e.emitCrossoverSignal(ctx, v, *snap.EMAShort, *snap.EMALong, *snap.ATR)
}

func (e *Engine) emitCrossoverSignal(ctx context.Context, v barView, emaShort, emaLong, atr float64) error {
	entry := v.Close
	stopOffset := int64(math.Round(e.cfg.StopATRMultiplier * atr))
	stop := entry - stopOffset
	if stop < 1 {
		stop = 1
	}
	target := entry + int64(math.Round(e.cfg.TargetRRMultiplier*float64(entry-stop)))

	magnitude := (emaShort - emaLong) / math.Max(1e-6, atr)
	confidence := int(math.Round(50 + 10*magnitude))
	if confidence < 30 {
		confidence = 30
	}
	if confidence > 95 {
		confidence = 95
	}

	ttl := int64(300_000)
	sig := signals.Signal{
		ID:               fmt.Sprintf("signal-%s-%d", v.Symbol, v.TimeframeStartMs),
		Symbol:           v.Symbol,
		Side:             "LONG",
		SignalType:       "SCALP",
		GeneratedTsMs:    e.nowMs(),
		EntryPriceTicks:  entry,
		StopPriceTicks:   stop,
		TargetPriceTicks: []int64{target},
		ConfidencePct:    confidence,
		ModelVersion:     "ind_engine_v1",
		Source:           "indicators_engine",
		ExplanationShort: "ema_short crossover above ema_long with ATR stop",
		TTLMs:            &ttl,
		Debug: map[string]interface{}{
			"ema_short":     round6(emaShort),
			"ema_long":      round6(emaLong),
			"atr":           round6(atr),
			"magnitude_atr": round6(magnitude),
		},
	}

	result, err := e.validator.ValidateAndPublishSignal(ctx, sig)
	if err != nil {
		return err
	}
	if result.Status == validate.StatusOK {
		// The validator itself reports the signals_emitted counter for the
		// accepted path; nothing further to do here.
		return nil
	}

	// Permissive fallback: a validator rejection still publishes the raw
	// signal, preserved for compatibility with the original pipeline. This
	// bypasses the validator, so the counter is reported here instead.
	if err := e.bus.Publish(ctx, bus.TopicSignalDisplay, sig); err != nil {
		return fmt.Errorf("indicators: publish %s: %w", bus.TopicSignalDisplay, err)
	}
	if e.metrics != nil {
		e.metrics.SignalsEmitted.WithLabelValues(sig.SignalType).Inc()
	}
	return nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
