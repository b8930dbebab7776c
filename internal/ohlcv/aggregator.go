// Package ohlcv implements the deterministic OHLCV aggregator: windowing,
// dedupe, watermark finalization, and bounded-retroactive correction. This
// is the core of the pipeline (§4.2) — the algorithm is grounded directly on
// the reference aggregator and is deliberately single-threaded: concurrency
// exists only between component instances, never inside one.
package ohlcv

import (
	"context"
	"fmt"
	"sort"

	"github.com/streamforge/pipeline/internal/audit"
	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/metrics"
	"github.com/streamforge/pipeline/internal/ticks"
)

// Config holds the aggregator's runtime knobs.
type Config struct {
	TimeframeMs       int64
	AllowedLatenessMs int64
	DedupeLimit       int
	PruneBatch        int
}

// Counters tracks the aggregator's lifetime activity, surfaced on every
// metrics.ohlcv.v1 record.
type Counters struct {
	BarsPublished int64
	Corrections   int64
	Duplicates    int64
}

func (c Counters) asMap() map[string]int64 {
	return map[string]int64{
		"bars_published": c.BarsPublished,
		"corrections":    c.Corrections,
		"duplicates":     c.Duplicates,
	}
}

// Aggregator is one deterministic OHLCV aggregator instance. It owns no
// goroutines and does no I/O beyond the injected EventBus and audit
// publisher. NowMs stamps emitted_ts_ms, audit timestamps and dedupe
// first-seen times, and is the watermark clock when HandleTick gets no
// override; window starts come from tick timestamps only, so two runs over
// the same tick stream with the same NowMs produce byte-identical output.
type Aggregator struct {
	cfg     Config
	bus     bus.EventBus
	audit   *audit.Publisher
	nowMs   func() int64
	metrics *metrics.Registry

	open      map[barKey]Bar
	published map[barKey]Bar
	dedupe    map[string]*orderedDedupeSet
	counters  Counters
}

// New builds an Aggregator. nowMs is the injectable time source for
// emitted_ts_ms, audit timestamps, dedupe first-seen times, and the
// watermark clock when HandleTick is called without a nowMs override.
func New(cfg Config, b bus.EventBus, nowMs func() int64) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		bus:       b,
		audit:     audit.NewPublisher(b, nowMs),
		nowMs:     nowMs,
		open:      make(map[barKey]Bar),
		published: make(map[barKey]Bar),
		dedupe:    make(map[string]*orderedDedupeSet),
	}
}

// Counters returns a snapshot of the aggregator's lifetime counters.
func (a *Aggregator) Counters() Counters {
	return a.counters
}

// SetMetrics attaches a Prometheus registry that the aggregator reports
// real bar/correction/duplicate activity into as it happens. Optional: a
// nil or never-set registry means metrics reporting is simply skipped.
func (a *Aggregator) SetMetrics(reg *metrics.Registry) {
	a.metrics = reg
}

func floorStart(tsMs, timeframeMs int64) int64 {
	return (tsMs / timeframeMs) * timeframeMs
}

// HandleTick processes one tick for symbol: it dedupes, windows, applies
// either the correction path (if the window already published) or the open
// path, then finalizes any window whose watermark has passed. nowMs
// overrides the injected time source for this call when non-nil, letting
// callers replay deterministically with pinned wall-clock values.
func (a *Aggregator) HandleTick(ctx context.Context, symbol string, t ticks.Tick, nowMs *int64) error {
	t.Symbol = symbol
	if err := t.Validate(); err != nil {
		return err
	}

	now := a.nowMs()
	if nowMs != nil {
		now = *nowMs
	}

	if dup, err := a.checkDuplicate(ctx, symbol, t); err != nil {
		return err
	} else if dup {
		return nil
	}

	start := floorStart(t.TsMs, a.cfg.TimeframeMs)
	key := barKey{symbol: symbol, startMs: start}

	if published, ok := a.published[key]; ok {
		if err := a.applyCorrection(ctx, key, published, t); err != nil {
			return err
		}
	} else {
		a.applyOpenTick(key, symbol, start, t)
	}

	return a.finalizeExpired(ctx, now)
}

func (a *Aggregator) checkDuplicate(ctx context.Context, symbol string, t ticks.Tick) (bool, error) {
	key, dedupable := t.DedupeKey()
	if !dedupable {
		return false, nil
	}

	seen, ok := a.dedupe[symbol]
	if !ok {
		seen = newOrderedDedupeSet()
		a.dedupe[symbol] = seen
	}

	if seen.Contains(key) {
		a.counters.Duplicates++
		if a.metrics != nil {
			a.metrics.Duplicates.Inc()
		}
		return true, a.audit.Emit(ctx, "tick_duplicate", t)
	}

	seen.Insert(key, a.nowMs())
	if seen.Len() > a.cfg.DedupeLimit {
		toPrune := a.cfg.PruneBatch
		if toPrune > seen.Len() {
			toPrune = seen.Len()
		}
		seen.EvictOldest(toPrune)
	}
	return false, nil
}

func (a *Aggregator) applyOpenTick(key barKey, symbol string, start int64, t ticks.Tick) {
	bar, ok := a.open[key]
	if !ok {
		a.open[key] = Bar{
			Symbol:           symbol,
			TimeframeMs:      a.cfg.TimeframeMs,
			TimeframeStartMs: start,
			Open:             t.PriceTicks,
			High:             t.PriceTicks,
			Low:              t.PriceTicks,
			Close:            t.PriceTicks,
			Volume:           t.Size,
			TradeCount:       1,
			Version:          1,
		}
		return
	}
	if t.PriceTicks > bar.High {
		bar.High = t.PriceTicks
	}
	if t.PriceTicks < bar.Low {
		bar.Low = t.PriceTicks
	}
	bar.Close = t.PriceTicks
	bar.Volume += t.Size
	bar.TradeCount++
	a.open[key] = bar
}

// applyCorrection rebuilds a previously published bar against a late tick.
// Only high/low/volume/trade_count may change; open and close are frozen
// once a bar is published. A no-op late tick produces no correction record.
func (a *Aggregator) applyCorrection(ctx context.Context, key barKey, published Bar, t ticks.Tick) error {
	candidate := published.clone()
	changed := false

	if t.PriceTicks > candidate.High {
		candidate.High = t.PriceTicks
		changed = true
	}
	if t.PriceTicks < candidate.Low {
		candidate.Low = t.PriceTicks
		changed = true
	}
	candidate.Volume += t.Size
	candidate.TradeCount++
	changed = changed || candidate.Volume != published.Volume || candidate.TradeCount != published.TradeCount

	if !changed {
		return nil
	}

	candidate.Version = published.Version + 1
	a.published[key] = candidate
	a.counters.Corrections++
	return a.publishBar(ctx, candidate, true)
}

// publishBar always stamps emitted_ts_ms from the real time source, never
// from a caller-supplied watermark override — only the finalize decision
// itself is replayable against a pinned clock.
func (a *Aggregator) publishBar(ctx context.Context, bar Bar, replaced bool) error {
	rec := newBarRecord(bar, replaced, a.nowMs())
	topic := bus.TopicOhlcvBar
	eventType := "ohlcv_bar_published"
	if replaced {
		topic = bus.TopicOhlcvCorrection
		eventType = "ohlcv_bar_corrected"
	}
	if err := a.bus.Publish(ctx, topic, rec); err != nil {
		return fmt.Errorf("ohlcv: publish %s: %w", topic, err)
	}
	if replaced {
		if a.metrics != nil {
			a.metrics.Corrections.Inc()
		}
	} else {
		a.counters.BarsPublished++
		if a.metrics != nil {
			a.metrics.BarsPublished.Inc()
		}
	}
	return a.audit.Emit(ctx, eventType, rec)
}

func (a *Aggregator) emitMetrics(ctx context.Context, bar Bar) error {
	rec := metricsRecord{
		Symbol:           bar.Symbol,
		TimeframeStartMs: bar.TimeframeStartMs,
		TimeframeMs:      bar.TimeframeMs,
		TradeCount:       bar.TradeCount,
		Volume:           bar.Volume,
		EmittedTsMs:      a.nowMs(),
		Counters:         a.counters.asMap(),
	}
	if err := a.bus.Publish(ctx, bus.TopicMetricsOhlcv, rec); err != nil {
		return fmt.Errorf("ohlcv: publish metrics: %w", err)
	}
	return a.audit.Emit(ctx, "ohlcv_metrics", rec)
}

// finalizeExpired publishes every open bar whose watermark (start +
// timeframe + allowed_lateness) has passed, in ascending start order, then
// moves it into the published table. now is the watermark clock: it may be
// a caller-pinned value (replay) or the live time source.
func (a *Aggregator) finalizeExpired(ctx context.Context, now int64) error {
	for _, key := range a.expiredKeys(now) {
		bar := a.open[key]
		if err := a.publishBar(ctx, bar, false); err != nil {
			return err
		}
		a.published[key] = bar
		delete(a.open, key)
		if err := a.emitMetrics(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) expiredKeys(now int64) []barKey {
	var expired []barKey
	for key, bar := range a.open {
		watermark := bar.TimeframeStartMs + bar.TimeframeMs + a.cfg.AllowedLatenessMs
		if now >= watermark {
			expired = append(expired, key)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].startMs != expired[j].startMs {
			return expired[i].startMs < expired[j].startMs
		}
		return expired[i].symbol < expired[j].symbol
	})
	return expired
}

// Flush unconditionally finalizes every open bar, in ascending start order.
// Callers must invoke this before clean shutdown and at the end of replay
// runs so no open window is silently dropped.
func (a *Aggregator) Flush(ctx context.Context) error {
	keys := make([]barKey, 0, len(a.open))
	for key := range a.open {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].startMs != keys[j].startMs {
			return keys[i].startMs < keys[j].startMs
		}
		return keys[i].symbol < keys[j].symbol
	})
	for _, key := range keys {
		bar := a.open[key]
		if err := a.publishBar(ctx, bar, false); err != nil {
			return err
		}
		a.published[key] = bar
		delete(a.open, key)
		if err := a.emitMetrics(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}
