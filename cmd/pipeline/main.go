// Command pipeline wires the aggregator, indicator engine, rule engines,
// and fusion engine together against a single configured event bus. Wiring
// details (CLI flags, packaging) are intentionally thin; the algorithms
// live in internal/.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/config"
	"github.com/streamforge/pipeline/internal/engines"
	"github.com/streamforge/pipeline/internal/fusion"
	"github.com/streamforge/pipeline/internal/indicators"
	"github.com/streamforge/pipeline/internal/metrics"
	"github.com/streamforge/pipeline/internal/observability"
	"github.com/streamforge/pipeline/internal/ohlcv"
	"github.com/streamforge/pipeline/internal/stream"
	"github.com/streamforge/pipeline/internal/validate"
)

func realNowMs() int64 {
	return time.Now().UnixMilli()
}

func main() {
	cfg := config.FromEnv()
	logger := observability.NewLogger(observability.Config{
		Component: cfg.Observability.Component,
		Level:     cfg.Observability.LogLevel,
		Format:    cfg.Observability.LogFormat,
	})
	ctx := context.Background()

	rawBus, err := bus.New(cfg.Bus.Backend, cfg.Bus.BaseDir, cfg.Bus.RedisURL, cfg.Observability.Component+":")
	if err != nil {
		logger.Error(ctx, "failed to construct event bus", err)
		os.Exit(1)
	}

	// Every component publishes through eventBus, so wrapping it here — not
	// inside each component — is what gives the live-tail WebSocket every
	// topic's traffic without any producer needing to know it exists.
	broadcaster := stream.NewBroadcaster(64)
	eventBus := bus.WithBroadcast(rawBus, func(topic string, record []byte) {
		broadcaster.Publish(topic, json.RawMessage(record))
	})
	if closer, ok := eventBus.(bus.Closer); ok {
		defer closer.Close()
	}

	plan, err := fusion.LoadPlan(cfg.Fusion.PlanPath)
	if err != nil {
		logger.Error(ctx, "failed to load fusion plan", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(reg)

	validator := validate.New(eventBus, realNowMs)
	validator.SetMetrics(metricsRegistry)

	aggregator := ohlcv.New(ohlcv.Config{
		TimeframeMs:       cfg.Aggregator.TimeframeMs,
		AllowedLatenessMs: cfg.Aggregator.AllowedLatenessMs,
		DedupeLimit:       cfg.Aggregator.DedupeLimit,
		PruneBatch:        cfg.Aggregator.PruneBatch,
	}, eventBus, realNowMs)
	aggregator.SetMetrics(metricsRegistry)

	indicatorEngine := indicators.New(indicators.Config{
		EMAShort:           cfg.Indicators.EMAShort,
		EMALong:            cfg.Indicators.EMALong,
		ATRPeriod:          cfg.Indicators.ATRPeriod,
		StopATRMultiplier:  cfg.Indicators.StopATRMultiplier,
		TargetRRMultiplier: cfg.Indicators.TargetRRMultiplier,
	}, eventBus, validator, realNowMs)
	indicatorEngine.SetMetrics(metricsRegistry)

	ruleEngines := []engines.RuleEngine{
		engines.DayEngine{},
		engines.ScalpEngine{},
		engines.SwingEngine{},
	}

	fusionEngine := fusion.New(plan, eventBus, realNowMs)
	fusionEngine.SetMetrics(metricsRegistry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/stream", broadcaster)
	go func() {
		if err := http.ListenAndServe(cfg.Observability.MetricsAddr, mux); err != nil {
			logger.Error(ctx, "metrics/stream server exited", err)
		}
	}()

	logger.Info(ctx, "pipeline wiring ready", map[string]interface{}{
		"bus_backend": cfg.Bus.Backend,
		"fusion_plan": plan.Version,
	})

	_ = aggregator
	_ = indicatorEngine
	_ = ruleEngines
	_ = fusionEngine
	log.Println("pipeline components constructed; feed ticks via your own ingest adapter")
}
