// Package config holds environment-driven runtime knobs for every pipeline
// worker. Nothing here is read by the core algorithms directly; components
// take plain Go structs so they stay testable without touching the
// environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates every worker's configuration.
type Config struct {
	Aggregator    AggregatorConfig
	Indicators    IndicatorConfig
	Fusion        FusionConfig
	Bus           BusConfig
	Observability ObservabilityConfig
}

// AggregatorConfig controls the deterministic OHLCV aggregator.
type AggregatorConfig struct {
	TimeframeMs      int64
	AllowedLatenessMs int64
	DedupeLimit      int
	PruneBatch       int
}

// IndicatorConfig controls the per-symbol rolling indicator engine.
type IndicatorConfig struct {
	EMAShort          int
	EMALong           int
	ATRPeriod         int
	StopATRMultiplier float64
	TargetRRMultiplier float64
	TickDecimals      int32
}

// FusionConfig controls the fusion engine. Weights/threshold are loaded from
// the fusion.plan.v1 YAML document at PlanPath (see internal/fusion.LoadPlan);
// an empty PlanPath makes LoadPlan return fusion.DefaultPlan().
type FusionConfig struct {
	PlanPath string
}

// BusConfig selects and configures the event bus backend.
type BusConfig struct {
	Backend  string // "file" or "redis"
	BaseDir  string
	RedisURL string
}

// ObservabilityConfig controls the structured logger and metrics exporter.
type ObservabilityConfig struct {
	Component   string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// FromEnv builds a Config from the process environment, falling back to the
// same defaults the reference pipeline ships with.
func FromEnv() Config {
	return Config{
		Aggregator: AggregatorConfig{
			TimeframeMs:       intEnv("PIPELINE_OHLCV_TIMEFRAME_MS", 60_000),
			AllowedLatenessMs: intEnv("PIPELINE_OHLCV_ALLOWED_LATENESS_MS", 1_000),
			DedupeLimit:       int(intEnv("PIPELINE_OHLCV_DEDUPE_LIMIT", 10_000)),
			PruneBatch:        int(intEnv("PIPELINE_OHLCV_PRUNE_BATCH", 1_000)),
		},
		Indicators: IndicatorConfig{
			EMAShort:           int(intEnv("PIPELINE_IND_EMA_SHORT", 9)),
			EMALong:            int(intEnv("PIPELINE_IND_EMA_LONG", 21)),
			ATRPeriod:          int(intEnv("PIPELINE_IND_ATR_PERIOD", 14)),
			StopATRMultiplier:  floatEnv("PIPELINE_IND_STOP_ATR_MULT", 1.5),
			TargetRRMultiplier: floatEnv("PIPELINE_IND_TARGET_RR_MULT", 1.5),
			TickDecimals:       int32(intEnv("PIPELINE_TICK_DECIMALS", 2)),
		},
		Fusion: FusionConfig{
			PlanPath: strEnv("PIPELINE_FUSION_PLAN_PATH", ""),
		},
		Bus: BusConfig{
			Backend:  strEnv("PIPELINE_BUS_BACKEND", "file"),
			BaseDir:  strEnv("PIPELINE_BUS_DIR", "./tmp_event_bus"),
			RedisURL: strEnv("PIPELINE_BUS_REDIS_URL", "redis://127.0.0.1:6379/0"),
		},
		Observability: ObservabilityConfig{
			Component:   strEnv("PIPELINE_SERVICE_NAME", "pipeline"),
			LogLevel:    strEnv("PIPELINE_LOG_LEVEL", "info"),
			LogFormat:   strEnv("PIPELINE_LOG_FORMAT", "json"),
			MetricsAddr: strEnv("PIPELINE_METRICS_ADDR", ":9464"),
		},
	}
}

func intEnv(name string, def int64) int64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func floatEnv(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}

func strEnv(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}

// DurationEnv parses a millisecond env var into a time.Duration, for
// callers that need a time.Duration rather than a raw int64.
func DurationEnv(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
