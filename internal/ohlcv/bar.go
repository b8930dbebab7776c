package ohlcv

// Bar is one OHLCV window, keyed by (Symbol, TimeframeStartMs).
type Bar struct {
	Symbol           string `json:"symbol"`
	TimeframeMs      int64  `json:"timeframe_ms"`
	TimeframeStartMs int64  `json:"timeframe_start_ms"`
	Open             int64  `json:"open"`
	High             int64  `json:"high"`
	Low              int64  `json:"low"`
	Close            int64  `json:"close"`
	Volume           int64  `json:"volume"`
	TradeCount       int64  `json:"trade_count"`
	Version          int64  `json:"version"`
}

func (b Bar) clone() Bar {
	return b
}

// barRecord is the wire shape published to ohlcv.bar.v1 / ohlcv.correction.v1.
type barRecord struct {
	Symbol           string `json:"symbol"`
	TimeframeMs      int64  `json:"timeframe_ms"`
	TimeframeStartMs int64  `json:"timeframe_start_ms"`
	Open             int64  `json:"open"`
	High             int64  `json:"high"`
	Low              int64  `json:"low"`
	Close            int64  `json:"close"`
	Volume           int64  `json:"volume"`
	TradeCount       int64  `json:"trade_count"`
	Version          int64  `json:"version"`
	Replaced         bool   `json:"replaced"`
	EmittedTsMs      int64  `json:"emitted_ts_ms"`
}

func newBarRecord(b Bar, replaced bool, emittedTsMs int64) barRecord {
	return barRecord{
		Symbol:           b.Symbol,
		TimeframeMs:      b.TimeframeMs,
		TimeframeStartMs: b.TimeframeStartMs,
		Open:             b.Open,
		High:             b.High,
		Low:              b.Low,
		Close:            b.Close,
		Volume:           b.Volume,
		TradeCount:       b.TradeCount,
		Version:          b.Version,
		Replaced:         replaced,
		EmittedTsMs:      emittedTsMs,
	}
}

// metricsRecord is the wire shape published to metrics.ohlcv.v1.
type metricsRecord struct {
	Symbol           string         `json:"symbol"`
	TimeframeStartMs int64          `json:"timeframe_start_ms"`
	TimeframeMs      int64          `json:"timeframe_ms"`
	TradeCount       int64          `json:"trade_count"`
	Volume           int64          `json:"volume"`
	EmittedTsMs      int64          `json:"emitted_ts_ms"`
	Counters         map[string]int64 `json:"counters"`
}

// barKey identifies one (symbol, timeframe_start_ms) window.
type barKey struct {
	symbol   string
	startMs  int64
}
