package indicators

// state holds one symbol's rolling EMA/ATR state. Memory per symbol is
// proportional to max(long, atrPeriod), never unbounded.
type state struct {
	short, long, atrPeriod int
	closesCap              int

	closes []float64 // ring buffer, capacity closesCap
	trs    []float64 // ring buffer, capacity atrPeriod

	emaShort, emaLong         *float64
	prevEmaShort, prevEmaLong *float64
	atr                       *float64
	lastClose                 *float64
}

func newState(short, long, atrPeriod int) *state {
	closesCap := long
	if atrPeriod > closesCap {
		closesCap = atrPeriod
	}
	closesCap += 10
	return &state{short: short, long: long, atrPeriod: atrPeriod, closesCap: closesCap}
}

func pushBounded(buf []float64, v float64, cap int) []float64 {
	buf = append(buf, v)
	if len(buf) > cap {
		buf = buf[len(buf)-cap:]
	}
	return buf
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func tail(xs []float64, n int) []float64 {
	return xs[len(xs)-n:]
}

// Snapshot is the per-bar indicator output; nil fields mean "not warm yet".
type Snapshot struct {
	EMAShort *float64
	EMALong  *float64
	ATR      *float64
}

// update folds one bar's OHLC into the rolling state and returns the new
// snapshot along with the pre-update EMAs (needed by the caller to detect a
// crossover at this bar).
func (s *state) update(high, low, close float64) (snap Snapshot, prevShort, prevLong *float64) {
	if s.lastClose == nil {
		lc := close
		s.lastClose = &lc
	}

	s.closes = pushBounded(s.closes, close, s.closesCap)

	s.prevEmaShort, s.prevEmaLong = s.emaShort, s.emaLong
	prevShort, prevLong = s.prevEmaShort, s.prevEmaLong

	if s.emaShort == nil && len(s.closes) >= s.short {
		v := mean(tail(s.closes, s.short))
		s.emaShort = &v
	} else if s.emaShort != nil {
		alpha := 2.0 / (float64(s.short) + 1)
		v := alpha*close + (1-alpha)*(*s.emaShort)
		s.emaShort = &v
	}

	if s.emaLong == nil && len(s.closes) >= s.long {
		v := mean(tail(s.closes, s.long))
		s.emaLong = &v
	} else if s.emaLong != nil {
		alpha := 2.0 / (float64(s.long) + 1)
		v := alpha*close + (1-alpha)*(*s.emaLong)
		s.emaLong = &v
	}

	tr := max3(high-low, absf(high-*s.lastClose), absf(low-*s.lastClose))
	s.trs = pushBounded(s.trs, tr, s.atrPeriod)
	if s.atr == nil && len(s.trs) >= s.atrPeriod {
		v := mean(s.trs)
		s.atr = &v
	} else if s.atr != nil {
		p := float64(s.atrPeriod)
		v := (*s.atr*(p-1) + tr) / p
		s.atr = &v
	}

	lc := close
	s.lastClose = &lc

	return Snapshot{EMAShort: s.emaShort, EMALong: s.emaLong, ATR: s.atr}, prevShort, prevLong
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
