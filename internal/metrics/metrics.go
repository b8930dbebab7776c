// Package metrics exposes the pipeline's counters over Prometheus, grounded
// on the teacher's client_golang usage but deliberately simpler: a handful
// of counters mirroring aggregator, signal and fusion activity rather than
// the teacher's full OTel-plus-Prometheus bridge, since this pipeline has no
// request/response surface to instrument.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the counters this pipeline exports. One Registry per
// process; components report into it as they process records.
type Registry struct {
	BarsPublished prometheus.Counter
	Corrections   prometheus.Counter
	Duplicates    prometheus.Counter
	SignalsEmitted *prometheus.CounterVec
	FusionsAccepted prometheus.Counter
	FusionsConflict prometheus.Counter
}

// NewRegistry builds the pipeline's metrics and registers them against reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		BarsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ohlcv_bars_published_total",
			Help: "Total OHLCV bars published to ohlcv.bar.v1.",
		}),
		Corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ohlcv_corrections_total",
			Help: "Total bar corrections published to ohlcv.correction.v1.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ohlcv_duplicates_total",
			Help: "Total ticks dropped as duplicates.",
		}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_signals_emitted_total",
			Help: "Total signals emitted, by signal_type.",
		}, []string{"signal_type"}),
		FusionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fusion_accepted_total",
			Help: "Total fusion candidates resolved ACCEPTED.",
		}),
		FusionsConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fusion_conflict_total",
			Help: "Total fusion candidates resolved CONFLICT.",
		}),
	}
	reg.MustRegister(r.BarsPublished, r.Corrections, r.Duplicates, r.SignalsEmitted, r.FusionsAccepted, r.FusionsConflict)
	return r
}

// Handler returns an http.Handler serving the registry in Prometheus
// exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
