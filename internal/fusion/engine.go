// Package fusion implements the weighted aggregation of per-horizon signals
// into a single ranked candidate per symbol (§4.5): it reads every signal
// for a symbol in sorted ID order, scores them by horizon weight, and
// publishes a full trace plus a summary candidate with a stable,
// content-addressed fusion ID.
package fusion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/metrics"
)

// Engine fuses signals for a symbol against a fixed Plan.
type Engine struct {
	plan    Plan
	bus     bus.EventBus
	nowMs   func() int64
	metrics *metrics.Registry
}

// New builds a fusion Engine bound to plan.
func New(plan Plan, b bus.EventBus, nowMs func() int64) *Engine {
	return &Engine{plan: plan, bus: b, nowMs: nowMs}
}

// SetMetrics attaches a Prometheus registry that the engine reports real
// accepted/conflict resolutions into. Optional: a nil or never-set registry
// means metrics reporting is simply skipped.
func (e *Engine) SetMetrics(reg *metrics.Registry) {
	e.metrics = reg
}

// signalView is the subset of a signal.display.v1 record the fusion engine
// reads; it tolerates any superset of fields on the wire.
type signalView struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	SignalType       string `json:"signal_type"`
	ConfidencePct    int    `json:"confidence_pct"`
	GeneratedTsMs    int64  `json:"generated_ts_ms"`
	ExplanationShort string `json:"explanation_short"`
}

type contribution struct {
	Horizon       string   `json:"horizon"`
	SignalID      string   `json:"signal_id"`
	ConfidencePct int      `json:"confidence_pct"`
	Weight        float64  `json:"weight"`
	WeightedScore float64  `json:"weighted_score"`
	Rationale     []string `json:"rationale"`
}

type traceRecord struct {
	FusionID           string         `json:"fusion_id"`
	Symbol             string         `json:"symbol"`
	CreatedTsMs        int64          `json:"created_ts_ms"`
	Contributions      []contribution `json:"contributions"`
	CompositeScore     float64        `json:"composite_score"`
	Resolution         string         `json:"resolution"`
	DominantHorizon    string         `json:"dominant_horizon,omitempty"`
	FusionPlanVersion  string         `json:"fusion_plan_version"`
}

type candidateRecord struct {
	ID              string   `json:"id"`
	Symbol          string   `json:"symbol"`
	CompositeScore  float64  `json:"composite_score"`
	Resolution      string   `json:"resolution"`
	CreatedTsMs     int64    `json:"created_ts_ms"`
	DominantHorizon string   `json:"dominant_horizon,omitempty"`
	Signals         []string `json:"signals"`
}

func stableFusionID(symbol string, signalIDs []string, planVersion string) string {
	sorted := append([]string(nil), signalIDs...)
	sort.Strings(sorted)
	material := fmt.Sprintf("%s|%s|%s", symbol, strings.Join(sorted, "|"), planVersion)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:24]
}

// FuseSymbol reads every signal.display.v1 record for symbol, fuses them
// per §4.5, and publishes fusion.trace.v1 and candidate.v1. If no signals
// exist for symbol, it emits nothing.
func (e *Engine) FuseSymbol(ctx context.Context, symbol string) error {
	raws, err := e.bus.ReadAll(ctx, bus.TopicSignalDisplay)
	if err != nil {
		return fmt.Errorf("fusion: read %s: %w", bus.TopicSignalDisplay, err)
	}

	var matched []signalView
	for _, raw := range raws {
		var v signalView
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("fusion: decode signal: %w", err)
		}
		if v.Symbol == symbol {
			matched = append(matched, v)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	var contributions []contribution
	var totalWeighted, totalWeight float64
	var dominantHorizon string
	var dominantWeighted float64
	haveDominant := false
	var createdTsMs int64
	signalIDs := make([]string, 0, len(matched))

	for _, s := range matched {
		signalIDs = append(signalIDs, s.ID)
		if s.GeneratedTsMs > createdTsMs {
			createdTsMs = s.GeneratedTsMs
		}
		weight := e.plan.weightFor(s.SignalType)
		weighted := float64(s.ConfidencePct) * weight
		rationale := s.ExplanationShort
		if len(rationale) > 200 {
			rationale = rationale[:200]
		}
		contributions = append(contributions, contribution{
			Horizon:       s.SignalType,
			SignalID:      s.ID,
			ConfidencePct: s.ConfidencePct,
			Weight:        weight,
			WeightedScore: weighted,
			Rationale:     []string{rationale},
		})
		totalWeighted += weighted
		totalWeight += weight
		if !haveDominant || weighted > dominantWeighted {
			dominantHorizon = s.SignalType
			dominantWeighted = weighted
			haveDominant = true
		}
	}

	composite := 0.0
	if totalWeight > 0 {
		composite = totalWeighted / totalWeight
	}
	resolution := "CONFLICT"
	if composite >= e.plan.AcceptThreshold {
		resolution = "ACCEPTED"
	}
	if e.metrics != nil {
		if resolution == "ACCEPTED" {
			e.metrics.FusionsAccepted.Inc()
		} else {
			e.metrics.FusionsConflict.Inc()
		}
	}

	fusionID := stableFusionID(symbol, signalIDs, e.plan.Version)
	sortedIDs := append([]string(nil), signalIDs...)
	sort.Strings(sortedIDs)

	trace := traceRecord{
		FusionID:          fusionID,
		Symbol:            symbol,
		CreatedTsMs:       createdTsMs,
		Contributions:     contributions,
		CompositeScore:    composite,
		Resolution:        resolution,
		DominantHorizon:   dominantHorizon,
		FusionPlanVersion: e.plan.Version,
	}
	if err := e.bus.Publish(ctx, bus.TopicFusionTrace, trace); err != nil {
		return fmt.Errorf("fusion: publish %s: %w", bus.TopicFusionTrace, err)
	}

	candidate := candidateRecord{
		ID:              fusionID,
		Symbol:          symbol,
		CompositeScore:  composite,
		Resolution:      resolution,
		CreatedTsMs:     createdTsMs,
		DominantHorizon: dominantHorizon,
		Signals:         sortedIDs,
	}
	if err := e.bus.Publish(ctx, bus.TopicCandidate, candidate); err != nil {
		return fmt.Errorf("fusion: publish %s: %w", bus.TopicCandidate, err)
	}
	return nil
}
