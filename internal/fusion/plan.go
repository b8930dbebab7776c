package fusion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is the fusion configuration (§4.5): per-horizon weights, the
// composite-score accept threshold, and the plan version that feeds the
// fusion ID. It is loadable from a YAML file so an operator can change
// weighting without a rebuild — the rule engines have no equivalent
// external config; their thresholds are fixed in code.
type Plan struct {
	Version             string             `yaml:"version"`
	Weights             map[string]float64 `yaml:"weights"`
	AcceptThreshold     float64            `yaml:"accept_threshold"`
	ConflictRRThreshold float64            `yaml:"conflict_rr_threshold"`
	MinContributions    int                `yaml:"min_contributions"`
}

// DefaultPlan mirrors the reference pipeline's built-in fusion plan, used
// when no plan file is configured.
func DefaultPlan() Plan {
	return Plan{
		Version: "fusion_plan_v1",
		Weights: map[string]float64{
			"SCALP": 0.5,
			"DAY":   1.0,
			"SWING": 1.5,
		},
		AcceptThreshold:     55,
		ConflictRRThreshold: 0.3,
		MinContributions:    1,
	}
}

// LoadPlan reads a fusion plan from a YAML file. An empty path returns
// DefaultPlan unchanged.
func LoadPlan(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("fusion: read plan %s: %w", path, err)
	}
	plan := DefaultPlan()
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("fusion: parse plan %s: %w", path, err)
	}
	return plan, nil
}

func (p Plan) weightFor(horizon string) float64 {
	if w, ok := p.Weights[horizon]; ok {
		return w
	}
	return 1.0
}
