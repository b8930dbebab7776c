package fusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlanEmptyPathReturnsDefault(t *testing.T) {
	plan, err := LoadPlan("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), plan)
}

func TestLoadPlanReadsYAMLOverridingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion_plan.yaml")
	contents := []byte(`
version: fusion_plan_v2
weights:
  SCALP: 0.25
  DAY: 1.0
  SWING: 2.0
accept_threshold: 60
conflict_rr_threshold: 0.4
min_contributions: 2
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "fusion_plan_v2", plan.Version)
	assert.Equal(t, 0.25, plan.Weights["SCALP"])
	assert.Equal(t, 2.0, plan.Weights["SWING"])
	assert.Equal(t, 60.0, plan.AcceptThreshold)
	assert.Equal(t, 0.4, plan.ConflictRRThreshold)
	assert.Equal(t, 2, plan.MinContributions)
}

func TestLoadPlanPartialYAMLKeepsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion_plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accept_threshold: 80\n"), 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, plan.AcceptThreshold)
	assert.Equal(t, DefaultPlan().Weights, plan.Weights)
	assert.Equal(t, DefaultPlan().Version, plan.Version)
}

func TestLoadPlanMissingFileErrors(t *testing.T) {
	_, err := LoadPlan("/nonexistent/path/fusion_plan.yaml")
	assert.Error(t, err)
}

func TestWeightForUnknownHorizonDefaultsToOne(t *testing.T) {
	plan := DefaultPlan()
	assert.Equal(t, 1.0, plan.weightFor("UNKNOWN"))
	assert.Equal(t, 1.5, plan.weightFor("SWING"))
}
