package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

func testEngine() *Engine {
	return New(config.DefaultAgingConfig(), logging.NewNoOpLogger())
}

func TestCalculateEbbinghausFreshMemoryIsStrong(t *testing.T) {
	e := testEngine()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	createdAt := now.Add(-2 * 24 * time.Hour)

	result := e.Calculate(now, createdAt, nil, types.MemoryTypeSemantic, 0.3, types.AgingModelEbbinghaus)

	assert.Equal(t, types.AgingModelEbbinghaus, result.ModelUsed)
	assert.Greater(t, result.CurrentStrength, 0.5)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestCalculateStaleMemoryDecaysBelowModerate(t *testing.T) {
	e := testEngine()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	createdAt := now.Add(-365 * 24 * time.Hour)

	result := e.Calculate(now, createdAt, nil, types.MemoryTypeSemantic, 0.3, types.AgingModelExponential)

	assert.Less(t, result.CurrentStrength, moderateThreshold)
}

func TestSelectModelProceduralHighFrequencyPicksSpacingEffect(t *testing.T) {
	e := testEngine()
	history := make([]types.AccessEvent, 11)
	model := e.selectModel(types.MemoryTypeProcedural, history, 0.2)
	assert.Equal(t, types.AgingModelSpacingEffect, model)
}

func TestSelectModelComplexContentPicksConsolidation(t *testing.T) {
	e := testEngine()
	model := e.selectModel(types.MemoryTypeEpisodic, nil, 0.9)
	assert.Equal(t, types.AgingModelConsolidation, model)
}

func TestSelectModelEpisodicFrequentPicksInterference(t *testing.T) {
	e := testEngine()
	history := make([]types.AccessEvent, 6)
	model := e.selectModel(types.MemoryTypeEpisodic, history, 0.2)
	assert.Equal(t, types.AgingModelInterference, model)
}

func TestCalculateAutoSelectsModelWhenUnspecified(t *testing.T) {
	e := testEngine()
	now := time.Now()
	result := e.Calculate(now, now.Add(-10*24*time.Hour), nil, types.MemoryTypeSemantic, 0.2, "")
	assert.Equal(t, types.AgingModelEbbinghaus, result.ModelUsed)
}

func TestConsolidationExplanationNamesPhase(t *testing.T) {
	e := testEngine()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	fresh := e.Calculate(now, now.Add(-2*24*time.Hour), nil, types.MemoryTypeSemantic, 0.9, types.AgingModelConsolidation)
	aged := e.Calculate(now, now.Add(-90*24*time.Hour), nil, types.MemoryTypeSemantic, 0.9, types.AgingModelConsolidation)

	assert.Contains(t, fresh.Explanation, "consolidating")
	assert.Contains(t, aged.Explanation, "consolidated")
}

func TestBatchAnalyticsEmpty(t *testing.T) {
	report := BatchAnalytics(nil)
	assert.Equal(t, 0, report.TotalMemories)
	require.Len(t, report.Insights, 1)
}

func TestBatchAnalyticsDistribution(t *testing.T) {
	results := []types.AgingResult{
		{StrengthCategory: types.StrengthWeak, ModelUsed: types.AgingModelEbbinghaus, PredictedHalfLifeDay: 10},
		{StrengthCategory: types.StrengthCrystal, ModelUsed: types.AgingModelConsolidation, PredictedHalfLifeDay: 90},
	}
	report := BatchAnalytics(results)
	assert.Equal(t, 2, report.TotalMemories)
	assert.Equal(t, 1, report.StrengthDistribution[types.StrengthWeak])
	assert.InDelta(t, 90, report.AverageHalfLife[types.AgingModelConsolidation], 1e-9)
}

func TestCategorizeThresholds(t *testing.T) {
	e := testEngine()
	assert.Equal(t, types.StrengthCrystal, e.categorize(0.9))
	assert.Equal(t, types.StrengthStrong, e.categorize(0.7))
	assert.Equal(t, types.StrengthModerate, e.categorize(0.4))
	assert.Equal(t, types.StrengthWeak, e.categorize(0.1))
}
