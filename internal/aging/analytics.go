package aging

import (
	"fmt"

	"github.com/raold/second-brain-core/pkg/types"
)

// BatchReport summarizes a set of AgingResults: distribution across
// strength categories, model usage, and average predicted half-life
// per model, plus a few derived human-readable insights.
type BatchReport struct {
	TotalMemories        int                             `json:"total_memories"`
	StrengthDistribution map[types.StrengthCategory]int  `json:"strength_distribution"`
	ModelUsage           map[types.AgingModel]int        `json:"model_usage"`
	AverageHalfLife      map[types.AgingModel]float64     `json:"average_half_life_by_model"`
	Insights             []string                        `json:"insights"`
}

// BatchAnalytics aggregates a batch of AgingResults into a BatchReport.
func BatchAnalytics(results []types.AgingResult) BatchReport {
	report := BatchReport{
		StrengthDistribution: map[types.StrengthCategory]int{},
		ModelUsage:           map[types.AgingModel]int{},
	}
	if len(results) == 0 {
		report.Insights = []string{"no aging data available"}
		return report
	}

	halfLifeSums := map[types.AgingModel]float64{}
	for _, r := range results {
		report.StrengthDistribution[r.StrengthCategory]++
		report.ModelUsage[r.ModelUsed]++
		halfLifeSums[r.ModelUsed] += r.PredictedHalfLifeDay
	}

	report.TotalMemories = len(results)
	report.AverageHalfLife = map[types.AgingModel]float64{}
	for model, count := range report.ModelUsage {
		report.AverageHalfLife[model] = halfLifeSums[model] / float64(count)
	}

	report.Insights = buildInsights(report)
	return report
}

func buildInsights(report BatchReport) []string {
	var insights []string
	total := float64(report.TotalMemories)

	weakPercent := float64(report.StrengthDistribution[types.StrengthWeak]) / total * 100
	crystalPercent := float64(report.StrengthDistribution[types.StrengthCrystal]) / total * 100

	if weakPercent > 30 {
		insights = append(insights, fmt.Sprintf("%.1f%% of memories are weak - consider review scheduling", weakPercent))
	}
	if crystalPercent > 20 {
		insights = append(insights, fmt.Sprintf("%.1f%% of memories are crystallized - excellent retention", crystalPercent))
	}

	var mostUsedModel types.AgingModel
	mostUsedCount := -1
	for model, count := range report.ModelUsage {
		if count > mostUsedCount {
			mostUsedModel, mostUsedCount = model, count
		}
	}
	if mostUsedCount >= 0 {
		insights = append(insights, fmt.Sprintf("most used aging model: %s", mostUsedModel))
	}

	var bestModel types.AgingModel
	bestHalfLife := -1.0
	for model, avg := range report.AverageHalfLife {
		if avg > bestHalfLife {
			bestModel, bestHalfLife = model, avg
		}
	}
	if bestHalfLife >= 0 {
		insights = append(insights, fmt.Sprintf("longest retention with %s: %.1f days average", bestModel, bestHalfLife))
	}

	return insights
}
