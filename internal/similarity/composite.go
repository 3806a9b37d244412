package similarity

import "github.com/raold/second-brain-core/pkg/types"

// DefaultWeights returns the analyzer's default relationship weighting
// table, a fresh map each call so a caller is free to mutate its copy.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"semantic_similarity":    0.4,
		"temporal_proximity":     0.2,
		"content_overlap":        0.2,
		"conceptual_hierarchy":   0.1,
		"causal_relationship":    0.05,
		"contextual_association": 0.05,
	}
}

// CompositeScore combines per-axis relationship scores into a single
// weighted, normalized composite using weights (nil selects
// DefaultWeights). An axis absent from weights falls back to a weight
// of 0.1, matching the source's default-weight handling of custom
// relationship types.
func CompositeScore(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	if weights == nil {
		weights = DefaultWeights()
	}

	var totalWeighted, totalWeight float64
	for relType, score := range scores {
		weight, ok := weights[relType]
		if !ok {
			weight = 0.1
		}
		totalWeighted += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0.0
	}
	return clamp01(totalWeighted / totalWeight)
}

// CategorizeStrength buckets a composite score into one of five
// relationship-strength categories.
func CategorizeStrength(composite float64) types.RelationshipStrength {
	switch {
	case composite >= 0.8:
		return types.StrengthVeryStrong
	case composite >= 0.6:
		return types.StrengthStrongRel
	case composite >= 0.4:
		return types.StrengthModerateR
	case composite >= 0.2:
		return types.StrengthWeakRel
	default:
		return types.StrengthVeryWeak
	}
}
