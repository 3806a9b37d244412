// Package relationship implements the Relationship Analyzer: it scores
// a target memory against a pool of candidates across six similarity
// axes, combines them into a weighted composite, and buckets the
// result into a strength category.
package relationship

import (
	"sort"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/internal/similarity"
	"github.com/raold/second-brain-core/pkg/types"
)

// Analyzer computes Relationship values between a target memory and a
// pool of candidates.
type Analyzer struct {
	cfg               *config.RelationshipConfig
	log               logging.Logger
	temporalWindowHrs float64
	axisWeights       map[string]float64
}

// New builds an Analyzer. temporalWindowHours configures how quickly
// the temporal-proximity axis decays; pass 24 for the upstream default.
// cfg's six per-axis weights are read once here into the composite
// scorer's weight table.
func New(cfg *config.RelationshipConfig, log logging.Logger, temporalWindowHours float64) *Analyzer {
	if temporalWindowHours <= 0 {
		temporalWindowHours = 24.0
	}
	return &Analyzer{
		cfg:               cfg,
		log:               log,
		temporalWindowHrs: temporalWindowHours,
		axisWeights: map[string]float64{
			"semantic_similarity":    cfg.CosineWeight,
			"temporal_proximity":     cfg.TemporalWeight,
			"content_overlap":        cfg.ContentOverlapWeight,
			"conceptual_hierarchy":   cfg.ConceptualWeight,
			"causal_relationship":    cfg.CausalWeight,
			"contextual_association": cfg.ContextualWeight,
		},
	}
}

// Analyze scores target against every candidate, returning one
// Relationship per candidate whose composite score meets the
// configured minimum, sorted by descending composite score and capped
// at MaxCandidates.
func (a *Analyzer) Analyze(target types.Memory, candidates []types.Memory) []types.Relationship {
	results := make([]types.Relationship, 0, len(candidates))

	for _, candidate := range candidates {
		if candidate.ID == target.ID {
			continue
		}
		rel := a.score(target, candidate)
		if rel.CompositeScore < a.cfg.MinCompositeScore {
			continue
		}
		results = append(results, rel)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CompositeScore > results[j].CompositeScore
	})

	if a.cfg.MaxCandidates > 0 && len(results) > a.cfg.MaxCandidates {
		results = results[:a.cfg.MaxCandidates]
	}
	return results
}

// score computes every axis for one target/candidate pair and combines
// them into a single Relationship.
func (a *Analyzer) score(target, candidate types.Memory) types.Relationship {
	scores := map[string]float64{
		"semantic_similarity":    similarity.Cosine(target.Embedding, candidate.Embedding),
		"temporal_proximity":     similarity.TemporalProximity(target.CreatedAt, candidate.CreatedAt, a.temporalWindowHrs),
		"content_overlap":        similarity.ContentOverlap(target.Content, candidate.Content),
		"conceptual_hierarchy":   similarity.ConceptualHierarchy(target.Content, candidate.Content),
		"causal_relationship":    similarity.CausalRelationship(target.Content, candidate.Content, target.CreatedAt, candidate.CreatedAt),
		"contextual_association": similarity.ContextualAssociation(metadataBuckets(target), metadataBuckets(candidate), string(target.MemoryType), string(candidate.MemoryType), importancePtr(target), importancePtr(candidate)),
	}

	composite := similarity.CompositeScore(scores, a.axisWeights)

	return types.Relationship{
		TargetID:                target.ID,
		RelatedID:               candidate.ID,
		RelationshipScores:      scores,
		CompositeScore:          composite,
		PrimaryRelationshipType: primaryAxis(scores),
		Strength:                similarity.CategorizeStrength(composite),
	}
}

// primaryAxis names the axis contributing the largest raw score, used
// as a human-facing label for why two memories were linked.
func primaryAxis(scores map[string]float64) string {
	best, bestScore := "", -1.0
	for axis, score := range scores {
		if score > bestScore {
			best, bestScore = axis, score
		}
	}
	return best
}

func metadataBuckets(m types.Memory) map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"semantic_metadata":   m.Metadata.SemanticMetadata,
		"episodic_metadata":   m.Metadata.EpisodicMetadata,
		"procedural_metadata": m.Metadata.ProceduralMetadata,
	}
}

func importancePtr(m types.Memory) *float64 {
	v := m.ImportanceScore
	return &v
}
