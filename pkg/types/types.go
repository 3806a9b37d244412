// Package types provides the core data structures the memory engines
// operate on: memories, access events, and the structured results each
// engine produces.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryType classifies a memory for aging, importance, and relationship
// weighting.
type MemoryType string

const (
	// MemoryTypeSemantic represents general knowledge or facts.
	MemoryTypeSemantic MemoryType = "semantic"
	// MemoryTypeEpisodic represents a specific event or experience.
	MemoryTypeEpisodic MemoryType = "episodic"
	// MemoryTypeProcedural represents a skill, process, or how-to.
	MemoryTypeProcedural MemoryType = "procedural"
)

// Valid reports whether mt is one of the recognized memory types.
func (mt MemoryType) Valid() bool {
	switch mt {
	case MemoryTypeSemantic, MemoryTypeEpisodic, MemoryTypeProcedural:
		return true
	}
	return false
}

// StrengthCategory buckets an AgingResult's current_strength.
type StrengthCategory string

const (
	StrengthWeak     StrengthCategory = "weak"
	StrengthModerate StrengthCategory = "moderate"
	StrengthStrong   StrengthCategory = "strong"
	StrengthCrystal  StrengthCategory = "crystal"
)

// RelationshipStrength buckets a Relationship's composite_score.
type RelationshipStrength string

const (
	StrengthVeryWeak   RelationshipStrength = "very_weak"
	StrengthWeakRel    RelationshipStrength = "weak"
	StrengthModerateR  RelationshipStrength = "moderate"
	StrengthStrongRel  RelationshipStrength = "strong"
	StrengthVeryStrong RelationshipStrength = "very_strong"
)

// MetadataBucket is one of the three typed metadata namespaces a Memory
// may carry, per spec §3.
type MetadataBucket map[string]interface{}

// Metadata is the structured side-data attached to a Memory. The three
// typed buckets are closed by convention (semantic/episodic/procedural);
// Tags and Categories are the two recognized set-valued fields used by
// relationship and deduplication metadata consolidation.
type Metadata struct {
	SemanticMetadata   MetadataBucket `json:"semantic_metadata,omitempty"`
	EpisodicMetadata   MetadataBucket `json:"episodic_metadata,omitempty"`
	ProceduralMetadata MetadataBucket `json:"procedural_metadata,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	Categories         []string       `json:"categories,omitempty"`
	MergedFrom         []string       `json:"merged_from,omitempty"`
	MergedAt           *time.Time     `json:"merged_at,omitempty"`
}

// Memory is the unit the core engines read and score. Concrete storage
// encoding is the caller's choice; this is the in-process shape every
// engine operates on.
type Memory struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	Embedding       []float64  `json:"embedding,omitempty"`
	MemoryType      MemoryType `json:"memory_type"`
	ImportanceScore float64    `json:"importance_score"`
	CreatedAt       time.Time  `json:"created_at"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount     int        `json:"access_count"`
	Metadata        Metadata   `json:"metadata"`
}

// Validate checks the structural invariants a Memory must satisfy before
// any engine accepts it.
func (m *Memory) Validate() error {
	if m.ID == "" {
		return errors.New("memory: id is required")
	}
	if m.Content == "" {
		return errors.New("memory: content is required")
	}
	if !m.MemoryType.Valid() {
		return fmt.Errorf("memory: invalid memory_type %q", m.MemoryType)
	}
	if m.ImportanceScore < 0 || m.ImportanceScore > 1 {
		return fmt.Errorf("memory: importance_score %.3f out of [0,1]", m.ImportanceScore)
	}
	if m.AccessCount < 0 {
		return errors.New("memory: access_count must be non-negative")
	}
	return nil
}

// AccessEvent is a single recorded access to a memory, consumed by the
// aging and importance engines but not necessarily persisted by them.
type AccessEvent struct {
	Timestamp         time.Time `json:"timestamp"`
	AccessType        string    `json:"access_type"`
	SuccessRate       float64   `json:"success_rate"`
	RetrievalTimeMs   *float64  `json:"retrieval_time_ms,omitempty"`
	ContextSimilarity *float64  `json:"context_similarity,omitempty"`
}

// AgingModel names one of the six supported cognitive-decay models.
type AgingModel string

const (
	AgingModelEbbinghaus    AgingModel = "ebbinghaus"
	AgingModelPowerLaw      AgingModel = "power_law"
	AgingModelExponential   AgingModel = "exponential"
	AgingModelSpacingEffect AgingModel = "spacing_effect"
	AgingModelInterference  AgingModel = "interference"
	AgingModelConsolidation AgingModel = "consolidation"
)

// AgingResult is the output of the Aging Engine for one memory.
type AgingResult struct {
	CurrentStrength      float64          `json:"current_strength"`
	DecayFactor          float64          `json:"decay_factor"`
	ModelUsed            AgingModel       `json:"model_used"`
	StrengthCategory     StrengthCategory `json:"strength_category"`
	PredictedHalfLifeDay float64          `json:"predicted_half_life_days"`
	NextOptimalReview    *time.Time       `json:"next_optimal_review,omitempty"`
	Confidence           float64          `json:"confidence"`
	Explanation          string           `json:"explanation"`
}

// ImportanceScore is the output of the Importance Engine for one memory.
type ImportanceScore struct {
	Final           float64 `json:"final"`
	Frequency       float64 `json:"frequency"`
	Recency         float64 `json:"recency"`
	SearchRelevance float64 `json:"search_relevance"`
	ContentQuality  float64 `json:"content_quality"`
	TypeWeight      float64 `json:"type_weight"`
	DecayFactor     float64 `json:"decay_factor"`
	Confidence      float64 `json:"confidence"`
	Explanation     string  `json:"explanation"`
}

// AccessPattern summarizes a memory's access history as fetched from the
// store, the input the Importance Engine fuses into component scores.
type AccessPattern struct {
	TotalAccesses    int                `json:"total_accesses"`
	RecentAccesses   int                `json:"recent_accesses"`
	LastAccessed     *time.Time         `json:"last_accessed,omitempty"`
	SearchAppearance int                `json:"search_appearances"`
	AvgSearchPos     float64            `json:"avg_search_position"`
	UserInteractions map[string]int     `json:"user_interactions,omitempty"`
}

// Relationship describes one scored relationship between a target memory
// and a candidate, produced by the Relationship Analyzer.
type Relationship struct {
	TargetID                string               `json:"target_id"`
	RelatedID               string               `json:"related_id"`
	RelationshipScores      map[string]float64   `json:"relationship_scores"`
	CompositeScore          float64              `json:"composite_score"`
	PrimaryRelationshipType string               `json:"primary_relationship_type"`
	Strength                RelationshipStrength `json:"strength"`
}

// DuplicateGroup is a set of memories detected as duplicates of each
// other, produced by a duplicate detector or the orchestrator's
// cross-method consolidation.
type DuplicateGroup struct {
	GroupID          string    `json:"group_id"`
	MemoryIDs        []string  `json:"memory_ids"`
	SimilarityScores []float64 `json:"similarity_scores"`
	DetectionMethod  string    `json:"detection_method"`
	Confidence       float64   `json:"confidence"`
}

// NewDuplicateGroupID mints a group id from a detection method tag and
// the first eight characters of a random UUID, matching the teacher's
// practice of deriving short human-legible ids rather than raw UUIDs for
// groups.
func NewDuplicateGroupID(method string) string {
	return method + "_" + uuid.New().String()[:8]
}

// MergeStrategy selects how a Merger picks the primary memory in a
// duplicate group and folds the rest into it.
type MergeStrategy string

const (
	MergeKeepOldest            MergeStrategy = "keep_oldest"
	MergeKeepNewest            MergeStrategy = "keep_newest"
	MergeKeepHighestImportance MergeStrategy = "keep_highest_importance"
	MergeSmartMerge            MergeStrategy = "smart_merge"
)

// Valid reports whether s is a recognized merge strategy.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepOldest, MergeKeepNewest, MergeKeepHighestImportance, MergeSmartMerge:
		return true
	}
	return false
}

// MergeOperation records the outcome of folding a duplicate group into a
// single primary memory.
type MergeOperation struct {
	PrimaryMemoryID    string        `json:"primary_memory_id"`
	MergedMemoryIDs    []string      `json:"merged_memory_ids"`
	MergeStrategyUsed  MergeStrategy `json:"merge_strategy_used"`
	ConflictsResolved  []string      `json:"conflicts_resolved"`
	MetadataChanges    Metadata      `json:"metadata_changes"`
	MergeConfidence    float64       `json:"merge_confidence,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}
