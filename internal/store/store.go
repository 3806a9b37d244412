// Package store defines the capability interfaces the core engines depend
// on — MemoryStore and EmbeddingProvider (spec §6) — and ships a
// circuit-breaker wrapper, an in-memory mock, and a SQLite-backed
// reference implementation (internal/store/sqlitestore) against them.
package store

import (
	"context"
	"time"

	"github.com/raold/second-brain-core/internal/importance"
	"github.com/raold/second-brain-core/pkg/types"
)

// AccessAction names the kind of interaction record_access reports, used
// by implementations to build the AccessPattern the Importance Engine
// consumes.
type AccessAction string

const (
	AccessRead       AccessAction = "read"
	AccessSearch     AccessAction = "search"
	AccessReferenced AccessAction = "referenced"
)

// MemoryStore is the full capability surface the core depends on,
// parameterized over the implementer's concrete storage technology (spec
// §6). Every engine-facing package in this module consumes a narrower,
// locally-declared subset of this interface rather than the whole thing —
// MemoryStore exists so one concrete type can satisfy all of them at once.
type MemoryStore interface {
	// GetMemory fetches one memory by id, returning (nil, nil) if absent.
	GetMemory(ctx context.Context, id string) (*types.Memory, error)

	// GetCandidateMemories returns memories with a non-nil embedding,
	// excluding excludeID, optionally restricted to memoryTypes, sorted
	// by (importance desc, created_at desc), capped at limit.
	GetCandidateMemories(ctx context.Context, excludeID string, limit int, memoryTypes []types.MemoryType) ([]types.Memory, error)

	// GetMemoriesForDeduplication pages through memories matching filter.
	GetMemoriesForDeduplication(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]types.Memory, error)

	// GetMemoriesByIDs returns the memories among ids that exist, in any
	// order, omitting ids that are not present.
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]types.Memory, error)

	// RecordAccess logs one access event against a memory.
	RecordAccess(ctx context.Context, id string, action AccessAction, searchPosition *int) error

	// UpdateImportanceScore persists a recomputed importance score.
	UpdateImportanceScore(ctx context.Context, memoryID string, score float64) error

	// MergeMemories atomically folds duplicateIDs into primaryID,
	// replacing the primary's metadata with mergedMetadata and removing
	// every duplicate.
	MergeMemories(ctx context.Context, primaryID string, duplicateIDs []string, strategy string, mergedMetadata types.Metadata) error

	// GetAccessPattern returns a memory's observed access history.
	GetAccessPattern(ctx context.Context, memoryID string) (types.AccessPattern, error)

	// GetImportanceCandidates returns up to limit memories paired with
	// their access pattern for the Importance Engine's batch
	// recalculation (internal/importance.CandidateSource). Distinct from
	// GetCandidateMemories: that one serves relationship-candidate
	// lookup (spec's get_candidate_memories), this one serves batch
	// rescoring, and the two differ in both inputs and return shape, so
	// they cannot share a method name on one interface.
	GetImportanceCandidates(ctx context.Context, limit int) ([]importance.CandidateMemory, error)

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Stats reports point-in-time counts for operational visibility.
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes a MemoryStore's contents.
type Stats struct {
	TotalMemories int            `json:"total_memories"`
	ByType        map[string]int `json:"by_type"`
}

// EmbeddingProvider produces fixed-dimension embedding vectors for text
// (spec §6). It MAY be unavailable; callers treat a failed Generate as the
// memory being stored without an embedding rather than a fatal error.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float64, error)
	GetDimensions() int
	HealthCheck(ctx context.Context) error
}

// AccessEventRecord is what a concrete store persists per RecordAccess
// call before folding it into an AccessPattern; included here so
// implementations share one shape for the "access history" table.
type AccessEventRecord struct {
	MemoryID       string
	Action         AccessAction
	SearchPosition *int
	Timestamp      time.Time
}

// ImportanceCandidateSource adapts a MemoryStore into an
// importance.CandidateSource, so any concrete MemoryStore can feed
// Engine.BatchRecalculate without implementing the method itself.
type ImportanceCandidateSource struct {
	Store MemoryStore
}

func (a ImportanceCandidateSource) GetCandidateMemories(ctx context.Context, limit int) ([]importance.CandidateMemory, error) {
	return a.Store.GetImportanceCandidates(ctx, limit)
}
