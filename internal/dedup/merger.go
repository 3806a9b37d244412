package dedup

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

// MergeStore is the slice of MemoryStore the Merger needs: resolve a
// duplicate group's full memories, then request the atomic merge.
type MergeStore interface {
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]types.Memory, error)
	MergeMemories(ctx context.Context, primaryID string, duplicateIDs []string, strategy string, mergedMetadata types.Metadata) error
}

// Merger folds each duplicate group into a single primary memory per a
// configured strategy, consolidating metadata and recording conflicts.
type Merger struct {
	log logging.Logger
}

// NewMerger builds a Merger.
func NewMerger(log logging.Logger) *Merger {
	return &Merger{log: log}
}

// MergeGroups merges every group in order, skipping groups with fewer
// than two members. Merges run serially — never in parallel — so a
// memory id appearing in two groups within the same run cannot race
// between a primary-update and a duplicate-removal (spec §5).
func (m *Merger) MergeGroups(ctx context.Context, store MergeStore, groups []types.DuplicateGroup, cfg *config.DeduplicationConfig) ([]types.MergeOperation, []string) {
	var ops []types.MergeOperation
	var errs []string

	for _, group := range groups {
		if len(group.MemoryIDs) < 2 {
			m.log.Warn("dedup: skipping group with fewer than two members", "group_id", group.GroupID)
			continue
		}

		op, err := m.mergeSingleGroup(ctx, store, group, cfg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("group %s: %v", group.GroupID, err))
			continue
		}
		ops = append(ops, *op)
	}

	return ops, errs
}

func (m *Merger) mergeSingleGroup(ctx context.Context, store MergeStore, group types.DuplicateGroup, cfg *config.DeduplicationConfig) (*types.MergeOperation, error) {
	memories, err := store.GetMemoriesByIDs(ctx, group.MemoryIDs)
	if err != nil {
		return nil, err
	}
	if len(memories) < 2 {
		return nil, fmt.Errorf("could not load at least two memories for group %s", group.GroupID)
	}

	strategy := types.MergeStrategy(cfg.DefaultMergeStrategy)
	if !strategy.Valid() {
		strategy = types.MergeSmartMerge
	}

	primary, duplicates := selectPrimary(memories, strategy)
	metadata := consolidateMetadata(primary, duplicates)
	conflicts := identifyConflicts(primary, duplicates)

	if strategy == types.MergeSmartMerge {
		applySmartMergeExtras(&metadata, primary, duplicates)
	}

	op := types.MergeOperation{
		PrimaryMemoryID:   primary.ID,
		MergedMemoryIDs:   idsOf(duplicates),
		MergeStrategyUsed: strategy,
		ConflictsResolved: conflicts,
		MetadataChanges:   metadata,
		CreatedAt:         time.Now().UTC(),
	}
	if strategy == types.MergeSmartMerge {
		op.MergeConfidence = mergeConfidence(primary, duplicates)
	}

	if err := store.MergeMemories(ctx, op.PrimaryMemoryID, op.MergedMemoryIDs, string(op.MergeStrategyUsed), op.MetadataChanges); err != nil {
		return nil, err
	}
	return &op, nil
}

// selectPrimary picks the surviving memory per strategy and returns the
// rest as duplicates, per spec §4.7's four selection rules.
func selectPrimary(memories []types.Memory, strategy types.MergeStrategy) (types.Memory, []types.Memory) {
	sorted := make([]types.Memory, len(memories))
	copy(sorted, memories)

	switch strategy {
	case types.MergeKeepOldest:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	case types.MergeKeepNewest:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	case types.MergeKeepHighestImportance:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ImportanceScore > sorted[j].ImportanceScore })
	default: // smart_merge
		sort.Slice(sorted, func(i, j int) bool { return smartMergeScore(sorted[i]) > smartMergeScore(sorted[j]) })
	}

	return sorted[0], sorted[1:]
}

// smartMergeScore implements the weighted primary-selection formula:
// importance 0.40, content length (capped at 1000 chars) 0.25, metadata
// richness (capped at 10 keys) 0.20, recency decaying over a year 0.15.
func smartMergeScore(m types.Memory) float64 {
	score := m.ImportanceScore * 0.40
	score += math.Min(1.0, float64(len(m.Content))/1000.0) * 0.25
	score += math.Min(1.0, float64(len(flatMetadata(m)))/10.0) * 0.20

	ageDays := time.Since(m.CreatedAt).Hours() / 24
	recency := math.Max(0.0, 1.0-ageDays/365.0)
	score += recency * 0.15

	return score
}

// consolidateMetadata applies the strategy-agnostic rules every merge
// performs: tag/category union, summed access counts, latest
// last-accessed timestamp, and the merged_from/merged_at provenance.
func consolidateMetadata(primary types.Memory, duplicates []types.Memory) types.Metadata {
	meta := primary.Metadata

	tagSet := map[string]struct{}{}
	for _, t := range meta.Tags {
		tagSet[t] = struct{}{}
	}
	catSet := map[string]struct{}{}
	for _, c := range meta.Categories {
		catSet[c] = struct{}{}
	}

	accessCount := primary.AccessCount
	latest := primary.LastAccessedAt
	mergedFrom := make([]string, 0, len(duplicates))

	for _, dup := range duplicates {
		for _, t := range dup.Metadata.Tags {
			tagSet[t] = struct{}{}
		}
		for _, c := range dup.Metadata.Categories {
			catSet[c] = struct{}{}
		}
		accessCount += dup.AccessCount
		if dup.LastAccessedAt != nil && (latest == nil || dup.LastAccessedAt.After(*latest)) {
			latest = dup.LastAccessedAt
		}
		mergedFrom = append(mergedFrom, dup.ID)
	}

	meta.Tags = setToSortedSlice(tagSet)
	meta.Categories = setToSortedSlice(catSet)
	meta.MergedFrom = mergedFrom
	now := time.Now().UTC()
	meta.MergedAt = &now

	if meta.SemanticMetadata == nil {
		meta.SemanticMetadata = types.MetadataBucket{}
	}
	meta.SemanticMetadata["access_count"] = accessCount
	if latest != nil {
		meta.SemanticMetadata["last_accessed"] = *latest
	}
	return meta
}

// applySmartMergeExtras computes the smart-merge-only importance
// reweighting (primary at 0.6, each duplicate at 0.4/(N-1)) and stashes
// it in the semantic metadata bucket, since Metadata carries no
// dedicated importance field of its own.
func applySmartMergeExtras(meta *types.Metadata, primary types.Memory, duplicates []types.Memory) {
	if len(duplicates) == 0 {
		return
	}
	duplicateWeight := 0.4 / float64(len(duplicates))
	weighted := primary.ImportanceScore * 0.6
	for _, dup := range duplicates {
		weighted += dup.ImportanceScore * duplicateWeight
	}
	if weighted > 1.0 {
		weighted = 1.0
	}

	if meta.SemanticMetadata == nil {
		meta.SemanticMetadata = types.MetadataBucket{}
	}
	meta.SemanticMetadata["importance_score"] = weighted
	meta.SemanticMetadata["merge_strategy"] = string(types.MergeSmartMerge)
}

// mergeConfidence scores how likely the merge is correct: a base of
// 0.5 plus up to 0.3 scaled by the fraction of matching values across
// {categories, tags, source} between primary and each duplicate.
func mergeConfidence(primary types.Memory, duplicates []types.Memory) float64 {
	confidence := 0.5

	primarySource, _ := flatMetadata(primary)["source"].(string)
	total, consistent := 0, 0
	for _, dup := range duplicates {
		dupSource, _ := flatMetadata(dup)["source"].(string)

		total += 3
		if slicesEqual(primary.Metadata.Categories, dup.Metadata.Categories) {
			consistent++
		}
		if slicesEqual(primary.Metadata.Tags, dup.Metadata.Tags) {
			consistent++
		}
		if primarySource == dupSource {
			consistent++
		}
	}

	if total > 0 {
		confidence += (float64(consistent) / float64(total)) * 0.3
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// identifyConflicts compares {source, type, importance_score} between
// primary and each duplicate, recording any field name where they
// disagree. The merge proceeds regardless — conflicts are informational.
func identifyConflicts(primary types.Memory, duplicates []types.Memory) []string {
	conflictSet := map[string]struct{}{}
	primaryMeta := flatMetadata(primary)

	for _, dup := range duplicates {
		dupMeta := flatMetadata(dup)
		if primarySrc, ok := primaryMeta["source"]; ok {
			if dupSrc, ok2 := dupMeta["source"]; ok2 && primarySrc != dupSrc {
				conflictSet["source"] = struct{}{}
			}
		}
		if primary.MemoryType != dup.MemoryType {
			conflictSet["type"] = struct{}{}
		}
		if primary.ImportanceScore != dup.ImportanceScore {
			conflictSet["importance_score"] = struct{}{}
		}
	}

	conflicts := make([]string, 0, len(conflictSet))
	for c := range conflictSet {
		conflicts = append(conflicts, c)
	}
	sort.Strings(conflicts)
	return conflicts
}

// ValidateMergeIntegrity confirms, for each completed merge operation,
// that the primary still resolves and that every duplicate no longer
// does — the atomicity spot-check callers may run after a batch of
// merges (spec §3, §8 property 9).
func ValidateMergeIntegrity(ctx context.Context, ops []types.MergeOperation, store MergeStore) IntegrityReport {
	report := IntegrityReport{TotalOperations: len(ops)}

	for _, op := range ops {
		primary, err := store.GetMemoriesByIDs(ctx, []string{op.PrimaryMemoryID})
		if err != nil || len(primary) == 0 {
			report.InvalidOperations++
			report.Errors = append(report.Errors, fmt.Sprintf("primary memory %s not found", op.PrimaryMemoryID))
			continue
		}

		stillPresent, err := store.GetMemoriesByIDs(ctx, op.MergedMemoryIDs)
		if err != nil {
			report.InvalidOperations++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		if len(stillPresent) > 0 {
			report.InvalidOperations++
			report.Errors = append(report.Errors, fmt.Sprintf("duplicate memories still exist for primary %s", op.PrimaryMemoryID))
			continue
		}

		report.ValidOperations++
	}

	return report
}

// IntegrityReport is the result of ValidateMergeIntegrity.
type IntegrityReport struct {
	TotalOperations   int      `json:"total_operations"`
	ValidOperations   int      `json:"valid_operations"`
	InvalidOperations int      `json:"invalid_operations"`
	Errors            []string `json:"errors,omitempty"`
}

func idsOf(memories []types.Memory) []string {
	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := append([]string{}, a...), append([]string{}, b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
