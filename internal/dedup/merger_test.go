package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

type fakeMergeStore struct {
	memories   []types.Memory
	mergeCalls []string
	primaryIDs []string
	mergedMeta []types.Metadata
}

func (s *fakeMergeStore) GetMemoriesByIDs(_ context.Context, ids []string) ([]types.Memory, error) {
	var out []types.Memory
	for _, m := range s.memories {
		for _, id := range ids {
			if m.ID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (s *fakeMergeStore) MergeMemories(_ context.Context, primaryID string, duplicateIDs []string, _ string, meta types.Metadata) error {
	s.primaryIDs = append(s.primaryIDs, primaryID)
	s.mergeCalls = append(s.mergeCalls, duplicateIDs...)
	s.mergedMeta = append(s.mergedMeta, meta)
	return nil
}

func memAt(id, content string, importance float64, age time.Duration) types.Memory {
	return types.Memory{
		ID:              id,
		Content:         content,
		MemoryType:      types.MemoryTypeSemantic,
		ImportanceScore: importance,
		CreatedAt:       time.Now().Add(-age),
	}
}

func TestMergeGroupsSkipsSingleMemberGroups(t *testing.T) {
	merger := NewMerger(&logging.NoOpLogger{})
	store := &fakeMergeStore{memories: []types.Memory{memAt("a", "x", 0.5, 0)}}

	ops, errs := merger.MergeGroups(context.Background(), store, []types.DuplicateGroup{
		{GroupID: "g1", MemoryIDs: []string{"a"}},
	}, testDedupConfig())

	assert.Empty(t, ops)
	assert.Empty(t, errs)
	assert.Empty(t, store.mergeCalls)
}

func TestSelectPrimaryKeepOldest(t *testing.T) {
	memories := []types.Memory{
		memAt("new", "x", 0.5, time.Hour),
		memAt("old", "x", 0.5, 48*time.Hour),
	}
	primary, duplicates := selectPrimary(memories, types.MergeKeepOldest)
	assert.Equal(t, "old", primary.ID)
	require.Len(t, duplicates, 1)
	assert.Equal(t, "new", duplicates[0].ID)
}

func TestSelectPrimaryKeepNewest(t *testing.T) {
	memories := []types.Memory{
		memAt("new", "x", 0.5, time.Hour),
		memAt("old", "x", 0.5, 48*time.Hour),
	}
	primary, _ := selectPrimary(memories, types.MergeKeepNewest)
	assert.Equal(t, "new", primary.ID)
}

func TestSelectPrimaryKeepHighestImportance(t *testing.T) {
	memories := []types.Memory{
		memAt("low", "x", 0.2, 0),
		memAt("high", "x", 0.9, 0),
	}
	primary, _ := selectPrimary(memories, types.MergeKeepHighestImportance)
	assert.Equal(t, "high", primary.ID)
}

func TestSelectPrimarySmartMergeFavorsRicherMemory(t *testing.T) {
	memories := []types.Memory{
		memAt("sparse", "short", 0.5, 0),
		memAt("rich", "this is a much longer and more detailed piece of content describing something important", 0.5, 0),
	}
	primary, _ := selectPrimary(memories, types.MergeSmartMerge)
	assert.Equal(t, "rich", primary.ID)
}

func TestMergeGroupsAppliesSmartMergeAndCallsStore(t *testing.T) {
	merger := NewMerger(&logging.NoOpLogger{})
	store := &fakeMergeStore{memories: []types.Memory{
		memAt("a", "short", 0.9, 0),
		memAt("b", "this is a much longer and more detailed piece of content describing something important", 0.3, 0),
	}}
	cfg := testDedupConfig()

	ops, errs := merger.MergeGroups(context.Background(), store, []types.DuplicateGroup{
		{GroupID: "g1", MemoryIDs: []string{"a", "b"}},
	}, cfg)

	require.Empty(t, errs)
	require.Len(t, ops, 1)
	assert.Equal(t, types.MergeSmartMerge, ops[0].MergeStrategyUsed)
	assert.Len(t, store.primaryIDs, 1)
	assert.Contains(t, store.mergeCalls, ops[0].MergedMemoryIDs[0])

	weighted, ok := ops[0].MetadataChanges.SemanticMetadata["importance_score"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 0.9*0.6+0.3*0.4, weighted, 0.0001)
}

func TestConsolidateMetadataUnionsTagsAndCategories(t *testing.T) {
	primary := memAt("a", "x", 0.5, 0)
	primary.Metadata.Tags = []string{"work"}
	primary.Metadata.Categories = []string{"notes"}
	primary.AccessCount = 3

	dup := memAt("b", "x", 0.5, 0)
	dup.Metadata.Tags = []string{"personal"}
	dup.Metadata.Categories = []string{"notes"}
	dup.AccessCount = 5

	meta := consolidateMetadata(primary, []types.Memory{dup})
	assert.ElementsMatch(t, []string{"personal", "work"}, meta.Tags)
	assert.ElementsMatch(t, []string{"notes"}, meta.Categories)
	assert.Equal(t, []string{"b"}, meta.MergedFrom)
	require.NotNil(t, meta.MergedAt)
	assert.Equal(t, 8, meta.SemanticMetadata["access_count"])
}

func TestIdentifyConflictsDetectsTypeAndImportanceMismatch(t *testing.T) {
	primary := memAt("a", "x", 0.9, 0)
	primary.MemoryType = types.MemoryTypeSemantic
	dup := memAt("b", "x", 0.2, 0)
	dup.MemoryType = types.MemoryTypeEpisodic

	conflicts := identifyConflicts(primary, []types.Memory{dup})
	assert.Contains(t, conflicts, "type")
	assert.Contains(t, conflicts, "importance_score")
}

func TestMergeConfidenceHigherWhenMetadataConsistent(t *testing.T) {
	primary := memAt("a", "x", 0.5, 0)
	primary.Metadata.Categories = []string{"notes"}
	primary.Metadata.Tags = []string{"work"}

	consistentDup := memAt("b", "x", 0.5, 0)
	consistentDup.Metadata.Categories = []string{"notes"}
	consistentDup.Metadata.Tags = []string{"work"}

	inconsistentDup := memAt("c", "x", 0.5, 0)
	inconsistentDup.Metadata.Categories = []string{"other"}
	inconsistentDup.Metadata.Tags = []string{"other"}

	highConfidence := mergeConfidence(primary, []types.Memory{consistentDup})
	lowConfidence := mergeConfidence(primary, []types.Memory{inconsistentDup})
	assert.Greater(t, highConfidence, lowConfidence)
}

func TestValidateMergeIntegrityReportsValidAndInvalid(t *testing.T) {
	store := &fakeMergeStore{memories: []types.Memory{memAt("primary", "x", 0.5, 0)}}
	ops := []types.MergeOperation{
		{PrimaryMemoryID: "primary", MergedMemoryIDs: []string{"gone"}},
		{PrimaryMemoryID: "missing", MergedMemoryIDs: []string{"also-gone"}},
	}

	report := ValidateMergeIntegrity(context.Background(), ops, store)
	assert.Equal(t, 2, report.TotalOperations)
	assert.Equal(t, 1, report.ValidOperations)
	assert.Equal(t, 1, report.InvalidOperations)
	assert.NotEmpty(t, report.Errors)
}
