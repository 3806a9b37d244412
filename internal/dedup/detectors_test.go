package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/pkg/types"
)

func testDedupConfig() *config.DeduplicationConfig {
	return config.DefaultDeduplicationConfig()
}

func mem(id, content string) types.Memory {
	return types.Memory{
		ID:         id,
		Content:    content,
		MemoryType: types.MemoryTypeSemantic,
		CreatedAt:  time.Now(),
	}
}

func TestExactDetectorGroupsIdenticalContent(t *testing.T) {
	memories := []types.Memory{
		mem("a", "  the quick brown fox  "),
		mem("b", "the quick brown fox"),
		mem("c", "completely different"),
	}

	groups := ExactDetector{}.FindDuplicates(memories, testDedupConfig())
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0].MemoryIDs)
	assert.Equal(t, methodExact, groups[0].DetectionMethod)
	assert.Equal(t, 1.0, groups[0].Confidence)
}

func TestExactDetectorNoGroupForUniqueContent(t *testing.T) {
	memories := []types.Memory{mem("a", "one"), mem("b", "two")}
	groups := ExactDetector{}.FindDuplicates(memories, testDedupConfig())
	assert.Empty(t, groups)
}

func TestFuzzyDetectorFindsNearDuplicates(t *testing.T) {
	cfg := testDedupConfig()
	memories := []types.Memory{
		mem("a", "The quick brown fox jumps over the lazy dog"),
		mem("b", "the quick brown fox jumps over the lazy dog!"),
		mem("c", "utterly unrelated sentence about rockets and planets"),
	}

	groups := FuzzyDetector{}.FindDuplicates(memories, cfg)
	require.NotEmpty(t, groups)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0].MemoryIDs)
}

func TestFuzzyDetectorDisabledReturnsNil(t *testing.T) {
	cfg := testDedupConfig()
	cfg.FuzzyMatchEnabled = false
	groups := FuzzyDetector{}.FindDuplicates([]types.Memory{mem("a", "x"), mem("b", "x")}, cfg)
	assert.Nil(t, groups)
}

func TestSemanticDetectorFindsKeywordOverlap(t *testing.T) {
	cfg := testDedupConfig()
	cfg.SemanticThreshold = 0.6
	memories := []types.Memory{
		mem("a", "database migration rollback procedure documentation"),
		mem("b", "documentation describing database rollback migration steps"),
		mem("c", "unrelated cooking recipe for pasta"),
	}

	groups := SemanticDetector{}.FindDuplicates(memories, cfg)
	require.NotEmpty(t, groups)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0].MemoryIDs)
}

func TestPositionalCharSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, positionalCharSimilarity("abc", "abc"))
}

func TestStructuralSimilarityEmptyBoth(t *testing.T) {
	assert.Equal(t, 1.0, structuralSimilarity("", ""))
}

func TestMergeIntoGroupExtendsExisting(t *testing.T) {
	var groups []types.DuplicateGroup
	mergeIntoGroup(&groups, "a", "b", 0.9, methodFuzzy)
	mergeIntoGroup(&groups, "b", "c", 0.95, methodFuzzy)

	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, groups[0].MemoryIDs)
}
