package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/store"
	"github.com/raold/second-brain-core/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMemory(id string, withEmbedding bool) types.Memory {
	m := types.Memory{
		ID:              id,
		Content:         "content for " + id,
		MemoryType:      types.MemoryTypeSemantic,
		ImportanceScore: 0.5,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	if withEmbedding {
		m.Embedding = []float64{0.1, 0.2, 0.3}
	}
	return m
}

func TestStorePutAndGetMemoryRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := testMemory("a", true)
	m.Metadata.Tags = []string{"work"}

	require.NoError(t, s.Put(ctx, m))

	got, err := s.GetMemory(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, m.Embedding, got.Embedding)
	assert.Equal(t, []string{"work"}, got.Metadata.Tags)
}

func TestStoreGetMemoryMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetMemory(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreGetCandidateMemoriesExcludesSelfAndNoEmbedding(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", true)))
	require.NoError(t, s.Put(ctx, testMemory("b", true)))
	require.NoError(t, s.Put(ctx, testMemory("no-embed", false)))

	candidates, err := s.GetCandidateMemories(ctx, "a", 10, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "b", candidates[0].ID)
}

func TestStoreGetMemoriesForDeduplicationPaginates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))
	require.NoError(t, s.Put(ctx, testMemory("b", false)))
	require.NoError(t, s.Put(ctx, testMemory("c", false)))

	page1, err := s.GetMemoriesForDeduplication(ctx, nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := s.GetMemoriesForDeduplication(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)
}

func TestStoreGetMemoriesByIDsOmitsMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))

	got, err := s.GetMemoriesByIDs(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestStoreRecordAccessAccumulatesPattern(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))

	pos := 2
	require.NoError(t, s.RecordAccess(ctx, "a", store.AccessSearch, &pos))
	require.NoError(t, s.RecordAccess(ctx, "a", store.AccessRead, nil))

	pattern, err := s.GetAccessPattern(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, pattern.TotalAccesses)
	assert.Equal(t, 1, pattern.SearchAppearance)
	assert.InDelta(t, 2.0, pattern.AvgSearchPos, 0.0001)

	got, err := s.GetMemory(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
}

func TestStoreRecordAccessMissingMemoryErrors(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordAccess(context.Background(), "absent", store.AccessRead, nil)
	assert.Error(t, err)
}

func TestStoreUpdateImportanceScore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))

	require.NoError(t, s.UpdateImportanceScore(ctx, "a", 0.9))
	got, err := s.GetMemory(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.ImportanceScore, 0.0001)
}

func TestStoreUpdateImportanceScoreMissingMemoryErrors(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateImportanceScore(context.Background(), "absent", 0.9)
	assert.Error(t, err)
}

func TestStoreMergeMemoriesRemovesDuplicatesAndAppliesMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("primary", false)))
	require.NoError(t, s.Put(ctx, testMemory("dup", false)))

	meta := types.Metadata{Tags: []string{"merged"}}
	require.NoError(t, s.MergeMemories(ctx, "primary", []string{"dup"}, "keep_newest", meta))

	primary, err := s.GetMemory(ctx, "primary")
	require.NoError(t, err)
	assert.Equal(t, []string{"merged"}, primary.Metadata.Tags)

	dup, err := s.GetMemory(ctx, "dup")
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestStoreMergeMemoriesRejectsMissingDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("primary", false)))

	err := s.MergeMemories(ctx, "primary", []string{"gone"}, "keep_newest", types.Metadata{})
	assert.Error(t, err)
}

func TestStoreGetImportanceCandidatesPairsPattern(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))
	require.NoError(t, s.RecordAccess(ctx, "a", store.AccessRead, nil))

	candidates, err := s.GetImportanceCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "a", candidates[0].Memory.ID)
	assert.Equal(t, 1, candidates[0].Pattern.TotalAccesses)
}

func TestStoreStatsCountsByType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testMemory("a", false)))
	b := testMemory("b", false)
	b.MemoryType = types.MemoryTypeEpisodic
	require.NoError(t, s.Put(ctx, b))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMemories)
	assert.Equal(t, 1, stats.ByType["semantic"])
	assert.Equal(t, 1, stats.ByType["episodic"])
}

func TestStoreHealthCheck(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.HealthCheck(context.Background()))
}
