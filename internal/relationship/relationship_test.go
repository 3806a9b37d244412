package relationship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

func testAnalyzer() *Analyzer {
	return New(config.DefaultRelationshipConfig(), logging.NewNoOpLogger(), 24)
}

func mkMemory(id, content string, embedding []float64, createdAt time.Time) types.Memory {
	return types.Memory{
		ID:         id,
		Content:    content,
		Embedding:  embedding,
		MemoryType: types.MemoryTypeSemantic,
		CreatedAt:  createdAt,
	}
}

func TestAnalyzeSkipsSelf(t *testing.T) {
	a := testAnalyzer()
	now := time.Now()
	target := mkMemory("m1", "the cat sat", []float64{1, 0}, now)

	results := a.Analyze(target, []types.Memory{target})
	assert.Empty(t, results)
}

func TestAnalyzeRanksMoreSimilarHigher(t *testing.T) {
	a := testAnalyzer()
	now := time.Now()
	target := mkMemory("m1", "the quick brown fox jumps", []float64{1, 0, 0}, now)
	similar := mkMemory("m2", "the quick brown fox leaps", []float64{0.99, 0.1, 0}, now)
	unrelated := mkMemory("m3", "completely different topic entirely", []float64{0, 0, 1}, now.Add(-1000*time.Hour))

	results := a.Analyze(target, []types.Memory{unrelated, similar})
	require.NotEmpty(t, results)
	assert.Equal(t, "m2", results[0].RelatedID)
}

func TestAnalyzeRespectsMaxCandidates(t *testing.T) {
	a := testAnalyzer()
	a.cfg.MaxCandidates = 1
	a.cfg.MinCompositeScore = 0.0
	now := time.Now()
	target := mkMemory("m1", "alpha beta gamma", []float64{1, 0}, now)
	c1 := mkMemory("m2", "alpha beta gamma delta", []float64{0.9, 0.1}, now)
	c2 := mkMemory("m3", "alpha beta gamma epsilon", []float64{0.8, 0.2}, now)

	results := a.Analyze(target, []types.Memory{c1, c2})
	assert.Len(t, results, 1)
}

func TestBuildReportEmpty(t *testing.T) {
	report := BuildReport(nil)
	assert.Equal(t, 0, report.TotalRelationships)
	assert.Nil(t, report.TopComposite)
}

func TestBuildReportAggregates(t *testing.T) {
	rels := []types.Relationship{
		{PrimaryRelationshipType: "semantic_similarity", Strength: types.StrengthStrongRel, CompositeScore: 0.7},
		{PrimaryRelationshipType: "content_overlap", Strength: types.StrengthWeakRel, CompositeScore: 0.3},
	}
	report := BuildReport(rels)
	assert.Equal(t, 2, report.TotalRelationships)
	assert.Equal(t, 1, report.ByPrimaryType["semantic_similarity"])
	require.NotNil(t, report.TopComposite)
	assert.InDelta(t, 0.7, report.TopComposite.CompositeScore, 1e-9)
}
