package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicServiceGenerateIsStableAndDimensioned(t *testing.T) {
	s := NewDeterministicService(32, 10)
	ctx := context.Background()

	first, err := s.Generate(ctx, "a memory about second brains")
	require.NoError(t, err)
	assert.Len(t, first, 32)

	second, err := s.Generate(ctx, "a memory about second brains")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeterministicServiceGenerateDiffersByText(t *testing.T) {
	s := NewDeterministicService(32, 10)
	ctx := context.Background()

	a, err := s.Generate(ctx, "alpha")
	require.NoError(t, err)
	b, err := s.Generate(ctx, "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDeterministicServiceGenerateBatchPreservesOrder(t *testing.T) {
	s := NewDeterministicService(8, 10)
	texts := []string{"one", "two", "three"}

	vectors, err := s.GenerateBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for i, text := range texts {
		want, _ := s.Generate(context.Background(), text)
		assert.Equal(t, want, vectors[i])
	}
}

func TestDeterministicServiceCacheStatsTracksHitsAndMisses(t *testing.T) {
	s := NewDeterministicService(8, 10)
	ctx := context.Background()

	_, err := s.Generate(ctx, "repeated text")
	require.NoError(t, err)
	_, err = s.Generate(ctx, "repeated text")
	require.NoError(t, err)

	stats := s.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestDeterministicServiceDefaultsDimensionsWhenNonPositive(t *testing.T) {
	s := NewDeterministicService(0, 10)
	assert.Equal(t, 256, s.GetDimensions())
}

func TestDeterministicServiceHealthCheckAlwaysSucceeds(t *testing.T) {
	s := NewDeterministicService(8, 10)
	assert.NoError(t, s.HealthCheck(context.Background()))
}
