package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DeterministicService produces fixed-dimension vectors derived from a
// SHA-256 hash of the input text, cached by EmbeddingCache. It stands in
// for a real provider (OpenAI, a local sentence-transformer, etc.) when
// none is configured, giving callers stable, repeatable vectors for
// candidate selection and relationship cosine scoring without a network
// dependency.
type DeterministicService struct {
	dimensions int
	cache      *EmbeddingCache
}

// NewDeterministicService builds a DeterministicService producing vectors
// of the given dimension, cached with the given capacity and the
// cache's default TTL.
func NewDeterministicService(dimensions, cacheSize int) *DeterministicService {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &DeterministicService{
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize, 0),
	}
}

// Generate produces (or returns the cached) embedding for text.
func (s *DeterministicService) Generate(_ context.Context, text string) ([]float64, error) {
	if cached, ok := s.cache.Get(text); ok {
		return cached, nil
	}

	vec := hashEmbedding(text, s.dimensions)
	s.cache.Set(text, vec)
	return vec, nil
}

// GenerateBatch generates embeddings for each text in order.
func (s *DeterministicService) GenerateBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := s.Generate(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// GetDimensions reports the fixed vector dimension this service produces.
func (s *DeterministicService) GetDimensions() int { return s.dimensions }

// HealthCheck always succeeds: there is no external dependency to probe.
func (s *DeterministicService) HealthCheck(_ context.Context) error { return nil }

// CacheStats reports the embedding cache's hit/miss/eviction counters,
// surfaced for callers (the demo CLI, a future metrics endpoint) that
// want visibility into repeated-text reuse.
func (s *DeterministicService) CacheStats() CacheStats {
	return s.cache.Stats()
}

// hashEmbedding expands a SHA-256 digest of text into a dimensions-length
// unit-ish vector by repeatedly re-hashing, giving a stable pseudo-random
// direction per distinct text.
func hashEmbedding(text string, dimensions int) []float64 {
	vec := make([]float64, dimensions)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < dimensions; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		offset := i % len(block)
		chunk := binary.BigEndian.Uint32(padTo4(block[offset:]))
		vec[i] = (float64(chunk%20001) - 10000) / 10000.0
	}
	return vec
}

func padTo4(b []byte) []byte {
	if len(b) >= 4 {
		return b[:4]
	}
	padded := make([]byte, 4)
	copy(padded, b)
	return padded
}
