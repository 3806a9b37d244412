package importance

import (
	"context"
	"math"
	"time"

	"github.com/raold/second-brain-core/pkg/types"
)

// CandidateMemory is one memory considered for a batch recalculation,
// paired with the access pattern the store has observed for it.
type CandidateMemory struct {
	Memory  types.Memory
	Pattern types.AccessPattern
}

// CandidateSource supplies the memories a batch recalculation should
// consider, ordered by the caller's own prioritization (e.g. stale
// scores first, high-access-count first).
type CandidateSource interface {
	GetCandidateMemories(ctx context.Context, limit int) ([]CandidateMemory, error)
}

// ScoreWriter persists an updated importance score for a memory.
type ScoreWriter interface {
	UpdateImportanceScore(ctx context.Context, memoryID string, score float64) error
}

// BatchResult summarizes one batch recalculation run.
type BatchResult struct {
	Processed     int     `json:"processed"`
	Updated       int     `json:"updated"`
	AverageChange float64 `json:"average_change"`
}

// BatchRecalculate recomputes importance for up to limit candidate
// memories and writes back only those whose score moved by more than
// the configured threshold, matching the source engine's 5% default
// and its processed/updated/average_change reporting shape.
func (e *Engine) BatchRecalculate(ctx context.Context, source CandidateSource, writer ScoreWriter, limit int) (BatchResult, error) {
	candidates, err := source.GetCandidateMemories(ctx, limit)
	if err != nil {
		return BatchResult{}, err
	}

	now := time.Now()
	result := BatchResult{Processed: len(candidates)}
	var totalChange float64

	for _, c := range candidates {
		score := e.Calculate(now, c.Memory.Content, c.Memory.MemoryType, c.Pattern)
		change := math.Abs(score.Final - c.Memory.ImportanceScore)
		if change <= e.cfg.RecalculateThreshold {
			continue
		}
		if err := writer.UpdateImportanceScore(ctx, c.Memory.ID, score.Final); err != nil {
			if e.log != nil {
				e.log.Warn("importance: failed to persist recalculated score", "memory_id", c.Memory.ID, "error", err.Error())
			}
			continue
		}
		result.Updated++
		totalChange += change
	}

	if result.Updated > 0 {
		result.AverageChange = totalChange / float64(result.Updated)
	}
	return result, nil
}
