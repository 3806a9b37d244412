package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raold/second-brain-core/internal/circuitbreaker"
	coreerrors "github.com/raold/second-brain-core/internal/errors"
	"github.com/raold/second-brain-core/internal/importance"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

// CircuitBreakerStore wraps a MemoryStore with circuit breaker
// protection: writes and single-record reads fail through, while the
// list-shaped reads (candidates, dedup pages, stats) fall back to an
// empty result so a flaky backing store degrades the engines rather
// than taking them down.
type CircuitBreakerStore struct {
	store MemoryStore
	cb    *circuitbreaker.CircuitBreaker
	log   logging.Logger
}

// NewCircuitBreakerStore wraps store with a circuit breaker. A nil
// config falls back to a 5-failure/2-success/30s-timeout default; a
// nil log discards state-change notifications.
func NewCircuitBreakerStore(store MemoryStore, config *circuitbreaker.Config, log logging.Logger) *CircuitBreakerStore {
	if log == nil {
		log = &logging.NoOpLogger{}
	}
	if config == nil {
		config = &circuitbreaker.Config{
			FailureThreshold:      5,
			SuccessThreshold:      2,
			Timeout:               30 * time.Second,
			MaxConcurrentRequests: 3,
			OnStateChange: func(from, to circuitbreaker.State) {
				log.Warn("memory store circuit breaker state change", "from", from.String(), "to", to.String())
			},
		}
	}

	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.New(config),
		log:   log,
	}
}

// wrapBreakerErr translates the breaker's own generic rejection errors
// (open circuit, too many half-open requests) into the core's
// StoreUnavailable error kind per spec §7; any other error is assumed
// to already be the backing store's own error and is passed through
// unwrapped.
func wrapBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyConcurrentRequests) {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "memory store circuit breaker is open", err)
	}
	return err
}

func (s *CircuitBreakerStore) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	var result *types.Memory
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.store.GetMemory(ctx, id)
		return err
	})
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) GetCandidateMemories(ctx context.Context, excludeID string, limit int, memoryTypes []types.MemoryType) ([]types.Memory, error) {
	var result []types.Memory
	err := s.cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			var err error
			result, err = s.store.GetCandidateMemories(ctx, excludeID, limit, memoryTypes)
			return err
		},
		func(_ context.Context, _ error) error {
			result = nil
			return nil
		},
	)
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) GetMemoriesForDeduplication(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]types.Memory, error) {
	var result []types.Memory
	err := s.cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			var err error
			result, err = s.store.GetMemoriesForDeduplication(ctx, filter, limit, offset)
			return err
		},
		func(_ context.Context, _ error) error {
			result = nil
			return nil
		},
	)
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) GetMemoriesByIDs(ctx context.Context, ids []string) ([]types.Memory, error) {
	var result []types.Memory
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.store.GetMemoriesByIDs(ctx, ids)
		return err
	})
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) RecordAccess(ctx context.Context, id string, action AccessAction, searchPosition *int) error {
	return wrapBreakerErr(s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.RecordAccess(ctx, id, action, searchPosition)
	}))
}

func (s *CircuitBreakerStore) UpdateImportanceScore(ctx context.Context, memoryID string, score float64) error {
	return wrapBreakerErr(s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.UpdateImportanceScore(ctx, memoryID, score)
	}))
}

func (s *CircuitBreakerStore) MergeMemories(ctx context.Context, primaryID string, duplicateIDs []string, strategy string, mergedMetadata types.Metadata) error {
	return wrapBreakerErr(s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.MergeMemories(ctx, primaryID, duplicateIDs, strategy, mergedMetadata)
	}))
}

func (s *CircuitBreakerStore) GetAccessPattern(ctx context.Context, memoryID string) (types.AccessPattern, error) {
	var result types.AccessPattern
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.store.GetAccessPattern(ctx, memoryID)
		return err
	})
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) GetImportanceCandidates(ctx context.Context, limit int) ([]importance.CandidateMemory, error) {
	var result []importance.CandidateMemory
	err := s.cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			var err error
			result, err = s.store.GetImportanceCandidates(ctx, limit)
			return err
		},
		func(_ context.Context, _ error) error {
			result = nil
			return nil
		},
	)
	return result, wrapBreakerErr(err)
}

func (s *CircuitBreakerStore) HealthCheck(ctx context.Context) error {
	return wrapBreakerErr(s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.HealthCheck(ctx)
	}))
}

func (s *CircuitBreakerStore) Stats(ctx context.Context) (Stats, error) {
	var result Stats
	err := s.cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			var err error
			result, err = s.store.Stats(ctx)
			return err
		},
		func(_ context.Context, _ error) error {
			result = Stats{ByType: map[string]int{}}
			return nil
		},
	)
	return result, wrapBreakerErr(err)
}

// Seed inserts or replaces a memory directly against the backing store,
// bypassing the normal read/write operations above; used by demo and
// test harnesses to populate a store before exercising the engines. It
// supports the two concrete MemoryStore implementations this package
// ships (MockStore and sqlitestore.Store), whose Put methods differ in
// signature since one is in-memory and the other persists to disk.
func (s *CircuitBreakerStore) Seed(ctx context.Context, m types.Memory) error {
	return wrapBreakerErr(s.cb.Execute(ctx, func(ctx context.Context) error {
		switch backing := s.store.(type) {
		case interface{ Put(types.Memory) }:
			backing.Put(m)
			return nil
		case interface {
			Put(context.Context, types.Memory) error
		}:
			return backing.Put(ctx, m)
		default:
			return fmt.Errorf("store: backing store of type %T does not support seeding", s.store)
		}
	}))
}

// CircuitStats reports the wrapped breaker's current counters.
func (s *CircuitBreakerStore) CircuitStats() circuitbreaker.Stats {
	return s.cb.GetStats()
}
