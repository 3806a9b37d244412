package store

import (
	"context"
	"sort"
	"sync"
	"time"

	coreerrors "github.com/raold/second-brain-core/internal/errors"
	"github.com/raold/second-brain-core/internal/importance"
	"github.com/raold/second-brain-core/pkg/types"
)

// MockStore is a map-based, in-process MemoryStore for tests and for
// running the core without a database. It is safe for concurrent use.
type MockStore struct {
	mu       sync.RWMutex
	memories map[string]types.Memory
	accesses map[string][]AccessEventRecord
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		memories: make(map[string]types.Memory),
		accesses: make(map[string][]AccessEventRecord),
	}
}

// Put inserts or replaces a memory, for test setup and seeding.
func (s *MockStore) Put(m types.Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.ID] = m
}

func (s *MockStore) GetMemory(_ context.Context, id string) (*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, nil
	}
	out := m
	return &out, nil
}

func (s *MockStore) GetCandidateMemories(_ context.Context, excludeID string, limit int, memoryTypes []types.MemoryType) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeSet := make(map[types.MemoryType]bool, len(memoryTypes))
	for _, t := range memoryTypes {
		typeSet[t] = true
	}

	candidates := make([]types.Memory, 0, len(s.memories))
	for id, m := range s.memories {
		if id == excludeID || m.Embedding == nil {
			continue
		}
		if len(typeSet) > 0 && !typeSet[m.MemoryType] {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ImportanceScore != candidates[j].ImportanceScore {
			return candidates[i].ImportanceScore > candidates[j].ImportanceScore
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *MockStore) GetMemoriesForDeduplication(_ context.Context, filter map[string]interface{}, limit, offset int) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]types.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		if !matchesFilter(m, filter) {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func matchesFilter(m types.Memory, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	if v, ok := filter["memory_type"]; ok {
		if mt, ok := v.(types.MemoryType); ok && m.MemoryType != mt {
			return false
		}
	}
	return true
}

func (s *MockStore) GetMemoriesByIDs(_ context.Context, ids []string) ([]types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MockStore) RecordAccess(_ context.Context, id string, action AccessAction, searchPosition *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok {
		return coreerrors.New(coreerrors.KindNotFound, "memory not found: "+id)
	}

	now := time.Now()
	s.accesses[id] = append(s.accesses[id], AccessEventRecord{
		MemoryID:       id,
		Action:         action,
		SearchPosition: searchPosition,
		Timestamp:      now,
	})

	m.AccessCount++
	m.LastAccessedAt = &now
	s.memories[id] = m
	return nil
}

func (s *MockStore) UpdateImportanceScore(_ context.Context, memoryID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[memoryID]
	if !ok {
		return coreerrors.New(coreerrors.KindNotFound, "memory not found: "+memoryID)
	}
	m.ImportanceScore = score
	s.memories[memoryID] = m
	return nil
}

func (s *MockStore) MergeMemories(_ context.Context, primaryID string, duplicateIDs []string, _ string, mergedMetadata types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	primary, ok := s.memories[primaryID]
	if !ok {
		return coreerrors.New(coreerrors.KindNotFound, "primary memory not found: "+primaryID)
	}
	for _, id := range duplicateIDs {
		if _, ok := s.memories[id]; !ok {
			return coreerrors.New(coreerrors.KindConflict, "duplicate memory no longer exists: "+id)
		}
	}

	primary.Metadata = mergedMetadata
	s.memories[primaryID] = primary
	for _, id := range duplicateIDs {
		delete(s.memories, id)
		delete(s.accesses, id)
	}
	return nil
}

func (s *MockStore) GetAccessPattern(_ context.Context, memoryID string) (types.AccessPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.accesses[memoryID]
	pattern := types.AccessPattern{UserInteractions: make(map[string]int)}

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	var posSum float64
	var posCount int
	for _, e := range events {
		pattern.TotalAccesses++
		if e.Timestamp.After(cutoff) {
			pattern.RecentAccesses++
		}
		if e.Action == AccessSearch {
			pattern.SearchAppearance++
			if e.SearchPosition != nil {
				posSum += float64(*e.SearchPosition)
				posCount++
			}
		}
		pattern.UserInteractions[string(e.Action)]++
		ts := e.Timestamp
		if pattern.LastAccessed == nil || ts.After(*pattern.LastAccessed) {
			pattern.LastAccessed = &ts
		}
	}
	if posCount > 0 {
		pattern.AvgSearchPos = posSum / float64(posCount)
	}
	return pattern, nil
}

func (s *MockStore) GetImportanceCandidates(ctx context.Context, limit int) ([]importance.CandidateMemory, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.memories))
	for id := range s.memories {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]importance.CandidateMemory, 0, len(ids))
	for _, id := range ids {
		s.mu.RLock()
		m := s.memories[id]
		s.mu.RUnlock()
		pattern, err := s.GetAccessPattern(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, importance.CandidateMemory{Memory: m, Pattern: pattern})
	}
	return out, nil
}

func (s *MockStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *MockStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]int)
	for _, m := range s.memories {
		byType[string(m.MemoryType)]++
	}
	return Stats{TotalMemories: len(s.memories), ByType: byType}, nil
}
