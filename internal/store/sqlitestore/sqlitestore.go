// Package sqlitestore is a reference MemoryStore backed by SQLite,
// grounded on the teacher's event-log persistence layer: one WAL-mode
// database, a schema created on open, prepared statements for the hot
// paths, and transactions around the multi-row merge operation.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	coreerrors "github.com/raold/second-brain-core/internal/errors"
	"github.com/raold/second-brain-core/internal/importance"
	"github.com/raold/second-brain-core/internal/store"
	"github.com/raold/second-brain-core/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding TEXT,
	memory_type TEXT NOT NULL,
	importance_score REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	last_accessed_at DATETIME,
	access_count INTEGER NOT NULL DEFAULT 0,
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance_score DESC);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC);

CREATE TABLE IF NOT EXISTS access_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id TEXT NOT NULL,
	action TEXT NOT NULL,
	search_position INTEGER,
	occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_events_memory ON access_events(memory_id);
CREATE INDEX IF NOT EXISTS idx_access_events_occurred_at ON access_events(occurred_at);
`

// Store is a SQLite-backed MemoryStore. The zero value is not usable;
// construct with Open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path in WAL
// mode and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_sync=NORMAL&_cache_size=10000")
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to initialize schema", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeEmbedding(v []float64) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeEmbedding(v sql.NullString) ([]float64, error) {
	if !v.Valid {
		return nil, nil
	}
	var out []float64
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeMetadata(m types.Metadata) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(raw string) (types.Metadata, error) {
	var m types.Metadata
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, err
	}
	return m, nil
}

// Put inserts or replaces a memory row; used by seeding/import code and
// tests, mirroring the convenience the in-memory MockStore offers.
func (s *Store) Put(ctx context.Context, m types.Memory) error {
	embedding, err := encodeEmbedding(m.Embedding)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindComputationError, "failed to encode embedding", err)
	}
	metadata, err := encodeMetadata(m.Metadata)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindComputationError, "failed to encode metadata", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, embedding, memory_type, importance_score, created_at, last_accessed_at, access_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, embedding=excluded.embedding, memory_type=excluded.memory_type,
			importance_score=excluded.importance_score, created_at=excluded.created_at,
			last_accessed_at=excluded.last_accessed_at, access_count=excluded.access_count, metadata=excluded.metadata`,
		m.ID, m.Content, embedding, string(m.MemoryType), m.ImportanceScore, m.CreatedAt,
		nullTime(m.LastAccessedAt), m.AccessCount, metadata,
	)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to upsert memory", err)
	}
	return nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func scanMemory(row interface {
	Scan(dest ...interface{}) error
}) (types.Memory, error) {
	var m types.Memory
	var embedding sql.NullString
	var lastAccessed sql.NullTime
	var metadataRaw string
	var memType string

	if err := row.Scan(&m.ID, &m.Content, &embedding, &memType, &m.ImportanceScore,
		&m.CreatedAt, &lastAccessed, &m.AccessCount, &metadataRaw); err != nil {
		return m, err
	}

	m.MemoryType = types.MemoryType(memType)
	if lastAccessed.Valid {
		t := lastAccessed.Time
		m.LastAccessedAt = &t
	}
	vec, err := decodeEmbedding(embedding)
	if err != nil {
		return m, err
	}
	m.Embedding = vec

	meta, err := decodeMetadata(metadataRaw)
	if err != nil {
		return m, err
	}
	m.Metadata = meta
	return m, nil
}

const memoryColumns = "id, content, embedding, memory_type, importance_score, created_at, last_accessed_at, access_count, metadata"

func (s *Store) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to query memory", err)
	}
	return &m, nil
}

func (s *Store) GetCandidateMemories(ctx context.Context, excludeID string, limit int, memoryTypes []types.MemoryType) ([]types.Memory, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + memoryColumns + " FROM memories WHERE embedding IS NOT NULL")
	args := []interface{}{}

	if excludeID != "" {
		sb.WriteString(" AND id != ?")
		args = append(args, excludeID)
	}
	if len(memoryTypes) > 0 {
		placeholders := make([]string, len(memoryTypes))
		for i, t := range memoryTypes {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		sb.WriteString(" AND memory_type IN (" + strings.Join(placeholders, ",") + ")")
	}
	sb.WriteString(" ORDER BY importance_score DESC, created_at DESC")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	return s.queryMemories(ctx, sb.String(), args...)
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...interface{}) ([]types.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to query memories", err)
	}
	defer rows.Close()

	var out []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to scan memory row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMemoriesForDeduplication(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]types.Memory, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + memoryColumns + " FROM memories WHERE 1=1")
	args := []interface{}{}

	if v, ok := filter["memory_type"]; ok {
		if mt, ok := v.(types.MemoryType); ok {
			sb.WriteString(" AND memory_type = ?")
			args = append(args, string(mt))
		}
	}
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}
	sb.WriteString(" ORDER BY id LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	return s.queryMemories(ctx, sb.String(), args...)
}

func (s *Store) GetMemoriesByIDs(ctx context.Context, ids []string) ([]types.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := "SELECT " + memoryColumns + " FROM memories WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	return s.queryMemories(ctx, query, args...)
}

func (s *Store) RecordAccess(ctx context.Context, id string, action store.AccessAction, searchPosition *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM memories WHERE id = ?", id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return coreerrors.New(coreerrors.KindNotFound, "memory not found: "+id)
		}
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to check memory existence", err)
	}

	now := time.Now()
	var pos interface{}
	if searchPosition != nil {
		pos = *searchPosition
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO access_events (memory_id, action, search_position, occurred_at) VALUES (?, ?, ?, ?)",
		id, string(action), pos, now); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to record access event", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?", now, id); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to update memory access stats", err)
	}

	if err := tx.Commit(); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to commit access record", err)
	}
	return nil
}

func (s *Store) UpdateImportanceScore(ctx context.Context, memoryID string, score float64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE memories SET importance_score = ? WHERE id = ?", score, memoryID)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to update importance score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to read update result", err)
	}
	if n == 0 {
		return coreerrors.New(coreerrors.KindNotFound, "memory not found: "+memoryID)
	}
	return nil
}

func (s *Store) MergeMemories(ctx context.Context, primaryID string, duplicateIDs []string, _ string, mergedMetadata types.Metadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM memories WHERE id = ?", primaryID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return coreerrors.New(coreerrors.KindNotFound, "primary memory not found: "+primaryID)
		}
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to check primary existence", err)
	}

	for _, id := range duplicateIDs {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM memories WHERE id = ?", id).Scan(&n); err != nil {
			if err == sql.ErrNoRows {
				return coreerrors.New(coreerrors.KindConflict, "duplicate memory no longer exists: "+id)
			}
			return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to check duplicate existence", err)
		}
	}

	metadataRaw, err := encodeMetadata(mergedMetadata)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindComputationError, "failed to encode merged metadata", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE memories SET metadata = ? WHERE id = ?", metadataRaw, primaryID); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to apply merged metadata", err)
	}

	placeholders := make([]string, len(duplicateIDs))
	args := make([]interface{}, len(duplicateIDs))
	for i, id := range duplicateIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	if len(duplicateIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM access_events WHERE memory_id IN (%s)", strings.Join(placeholders, ",")), args...); err != nil {
			return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to delete duplicate access events", err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM memories WHERE id IN (%s)", strings.Join(placeholders, ",")), args...); err != nil {
			return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to delete duplicate memories", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to commit merge", err)
	}
	return nil
}

func (s *Store) GetAccessPattern(ctx context.Context, memoryID string) (types.AccessPattern, error) {
	pattern := types.AccessPattern{UserInteractions: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT action, search_position, occurred_at FROM access_events WHERE memory_id = ?", memoryID)
	if err != nil {
		return pattern, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to query access events", err)
	}
	defer rows.Close()

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	var posSum float64
	var posCount int
	for rows.Next() {
		var action string
		var pos sql.NullInt64
		var occurred time.Time
		if err := rows.Scan(&action, &pos, &occurred); err != nil {
			return pattern, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to scan access event", err)
		}
		pattern.TotalAccesses++
		if occurred.After(cutoff) {
			pattern.RecentAccesses++
		}
		if action == string(store.AccessSearch) {
			pattern.SearchAppearance++
			if pos.Valid {
				posSum += float64(pos.Int64)
				posCount++
			}
		}
		pattern.UserInteractions[action]++
		if pattern.LastAccessed == nil || occurred.After(*pattern.LastAccessed) {
			t := occurred
			pattern.LastAccessed = &t
		}
	}
	if posCount > 0 {
		pattern.AvgSearchPos = posSum / float64(posCount)
	}
	return pattern, rows.Err()
}

func (s *Store) GetImportanceCandidates(ctx context.Context, limit int) ([]importance.CandidateMemory, error) {
	query := "SELECT " + memoryColumns + " FROM memories ORDER BY id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	memories, err := s.queryMemories(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]importance.CandidateMemory, 0, len(memories))
	for _, m := range memories {
		pattern, err := s.GetAccessPattern(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, importance.CandidateMemory{Memory: m, Pattern: pattern})
	}
	return out, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return coreerrors.Wrap(coreerrors.KindStoreUnavailable, "sqlite ping failed", err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&total); err != nil {
		return store.Stats{}, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to count memories", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT memory_type, COUNT(*) FROM memories GROUP BY memory_type")
	if err != nil {
		return store.Stats{}, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to group memories by type", err)
	}
	defer rows.Close()

	byType := make(map[string]int)
	for rows.Next() {
		var memType string
		var count int
		if err := rows.Scan(&memType, &count); err != nil {
			return store.Stats{}, coreerrors.Wrap(coreerrors.KindStoreUnavailable, "failed to scan type count", err)
		}
		byType[memType] = count
	}

	return store.Stats{TotalMemories: total, ByType: byType}, rows.Err()
}
