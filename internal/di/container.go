// Package di provides the composition root wiring configuration, the
// logger, the backing store, and the embedding provider into the four
// core engines. Unlike the teacher's package-level singleton getters,
// every engine here is a plain struct built from explicit capability
// parameters at construction — the container holds the wiring, not
// global state.
package di

import (
	"context"
	"fmt"

	"github.com/raold/second-brain-core/internal/aging"
	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/dedup"
	"github.com/raold/second-brain-core/internal/embeddings"
	"github.com/raold/second-brain-core/internal/importance"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/internal/relationship"
	"github.com/raold/second-brain-core/internal/store"
	"github.com/raold/second-brain-core/internal/store/sqlitestore"
)

// defaultTemporalWindowHours is the Relationship Analyzer's
// temporal-proximity decay window when nothing overrides it.
const defaultTemporalWindowHours = 24.0

// defaultEmbeddingDimensions is the vector size the deterministic
// fallback embedding provider produces when no real provider is wired.
const defaultEmbeddingDimensions = 256

// Container holds every dependency the core engines need, built once
// at startup and threaded through to whatever entry point uses it
// (cmd/secondbraincore, a test harness, an embedding caller).
type Container struct {
	Config     *config.Config
	Logger     logging.Logger
	Store      store.MemoryStore
	Embeddings store.EmbeddingProvider

	Aging        *aging.Engine
	Importance   *importance.Engine
	Relationship *relationship.Analyzer
	Dedup        *dedup.Orchestrator

	sqliteStore *sqlitestore.Store
}

// NewContainer builds a Container from cfg. If dbPath is empty, the
// container uses an in-memory MockStore; otherwise it opens a
// SQLite-backed store at dbPath, creating it if absent. Either way the
// store is wrapped with a circuit breaker so a flaky backend degrades
// rather than propagating raw I/O failures into the engines.
func NewContainer(cfg *config.Config, dbPath string) (*Container, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := logging.NewLogger(logging.ParseLogLevel(cfg.Logging.Level))

	var sqliteStore *sqlitestore.Store
	var backing store.MemoryStore
	if dbPath == "" {
		backing = store.NewMockStore()
	} else {
		var err error
		sqliteStore, err = sqlitestore.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("di: opening sqlite store at %s: %w", dbPath, err)
		}
		backing = sqliteStore
	}

	dedupOrchestrator, err := dedup.New(&cfg.Deduplication, logger)
	if err != nil {
		return nil, fmt.Errorf("di: building deduplication orchestrator: %w", err)
	}

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Store:       store.NewCircuitBreakerStore(backing, nil, logger),
		Embeddings:  embeddings.NewDeterministicService(defaultEmbeddingDimensions, 1000),
		sqliteStore: sqliteStore,

		Aging:        aging.New(&cfg.Aging, logger),
		Importance:   importance.New(&cfg.Importance, logger),
		Relationship: relationship.New(&cfg.Relationship, logger, defaultTemporalWindowHours),
		Dedup:        dedupOrchestrator,
	}

	logger.Info("container initialized", "backend", storeBackendName(dbPath))
	return c, nil
}

func storeBackendName(dbPath string) string {
	if dbPath == "" {
		return "mock"
	}
	return "sqlite"
}

// HealthCheck probes the backing store and then the embedding
// provider, returning the first failure.
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.Store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	if err := c.Embeddings.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding provider health check failed: %w", err)
	}
	return nil
}

// BatchRecalculateImportance runs the Importance Engine's batch
// recalculation against the container's own store, adapting it to
// importance.CandidateSource via store.ImportanceCandidateSource.
func (c *Container) BatchRecalculateImportance(ctx context.Context, limit int) (importance.BatchResult, error) {
	source := store.ImportanceCandidateSource{Store: c.Store}
	return c.Importance.BatchRecalculate(ctx, source, c.Store, limit)
}

// Shutdown releases the backing SQLite connection, if one is open.
func (c *Container) Shutdown() error {
	if c.sqliteStore != nil {
		if err := c.sqliteStore.Close(); err != nil {
			return fmt.Errorf("failed to close sqlite store: %w", err)
		}
	}
	return nil
}

// Provider functions for individual dependencies, matching the
// teacher's Get* accessor shape.

// GetConfig returns the container's configuration.
func (c *Container) GetConfig() *config.Config { return c.Config }

// GetLogger returns the container's logger.
func (c *Container) GetLogger() logging.Logger { return c.Logger }

// GetStore returns the container's backing MemoryStore.
func (c *Container) GetStore() store.MemoryStore { return c.Store }

// GetEmbeddingProvider returns the container's embedding provider.
func (c *Container) GetEmbeddingProvider() store.EmbeddingProvider { return c.Embeddings }

// GetAgingEngine returns the Aging Engine.
func (c *Container) GetAgingEngine() *aging.Engine { return c.Aging }

// GetImportanceEngine returns the Importance Engine.
func (c *Container) GetImportanceEngine() *importance.Engine { return c.Importance }

// GetRelationshipAnalyzer returns the Relationship Analyzer.
func (c *Container) GetRelationshipAnalyzer() *relationship.Analyzer { return c.Relationship }

// GetDeduplicationOrchestrator returns the Deduplication Orchestrator.
func (c *Container) GetDeduplicationOrchestrator() *dedup.Orchestrator { return c.Dedup }
