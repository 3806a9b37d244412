// Command secondbraincore is a thin CLI demonstrating the composition
// root: it builds a Container, seeds a handful of demo memories, and
// runs each of the four engines against them, printing a colorized
// summary the way the teacher's REPL colorizes prompt/output/error
// lines.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/di"
	"github.com/raold/second-brain-core/internal/embeddings"
	"github.com/raold/second-brain-core/internal/store"
	"github.com/raold/second-brain-core/pkg/types"
)

var (
	infoColor  = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	dbPath := flag.String("db", "", "path to a SQLite database file; empty uses an in-memory store")
	flag.Parse()

	if err := run(*configPath, *dbPath); err != nil {
		errorColor.Fprintf(os.Stderr, "secondbraincore: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		warnColor.Printf("falling back to default config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	container, err := di.NewContainer(cfg, dbPath)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	defer container.Shutdown()

	ctx := context.Background()
	infoColor.Println("second-brain-core — demo run")
	infoColor.Println("=============================")

	if err := container.HealthCheck(ctx); err != nil {
		warnColor.Printf("health check reported an issue: %v\n", err)
	} else {
		okColor.Println("health check: ok")
	}

	memories := seedDemoMemories(ctx, container.GetStore())
	okColor.Printf("seeded %d demo memories\n", len(memories))

	demoAging(container, memories[0])
	demoImportance(container, memories[0])
	demoRelationship(ctx, container, memories[0])
	demoDeduplication(ctx, container)
	demoEmbeddings(ctx, container, memories)

	okColor.Println("\ndemo completed")
	return nil
}

func seedDemoMemories(ctx context.Context, backing store.MemoryStore) []types.Memory {
	now := time.Now()
	demos := []types.Memory{
		{
			ID:              "demo-1",
			Content:         "Second brain systems decay importance over time using spaced-repetition style models.",
			Embedding:       []float64{0.2, 0.4, 0.1, 0.9},
			MemoryType:      types.MemoryTypeSemantic,
			ImportanceScore: 0.6,
			CreatedAt:       now.Add(-30 * 24 * time.Hour),
		},
		{
			ID:              "demo-2",
			Content:         "Second brain systems decay importance over time using spaced repetition models.",
			Embedding:       []float64{0.21, 0.39, 0.11, 0.88},
			MemoryType:      types.MemoryTypeSemantic,
			ImportanceScore: 0.55,
			CreatedAt:       now.Add(-29 * 24 * time.Hour),
		},
		{
			ID:              "demo-3",
			Content:         "Deployed the staging environment and verified the health checks passed.",
			Embedding:       []float64{0.9, 0.1, 0.3, 0.2},
			MemoryType:      types.MemoryTypeEpisodic,
			ImportanceScore: 0.3,
			CreatedAt:       now.Add(-2 * 24 * time.Hour),
		},
	}

	type seeder interface {
		Seed(ctx context.Context, m types.Memory) error
	}
	if s, ok := backing.(seeder); ok {
		for _, m := range demos {
			if err := s.Seed(ctx, m); err != nil {
				warnColor.Printf("  seeding %s failed: %v\n", m.ID, err)
			}
		}
	}
	return demos
}

func demoAging(container *di.Container, m types.Memory) {
	infoColor.Println("\n[aging] Calculate")
	result := container.GetAgingEngine().Calculate(time.Now(), m.CreatedAt, nil, m.MemoryType, 0.5, "")
	fmt.Printf("  model=%s strength=%.3f category=%s\n", result.ModelUsed, result.CurrentStrength, result.StrengthCategory)
}

func demoImportance(container *di.Container, m types.Memory) {
	infoColor.Println("\n[importance] Calculate")
	pattern := types.AccessPattern{TotalAccesses: 3, RecentAccesses: 1}
	score := container.GetImportanceEngine().Calculate(time.Now(), m.Content, m.MemoryType, pattern)
	fmt.Printf("  final=%.3f frequency=%.3f recency=%.3f\n", score.Final, score.Frequency, score.Recency)
}

func demoRelationship(ctx context.Context, container *di.Container, target types.Memory) {
	infoColor.Println("\n[relationship] Analyze")
	candidates, err := container.GetStore().GetCandidateMemories(ctx, target.ID, 10, nil)
	if err != nil {
		warnColor.Printf("  candidate lookup failed: %v\n", err)
		return
	}
	relationships := container.GetRelationshipAnalyzer().Analyze(target, candidates)
	fmt.Printf("  %d related memories found\n", len(relationships))
	for _, r := range relationships {
		fmt.Printf("  - %s (type=%s score=%.3f)\n", r.RelatedID, r.PrimaryRelationshipType, r.CompositeScore)
	}
}

func demoEmbeddings(ctx context.Context, container *di.Container, memories []types.Memory) {
	infoColor.Println("\n[embeddings] GenerateBatch")
	texts := make([]string, len(memories))
	for i, m := range memories {
		texts[i] = m.Content
	}

	embedder := container.GetEmbeddingProvider()
	vectors, err := embedder.(interface {
		GenerateBatch(ctx context.Context, texts []string) ([][]float64, error)
	}).GenerateBatch(ctx, texts)
	if err != nil {
		warnColor.Printf("  embedding generation failed: %v\n", err)
		return
	}
	fmt.Printf("  generated %d vectors at %d dimensions\n", len(vectors), embedder.GetDimensions())

	if cacheReporter, ok := embedder.(interface{ CacheStats() embeddings.CacheStats }); ok {
		stats := cacheReporter.CacheStats()
		fmt.Printf("  embedding cache: size=%d hits=%d misses=%d hit_rate=%.2f\n", stats.Size, stats.Hits, stats.Misses, stats.HitRate)
	}
}

func demoDeduplication(ctx context.Context, container *di.Container) {
	infoColor.Println("\n[dedup] Run")
	result, err := container.GetDeduplicationOrchestrator().Run(ctx, container.GetStore(), nil, []string{"exact_match", "fuzzy_match", "semantic_similarity"})
	if err != nil {
		warnColor.Printf("  dedup run failed: %v\n", err)
		return
	}
	fmt.Printf("  %d duplicate groups found\n", len(result.DuplicateGroups))
	for _, g := range result.DuplicateGroups {
		fmt.Printf("  - %s: %v\n", g.DetectionMethod, g.MemoryIDs)
	}
}
