package dedup

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/errors"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

// Store is the narrow slice of MemoryStore the orchestrator needs: a
// paginated load for detection (also probed by the health check), plus
// the lookup-by-id and merge calls the Merger uses, so a Store value can
// be handed straight to the Merger when auto-merge is enabled — its
// method set is a superset of MergeStore.
type Store interface {
	GetMemoriesForDeduplication(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]types.Memory, error)
	GetMemoriesByIDs(ctx context.Context, ids []string) ([]types.Memory, error)
	MergeMemories(ctx context.Context, primaryID string, duplicateIDs []string, strategy string, mergedMetadata types.Metadata) error
}

// Progress is a snapshot of an in-flight or completed orchestration run.
type Progress struct {
	TotalMemories        int    `json:"total_memories"`
	MemoriesProcessed    int    `json:"memories_processed"`
	BatchesCompleted     int    `json:"batches_completed"`
	TotalBatches         int    `json:"total_batches"`
	DuplicateGroupsFound int    `json:"duplicate_groups_found"`
	MemoriesToMerge      int    `json:"memories_to_merge"`
	MemoriesMerged       int    `json:"memories_merged"`
	ErrorsEncountered    int    `json:"errors_encountered"`
	CurrentStage         string `json:"current_stage"`
}

// RunResult is the outcome of one complete orchestration pass.
type RunResult struct {
	DuplicateGroups []types.DuplicateGroup
	MergeOperations []types.MergeOperation
	Progress        Progress
	Errors          []string
}

// Orchestrator coordinates the configured detectors across a paginated
// memory load, consolidates overlapping groups across methods, and
// optionally hands the consolidated groups to a Merger.
type Orchestrator struct {
	cfg       *config.DeduplicationConfig
	log       logging.Logger
	detectors map[string]Detector
	merger    *Merger

	mu      sync.Mutex
	history []RunResult

	perfMu          sync.Mutex
	totalRuns       int
	totalMemories   int
	totalDuplicates int
	avgRunSeconds   float64
}

// New builds an Orchestrator with the standard exact/fuzzy/semantic
// detector set. It returns an error if cfg's detection weights
// (ExactWeight/FuzzyWeight/SemanticWeight) don't sum to 1.0 ± 0.01, the
// same construction-time check the upstream orchestrator raises
// ValueError for.
func New(cfg *config.DeduplicationConfig, log logging.Logger) (*Orchestrator, error) {
	if sum := cfg.ExactWeight + cfg.FuzzyWeight + cfg.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return nil, errors.New(errors.KindInvalidInput,
			fmt.Sprintf("dedup: detection weights must sum to 1.0 (got %.4f)", sum))
	}

	return &Orchestrator{
		cfg: cfg,
		log: log,
		detectors: map[string]Detector{
			methodExact:    ExactDetector{},
			methodFuzzy:    FuzzyDetector{},
			methodSemantic: SemanticDetector{},
		},
		merger: NewMerger(log),
	}, nil
}

// Run executes one full deduplication pass: load, detect, consolidate,
// optionally merge, and record statistics. methods is any non-empty
// subset of "exact_match", "fuzzy_match", "semantic_similarity",
// "hybrid" (hybrid expands to all three then consolidates).
func (o *Orchestrator) Run(ctx context.Context, store Store, filter map[string]interface{}, methods []string) (RunResult, error) {
	if len(methods) == 0 {
		return RunResult{}, errors.New(errors.KindInvalidInput, "dedup: at least one detection method required")
	}

	start := time.Now()
	progress := Progress{CurrentStage: "loading_memories"}

	memories, err := o.loadAll(ctx, store, filter)
	if err != nil {
		return RunResult{}, errors.Wrap(errors.KindStoreUnavailable, "dedup: loading memories for deduplication", err)
	}
	progress.TotalMemories = len(memories)
	if len(memories) == 0 {
		progress.CurrentStage = "completed"
		return RunResult{Progress: progress}, nil
	}
	progress.TotalBatches = (len(memories) + o.cfg.BatchSize - 1) / o.cfg.BatchSize

	progress.CurrentStage = "detecting_duplicates"
	groups, errs := o.detect(ctx, memories, methods, &progress)

	progress.DuplicateGroupsFound = len(groups)
	for _, g := range groups {
		progress.MemoriesToMerge += len(g.MemoryIDs) - 1
	}

	result := RunResult{DuplicateGroups: groups, Errors: errs}

	if o.cfg.AutoMergeEnabled && len(groups) > 0 {
		progress.CurrentStage = "merging_duplicates"
		ops, mergeErrs := o.merger.MergeGroups(ctx, store, groups, o.cfg)
		result.MergeOperations = ops
		result.Errors = append(result.Errors, mergeErrs...)
		for _, op := range ops {
			progress.MemoriesMerged += len(op.MergedMemoryIDs)
		}
	}

	progress.CurrentStage = "completed"
	result.Progress = progress

	o.recordRun(len(memories), len(groups), time.Since(start))
	o.mu.Lock()
	o.history = append(o.history, result)
	o.mu.Unlock()

	return result, nil
}

// loadAll pages through the store 5*batch_size at a time, matching the
// orchestrator's paginated-load contract (spec §4.6 step 1).
func (o *Orchestrator) loadAll(ctx context.Context, store Store, filter map[string]interface{}) ([]types.Memory, error) {
	pageSize := o.cfg.BatchSize * 5
	if pageSize <= 0 {
		pageSize = 500
	}

	var all []types.Memory
	offset := 0
	for {
		page, err := store.GetMemoriesForDeduplication(ctx, filter, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

// detect runs every requested method's detector over batches of the
// loaded memories with bounded concurrency, then consolidates
// overlapping groups across methods.
func (o *Orchestrator) detect(ctx context.Context, memories []types.Memory, methods []string, progress *Progress) ([]types.DuplicateGroup, []string) {
	expanded := expandMethods(methods)

	var (
		mu     sync.Mutex
		groups []types.DuplicateGroup
		errs   []string
	)

	for _, method := range expanded {
		detector, ok := o.detectors[method]
		if !ok {
			o.log.Warn("dedup: detector not available", "method", method)
			continue
		}

		methodGroups, err := o.runDetectorBatches(ctx, detector, memories, progress)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Sprintf("%s: %v", method, err))
			progress.ErrorsEncountered++
			mu.Unlock()
			continue
		}
		groups = append(groups, methodGroups...)
	}

	if len(expanded) > 1 {
		groups = ConsolidateGroups(groups)
	}
	return groups, errs
}

// runDetectorBatches dispatches one detector's work across batches with
// a semaphore-bounded worker pool, mirroring the teacher's bulk-manager
// concurrency idiom: acquire-or-cancel, run, release, join.
func (o *Orchestrator) runDetectorBatches(ctx context.Context, detector Detector, memories []types.Memory, progress *Progress) ([]types.DuplicateGroup, error) {
	batches := batchMemories(memories, o.cfg.BatchSize)
	semaphore := make(chan struct{}, maxInt(1, o.cfg.MaxConcurrency))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		groups []types.DuplicateGroup
	)

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			wg.Wait()
			return groups, ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(batch []types.Memory) {
			defer func() {
				<-semaphore
				wg.Done()
			}()

			batchGroups := detector.FindDuplicates(batch, o.cfg)

			mu.Lock()
			groups = append(groups, batchGroups...)
			progress.BatchesCompleted++
			progress.MemoriesProcessed += len(batch)
			mu.Unlock()
		}(batch)
	}

	wg.Wait()
	return groups, nil
}

func expandMethods(methods []string) []string {
	expanded := make([]string, 0, len(methods))
	seen := map[string]struct{}{}
	add := func(m string) {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			expanded = append(expanded, m)
		}
	}
	for _, m := range methods {
		if m == "hybrid" {
			add(methodExact)
			add(methodFuzzy)
			add(methodSemantic)
			continue
		}
		add(m)
	}
	return expanded
}

func batchMemories(memories []types.Memory, batchSize int) [][]types.Memory {
	if batchSize <= 0 {
		batchSize = len(memories)
	}
	var batches [][]types.Memory
	for i := 0; i < len(memories); i += batchSize {
		end := i + batchSize
		if end > len(memories) {
			end = len(memories)
		}
		batches = append(batches, memories[i:end])
	}
	return batches
}

// ConsolidateGroups merges duplicate groups that share at least one
// memory id into a single consolidated group per connected component,
// traversed in id-sorted order so the result is deterministic given the
// final set of groups (spec §5 ordering guarantee).
func ConsolidateGroups(groups []types.DuplicateGroup) []types.DuplicateGroup {
	if len(groups) == 0 {
		return nil
	}

	sorted := make([]types.DuplicateGroup, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GroupID < sorted[j].GroupID })

	memberOf := map[string][]int{}
	for i, g := range sorted {
		for _, id := range g.MemoryIDs {
			memberOf[id] = append(memberOf[id], i)
		}
	}

	visited := make([]bool, len(sorted))
	var consolidated []types.DuplicateGroup

	for i := range sorted {
		if visited[i] {
			continue
		}
		stack := []int{i}
		var component []int
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			component = append(component, cur)
			for _, id := range sorted[cur].MemoryIDs {
				for _, other := range memberOf[id] {
					if !visited[other] {
						stack = append(stack, other)
					}
				}
			}
		}

		if len(component) == 1 {
			consolidated = append(consolidated, sorted[component[0]])
			continue
		}
		consolidated = append(consolidated, mergeComponent(sorted, component))
	}

	return consolidated
}

func mergeComponent(groups []types.DuplicateGroup, indices []int) types.DuplicateGroup {
	idSet := map[string]struct{}{}
	var scoreSum, confidenceSum float64
	var scoreCount int
	methodSet := map[string]struct{}{}
	var methodOrder []string
	var idParts []string

	for _, idx := range indices {
		g := groups[idx]
		for _, id := range g.MemoryIDs {
			idSet[id] = struct{}{}
		}
		for _, s := range g.SimilarityScores {
			scoreSum += s
			scoreCount++
		}
		confidenceSum += g.Confidence
		if _, ok := methodSet[g.DetectionMethod]; !ok {
			methodSet[g.DetectionMethod] = struct{}{}
			methodOrder = append(methodOrder, g.DetectionMethod)
		}
		if len(idParts) < 3 {
			idParts = append(idParts, g.GroupID)
		}
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	avgScore := 0.0
	if scoreCount > 0 {
		avgScore = scoreSum / float64(scoreCount)
	}

	return types.DuplicateGroup{
		GroupID:          "merged_" + joinWithLimit(idParts, "_"),
		MemoryIDs:        ids,
		SimilarityScores: repeatScore(avgScore, len(ids)),
		DetectionMethod:  "combined_" + joinWithLimit(methodOrder, "+"),
		Confidence:       confidenceSum / float64(len(indices)),
	}
}

func joinWithLimit(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func (o *Orchestrator) recordRun(memoryCount, groupCount int, elapsed time.Duration) {
	o.perfMu.Lock()
	defer o.perfMu.Unlock()

	o.totalRuns++
	o.totalMemories += memoryCount
	o.totalDuplicates += groupCount
	o.avgRunSeconds = (o.avgRunSeconds*float64(o.totalRuns-1) + elapsed.Seconds()) / float64(o.totalRuns)
}

// Statistics reports aggregate performance across every Run call on
// this Orchestrator, mirroring the original's get_performance_metrics.
type Statistics struct {
	TotalRuns             int     `json:"total_runs"`
	TotalMemoriesAnalyzed int     `json:"total_memories_analyzed"`
	TotalDuplicatesFound  int     `json:"total_duplicates_found"`
	AverageDuplicateRate  float64 `json:"average_duplicate_rate"`
	AverageRunSeconds     float64 `json:"average_run_seconds"`
}

// Statistics returns the Orchestrator's lifetime performance summary.
func (o *Orchestrator) Statistics() Statistics {
	o.perfMu.Lock()
	defer o.perfMu.Unlock()

	var rate float64
	if o.totalMemories > 0 {
		rate = float64(o.totalDuplicates) / float64(o.totalMemories)
	}
	return Statistics{
		TotalRuns:             o.totalRuns,
		TotalMemoriesAnalyzed: o.totalMemories,
		TotalDuplicatesFound:  o.totalDuplicates,
		AverageDuplicateRate:  rate,
		AverageRunSeconds:     o.avgRunSeconds,
	}
}

// TimeEstimate is the output of EstimateProcessingTime.
type TimeEstimate struct {
	TotalSeconds    float64            `json:"total_estimated_seconds"`
	MethodSeconds   map[string]float64 `json:"method_breakdown"`
	MergeSeconds    float64            `json:"merge_seconds,omitempty"`
}

var baseSecondsPerMemory = map[string]float64{
	methodExact:    0.001,
	methodFuzzy:    0.01,
	methodSemantic: 0.05,
	"hybrid":       0.06,
}

// EstimateProcessingTime projects wall-clock cost for a run over n
// memories with the given methods, applying an efficiency gain that grows
// linearly with batch_size/50 and is capped at 20% from batch_size 50 up
// (spec §5's documented cost model).
func (o *Orchestrator) EstimateProcessingTime(n int, methods []string, cfg *config.DeduplicationConfig) TimeEstimate {
	estimate := TimeEstimate{MethodSeconds: map[string]float64{}}
	batchFactor := float64(cfg.BatchSize) / 50.0
	if batchFactor > 1.0 {
		batchFactor = 1.0
	}

	for _, method := range methods {
		base, ok := baseSecondsPerMemory[method]
		if !ok {
			base = 0.02
		}
		t := base * float64(n)
		t *= 1.0 - batchFactor*0.2
		estimate.MethodSeconds[method+"_seconds"] = t
		estimate.TotalSeconds += t
	}

	if cfg.AutoMergeEnabled {
		estimatedGroups := float64(n) * 0.05 / 2
		estimate.MergeSeconds = estimatedGroups * 0.1
		estimate.TotalSeconds += estimate.MergeSeconds
	}

	return estimate
}

// HealthReport is the result of ValidateSystemHealth.
type HealthReport struct {
	OverallStatus string            `json:"overall_status"`
	Components    map[string]string `json:"components"`
	Issues        []string          `json:"issues"`
}

// ValidateSystemHealth probes the store and every registered detector
// with a synthetic memory, mirroring the original's readiness check.
func (o *Orchestrator) ValidateSystemHealth(ctx context.Context, store Store) HealthReport {
	report := HealthReport{OverallStatus: "healthy", Components: map[string]string{}}

	if _, err := store.GetMemoriesForDeduplication(ctx, nil, 1, 0); err != nil {
		report.Components["store"] = "unhealthy: " + err.Error()
		report.Issues = append(report.Issues, "store connectivity: "+err.Error())
	} else {
		report.Components["store"] = "healthy"
	}

	probe := []types.Memory{{ID: "health_probe", Content: "health probe content", MemoryType: types.MemoryTypeSemantic, CreatedAt: time.Now()}}
	for name, detector := range o.detectors {
		func() {
			defer func() {
				if r := recover(); r != nil {
					report.Components["detector_"+name] = fmt.Sprintf("unhealthy: panic: %v", r)
					report.Issues = append(report.Issues, fmt.Sprintf("detector %s panicked: %v", name, r))
				}
			}()
			detector.FindDuplicates(probe, o.cfg)
			report.Components["detector_"+name] = "healthy"
		}()
	}

	if len(report.Issues) >= 3 {
		report.OverallStatus = "unhealthy"
	} else if len(report.Issues) > 0 {
		report.OverallStatus = "degraded"
	}
	return report
}
