// Package aging implements the cognitive memory aging models: six
// decay curves, automatic model selection, and retention forecasting.
package aging

import (
	"fmt"
	"math"
	"time"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

// modelParams holds the tuned constants for one aging model.
type modelParams struct {
	halfLifeDays          float64
	decayRate             float64
	interferenceFactor    float64
	consolidationPeriod   int
	spacingIntervalsDays  []int
}

// Engine computes AgingResult for a memory under one of six cognitive
// decay models, selecting a model automatically when the caller doesn't
// pin one.
type Engine struct {
	cfg    *config.AgingConfig
	log    logging.Logger
	params map[types.AgingModel]modelParams
}

// New builds an Engine. cfg and log are both required; pass
// config.DefaultAgingConfig() and a no-op logger if the caller has no
// preference.
func New(cfg *config.AgingConfig, log logging.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log,
		params: map[types.AgingModel]modelParams{
			types.AgingModelEbbinghaus: {
				halfLifeDays: 20.0, decayRate: 0.15,
				spacingIntervalsDays: []int{1, 2, 4, 8, 16, 32},
			},
			types.AgingModelPowerLaw: {
				halfLifeDays: 30.0, decayRate: cfg.PowerLawAlpha,
				spacingIntervalsDays: []int{1, 3, 9, 27, 81},
			},
			types.AgingModelExponential: {
				halfLifeDays: 25.0, decayRate: 0.12,
			},
			types.AgingModelSpacingEffect: {
				halfLifeDays: 45.0, decayRate: 0.08,
				spacingIntervalsDays: []int{1, 2, 5, 12, 30, 75, 180},
			},
			types.AgingModelInterference: {
				halfLifeDays: 15.0, decayRate: 0.2, interferenceFactor: 0.1,
			},
			types.AgingModelConsolidation: {
				halfLifeDays: 60.0, decayRate: 0.05, consolidationPeriod: cfg.ConsolidationPeriod,
			},
		},
	}
}

// intermediate carries the raw model output before type modifiers,
// strength categorization, and review prediction are layered on.
type intermediate struct {
	currentStrength    float64
	decayFactor        float64
	predictedHalfLife  float64
	confidence         float64
	explanation        string
	spacingLevel       int
	spacingIntervalLen int
}

// Calculate computes an AgingResult for one memory as of now. If model
// is empty, the engine selects one automatically based on memory type,
// access count, and content complexity.
func (e *Engine) Calculate(
	now time.Time,
	createdAt time.Time,
	accessHistory []types.AccessEvent,
	memoryType types.MemoryType,
	contentComplexity float64,
	model types.AgingModel,
) types.AgingResult {
	if model == "" {
		model = e.selectModel(memoryType, accessHistory, contentComplexity)
	}
	params := e.params[model]

	ageDays := now.Sub(createdAt).Hours() / 24
	lastAccess := createdAt
	if len(accessHistory) > 0 {
		lastAccess = accessHistory[len(accessHistory)-1].Timestamp
	}
	daysSinceAccess := now.Sub(lastAccess).Hours() / 24

	var mid intermediate
	switch model {
	case types.AgingModelEbbinghaus:
		mid = e.ebbinghaus(now, daysSinceAccess, accessHistory, params)
	case types.AgingModelPowerLaw:
		mid = e.powerLaw(daysSinceAccess, accessHistory, params)
	case types.AgingModelSpacingEffect:
		mid = e.spacingEffect(now, ageDays, accessHistory, params)
	case types.AgingModelInterference:
		mid = e.interference(now, ageDays, accessHistory, params, contentComplexity)
	case types.AgingModelConsolidation:
		mid = e.consolidation(ageDays, daysSinceAccess, accessHistory, params)
	default:
		mid = e.exponential(daysSinceAccess, accessHistory, params)
		model = types.AgingModelExponential
	}

	mid = e.applyTypeModifiers(mid, memoryType)
	category := e.categorize(mid.currentStrength)
	nextReview := e.predictNextReview(now, model, mid, accessHistory, params)

	return types.AgingResult{
		CurrentStrength:      clamp01(mid.currentStrength),
		DecayFactor:          mid.decayFactor,
		ModelUsed:            model,
		StrengthCategory:     category,
		PredictedHalfLifeDay: mid.predictedHalfLife,
		NextOptimalReview:    nextReview,
		Confidence:           clamp01(mid.confidence),
		Explanation:          e.explain(mid, model, category),
	}
}

// selectModel mirrors the heuristic table: high-frequency procedural
// memories favor spaced repetition, complex content favors
// consolidation, frequently-revisited episodic memories favor the
// interference model, plain semantic memories default to Ebbinghaus,
// and sparsely-accessed content falls back to power law.
func (e *Engine) selectModel(memoryType types.MemoryType, history []types.AccessEvent, complexity float64) types.AgingModel {
	accessCount := len(history)

	if memoryType == types.MemoryTypeProcedural && accessCount > 10 {
		return types.AgingModelSpacingEffect
	}
	if complexity > 0.7 {
		return types.AgingModelConsolidation
	}
	if memoryType == types.MemoryTypeEpisodic && accessCount > 5 {
		return types.AgingModelInterference
	}
	if memoryType == types.MemoryTypeSemantic {
		return types.AgingModelEbbinghaus
	}
	if accessCount < 3 {
		return types.AgingModelPowerLaw
	}
	return types.AgingModelEbbinghaus
}

// ebbinghaus implements the classic forgetting curve R = e^(-t/S) with
// a strength factor that grows logarithmically with access count.
func (e *Engine) ebbinghaus(now time.Time, daysSinceAccess float64, history []types.AccessEvent, p modelParams) intermediate {
	accessCount := len(history)
	strengthFactor := p.halfLifeDays * (1 + math.Log1p(float64(accessCount)))

	retention := math.Exp(-daysSinceAccess / strengthFactor)
	baseDecay := math.Exp(-daysSinceAccess / p.halfLifeDays)

	recentAccesses := 0
	for _, a := range history {
		if now.Sub(a.Timestamp).Hours()/24 <= 7 {
			recentAccesses++
		}
	}
	recentBoost := math.Min(0.3, float64(recentAccesses)*0.05)

	return intermediate{
		currentStrength:   math.Min(1.0, retention+recentBoost),
		decayFactor:       baseDecay + recentBoost,
		predictedHalfLife: strengthFactor * 0.693,
		confidence:        math.Min(1.0, 0.5+float64(accessCount)*0.05),
		explanation:       "Ebbinghaus forgetting curve with access-based strength",
	}
}

// powerLaw implements R = (1+t)^(-d) with an access-frequency-adaptive
// decay parameter and a frequency-protection floor.
func (e *Engine) powerLaw(daysSinceAccess float64, history []types.AccessEvent, p modelParams) intermediate {
	accessCount := len(history)
	decayParam := p.decayRate * (1 - math.Min(0.5, float64(accessCount)/20))
	if decayParam <= 0 {
		decayParam = 0.01
	}

	retention := math.Pow(1+daysSinceAccess, -decayParam)
	frequencyProtection := math.Min(0.4, float64(accessCount)*0.02)

	return intermediate{
		currentStrength:   math.Min(1.0, retention+frequencyProtection),
		decayFactor:       retention,
		predictedHalfLife: math.Pow(2, 1/decayParam) - 1,
		confidence:        math.Min(1.0, 0.6+float64(accessCount)*0.03),
		explanation:       "Power law decay with frequency protection",
	}
}

// exponential is the simple decay model used as the default fallback.
func (e *Engine) exponential(daysSinceAccess float64, history []types.AccessEvent, p modelParams) intermediate {
	decayFactor := math.Exp(-daysSinceAccess / p.halfLifeDays)
	accessProtection := math.Min(0.3, float64(len(history))*0.02)

	return intermediate{
		currentStrength:   math.Min(1.0, decayFactor+accessProtection),
		decayFactor:       decayFactor,
		predictedHalfLife: p.halfLifeDays,
		confidence:        math.Min(1.0, 0.5+float64(len(history))*0.05),
		explanation:       "Simple exponential decay with access protection",
	}
}

// spacingEffect rewards adherence to an expanding spaced-repetition
// schedule and decays strength once a review falls outside the
// expected interval.
func (e *Engine) spacingEffect(now time.Time, ageDays float64, history []types.AccessEvent, p modelParams) intermediate {
	if len(history) == 0 {
		return e.exponential(ageDays, history, p)
	}

	intervals := p.spacingIntervalsDays
	accessTimes := make([]time.Time, len(history))
	for i, a := range history {
		accessTimes[i] = a.Timestamp
	}
	sortTimes(accessTimes)

	currentLevel := 0
	lastAccess := accessTimes[len(accessTimes)-1]
	cumulative := 0
	for i, interval := range intervals {
		cumulative += interval
		expected := accessTimes[0].Add(time.Duration(cumulative) * 24 * time.Hour)
		if lastAccess.After(expected) || lastAccess.Equal(expected) {
			currentLevel = i + 1
		} else {
			break
		}
	}

	optimalSpacingScore := float64(currentLevel) / float64(len(intervals))
	daysSinceLast := now.Sub(lastAccess).Hours() / 24
	nextIntervalIdx := currentLevel
	if nextIntervalIdx >= len(intervals) {
		nextIntervalIdx = len(intervals) - 1
	}
	nextInterval := float64(intervals[nextIntervalIdx])

	var strength float64
	baseline := 0.8 + optimalSpacingScore*0.2
	if daysSinceLast <= nextInterval {
		strength = baseline
	} else {
		overflow := daysSinceLast - nextInterval
		decay := math.Exp(-overflow / (nextInterval * 2))
		strength = baseline * decay
	}

	return intermediate{
		currentStrength:    strength,
		decayFactor:        strength,
		predictedHalfLife:  nextInterval * 1.5,
		confidence:         math.Min(1.0, 0.7+float64(len(history))*0.03),
		explanation:        "Spacing effect model",
		spacingLevel:       currentLevel,
		spacingIntervalLen: len(intervals),
	}
}

// interference models forgetting driven by competing similar memories,
// offset by a short-lived recency protection term.
func (e *Engine) interference(now time.Time, ageDays float64, history []types.AccessEvent, p modelParams, contentComplexity float64) intermediate {
	baseDecay := math.Exp(-ageDays / p.halfLifeDays)

	interferenceResistance := contentComplexity
	estimatedSimilarAccesses := float64(len(history)) * 0.3
	interferenceEffect := p.interferenceFactor * estimatedSimilarAccesses
	interferenceDecay := interferenceEffect * (1 - interferenceResistance)

	daysSinceLast := ageDays
	if len(history) > 0 {
		daysSinceLast = now.Sub(history[len(history)-1].Timestamp).Hours() / 24
	}
	recencyProtection := math.Exp(-daysSinceLast / 7.0)

	strength := baseDecay - interferenceDecay + recencyProtection*0.2
	strength = math.Max(0.05, math.Min(1.0, strength))

	return intermediate{
		currentStrength:   strength,
		decayFactor:       baseDecay - interferenceDecay,
		predictedHalfLife: p.halfLifeDays / (1 + interferenceDecay),
		confidence:        math.Min(1.0, 0.4+float64(len(history))*0.06),
		explanation:       "Interference model",
	}
}

// consolidation implements the stabilization model: memories below the
// consolidation period are fragile and decay faster; past it they
// stabilize and decay more slowly. The explanation names the phase
// ("consolidating" or "consolidated").
func (e *Engine) consolidation(ageDays, daysSinceAccess float64, history []types.AccessEvent, p modelParams) intermediate {
	period := float64(p.consolidationPeriod)
	if period <= 0 {
		period = 14
	}

	phase := "consolidated"
	var baseStrength, decayRate float64
	if ageDays <= period {
		phase = "consolidating"
		consolidationFactor := ageDays / period
		baseStrength = 0.3 + consolidationFactor*0.4
		decayRate = p.decayRate * (2 - consolidationFactor)
	} else {
		baseStrength = 0.7
		decayRate = p.decayRate * 0.5
	}

	temporalDecay := math.Exp(-daysSinceAccess * decayRate / p.halfLifeDays)
	consolidationBoost := math.Min(0.3, float64(len(history))*0.03)

	strength := math.Min(1.0, baseStrength*temporalDecay+consolidationBoost)

	var predictedHalfLife float64
	if ageDays > period {
		predictedHalfLife = p.halfLifeDays * 1.5
	} else {
		predictedHalfLife = p.halfLifeDays * (ageDays / period)
	}

	return intermediate{
		currentStrength:   strength,
		decayFactor:       temporalDecay,
		predictedHalfLife: predictedHalfLife,
		confidence:        math.Min(1.0, 0.6+float64(len(history))*0.04),
		explanation:       fmt.Sprintf("Consolidation model - %s phase (%.0f/%.0f days)", phase, ageDays, period),
	}
}

// applyTypeModifiers nudges strength and slows or speeds decay by
// memory type: procedural memories are stickier, episodic ones fade
// faster.
func (e *Engine) applyTypeModifiers(mid intermediate, memoryType types.MemoryType) intermediate {
	strengthBoost, decaySlowdown := 0.0, 1.0
	switch memoryType {
	case types.MemoryTypeProcedural:
		strengthBoost, decaySlowdown = 0.1, 0.8
	case types.MemoryTypeEpisodic:
		strengthBoost, decaySlowdown = -0.05, 1.2
	case types.MemoryTypeSemantic:
		strengthBoost, decaySlowdown = 0.0, 1.0
	}

	mid.currentStrength = math.Min(1.0, mid.currentStrength+strengthBoost)
	mid.decayFactor *= decaySlowdown
	mid.predictedHalfLife *= decaySlowdown
	return mid
}

// Strength category cutoffs per spec.md: crystal >= 0.8, strong >= 0.6,
// moderate >= 0.3, else weak. Fixed, not configurable.
const (
	crystalThreshold  = 0.8
	strongThreshold   = 0.6
	moderateThreshold = 0.3
)

func (e *Engine) categorize(strength float64) types.StrengthCategory {
	switch {
	case strength >= crystalThreshold:
		return types.StrengthCrystal
	case strength >= strongThreshold:
		return types.StrengthStrong
	case strength >= moderateThreshold:
		return types.StrengthModerate
	default:
		return types.StrengthWeak
	}
}

// predictNextReview returns the date at which current_strength is
// forecast to reach 0.5, or the next spacing-schedule interval for the
// spacing-effect model.
func (e *Engine) predictNextReview(now time.Time, model types.AgingModel, mid intermediate, history []types.AccessEvent, p modelParams) *time.Time {
	if model == types.AgingModelSpacingEffect {
		level := mid.spacingLevel
		if level < len(p.spacingIntervalsDays) {
			t := now.Add(time.Duration(p.spacingIntervalsDays[level]) * 24 * time.Hour)
			return &t
		}
	}

	const target = 0.5
	if mid.currentStrength <= target {
		t := now.Add(24 * time.Hour)
		return &t
	}

	decayRate := 0.1
	if mid.decayFactor > 0 && mid.decayFactor < 1 {
		decayRate = -math.Log(mid.decayFactor)
	}

	daysToTarget := math.Log(target/mid.currentStrength) / -decayRate
	daysToTarget = math.Max(1, math.Min(365, daysToTarget))
	t := now.Add(time.Duration(daysToTarget*24) * time.Hour)
	return &t
}

func (e *Engine) explain(mid intermediate, model types.AgingModel, category types.StrengthCategory) string {
	explanation := mid.explanation
	switch category {
	case types.StrengthCrystal:
		explanation += "; crystallized memory with minimal decay"
	case types.StrengthStrong:
		explanation += "; strong memory with slow decay"
	case types.StrengthModerate:
		explanation += "; moderate strength with standard decay"
	default:
		explanation += "; weak memory requiring attention"
	}

	switch {
	case mid.predictedHalfLife > 60:
		explanation += "; long-term stability"
	case mid.predictedHalfLife > 20:
		explanation += "; medium-term retention"
	default:
		explanation += "; short-term retention"
	}
	return explanation
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
