// Package importance implements the multi-factor importance scoring
// engine: frequency, recency, search relevance, content quality, and
// type weighting, combined through an enhanced temporal decay factor.
package importance

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/internal/logging"
	"github.com/raold/second-brain-core/pkg/types"
)

var (
	reHasCode           = regexp.MustCompile("(?i)```|`[^`]+`")
	reHasURLs           = regexp.MustCompile(`https?://\S+`)
	reHasStructuredData = regexp.MustCompile(`(?m)(\d+\.\s|-\s|\*\s)`)
	reTechnicalTerms    = regexp.MustCompile(`(?i)\b(API|SQL|JSON|HTTP|algorithm|function|class|method)\b`)
)

var complexityWords = []string{"implementation", "architecture", "optimization", "integration"}

var memoryTypeWeights = map[types.MemoryType]float64{
	types.MemoryTypeSemantic:   1.0,
	types.MemoryTypeEpisodic:   0.8,
	types.MemoryTypeProcedural: 1.2,
}

const (
	minImportance         = 0.1
	highFrequencyThreshold = 10
	halfLifeDays           = 30
	consolidationPeriod    = 7
)

// Engine computes ImportanceScore for memories from their content and
// access history.
type Engine struct {
	cfg *config.ImportanceConfig
	log logging.Logger

	// freqWeight, recWeight, searchWeight, qualityWeight are cfg's four
	// weights normalized to sum to exactly 1.0 (see New), so a
	// misconfigured or merely illustrative set of weights never silently
	// skews the weighted combination in spec.md §4.3 below its intended
	// total.
	freqWeight    float64
	recWeight     float64
	searchWeight  float64
	qualityWeight float64
}

// New builds an Engine, normalizing cfg's four component weights to sum
// to 1.0. A non-positive or all-zero weight set falls back to an equal
// quarter-split rather than dividing by zero.
func New(cfg *config.ImportanceConfig, log logging.Logger) *Engine {
	sum := cfg.FrequencyWeight + cfg.RecencyWeight + cfg.SearchRelevanceWeight + cfg.ContentQualityWeight
	freq, rec, search, quality := cfg.FrequencyWeight, cfg.RecencyWeight, cfg.SearchRelevanceWeight, cfg.ContentQualityWeight
	if sum <= 0 {
		freq, rec, search, quality = 0.25, 0.25, 0.25, 0.25
	} else if math.Abs(sum-1.0) > 0.01 {
		freq, rec, search, quality = freq/sum, rec/sum, search/sum, quality/sum
	}

	return &Engine{
		cfg:           cfg,
		log:           log,
		freqWeight:    freq,
		recWeight:     rec,
		searchWeight:  search,
		qualityWeight: quality,
	}
}

// Calculate computes a memory's ImportanceScore as of now.
func (e *Engine) Calculate(now time.Time, content string, memoryType types.MemoryType, pattern types.AccessPattern) types.ImportanceScore {
	frequency := e.frequencyScore(pattern)
	recency := e.recencyScore(now, pattern)
	searchRelevance := e.searchRelevanceScore(pattern)
	contentQuality := contentQualityScore(content)
	typeWeight := memoryTypeWeights[memoryType]
	if typeWeight == 0 {
		typeWeight = 1.0
	}
	decayFactor := e.temporalDecay(now, pattern)

	weighted := frequency*e.freqWeight +
		recency*e.recWeight +
		searchRelevance*e.searchWeight +
		contentQuality*e.qualityWeight

	final := weighted * typeWeight * decayFactor
	final = math.Max(final, minImportance)
	final = math.Min(final, 1.0)

	confidence := e.confidence(pattern)
	explanation := explain(frequency, recency, searchRelevance, contentQuality, typeWeight, decayFactor)

	return types.ImportanceScore{
		Final:           final,
		Frequency:       frequency,
		Recency:         recency,
		SearchRelevance: searchRelevance,
		ContentQuality:  contentQuality,
		TypeWeight:      typeWeight,
		DecayFactor:     decayFactor,
		Confidence:      confidence,
		Explanation:     explanation,
	}
}

// frequencyScore uses logarithmic scaling below the high-frequency
// threshold and a small linear bonus above it, preventing runaway
// access counts from saturating the score.
func (e *Engine) frequencyScore(pattern types.AccessPattern) float64 {
	if pattern.TotalAccesses <= 1 {
		return 0.1
	}
	if pattern.TotalAccesses >= highFrequencyThreshold {
		base := 0.8
		bonus := math.Min(0.2, float64(pattern.TotalAccesses-highFrequencyThreshold)*0.01)
		return math.Min(1.0, base+bonus)
	}
	return math.Min(0.8, 0.1+(math.Log(float64(pattern.TotalAccesses))/math.Log(highFrequencyThreshold))*0.7)
}

// recencyScore is a piecewise decay: full credit today, a short linear
// ramp over the first week, then exponential decay beyond it.
func (e *Engine) recencyScore(now time.Time, pattern types.AccessPattern) float64 {
	if pattern.LastAccessed == nil {
		return 0.1
	}
	daysSinceAccess := math.Floor(now.Sub(*pattern.LastAccessed).Hours() / 24)

	switch {
	case daysSinceAccess <= 0:
		return 1.0
	case daysSinceAccess <= 1:
		return 0.9
	case daysSinceAccess <= 7:
		return 0.9 - (daysSinceAccess-1)*0.1
	default:
		const decayRate = 0.1
		return math.Max(0.1, 0.2*math.Exp(-decayRate*(daysSinceAccess-7)))
	}
}

// searchRelevanceScore blends how often and how highly a memory ranks
// in search results. The cross-type bridging bonus is a named but
// currently-inert term: see crossTypeSearchBonus.
func (e *Engine) searchRelevanceScore(pattern types.AccessPattern) float64 {
	if pattern.SearchAppearance == 0 {
		return 0.3
	}
	frequencyComponent := math.Min(1.0, float64(pattern.SearchAppearance)/20.0)
	positionComponent := math.Max(0.1, 1.0-(pattern.AvgSearchPos-1)/9.0)
	base := frequencyComponent*0.6 + positionComponent*0.4
	enhanced := base + crossTypeSearchBonus()
	return math.Min(1.0, enhanced)
}

// crossTypeSearchBonus is always zero: the heuristic bridging-token
// analysis it documents is not wired to a real cross-type relationship
// signal, matching the upstream scoring engine's own inert stub.
func crossTypeSearchBonus() float64 {
	return 0.0
}

// contentQualityScore rewards length, structure, and technical density
// as weak proxies for intrinsic content value.
func contentQualityScore(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 10 {
		return 0.1
	}

	score := 0.3
	if len(content) >= 50 {
		score += 0.1
	}
	if len(content) >= 150 {
		score += 0.1
	}
	if reHasCode.MatchString(content) {
		score += 0.15
	}
	if reHasURLs.MatchString(content) {
		score += 0.1
	}
	if reHasStructuredData.MatchString(content) {
		score += 0.1
	}

	techMatches := len(reTechnicalTerms.FindAllString(content, -1))
	score += math.Min(0.1, float64(techMatches)*0.02)

	lower := strings.ToLower(content)
	complexityMatches := 0
	for _, word := range complexityWords {
		if strings.Contains(lower, word) {
			complexityMatches++
		}
	}
	score += math.Min(0.1, float64(complexityMatches)*0.03)

	return math.Min(1.0, score)
}

// temporalDecay fuses eight enhancement/penalty terms (Ebbinghaus and
// power-law retention, spacing bonus, consolidation fragility or
// stability, interference, recency boost, frequency protection, search
// protection) into one decay factor, then re-bounds it by strength
// category the same way the aging engine buckets strength.
func (e *Engine) temporalDecay(now time.Time, pattern types.AccessPattern) float64 {
	if pattern.LastAccessed == nil {
		return 1.0
	}
	daysSinceAccess := math.Floor(now.Sub(*pattern.LastAccessed).Hours() / 24)

	strengthFactor := halfLifeDays * (1 + math.Log1p(float64(pattern.TotalAccesses)))
	ebbinghausRetention := math.Exp(-daysSinceAccess / strengthFactor)

	decayParam := 0.1 * (1 - math.Min(0.5, float64(pattern.TotalAccesses)/20))
	if decayParam <= 0 {
		decayParam = 0.01
	}
	powerLawRetention := math.Pow(1+daysSinceAccess, -decayParam)

	spacingBonus := 0.0
	if pattern.RecentAccesses > 0 {
		intervals := []int{1, 2, 4, 8, 16, 32, 64}
		for i, interval := range intervals {
			if daysSinceAccess <= float64(interval)*1.5 {
				spacingBonus = math.Min(0.2, float64(i+1)*0.03)
				break
			}
		}
	}

	var fragilityPenalty, stabilityBonus float64
	if daysSinceAccess <= consolidationPeriod {
		consolidationFactor := daysSinceAccess / consolidationPeriod
		fragilityPenalty = (1 - consolidationFactor) * 0.15
	} else {
		stabilityBonus = math.Min(0.1, (daysSinceAccess-consolidationPeriod)/30*0.1)
	}

	interferenceFactor := 0.0
	if pattern.TotalAccesses > 15 {
		accessDensity := float64(pattern.TotalAccesses) / math.Max(1, daysSinceAccess)
		if accessDensity > 1.0 {
			interferenceFactor = math.Min(0.1, (accessDensity-1.0)*0.05)
		}
	}

	recentBoost := 0.0
	if pattern.RecentAccesses > 0 {
		daysSinceRecent := math.Min(7, daysSinceAccess)
		recentBoost = math.Min(0.3, float64(pattern.RecentAccesses)*0.08) * math.Exp(-daysSinceRecent/3.0)
	}

	frequencyProtection := 0.0
	if pattern.TotalAccesses > 1 {
		frequencyProtection = math.Min(0.25, math.Log1p(float64(pattern.TotalAccesses))/math.Log(21)*0.25)
	}

	searchProtection := 0.0
	if pattern.SearchAppearance > 0 {
		avgPositionFactor := math.Max(0.1, 1.0-(pattern.AvgSearchPos-1)/9.0)
		searchFrequencyFactor := math.Min(1.0, float64(pattern.SearchAppearance)/10.0)
		searchProtection = avgPositionFactor * searchFrequencyFactor * 0.15
	}

	primaryRetention := ebbinghausRetention*0.4 + powerLawRetention*0.3
	enhancement := spacingBonus + recentBoost + frequencyProtection + searchProtection + stabilityBonus
	penalty := fragilityPenalty + interferenceFactor

	finalDecay := primaryRetention + enhancement - penalty
	finalDecay = math.Max(0.05, math.Min(1.0, finalDecay))

	switch {
	case finalDecay >= 0.8:
		finalDecay = finalDecay*0.95 + 0.05
	case finalDecay >= 0.6:
		finalDecay = finalDecay*0.9 + 0.1
	case finalDecay >= 0.3:
		// moderate band: no adjustment
	default:
		finalDecay = math.Max(0.1, finalDecay*1.1)
	}

	return finalDecay
}

func (e *Engine) confidence(pattern types.AccessPattern) float64 {
	confidence := 0.5
	if pattern.TotalAccesses > 5 {
		confidence += 0.2
	}
	if pattern.TotalAccesses > 15 {
		confidence += 0.1
	}
	if pattern.SearchAppearance > 0 {
		confidence += 0.1
	}
	if pattern.RecentAccesses > 0 {
		confidence += 0.1
	}
	return math.Min(1.0, confidence)
}

func explain(frequency, recency, searchRelevance, quality, typeWeight, decay float64) string {
	var parts []string

	switch {
	case frequency > 0.7:
		parts = append(parts, "frequently accessed")
	case frequency > 0.4:
		parts = append(parts, "moderately accessed")
	default:
		parts = append(parts, "rarely accessed")
	}

	switch {
	case recency > 0.7:
		parts = append(parts, "recently used")
	case recency < 0.3:
		parts = append(parts, "not recently accessed")
	}

	if searchRelevance > 0.6 {
		parts = append(parts, "high search relevance")
	}
	if quality > 0.7 {
		parts = append(parts, "high-quality content")
	}

	switch {
	case typeWeight > 1.0:
		parts = append(parts, "procedural memory bonus")
	case typeWeight < 1.0:
		parts = append(parts, "episodic memory")
	}

	if decay < 0.5 {
		parts = append(parts, "temporal decay applied")
	}

	if len(parts) == 0 {
		return "standard scoring"
	}
	return strings.Join(parts, ", ")
}
