// Package similarity provides the pure kernel functions the
// Relationship Analyzer combines into a composite score: cosine
// similarity, temporal proximity, content overlap, conceptual
// hierarchy, causal relationship, and contextual association.
package similarity

import (
	"math"
	"regexp"
	"strings"
	"time"
)

var wordPattern = regexp.MustCompile(`\b\w{3,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// Cosine computes cosine similarity between two embeddings, clamped to
// [0, 1]. Mismatched dimensions, empty vectors, or a zero-norm vector
// all return 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp01(sim)
}

// TemporalProximity scores how close two timestamps are, decaying
// exponentially over windowHours.
func TemporalProximity(t1, t2 time.Time, windowHours float64) float64 {
	if t1.IsZero() || t2.IsZero() {
		return 0.0
	}
	if windowHours <= 0 {
		windowHours = 24.0
	}
	diffHours := math.Abs(t2.Sub(t1).Hours())
	return clamp01(math.Exp(-diffHours / windowHours))
}

// ContentOverlap computes Jaccard similarity over tokenized,
// stop-word-filtered content.
func ContentOverlap(content1, content2 string) float64 {
	if content1 == "" || content2 == "" {
		return 0.0
	}

	words1 := tokenize(content1)
	words2 := tokenize(content2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	intersection, union := 0, len(words1)
	for w := range words2 {
		if _, ok := words1[w]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return clamp01(float64(intersection) / float64(union))
}

var hierarchyPatternPairs = [][2]*regexp.Regexp{
	{regexp.MustCompile(`\bdefinition\b`), regexp.MustCompile(`\bexample\b`)},
	{regexp.MustCompile(`\bconcept\b`), regexp.MustCompile(`\binstance\b`)},
	{regexp.MustCompile(`\bgeneral\b`), regexp.MustCompile(`\bspecific\b`)},
	{regexp.MustCompile(`\bcategory\b`), regexp.MustCompile(`\bitem\b`)},
	{regexp.MustCompile(`\boverview\b`), regexp.MustCompile(`\bdetail\b`)},
	{regexp.MustCompile(`\bsummary\b`), regexp.MustCompile(`\belaboration\b`)},
}

// ConceptualHierarchy detects parent/child or general/specific
// phrasing across two pieces of content, plus a bonus when one is much
// shorter than the other (a weak signal of generality).
func ConceptualHierarchy(content1, content2 string) float64 {
	if content1 == "" || content2 == "" {
		return 0.0
	}
	c1, c2 := strings.ToLower(content1), strings.ToLower(content2)

	score := 0.0
	for _, pair := range hierarchyPatternPairs {
		parent, child := pair[0], pair[1]
		if parent.MatchString(c1) && child.MatchString(c2) {
			score += 0.3
		} else if child.MatchString(c1) && parent.MatchString(c2) {
			score += 0.3
		}
	}

	shorter, longer := len(content1), len(content2)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer > 0 && float64(shorter)/float64(longer) < 0.5 {
		score += 0.2
	}

	return clamp01(score)
}

var causalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bbecause\b`), regexp.MustCompile(`\bdue to\b`),
	regexp.MustCompile(`\bcaused by\b`), regexp.MustCompile(`\bresults in\b`),
	regexp.MustCompile(`\bleads to\b`), regexp.MustCompile(`\btriggers\b`),
	regexp.MustCompile(`\benables\b`), regexp.MustCompile(`\bprevents\b`),
	regexp.MustCompile(`\binfluences\b`), regexp.MustCompile(`\baffects\b`),
	regexp.MustCompile(`\btherefore\b`), regexp.MustCompile(`\bconsequently\b`),
	regexp.MustCompile(`\bas a result\b`), regexp.MustCompile(`\bthus\b`),
}

// CausalRelationship scores causal language cues across either
// content string plus a small bonus for temporal ordering (an earlier
// memory might cause a later one).
func CausalRelationship(content1, content2 string, t1, t2 time.Time) float64 {
	if content1 == "" || content2 == "" {
		return 0.0
	}
	c1, c2 := strings.ToLower(content1), strings.ToLower(content2)

	score := 0.0
	for _, p := range causalPatterns {
		if p.MatchString(c1) || p.MatchString(c2) {
			score += 0.2
		}
	}

	if !t1.IsZero() && !t2.IsZero() && !t1.Equal(t2) {
		score += 0.1
	}

	return clamp01(score)
}

// ContextualAssociation blends metadata-key overlap across the three
// typed metadata buckets, memory-type equality, and importance-score
// proximity.
func ContextualAssociation(
	metadata1, metadata2 map[string]map[string]interface{},
	memoryType1, memoryType2 string,
	importance1, importance2 *float64,
) float64 {
	score := 0.0

	for _, field := range []string{"semantic_metadata", "episodic_metadata", "procedural_metadata"} {
		meta1 := metadata1[field]
		meta2 := metadata2[field]
		if len(meta1) == 0 || len(meta2) == 0 {
			continue
		}
		common, total := 0, 0
		seen := map[string]struct{}{}
		for k := range meta1 {
			seen[k] = struct{}{}
			if _, ok := meta2[k]; ok {
				common++
			}
		}
		total = len(seen)
		for k := range meta2 {
			if _, ok := seen[k]; !ok {
				total++
			}
		}
		if common > 0 && total > 0 {
			score += 0.3 * (float64(common) / float64(total))
		}
	}

	if memoryType1 != "" && memoryType2 != "" && memoryType1 == memoryType2 {
		score += 0.2
	}

	if importance1 != nil && importance2 != nil {
		diff := math.Abs(*importance1 - *importance2)
		similarity := 1.0 - diff
		score += 0.2 * math.Max(0.0, similarity)
	}

	return clamp01(score)
}

func tokenize(content string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(content), -1)
	result := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		result[w] = struct{}{}
	}
	return result
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
