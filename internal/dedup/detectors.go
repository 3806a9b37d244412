// Package dedup implements the duplicate detectors, the Deduplication
// Orchestrator, and the Memory Merger: together they find groups of
// duplicate memories, consolidate overlapping findings across methods,
// and fold each group into a single primary memory.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/raold/second-brain-core/internal/config"
	"github.com/raold/second-brain-core/pkg/types"
)

// Detector finds groups of duplicate memories within one batch.
type Detector interface {
	FindDuplicates(memories []types.Memory, cfg *config.DeduplicationConfig) []types.DuplicateGroup
	Method() string
}

const (
	methodExact    = "exact_match"
	methodFuzzy    = "fuzzy_match"
	methodSemantic = "semantic_similarity"
)

// ExactDetector groups memories whose content is byte-identical after
// trimming surrounding whitespace.
type ExactDetector struct{}

func (ExactDetector) Method() string { return methodExact }

func (ExactDetector) FindDuplicates(memories []types.Memory, _ *config.DeduplicationConfig) []types.DuplicateGroup {
	buckets := map[string][]types.Memory{}
	order := []string{}
	for _, m := range memories {
		sum := md5.Sum([]byte(strings.TrimSpace(m.Content)))
		hash := hex.EncodeToString(sum[:])
		if _, ok := buckets[hash]; !ok {
			order = append(order, hash)
		}
		buckets[hash] = append(buckets[hash], m)
	}

	var groups []types.DuplicateGroup
	for _, hash := range order {
		bucket := buckets[hash]
		if len(bucket) < 2 {
			continue
		}
		ids := make([]string, len(bucket))
		for i, m := range bucket {
			ids[i] = m.ID
		}
		groups = append(groups, types.DuplicateGroup{
			GroupID:          methodExact + "_" + hash[:8],
			MemoryIDs:        ids,
			SimilarityScores: repeatScore(1.0, len(ids)),
			DetectionMethod:  methodExact,
			Confidence:       1.0,
		})
	}
	return groups
}

// FuzzyDetector groups memories whose normalized text and metadata are
// close under a weighted composite, after collapsing whitespace,
// punctuation, case, and a small set of function words.
type FuzzyDetector struct{}

func (FuzzyDetector) Method() string { return methodFuzzy }

var (
	rePunctuation = regexp.MustCompile(`[^\w\s]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
)

var fuzzyFunctionWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
}

func preprocessFuzzy(content string) string {
	s := reWhitespace.ReplaceAllString(content, " ")
	s = strings.TrimSpace(s)
	s = rePunctuation.ReplaceAllString(s, "")
	s = strings.ToLower(s)

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, isFunctionWord := fuzzyFunctionWords[w]; !isFunctionWord {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (FuzzyDetector) FindDuplicates(memories []types.Memory, cfg *config.DeduplicationConfig) []types.DuplicateGroup {
	if !cfg.FuzzyMatchEnabled {
		return nil
	}

	processed := make([]string, len(memories))
	tokens := make([]map[string]struct{}, len(memories))
	for i, m := range memories {
		processed[i] = preprocessFuzzy(m.Content)
		tokens[i] = wordSet(processed[i])
	}

	var groups []types.DuplicateGroup
	for i := 0; i < len(memories); i++ {
		for j := i + 1; j < len(memories); j++ {
			score := fuzzyComposite(memories[i], memories[j], processed[i], processed[j], tokens[i], tokens[j], cfg)
			if score < cfg.FuzzyThreshold {
				continue
			}
			mergeIntoGroup(&groups, memories[i].ID, memories[j].ID, score, methodFuzzy)
		}
	}
	for i := range groups {
		groups[i].Confidence = 0.8
	}
	return groups
}

func fuzzyComposite(m1, m2 types.Memory, p1, p2 string, t1, t2 map[string]struct{}, cfg *config.DeduplicationConfig) float64 {
	contentSim := (jaccard(t1, t2) + positionalCharSimilarity(p1, p2)) / 2
	metaSim := fuzzyMetadataSimilarity(m1, m2)
	structSim := structuralSimilarity(m1.Content, m2.Content)
	return contentSim*cfg.ContentWeight + metaSim*cfg.MetadataWeight + structSim*cfg.StructuralWeight
}

// SemanticDetector groups memories whose keyword sets overlap heavily,
// standing in for a real embedding-based semantic comparison.
type SemanticDetector struct{}

func (SemanticDetector) Method() string { return methodSemantic }

var semanticStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

var reWord = regexp.MustCompile(`\b\w+\b`)

func extractKeywords(content string) map[string]struct{} {
	words := reWord.FindAllString(strings.ToLower(content), -1)
	keywords := map[string]struct{}{}
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		if _, stop := semanticStopWords[w]; stop {
			continue
		}
		keywords[w] = struct{}{}
	}
	return keywords
}

func (SemanticDetector) FindDuplicates(memories []types.Memory, cfg *config.DeduplicationConfig) []types.DuplicateGroup {
	if !cfg.SemanticMatchEnabled {
		return nil
	}

	keywords := make([]map[string]struct{}, len(memories))
	for i, m := range memories {
		keywords[i] = extractKeywords(m.Content)
	}

	var groups []types.DuplicateGroup
	for i := 0; i < len(memories); i++ {
		for j := i + 1; j < len(memories); j++ {
			contentSim := jaccard(keywords[i], keywords[j])
			metaSim := fuzzyMetadataSimilarity(memories[i], memories[j])
			structSim := structuralSimilarity(memories[i].Content, memories[j].Content)
			score := contentSim*cfg.ContentWeight + metaSim*cfg.MetadataWeight + structSim*cfg.StructuralWeight
			if score < cfg.SemanticThreshold {
				continue
			}
			mergeIntoGroup(&groups, memories[i].ID, memories[j].ID, score, methodSemantic)
		}
	}
	for i := range groups {
		groups[i].Confidence = 0.7
	}
	return groups
}

// mergeIntoGroup extends an existing group sharing either id, or starts
// a new one, matching the detectors' within-batch consolidation.
func mergeIntoGroup(groups *[]types.DuplicateGroup, id1, id2 string, score float64, method string) {
	for i := range *groups {
		g := &(*groups)[i]
		if containsID(g.MemoryIDs, id1) || containsID(g.MemoryIDs, id2) {
			if !containsID(g.MemoryIDs, id1) {
				g.MemoryIDs = append(g.MemoryIDs, id1)
			}
			if !containsID(g.MemoryIDs, id2) {
				g.MemoryIDs = append(g.MemoryIDs, id2)
			}
			g.SimilarityScores = repeatScore(averageWithNew(g.SimilarityScores, score), len(g.MemoryIDs))
			return
		}
	}

	ids := []string{id1, id2}
	sort.Strings(ids)
	*groups = append(*groups, types.DuplicateGroup{
		GroupID:          method + "_" + strings.Join(ids, "_"),
		MemoryIDs:        []string{id1, id2},
		SimilarityScores: repeatScore(score, 2),
		DetectionMethod:  method,
	})
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func averageWithNew(existing []float64, next float64) float64 {
	if len(existing) == 0 {
		return next
	}
	return (existing[0] + next) / 2
}

func repeatScore(score float64, n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = score
	}
	return scores
}

func wordSet(processed string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(processed) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// positionalCharSimilarity counts matching characters at the same index
// plus a length-ratio bonus, the cheap stand-in the original engine uses
// in place of full edit-distance.
func positionalCharSimilarity(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}
	maxLen := maxInt(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}

	matches := 0
	minLen := minInt(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] == s2[i] {
			matches++
		}
	}

	lengthSimilarity := 1 - math.Abs(float64(len(s1)-len(s2)))/float64(maxLen)
	return (float64(matches)/float64(maxLen) + lengthSimilarity) / 2
}

func structuralSimilarity(content1, content2 string) float64 {
	len1, len2 := len(content1), len(content2)
	var lengthSim float64
	if len1 == 0 && len2 == 0 {
		lengthSim = 1.0
	} else if maxLen := maxInt(len1, len2); maxLen > 0 {
		lengthSim = 1 - math.Abs(float64(len1-len2))/float64(maxLen)
	} else {
		lengthSim = 1.0
	}

	words1, words2 := len(strings.Fields(content1)), len(strings.Fields(content2))
	var wordSim float64
	if words1 == 0 && words2 == 0 {
		wordSim = 1.0
	} else if maxWords := maxInt(words1, words2); maxWords > 0 {
		wordSim = 1 - math.Abs(float64(words1-words2))/float64(maxWords)
	} else {
		wordSim = 1.0
	}

	return (lengthSim + wordSim) / 2
}

// fuzzyMetadataSimilarity compares the union of every metadata key
// across both memories, treating close numeric values (>0.8 similarity)
// as a partial match the way the fuzzy/semantic detectors do upstream.
func fuzzyMetadataSimilarity(m1, m2 types.Memory) float64 {
	meta1, meta2 := flatMetadata(m1), flatMetadata(m2)
	if len(meta1) == 0 && len(meta2) == 0 {
		return 1.0
	}

	keys := map[string]struct{}{}
	for k := range meta1 {
		keys[k] = struct{}{}
	}
	for k := range meta2 {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 1.0
	}

	var matches float64
	for k := range keys {
		v1, ok1 := meta1[k]
		v2, ok2 := meta2[k]
		if ok1 && ok2 && v1 == v2 {
			matches++
			continue
		}
		n1, isNum1 := v1.(float64)
		n2, isNum2 := v2.(float64)
		if isNum1 && isNum2 && (n1 != 0 || n2 != 0) {
			sim := 1 - math.Abs(n1-n2)/math.Max(math.Abs(n1), math.Abs(n2))
			if sim > 0.8 {
				matches += sim
			}
		}
	}
	return matches / float64(len(keys))
}

func flatMetadata(m types.Memory) map[string]interface{} {
	flat := map[string]interface{}{}
	for k, v := range m.Metadata.SemanticMetadata {
		flat[k] = v
	}
	for k, v := range m.Metadata.EpisodicMetadata {
		flat[k] = v
	}
	for k, v := range m.Metadata.ProceduralMetadata {
		flat[k] = v
	}
	if len(m.Metadata.Tags) > 0 {
		flat["tags"] = strings.Join(m.Metadata.Tags, ",")
	}
	if len(m.Metadata.Categories) > 0 {
		flat["categories"] = strings.Join(m.Metadata.Categories, ",")
	}
	return flat
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
