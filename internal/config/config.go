// Package config provides configuration for the aging, importance,
// relationship, and deduplication engines: defaults, .env overrides, and
// an optional YAML config file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AgingConfig controls the Aging Engine's model parameters. Strength
// category thresholds (crystal/strong/moderate/weak) are not a
// configuration surface per spec.md's fixed 0.8/0.6/0.3 cutoffs — see
// aging.categorize.
type AgingConfig struct {
	DefaultModel          string  `yaml:"default_model" json:"default_model"`
	EbbinghausDecayRate   float64 `yaml:"ebbinghaus_decay_rate" json:"ebbinghaus_decay_rate"`
	PowerLawAlpha         float64 `yaml:"power_law_alpha" json:"power_law_alpha"`
	SpacingBonusPerAccess float64 `yaml:"spacing_bonus_per_access" json:"spacing_bonus_per_access"`
	ConsolidationPeriod   int     `yaml:"consolidation_period_days" json:"consolidation_period_days"`
	ConsolidationBonus    float64 `yaml:"consolidation_bonus" json:"consolidation_bonus"`
}

// DefaultAgingConfig returns the Aging Engine's default parameters.
func DefaultAgingConfig() *AgingConfig {
	return &AgingConfig{
		DefaultModel:          "ebbinghaus",
		EbbinghausDecayRate:   1.0,
		PowerLawAlpha:         0.5,
		SpacingBonusPerAccess: 0.1,
		ConsolidationPeriod:   30,
		ConsolidationBonus:    0.2,
	}
}

// ImportanceConfig controls the Importance Engine's component weights.
// FrequencyWeight, RecencyWeight, SearchRelevanceWeight, and
// ContentQualityWeight are the four coefficients of the "weighted"
// combination in spec.md §4.3; importance.New normalizes them to sum to
// 1.0 rather than rejecting a misconfigured set outright, since the
// spec's own illustrative defaults (0.30/0.25/0.20/0.15) sum to 0.90.
// There is no separate type_weight coefficient here — the per-type
// multiplier (semantic/episodic/procedural) is fixed in code, not
// configurable, matching spec.md's three named constants.
type ImportanceConfig struct {
	FrequencyWeight       float64 `yaml:"frequency_weight" json:"frequency_weight"`
	RecencyWeight         float64 `yaml:"recency_weight" json:"recency_weight"`
	SearchRelevanceWeight float64 `yaml:"search_relevance_weight" json:"search_relevance_weight"`
	ContentQualityWeight  float64 `yaml:"content_quality_weight" json:"content_quality_weight"`
	RecalculateThreshold  float64 `yaml:"recalculate_threshold" json:"recalculate_threshold"`
}

// DefaultImportanceConfig returns the Importance Engine's default weights,
// matching spec.md §4.3's illustrative combination.
func DefaultImportanceConfig() *ImportanceConfig {
	return &ImportanceConfig{
		FrequencyWeight:       0.30,
		RecencyWeight:         0.25,
		SearchRelevanceWeight: 0.20,
		ContentQualityWeight:  0.15,
		RecalculateThreshold:  0.05,
	}
}

// RelationshipConfig controls the Relationship Analyzer's candidate
// selection and per-axis weighting. The six *Weight fields feed
// similarity.CompositeScore directly (see relationship.New); their
// defaults match spec.md §4.4's weighting table.
type RelationshipConfig struct {
	MaxCandidates        int     `yaml:"max_candidates" json:"max_candidates"`
	MinCompositeScore    float64 `yaml:"min_composite_score" json:"min_composite_score"`
	CosineWeight         float64 `yaml:"cosine_weight" json:"cosine_weight"`
	TemporalWeight       float64 `yaml:"temporal_weight" json:"temporal_weight"`
	ContentOverlapWeight float64 `yaml:"content_overlap_weight" json:"content_overlap_weight"`
	ConceptualWeight     float64 `yaml:"conceptual_weight" json:"conceptual_weight"`
	CausalWeight         float64 `yaml:"causal_weight" json:"causal_weight"`
	ContextualWeight     float64 `yaml:"contextual_weight" json:"contextual_weight"`
}

// DefaultRelationshipConfig returns the Relationship Analyzer's defaults.
func DefaultRelationshipConfig() *RelationshipConfig {
	return &RelationshipConfig{
		MaxCandidates:        50,
		MinCompositeScore:    0.3,
		CosineWeight:         0.40,
		TemporalWeight:       0.20,
		ContentOverlapWeight: 0.20,
		ConceptualWeight:     0.10,
		CausalWeight:         0.05,
		ContextualWeight:     0.05,
	}
}

// DeduplicationConfig controls the Deduplication Orchestrator and its
// detectors.
type DeduplicationConfig struct {
	ExactMatchEnabled    bool    `yaml:"exact_match_enabled" json:"exact_match_enabled"`
	FuzzyMatchEnabled    bool    `yaml:"fuzzy_match_enabled" json:"fuzzy_match_enabled"`
	SemanticMatchEnabled bool    `yaml:"semantic_match_enabled" json:"semantic_match_enabled"`
	FuzzyThreshold       float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`
	SemanticThreshold    float64 `yaml:"semantic_threshold" json:"semantic_threshold"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	ContentWeight        float64 `yaml:"content_weight" json:"content_weight"`
	MetadataWeight       float64 `yaml:"metadata_weight" json:"metadata_weight"`
	StructuralWeight     float64 `yaml:"structural_weight" json:"structural_weight"`
	ExactWeight          float64 `yaml:"exact_weight" json:"exact_weight"`
	FuzzyWeight          float64 `yaml:"fuzzy_weight" json:"fuzzy_weight"`
	SemanticWeight       float64 `yaml:"semantic_weight" json:"semantic_weight"`
	BatchSize            int     `yaml:"batch_size" json:"batch_size"`
	MaxConcurrency       int     `yaml:"max_concurrency" json:"max_concurrency"`
	AutoMergeEnabled     bool    `yaml:"auto_merge_enabled" json:"auto_merge_enabled"`
	AutoMergeConfidence  float64 `yaml:"auto_merge_confidence" json:"auto_merge_confidence"`
	DefaultMergeStrategy string  `yaml:"default_merge_strategy" json:"default_merge_strategy"`
}

// DefaultDeduplicationConfig returns the orchestrator's default parameters.
func DefaultDeduplicationConfig() *DeduplicationConfig {
	return &DeduplicationConfig{
		ExactMatchEnabled:    true,
		FuzzyMatchEnabled:    true,
		SemanticMatchEnabled: true,
		FuzzyThreshold:       0.85,
		SemanticThreshold:    0.85,
		ConfidenceThreshold:  0.7,
		ContentWeight:        0.6,
		MetadataWeight:       0.3,
		StructuralWeight:     0.1,
		ExactWeight:          0.4,
		FuzzyWeight:          0.3,
		SemanticWeight:       0.3,
		BatchSize:            100,
		MaxConcurrency:       3,
		AutoMergeEnabled:     false,
		AutoMergeConfidence:  0.95,
		DefaultMergeStrategy: "smart_merge",
	}
}

// LoggingConfig holds the logger settings. Level sets the structured
// logger's level; Format is loaded but not read by the logger, whose
// output format follows the LOG_JSON environment variable (JSON unless
// it is set false).
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultLoggingConfig returns the logger's default parameters.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{Level: "info", Format: "text"}
}

// Config aggregates every engine's configuration.
type Config struct {
	Aging         AgingConfig         `yaml:"aging" json:"aging"`
	Importance    ImportanceConfig    `yaml:"importance" json:"importance"`
	Relationship  RelationshipConfig  `yaml:"relationship" json:"relationship"`
	Deduplication DeduplicationConfig `yaml:"deduplication" json:"deduplication"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// DefaultConfig returns a Config populated with every engine's defaults.
func DefaultConfig() *Config {
	return &Config{
		Aging:         *DefaultAgingConfig(),
		Importance:    *DefaultImportanceConfig(),
		Relationship:  *DefaultRelationshipConfig(),
		Deduplication: *DefaultDeduplicationConfig(),
		Logging:       *DefaultLoggingConfig(),
	}
}

// Load builds a Config starting from defaults, overlaying an optional
// YAML file at path (ignored if empty or missing), then overlaying
// environment variables loaded from .env (if present) and the process
// environment. Environment variables take precedence over the file,
// matching the teacher's layering order.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, uerr)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	loadFromEnv(cfg)

	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SBC_AGING_DEFAULT_MODEL"); v != "" {
		cfg.Aging.DefaultModel = v
	}
	if v := getFloatEnv("SBC_AGING_EBBINGHAUS_DECAY_RATE"); v != nil {
		cfg.Aging.EbbinghausDecayRate = *v
	}
	if v := getFloatEnv("SBC_AGING_POWER_LAW_ALPHA"); v != nil {
		cfg.Aging.PowerLawAlpha = *v
	}
	if v := getIntEnv("SBC_AGING_CONSOLIDATION_PERIOD_DAYS"); v != nil {
		cfg.Aging.ConsolidationPeriod = *v
	}

	if v := getFloatEnv("SBC_IMPORTANCE_RECALCULATE_THRESHOLD"); v != nil {
		cfg.Importance.RecalculateThreshold = *v
	}

	if v := getIntEnv("SBC_RELATIONSHIP_MAX_CANDIDATES"); v != nil {
		cfg.Relationship.MaxCandidates = *v
	}
	if v := getFloatEnv("SBC_RELATIONSHIP_MIN_COMPOSITE_SCORE"); v != nil {
		cfg.Relationship.MinCompositeScore = *v
	}

	if v := getBoolEnv("SBC_DEDUP_AUTO_MERGE_ENABLED"); v != nil {
		cfg.Deduplication.AutoMergeEnabled = *v
	}
	if v := getIntEnv("SBC_DEDUP_BATCH_SIZE"); v != nil {
		cfg.Deduplication.BatchSize = *v
	}
	if v := getIntEnv("SBC_DEDUP_MAX_CONCURRENCY"); v != nil {
		cfg.Deduplication.MaxConcurrency = *v
	}
	if v := os.Getenv("SBC_DEDUP_DEFAULT_MERGE_STRATEGY"); v != "" {
		cfg.Deduplication.DefaultMergeStrategy = v
	}

	if v := os.Getenv("SBC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SBC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func getFloatEnv(key string) *float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &val
}

func getIntEnv(key string) *int {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &val
}

func getBoolEnv(key string) *bool {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &val
}
