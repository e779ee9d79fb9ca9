package idiommatcher

import (
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// Scoring modes
const (
	// ModeDual scores pairs with the weighted idiom-only + idiom+context model
	ModeDual = "dual"
	// ModeBasic scores pairs with raw cosine similarity of a single embedding
	ModeBasic = "basic"
	// ModeTopK keeps the k best targets per source idiom by raw cosine similarity
	ModeTopK = "top_k"
)

const (
	DefaultIdiomWeight        = 0.6
	DefaultContextWeight      = 0.4
	DefaultMinThreshold       = 0.65
	DefaultLexicalPenalty     = true
	DefaultOverlapTrigger     = 0.3
	DefaultScoreTrigger       = 0.6
	DefaultMaxPenalty         = 0.5
	DefaultTopKPerSource      = 5
	DefaultExportLimit        = 100
	DefaultHighOverlapWarning = 0.4
	DefaultOutputDir          = "data/results"
	DefaultParallelism        = 1

	// weightSumTolerance is how far IdiomWeight+ContextWeight may drift from 1.0
	// before WeightsNormalized reports false
	weightSumTolerance = 1e-9
)

// DefaultPairThresholds are the cutoffs for the all-pairs distribution
var DefaultPairThresholds = []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8}

// DefaultBestMatchThresholds are the cutoffs for the best-match-per-target distribution
var DefaultBestMatchThresholds = []float64{0.5, 0.6, 0.7, 0.8, 0.9}

// ScoringConfig holds the weights and thresholds governing one scoring run.
// It is passed by value and never mutated during a run.
type ScoringConfig struct {
	Mode          string  `mapstructure:"mode" json:"mode"`
	IdiomWeight   float64 `mapstructure:"idiom_weight" json:"idiom_weight"`
	ContextWeight float64 `mapstructure:"context_weight" json:"context_weight"`
	// MinThreshold applies to Mode A in dual mode, and to top_k when positive
	MinThreshold   float64 `mapstructure:"min_threshold" json:"min_threshold"`
	LexicalPenalty bool    `mapstructure:"lexical_penalty_enabled" json:"lexical_penalty_enabled"`
	// Penalty trigger constants are empirical defaults, not derived values
	OverlapTrigger float64 `mapstructure:"overlap_trigger" json:"overlap_trigger"`
	ScoreTrigger   float64 `mapstructure:"score_trigger" json:"score_trigger"`
	MaxPenalty     float64 `mapstructure:"max_penalty" json:"max_penalty"`
	TopKPerSource  int     `mapstructure:"top_k_per_source" json:"top_k_per_source"`
	// HighOverlapWarning is the overlap above which a match is reported as possibly spurious
	HighOverlapWarning float64 `mapstructure:"high_overlap_warning" json:"high_overlap_warning"`
}

// DefaultScoringConfig returns the improved-mode defaults
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Mode:               ModeDual,
		IdiomWeight:        DefaultIdiomWeight,
		ContextWeight:      DefaultContextWeight,
		MinThreshold:       DefaultMinThreshold,
		LexicalPenalty:     DefaultLexicalPenalty,
		OverlapTrigger:     DefaultOverlapTrigger,
		ScoreTrigger:       DefaultScoreTrigger,
		MaxPenalty:         DefaultMaxPenalty,
		TopKPerSource:      DefaultTopKPerSource,
		HighOverlapWarning: DefaultHighOverlapWarning,
	}
}

// WeightsNormalized reports whether IdiomWeight + ContextWeight equals 1.0
func (sc ScoringConfig) WeightsNormalized() bool {
	return math.Abs(sc.IdiomWeight+sc.ContextWeight-1.0) <= weightSumTolerance
}

// CollectionSpec points at the inputs for one language.
// Either Bundle, or Idioms plus IdiomVectors (and ContextVectors for dual mode).
type CollectionSpec struct {
	Language       string `mapstructure:"language"`
	Name           string `mapstructure:"name"`
	Bundle         string `mapstructure:"bundle"`
	Idioms         string `mapstructure:"idioms"`
	IdiomVectors   string `mapstructure:"idiom_vectors"`
	ContextVectors string `mapstructure:"context_vectors"`
}

// DisplayName returns Name, falling back to Language
func (cs CollectionSpec) DisplayName() string {
	if cs.Name != "" {
		return cs.Name
	}
	return cs.Language
}

// ExportConfig controls where results are written
type ExportConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	Limit      int    `mapstructure:"export_limit"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config holds configuration parameters for the idiom matcher
type Config struct {
	Scoring             ScoringConfig    `mapstructure:"scoring"`
	Tokenizer           string           `mapstructure:"lexical_tokenizer"` // "word" or "segmented"
	Export              ExportConfig     `mapstructure:"export"`
	Source              CollectionSpec   `mapstructure:"source"`
	Targets             []CollectionSpec `mapstructure:"targets"`
	PairThresholds      []float64        `mapstructure:"all_pairs_thresholds"`
	BestMatchThresholds []float64        `mapstructure:"best_match_thresholds"`
	Parallelism         int              `mapstructure:"parallelism"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scoring:   DefaultScoringConfig(),
		Tokenizer: TokenizerWord,
		Export: ExportConfig{
			OutputDir: DefaultOutputDir,
			Limit:     DefaultExportLimit,
		},
		Source:              CollectionSpec{Language: "en", Name: "English"},
		Targets:             []CollectionSpec{},
		PairThresholds:      slices.Clone(DefaultPairThresholds),
		BestMatchThresholds: slices.Clone(DefaultBestMatchThresholds),
		Parallelism:         DefaultParallelism,
	}
}

// LoadFromYAML loads configuration from a YAML file
func LoadFromYAML(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return LoadFromViper(v)
}

// LoadFromViper decodes the idiom_matcher section of v over the defaults and validates it
func LoadFromViper(v *viper.Viper) (*Config, error) {
	config, err := DecodeViper(v)
	if err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// DecodeViper decodes the idiom_matcher section of v over the defaults without
// validating, so callers can apply overrides first
func DecodeViper(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.UnmarshalKey("idiom_matcher", config); err != nil {
		return nil, fmt.Errorf("decode idiom_matcher config: %w", err)
	}
	return config, nil
}

// Validate checks if the configuration is valid
func Validate(config *Config) error {
	if config == nil {
		return ErrInvalidConfiguration
	}

	if err := ValidateScoring(config.Scoring); err != nil {
		return err
	}

	if _, err := NewTokenizer(config.Tokenizer); err != nil {
		return fmt.Errorf("%w: unknown lexical_tokenizer %q", ErrInvalidConfiguration, config.Tokenizer)
	}

	if config.Export.OutputDir == "" {
		return fmt.Errorf("%w: export.output_dir is empty", ErrInvalidConfiguration)
	}
	if config.Export.Limit < 0 {
		return fmt.Errorf("%w: export.export_limit must not be negative", ErrInvalidConfiguration)
	}

	if config.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidConfiguration)
	}

	if err := validateThresholds("all_pairs_thresholds", config.PairThresholds); err != nil {
		return err
	}
	if err := validateThresholds("best_match_thresholds", config.BestMatchThresholds); err != nil {
		return err
	}

	if err := validateSpec("source", config.Source); err != nil {
		return err
	}

	if len(config.Targets) == 0 {
		return fmt.Errorf("%w: no targets configured", ErrInvalidConfiguration)
	}
	for i, target := range config.Targets {
		if err := validateSpec(fmt.Sprintf("targets[%d]", i), target); err != nil {
			return err
		}
	}

	return nil
}

// ValidateScoring checks a scoring configuration on its own.
// Weights that do not sum to 1 are allowed; see WeightsNormalized.
func ValidateScoring(sc ScoringConfig) error {
	switch sc.Mode {
	case ModeDual, ModeBasic, ModeTopK:
	default:
		return fmt.Errorf("%w: unknown scoring mode %q", ErrInvalidConfiguration, sc.Mode)
	}

	for name, value := range map[string]float64{
		"idiom_weight":    sc.IdiomWeight,
		"context_weight":  sc.ContextWeight,
		"min_threshold":   sc.MinThreshold,
		"overlap_trigger": sc.OverlapTrigger,
		"score_trigger":   sc.ScoreTrigger,
		"max_penalty":     sc.MaxPenalty,
	} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfiguration, name)
		}
	}

	if sc.IdiomWeight < 0 || sc.ContextWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfiguration)
	}
	if sc.IdiomWeight == 0 && sc.ContextWeight == 0 {
		return fmt.Errorf("%w: idiom_weight and context_weight are both zero", ErrInvalidConfiguration)
	}

	if sc.OverlapTrigger < 0 || sc.OverlapTrigger > 1 {
		return fmt.Errorf("%w: overlap_trigger must be in [0, 1]", ErrInvalidConfiguration)
	}
	if sc.MaxPenalty < 0 || sc.MaxPenalty > 1 {
		return fmt.Errorf("%w: max_penalty must be in [0, 1]", ErrInvalidConfiguration)
	}

	if sc.Mode == ModeTopK && sc.TopKPerSource <= 0 {
		return fmt.Errorf("%w: top_k_per_source must be positive", ErrInvalidConfiguration)
	}

	return nil
}

// validateThresholds checks that cut points are ascending
func validateThresholds(name string, cuts []float64) error {
	if !slices.IsSorted(cuts) {
		return fmt.Errorf("%w: %s must be ascending", ErrInvalidConfiguration, name)
	}
	return nil
}

// validateSpec checks that a collection spec names a language and existing inputs
func validateSpec(name string, spec CollectionSpec) error {
	if spec.Language == "" {
		return fmt.Errorf("%w: %s.language is empty", ErrInvalidConfiguration, name)
	}

	var paths []string
	switch {
	case spec.Bundle != "":
		paths = []string{spec.Bundle}
	case spec.Idioms != "" && spec.IdiomVectors != "":
		paths = []string{spec.Idioms, spec.IdiomVectors}
		if spec.ContextVectors != "" {
			paths = append(paths, spec.ContextVectors)
		}
	default:
		return fmt.Errorf("%w: %s needs a bundle, or idioms and idiom_vectors", ErrInvalidConfiguration, name)
	}

	// Verify all input files exist and are readable
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s input %s does not exist", ErrInvalidConfiguration, name, path)
			}
			return err
		}
	}

	return nil
}
