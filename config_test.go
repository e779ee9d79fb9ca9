package idiommatcher

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validTestConfig returns a default config whose source and target point at real files
func validTestConfig(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	source, target := englishFrench()

	config := DefaultConfig()
	config.Export.OutputDir = filepath.Join(dir, "results")
	config.Source = CollectionSpec{Language: "en", Name: "English", Bundle: writeBundle(t, dir, source)}
	config.Targets = []CollectionSpec{{Language: "fr", Name: "French", Bundle: writeBundle(t, dir, target)}}
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if config.Scoring.Mode != ModeDual {
		t.Errorf("Expected mode %s, got %s", ModeDual, config.Scoring.Mode)
	}

	if config.Scoring.IdiomWeight != DefaultIdiomWeight || config.Scoring.ContextWeight != DefaultContextWeight {
		t.Errorf("Expected weights %v/%v, got %v/%v", DefaultIdiomWeight, DefaultContextWeight,
			config.Scoring.IdiomWeight, config.Scoring.ContextWeight)
	}

	if config.Scoring.MinThreshold != DefaultMinThreshold {
		t.Errorf("Expected MinThreshold %v, got %v", DefaultMinThreshold, config.Scoring.MinThreshold)
	}

	if !config.Scoring.LexicalPenalty {
		t.Error("Expected lexical penalty to be enabled")
	}

	if !config.Scoring.WeightsNormalized() {
		t.Error("Expected default weights to sum to 1")
	}

	if config.Export.Limit != DefaultExportLimit {
		t.Errorf("Expected export limit %d, got %d", DefaultExportLimit, config.Export.Limit)
	}

	if len(config.Targets) != 0 {
		t.Errorf("Expected no targets, got %v", config.Targets)
	}

	// The package defaults must not be shared with a config
	config.PairThresholds[0] = 0.99
	if DefaultPairThresholds[0] == 0.99 {
		t.Error("DefaultConfig shares DefaultPairThresholds")
	}
}

func TestValidate_NilConfig(t *testing.T) {
	err := Validate(nil)
	if err != ErrInvalidConfiguration {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	config := validTestConfig(t)

	if err := Validate(config); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Scoring.Mode = "fuzzy" }},
		{"negative weight", func(c *Config) { c.Scoring.IdiomWeight = -0.1 }},
		{"both weights zero", func(c *Config) { c.Scoring.IdiomWeight, c.Scoring.ContextWeight = 0, 0 }},
		{"nan threshold", func(c *Config) { c.Scoring.MinThreshold = math.NaN() }},
		{"overlap trigger above 1", func(c *Config) { c.Scoring.OverlapTrigger = 1.5 }},
		{"negative max penalty", func(c *Config) { c.Scoring.MaxPenalty = -1 }},
		{"top_k without k", func(c *Config) { c.Scoring.Mode, c.Scoring.TopKPerSource = ModeTopK, 0 }},
		{"unknown tokenizer", func(c *Config) { c.Tokenizer = "bpe" }},
		{"empty output dir", func(c *Config) { c.Export.OutputDir = "" }},
		{"negative export limit", func(c *Config) { c.Export.Limit = -1 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"unsorted thresholds", func(c *Config) { c.PairThresholds = []float64{0.5, 0.3} }},
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"source without language", func(c *Config) { c.Source.Language = "" }},
		{"target without inputs", func(c *Config) { c.Targets[0] = CollectionSpec{Language: "fi"} }},
		{"missing bundle", func(c *Config) { c.Targets[0].Bundle = "/nonexistent/fi.json" }},
		{"missing vector file", func(c *Config) {
			c.Targets[0] = CollectionSpec{Language: "fi", Idioms: c.Source.Bundle, IdiomVectors: "/nonexistent/fi.vec"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig(t)
			tt.mutate(config)

			err := Validate(config)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestValidateScoring_UnnormalizedWeightsAllowed(t *testing.T) {
	sc := DefaultScoringConfig()
	sc.IdiomWeight, sc.ContextWeight = 0.7, 0.7

	require.NoError(t, ValidateScoring(sc))
	assert.False(t, sc.WeightsNormalized())
}

func TestLoadFromYAML(t *testing.T) {
	base := validTestConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `idiom_matcher:
  scoring:
    mode: basic
    idiom_weight: 0.7
    context_weight: 0.3
    min_threshold: 0.5
    lexical_penalty_enabled: false
  lexical_tokenizer: segmented
  export:
    output_dir: ` + filepath.Join(dir, "out") + `
    export_limit: 25
    sqlite_path: ` + filepath.Join(dir, "results.db") + `
  source:
    language: en
    bundle: ` + base.Source.Bundle + `
  targets:
    - language: fr
      name: French
      bundle: ` + base.Targets[0].Bundle + `
  parallelism: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadFromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, ModeBasic, config.Scoring.Mode)
	assert.Equal(t, 0.7, config.Scoring.IdiomWeight)
	assert.Equal(t, 0.5, config.Scoring.MinThreshold)
	assert.False(t, config.Scoring.LexicalPenalty)
	assert.Equal(t, DefaultOverlapTrigger, config.Scoring.OverlapTrigger, "unset keys keep defaults")
	assert.Equal(t, TokenizerSegmented, config.Tokenizer)
	assert.Equal(t, 25, config.Export.Limit)
	assert.Equal(t, filepath.Join(dir, "results.db"), config.Export.SQLitePath)
	require.Len(t, config.Targets, 1)
	assert.Equal(t, "French", config.Targets[0].Name)
	assert.Equal(t, 2, config.Parallelism)
	assert.Equal(t, DefaultPairThresholds, config.PairThresholds)
}

func TestLoadFromYAML_Errors(t *testing.T) {
	_, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idiom_matcher:\n  scoring:\n    mode: dual\n"), 0o644))
	_, err = LoadFromYAML(path)
	assert.ErrorIs(t, err, ErrInvalidConfiguration, "no targets configured")
}

func TestDecodeViper_NoValidation(t *testing.T) {
	v := viper.New()
	v.Set("idiom_matcher.scoring.min_threshold", 0.42)

	config, err := DecodeViper(v)
	require.NoError(t, err)
	assert.Equal(t, 0.42, config.Scoring.MinThreshold)
	assert.Empty(t, config.Targets)
}

func TestCollectionSpecDisplayName(t *testing.T) {
	assert.Equal(t, "Finnish", CollectionSpec{Language: "fi", Name: "Finnish"}.DisplayName())
	assert.Equal(t, "fi", CollectionSpec{Language: "fi"}.DisplayName())
}
