package idiommatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordTokenizer(t *testing.T) {
	tokenizer := NewWordTokenizer()

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"lowercases", "Kick The Bucket", []string{"kick", "the", "bucket"}},
		{"drops punctuation", "it's a piece of cake!", []string{"it", "s", "a", "piece", "of", "cake"}},
		{"keeps accents", "C'est du gâteau", []string{"c", "est", "du", "gâteau"}},
		{"keeps combining marks", "café noir", []string{"café", "noir"}},
		{"full-width folds to ascii", "ＡＢＣ １２３", []string{"abc", "123"}},
		{"finnish letters", "Ei oo härkää sarvista", []string{"ei", "oo", "härkää", "sarvista"}},
		{"underscore is a word character", "snake_case word", []string{"snake_case", "word"}},
		{"empty", "", nil},
		{"only punctuation", "?!... --", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenizer.Tokens(tt.text))
		})
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"shared words", "kick the bucket", "kick the can", 0.5},
		{"identical", "break the ice", "break the ice", 1.0},
		{"case insensitive", "Break The Ice", "break the ice", 1.0},
		{"duplicates count once", "the the cat", "the cat", 1.0},
		{"disjoint", "piece of cake", "casser sa pipe", 0.0},
		{"empty a", "", "kick the bucket", 0.0},
		{"empty b", "kick the bucket", "", 0.0},
		{"both empty", "", "", 0.0},
		{"punctuation only", "?!", "?!", 0.0},
		{"partial", "a b c d", "a b", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Overlap(tt.a, tt.b), 1e-12)
		})
	}
}

func TestOverlapProperties(t *testing.T) {
	texts := []string{
		"kick the bucket", "kick the can", "spill the beans", "the", "",
		"avoir le cafard", "Vetää lipat", "猫の手も借りたい", "the bucket list",
	}

	for _, a := range texts {
		for _, b := range texts {
			ab := Overlap(a, b)
			assert.Equal(t, ab, Overlap(b, a), "overlap must be symmetric for %q, %q", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
		if len(NewWordTokenizer().Tokens(a)) > 0 {
			assert.Equal(t, 1.0, Overlap(a, a), "self overlap of %q", a)
		}
	}
}

func TestNewTokenizer(t *testing.T) {
	for _, name := range []string{"", TokenizerWord, TokenizerSegmented} {
		tokenizer, err := NewTokenizer(name)
		require.NoError(t, err, name)
		assert.NotNil(t, tokenizer)
	}

	_, err := NewTokenizer("whitespace")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSegmentingTokenizerKeepsNonCJK(t *testing.T) {
	tokenizer := NewSegmentingTokenizer()

	assert.Equal(t, []string{"kick", "the", "bucket"}, tokenizer.Tokens("Kick the bucket"))
	assert.Empty(t, tokenizer.Tokens(""))
}

func TestSegmentingTokenizerSplitsCJK(t *testing.T) {
	tokenizer := NewSegmentingTokenizer()

	tokens := tokenizer.Tokens("画蛇添足")
	require.NotEmpty(t, tokens)
	for _, token := range tokens {
		assert.True(t, containsCJK(token), "token %q", token)
	}

	// Identical CJK idioms still overlap fully after segmentation
	overlap := NewLexicalOverlap(tokenizer)
	assert.Equal(t, 1.0, overlap.Overlap("画蛇添足", "画蛇添足"))
	assert.Equal(t, 0.0, overlap.Overlap("画蛇添足", "kick the bucket"))
}

func TestContainsCJK(t *testing.T) {
	assert.True(t, containsCJK("猫"))
	assert.True(t, containsCJK("ねこ"))
	assert.True(t, containsCJK("ネコ"))
	assert.False(t, containsCJK("cat"))
	assert.False(t, containsCJK("고양이"))
}
