package idiommatcher

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer names accepted by NewTokenizer and the lexical.tokenizer config key
const (
	TokenizerWord      = "word"
	TokenizerSegmented = "segmented"
)

// wordPattern keeps runs of Unicode letters, combining marks, digits and underscores.
// Go's \w is ASCII-only, so the classes are spelled out.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

var defaultOverlap = NewLexicalOverlap(NewWordTokenizer())

// Overlap returns the Jaccard index of the unique word tokens of a and b using the
// default word tokenizer. Returns 0.0 if either text has no tokens.
func Overlap(a, b string) float64 {
	return defaultOverlap.Overlap(a, b)
}

// NewTokenizer returns the tokenizer registered under name
func NewTokenizer(name string) (Tokenizer, error) {
	switch name {
	case "", TokenizerWord:
		return NewWordTokenizer(), nil
	case TokenizerSegmented:
		return NewSegmentingTokenizer(), nil
	default:
		return nil, ErrInvalidConfiguration
	}
}

// wordTokenizer lowercases text and extracts word runs, discarding punctuation
type wordTokenizer struct{}

// NewWordTokenizer creates the default Tokenizer
func NewWordTokenizer() Tokenizer {
	return wordTokenizer{}
}

// Tokens returns the lowercase word tokens of text
func (wordTokenizer) Tokens(text string) []string {
	return wordPattern.FindAllString(normalizeForTokens(text), -1)
}

// normalizeForTokens applies NFKC so full-width letters and digits compare equal to
// their ASCII forms, then lowercases
func normalizeForTokens(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

// segmentingTokenizer behaves like wordTokenizer but splits unspaced Han and Kana runs
// into words with GSE
type segmentingTokenizer struct {
	seg  gse.Segmenter
	once sync.Once
	mtx  sync.Mutex
}

// NewSegmentingTokenizer creates a Tokenizer for Chinese and Japanese idioms.
// The GSE dictionary is loaded on first use.
func NewSegmentingTokenizer() Tokenizer {
	return &segmentingTokenizer{}
}

// Tokens returns the lowercase word tokens of text, with CJK runs segmented
func (st *segmentingTokenizer) Tokens(text string) []string {
	words := wordPattern.FindAllString(normalizeForTokens(text), -1)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if !containsCJK(word) {
			tokens = append(tokens, word)
			continue
		}
		tokens = append(tokens, st.segment(word)...)
	}

	return tokens
}

// segment splits one CJK word run with GSE, keeping only word-like segments
func (st *segmentingTokenizer) segment(word string) []string {
	st.once.Do(func() {
		// On a dictionary load failure GSE still segments per character.
		_ = st.seg.LoadDict()
	})

	st.mtx.Lock()
	segments := st.seg.Segment([]byte(word))
	st.mtx.Unlock()

	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		token := strings.TrimSpace(segment.Token().Text())
		if token == "" || !wordPattern.MatchString(token) {
			continue
		}
		out = append(out, token)
	}
	if len(out) == 0 {
		return []string{word}
	}

	return out
}

// containsCJK checks if text contains Han, Hiragana or Katakana characters
func containsCJK(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// lexicalOverlap implements OverlapAnalyzer on top of a Tokenizer
type lexicalOverlap struct {
	tokenizer Tokenizer
}

// NewLexicalOverlap creates an OverlapAnalyzer using tokenizer.
// A nil tokenizer falls back to the word tokenizer.
func NewLexicalOverlap(tokenizer Tokenizer) OverlapAnalyzer {
	if tokenizer == nil {
		tokenizer = NewWordTokenizer()
	}
	return &lexicalOverlap{tokenizer: tokenizer}
}

// Overlap returns |A ∩ B| / |A ∪ B| of the unique token sets of a and b.
// Returns 0.0 when either token set is empty.
func (lo *lexicalOverlap) Overlap(a, b string) float64 {
	setA := tokenSet(lo.tokenizer.Tokens(a))
	setB := tokenSet(lo.tokenizer.Tokens(b))

	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	shared := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared

	return float64(shared) / float64(union)
}

// tokenSet returns the unique tokens of tokens
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
