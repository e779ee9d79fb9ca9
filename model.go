package idiommatcher

import (
	"fmt"
	"math"
	"strings"
)

// Idiom is one idiomatic expression in one language.
// Contexts and Translations are ordered; index 0 is the representative value.
type Idiom struct {
	SurfaceForm  string   `json:"idiom"`
	Contexts     []string `json:"contexts"`
	Translations []string `json:"english_translations"`
}

// RepresentativeContext returns the first usage context, or "" when there is none.
func (i Idiom) RepresentativeContext() string {
	if len(i.Contexts) == 0 {
		return ""
	}
	return i.Contexts[0]
}

// RepresentativeTranslation returns the first translation, or "" when there is none.
func (i Idiom) RepresentativeTranslation() string {
	if len(i.Translations) == 0 {
		return ""
	}
	return i.Translations[0]
}

// Entry bundles an idiom with its embeddings so that no reorder can separate them.
//   - IdiomVector: idiom-only embedding (the single embedding in basic mode)
//   - ContextVector: idiom+context embedding, nil when not available
type Entry struct {
	Idiom         Idiom
	IdiomVector   []float32
	ContextVector []float32
}

// Collection is the ordered set of entries for one language.
type Collection struct {
	Language string // short tag, e.g. "en", "fi"
	Name     string // display name, e.g. "Finnish"
	Entries  []Entry
}

// Len returns the number of idioms in the collection
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Dimension returns the idiom vector dimension, or 0 for an empty collection
func (c *Collection) Dimension() int {
	if c.Len() == 0 {
		return 0
	}
	return len(c.Entries[0].IdiomVector)
}

// HasContextVectors reports whether every entry carries an idiom+context vector
func (c *Collection) HasContextVectors() bool {
	if c.Len() == 0 {
		return false
	}
	for _, e := range c.Entries {
		if len(e.ContextVector) == 0 {
			return false
		}
	}
	return true
}

// IdiomVectors returns the idiom-only vectors in entry order
func (c *Collection) IdiomVectors() [][]float32 {
	out := make([][]float32, c.Len())
	for i, e := range c.Entries {
		out[i] = e.IdiomVector
	}
	return out
}

// ContextVectors returns the idiom+context vectors in entry order
func (c *Collection) ContextVectors() [][]float32 {
	out := make([][]float32, c.Len())
	for i, e := range c.Entries {
		out[i] = e.ContextVector
	}
	return out
}

// Validate checks that every entry has a surface form and that all vectors of the
// same kind share one dimension.
func (c *Collection) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil collection", ErrInputShape)
	}

	idiomDim, contextDim := -1, -1
	for i, e := range c.Entries {
		if e.Idiom.SurfaceForm == "" {
			return fmt.Errorf("%w: %s entry %d has an empty surface form", ErrInputShape, c.Language, i)
		}
		if len(e.IdiomVector) == 0 {
			return fmt.Errorf("%w: %s entry %d (%q) has no idiom vector",
				ErrInputShape, c.Language, i, e.Idiom.SurfaceForm)
		}
		if k := nonFiniteIndex(e.IdiomVector); k >= 0 {
			return fmt.Errorf("%w: %s entry %d (%q) has non-finite idiom vector component %d",
				ErrInputShape, c.Language, i, e.Idiom.SurfaceForm, k)
		}
		if idiomDim == -1 {
			idiomDim = len(e.IdiomVector)
		} else if len(e.IdiomVector) != idiomDim {
			return fmt.Errorf("%w: %s entry %d has idiom vector of length %d, expected %d",
				ErrInputShape, c.Language, i, len(e.IdiomVector), idiomDim)
		}

		if len(e.ContextVector) == 0 {
			continue
		}
		if k := nonFiniteIndex(e.ContextVector); k >= 0 {
			return fmt.Errorf("%w: %s entry %d (%q) has non-finite context vector component %d",
				ErrInputShape, c.Language, i, e.Idiom.SurfaceForm, k)
		}
		if contextDim == -1 {
			contextDim = len(e.ContextVector)
		} else if len(e.ContextVector) != contextDim {
			return fmt.Errorf("%w: %s entry %d has context vector of length %d, expected %d",
				ErrInputShape, c.Language, i, len(e.ContextVector), contextDim)
		}
	}

	return nil
}

// Index returns the position of the entry whose surface form is idiom, or -1.
// An exact match wins over a case-insensitive one.
func (c *Collection) Index(idiom string) int {
	if c == nil {
		return -1
	}
	idiom = strings.TrimSpace(idiom)
	fold := -1
	for i, e := range c.Entries {
		if e.Idiom.SurfaceForm == idiom {
			return i
		}
		if fold == -1 && strings.EqualFold(e.Idiom.SurfaceForm, idiom) {
			fold = i
		}
	}
	return fold
}

// nonFiniteIndex returns the index of the first NaN or infinite component of v, or -1
func nonFiniteIndex(v []float32) int {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}

// Match is a scored pairing of one source idiom and one target idiom.
//
// Score holds the weighted composite in dual mode and the raw cosine similarity in
// basic mode. Translation is the target idiom's representative translation.
type Match struct {
	SourceLanguage string
	SourceIdiom    string
	SourceContext  string
	TargetLanguage string
	TargetIdiom    string
	TargetContext  string
	Translation    string

	Score             float64
	IdiomSimilarity   float64
	ContextSimilarity float64
	LexicalOverlap    float64
	Rank              int

	SourceIndex int
	TargetIndex int
}

// Layout names the ordered field set a MatchSet is exported with
type Layout string

const (
	// LayoutDual is Mode A output of the weighted scorer
	LayoutDual Layout = "dual"
	// LayoutDualBestPerTarget is Mode B output of the weighted scorer
	LayoutDualBestPerTarget Layout = "dual_best_per_target"
	// LayoutBasic is Mode A output on raw cosine similarity
	LayoutBasic Layout = "basic"
	// LayoutBasicBestPerTarget is Mode B output on raw cosine similarity
	LayoutBasicBestPerTarget Layout = "basic_best_per_target"
	// LayoutTopK is the top-k-per-source variant
	LayoutTopK Layout = "top_k"
)

// MatchSet is an ordered collection of matches plus the layout used to export them
type MatchSet struct {
	Layout  Layout
	Matches []Match
}

// Len returns the number of matches
func (ms MatchSet) Len() int { return len(ms.Matches) }

// Scores returns the Score of every match in order
func (ms MatchSet) Scores() []float64 {
	out := make([]float64, len(ms.Matches))
	for i, m := range ms.Matches {
		out[i] = m.Score
	}
	return out
}

// Truncate returns the first n matches as a new set. n <= 0 keeps everything.
func (ms MatchSet) Truncate(n int) MatchSet {
	if n <= 0 || n >= len(ms.Matches) {
		return ms
	}
	return MatchSet{Layout: ms.Layout, Matches: ms.Matches[:n]}
}

// Filter returns the matches for which keep returns true, preserving order
func (ms MatchSet) Filter(keep func(Match) bool) MatchSet {
	out := make([]Match, 0, len(ms.Matches))
	for _, m := range ms.Matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	return MatchSet{Layout: ms.Layout, Matches: out}
}
