package idiommatcher

import (
	"context"
	"io"
)

// Tokenizer splits text into lowercase word tokens for lexical comparison
type Tokenizer interface {
	// Tokens returns the word tokens of text in order, duplicates included
	Tokens(text string) []string
}

// OverlapAnalyzer measures how many surface words two idioms share
type OverlapAnalyzer interface {
	// Overlap returns |A ∩ B| / |A ∪ B| over unique tokens, or 0.0 when either side is empty
	Overlap(a, b string) float64
}

// SimilarityCalculator computes similarity scores between vectors
type SimilarityCalculator interface {
	// CosineSimilarity computes cosine similarity between two vectors
	// Returns 0.0 for invalid inputs (empty, nil, mismatched dimensions, or zero vectors)
	CosineSimilarity(v1, v2 []float32) float64

	// BatchSimilarity computes similarities between one vector and many
	// Returns empty slice for invalid query, and 0.0 for invalid candidates
	BatchSimilarity(query []float32, candidates [][]float32) []float64
}

// CollectionLoader reads idiom collections and their precomputed embeddings
type CollectionLoader interface {
	// LoadBundle loads a language bundle (idioms with inline vectors) from a JSON file
	LoadBundle(path string) (*Collection, error)

	// LoadBundleFromReader loads a language bundle from any io.Reader
	LoadBundleFromReader(reader io.Reader) (*Collection, error)

	// LoadIdioms loads idioms without vectors from a .json or .csv file
	LoadIdioms(path string) ([]Idiom, error)

	// LoadVectors loads labelled vectors from a .vec text file
	LoadVectors(path string) ([]LabeledVector, error)

	// LoadVectorsFromReader loads labelled vectors from any io.Reader
	LoadVectorsFromReader(reader io.Reader) ([]LabeledVector, error)

	// LoadCollection loads whatever the spec points at and assembles a Collection
	LoadCollection(spec CollectionSpec) (*Collection, error)

	// SetProgressCallback sets a callback for progress reporting during loading
	SetProgressCallback(callback ProgressCallback)
}

// ResultStore persists analysis runs and their matches
type ResultStore interface {
	// SaveRun stores one run and all of its match sets, returning the run ID
	SaveRun(ctx context.Context, run RunRecord, sets map[string]MatchSet) (string, error)

	// Close releases the underlying resources
	Close() error
}

// LabeledVector is one line of a .vec file
type LabeledVector struct {
	Label  string
	Vector []float32
}

// ProgressCallback is called during vector loading to report progress
type ProgressCallback func(loaded, total int)

// Logger interface for configurable logging
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}
