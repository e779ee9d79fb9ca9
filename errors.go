package idiommatcher

import (
	"errors"
	"fmt"
)

// Error types for the idiom matcher
var (
	// ErrVectorFileNotFound indicates the vector file could not be found
	ErrVectorFileNotFound = errors.New("vector file not found")

	// ErrInvalidVectorFormat indicates the vector file format is invalid
	ErrInvalidVectorFormat = errors.New("invalid vector file format")

	// ErrInputShape indicates idioms and vectors do not line up, or a collection
	// carries vectors of differing lengths
	ErrInputShape = errors.New("input shape error")

	// ErrDimensionMismatch indicates two collections being compared have different
	// embedding dimensions. It wraps ErrInputShape.
	ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrInputShape)

	// ErrEmptyCollection indicates a ranking mode that needs at least one idiom
	// on each side was given an empty collection
	ErrEmptyCollection = errors.New("empty idiom collection")

	// ErrInvalidConfiguration indicates configuration parameters are invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat indicates an input file extension is not recognised
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingContextVectors indicates dual scoring was requested for a
	// collection without idiom+context vectors
	ErrMissingContextVectors = fmt.Errorf("%w: missing idiom+context vectors", ErrInputShape)
)
