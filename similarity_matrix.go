package idiommatcher

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SimilarityMatrix is a dense rows×cols matrix of cosine similarities.
// Entry (i, j) compares vector i of the first list with vector j of the second.
type SimilarityMatrix struct {
	rows, cols int
	dense      *mat.Dense // nil when rows or cols is zero

	// ZeroRows and ZeroCols count zero-norm or non-finite vectors on each side. Every pair that
	// involves one of them has similarity 0.0.
	ZeroRows int
	ZeroCols int
}

// BuildSimilarityMatrix computes the cosine similarity of every vector in a against
// every vector in b.
//
// Zero-norm vectors are not an error: their similarity to anything is 0.0 and they are
// counted in ZeroRows / ZeroCols. Vectors with NaN or infinite components are treated
// the same way. Vectors of differing length inside one list, or
// between the two lists, return ErrDimensionMismatch. An empty list yields a 0×N or
// M×0 matrix.
func BuildSimilarityMatrix(a, b [][]float32) (*SimilarityMatrix, error) {
	dimA, err := uniformDimension(a)
	if err != nil {
		return nil, fmt.Errorf("source vectors: %w", err)
	}
	dimB, err := uniformDimension(b)
	if err != nil {
		return nil, fmt.Errorf("target vectors: %w", err)
	}

	sm := &SimilarityMatrix{rows: len(a), cols: len(b)}
	if len(a) == 0 || len(b) == 0 {
		return sm, nil
	}

	if dimA != dimB {
		return nil, fmt.Errorf("%w: source dimension %d, target dimension %d",
			ErrDimensionMismatch, dimA, dimB)
	}

	left, zeroRows := normalizedRows(a, dimA)
	right, zeroCols := normalizedRows(b, dimB)
	sm.ZeroRows, sm.ZeroCols = zeroRows, zeroCols

	sm.dense = mat.NewDense(len(a), len(b), nil)
	sm.dense.Mul(left, right.T())
	sm.dense.Apply(func(_, _ int, v float64) float64 {
		return clampUnit(v)
	}, sm.dense)

	return sm, nil
}

// uniformDimension returns the shared length of vs, or an error if lengths differ or
// are zero. An empty list has dimension 0.
func uniformDimension(vs [][]float32) (int, error) {
	if len(vs) == 0 {
		return 0, nil
	}

	dim := len(vs[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: vector 0 is empty", ErrInputShape)
	}
	for i, v := range vs {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has length %d, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	return dim, nil
}

// normalizedRows copies vs into a len(vs)×dim matrix with unit-length rows.
// Zero-norm and non-finite rows stay zero; their count is returned.
func normalizedRows(vs [][]float32, dim int) (*mat.Dense, int) {
	data := make([]float64, len(vs)*dim)
	zero := 0

	for i, v := range vs {
		norm := l2Norm(v)
		if degenerateNorm(norm) {
			zero++
			continue
		}
		row := data[i*dim : (i+1)*dim]
		for j, x := range v {
			row[j] = float64(x) / norm
		}
	}

	return mat.NewDense(len(vs), dim, data), zero
}

// Dims returns the number of rows and columns
func (sm *SimilarityMatrix) Dims() (int, int) {
	return sm.rows, sm.cols
}

// At returns the similarity of row i and column j
func (sm *SimilarityMatrix) At(i, j int) float64 {
	if i < 0 || i >= sm.rows || j < 0 || j >= sm.cols {
		panic(fmt.Sprintf("similarity matrix index (%d, %d) out of range (%d, %d)", i, j, sm.rows, sm.cols))
	}
	return sm.dense.At(i, j)
}

// Row returns a copy of row i
func (sm *SimilarityMatrix) Row(i int) []float64 {
	out := make([]float64, sm.cols)
	if sm.cols == 0 {
		return out
	}
	copy(out, sm.dense.RawRowView(i))
	return out
}

// Column returns a copy of column j
func (sm *SimilarityMatrix) Column(j int) []float64 {
	out := make([]float64, sm.rows)
	if sm.rows == 0 {
		return out
	}
	mat.Col(out, j, sm.dense)
	return out
}

// Values returns every entry in row-major order
func (sm *SimilarityMatrix) Values() []float64 {
	out := make([]float64, 0, sm.rows*sm.cols)
	for i := 0; i < sm.rows && sm.cols > 0; i++ {
		out = append(out, sm.dense.RawRowView(i)...)
	}
	return out
}

// DegenerateCount returns the number of zero-norm vectors seen on both sides
func (sm *SimilarityMatrix) DegenerateCount() int {
	return sm.ZeroRows + sm.ZeroCols
}

// degenerateNorm reports whether a vector with this norm has no usable direction
func degenerateNorm(norm float64) bool {
	return norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0)
}
