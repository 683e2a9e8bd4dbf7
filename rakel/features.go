package rakel

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Features is the feature part of an example.
type Features interface {
	// Dim returns the number of feature attributes.
	Dim() int

	// At returns the value of attribute i.
	At(i int) float64

	// Dense returns all of the attribute values. The result may alias the
	// receiver and must not be modified.
	Dense() []float64
}

// DenseFeatures stores every attribute value explicitly.
type DenseFeatures []float64

func (d DenseFeatures) Dim() int {
	return len(d)
}

func (d DenseFeatures) At(i int) float64 {
	return d[i]
}

func (d DenseFeatures) Dense() []float64 {
	return d
}

// SparseFeatures stores only the non-zero attribute values.
type SparseFeatures struct {
	Size int

	// Indices is strictly increasing and parallel to Values.
	Indices []int
	Values  []float64
}

// NewSparseFeatures validates and wraps a sparse attribute list.
func NewSparseFeatures(size int, indices []int, values []float64) (*SparseFeatures, error) {
	if len(indices) != len(values) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d indices for %d values",
			len(indices), len(values))
	}
	for i, idx := range indices {
		if idx < 0 || idx >= size {
			return nil, errors.Wrapf(ErrDimensionMismatch, "index %d out of range [0, %d)",
				idx, size)
		}
		if i > 0 && indices[i-1] >= idx {
			return nil, errors.Errorf("sparse indices must be strictly increasing (%d after %d)",
				idx, indices[i-1])
		}
	}
	return &SparseFeatures{Size: size, Indices: indices, Values: values}, nil
}

func (s *SparseFeatures) Dim() int {
	return s.Size
}

func (s *SparseFeatures) At(i int) float64 {
	if idx, ok := slices.BinarySearch(s.Indices, i); ok {
		return s.Values[idx]
	}
	return 0
}

func (s *SparseFeatures) Dense() []float64 {
	res := make([]float64, s.Size)
	for i, idx := range s.Indices {
		res[idx] = s.Values[i]
	}
	return res
}

// NonZero returns the number of stored values.
func (s *SparseFeatures) NonZero() int {
	return len(s.Indices)
}

// ToSparse converts f to a sparse representation, dropping zeros.
// Sparse inputs are returned as-is.
func ToSparse(f Features) *SparseFeatures {
	if s, ok := f.(*SparseFeatures); ok {
		return s
	}
	res := &SparseFeatures{Size: f.Dim()}
	for i, x := range f.Dense() {
		if x != 0 {
			res.Indices = append(res.Indices, i)
			res.Values = append(res.Values, x)
		}
	}
	return res
}

// ToDense converts f to a dense representation.
func ToDense(f Features) DenseFeatures {
	if d, ok := f.(DenseFeatures); ok {
		return d
	}
	return DenseFeatures(f.Dense())
}

func isSparse(f Features) bool {
	_, ok := f.(*SparseFeatures)
	return ok
}
