package treed

import "golang.org/x/exp/constraints"

type Coord[F constraints.Float, Self any] interface {
	Dot(Self) F
}

// A List is a general array type which can have an arbitrary getter.
// This can be useful for avoiding contiguous slice allocations.
type List[T any] struct {
	Len int
	Get func(int) T
}

func NewListSlice[T any](s []T) List[T] {
	return List[T]{
		Len: len(s),
		Get: func(i int) T {
			return s[i]
		},
	}
}

// Vec is a dense feature vector usable as a tree coordinate.
type Vec []float64

// Dot computes the inner product of v and v1.
//
// Trailing components missing from the shorter vector are treated as zero,
// so a query may have more features than the axes a tree was trained with.
func (v Vec) Dot(v1 Vec) float64 {
	n := len(v)
	if len(v1) < n {
		n = len(v1)
	}
	var res float64
	for i := 0; i < n; i++ {
		res += v[i] * v1[i]
	}
	return res
}

// AxisVecs creates the standard basis for a dim-dimensional feature space.
// Used as split axes, these make a tree split on one feature at a time.
func AxisVecs(dim int) []Vec {
	res := make([]Vec, dim)
	for i := range res {
		res[i] = make(Vec, dim)
		res[i][i] = 1
	}
	return res
}
