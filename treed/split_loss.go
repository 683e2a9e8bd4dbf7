package treed

import (
	"math"
)

// SplitInfo is returned by Loss.MinimumSplit() to indicate where to split a
// list of labels for sorted samples to minimize a loss.
type SplitInfo struct {
	// Number of elements in less than branch to keep.
	Index int

	// Total loss of both branches.
	Loss float64
}

// A SplitLoss implements a decision criterion used to select the best split of
// a tree. The loss must understand the label type T, and uses a threshold type
// F only to determine when two data points have exactly the same split
// threshold and therefore must always be grouped together.
type SplitLoss[F comparable, T any] interface {
	// Predict returns the value to minimize the loss of a leaf.
	Predict(List[T]) T

	// Get the best split of the data according to the loss function.
	//
	// The first argument must be a sorted list of labels, according to the
	// thresholds passed to the second argument.
	//
	// The result may be a split where all of the values are on one side or the
	// other, in which case no split reduces the loss.
	MinimumSplit(sorted List[T], thresholds List[F]) SplitInfo
}

// EntropySplitLoss is a SplitLoss which computes the total entropy across both
// branches.
type EntropySplitLoss[F comparable] struct {
	// MinCount can be used to prevent splits which result in leaves with only
	// a small number of representative samples. In particular, splits with
	// less than MinCount samples on the left or right will not be returned
	// from MinimumSplit().
	MinCount int
}

func (e EntropySplitLoss[F]) Predict(items List[bool]) bool {
	return countTrue(items)*2 > items.Len
}

func (e EntropySplitLoss[F]) MinimumSplit(sorted List[bool], thresholds List[F]) SplitInfo {
	if sorted.Len != thresholds.Len {
		panic("values and thresholds must have same length")
	}

	leftSum := 0
	rightSum := countTrue(sorted)

	lastIndex := 0
	var bestSplit SplitInfo
	iterateSplitPoints(thresholds, func(i int) {
		for lastIndex < i {
			if sorted.Get(lastIndex) {
				leftSum++
				rightSum--
			}
			lastIndex++
		}
		leftCount := i
		rightCount := sorted.Len - i
		split := SplitInfo{
			Index: i,
			Loss:  entropy(leftCount, leftSum) + entropy(rightCount, rightSum),
		}
		if (split.Loss < bestSplit.Loss && leftCount >= e.MinCount && rightCount >= e.MinCount) ||
			i == 0 {
			bestSplit = split
		}
	})

	return bestSplit
}

// ClassEntropySplitLoss is like EntropySplitLoss, but for an arbitrary number
// of discrete classes identified by integers.
type ClassEntropySplitLoss[F comparable] struct {
	// MinCount has the same meaning as for EntropySplitLoss.
	MinCount int
}

// Predict returns the most common class, breaking ties by first occurrence.
func (c ClassEntropySplitLoss[F]) Predict(items List[int]) int {
	return Mode(items)
}

func (c ClassEntropySplitLoss[F]) MinimumSplit(sorted List[int], thresholds List[F]) SplitInfo {
	if sorted.Len != thresholds.Len {
		panic("values and thresholds must have same length")
	}

	// The entropy of a branch with class counts c_i summing to n is
	// n*log(n) - sum_i c_i*log(c_i), so only the second term needs to be
	// tracked as samples move from right to left.
	leftCounts := map[int]int{}
	rightCounts := map[int]int{}
	for i := 0; i < sorted.Len; i++ {
		rightCounts[sorted.Get(i)]++
	}
	var leftTerm, rightTerm float64
	for _, count := range rightCounts {
		rightTerm += xLogX(count)
	}

	lastIndex := 0
	var bestSplit SplitInfo
	iterateSplitPoints(thresholds, func(i int) {
		for lastIndex < i {
			label := sorted.Get(lastIndex)
			l, r := leftCounts[label], rightCounts[label]
			leftTerm += xLogX(l+1) - xLogX(l)
			rightTerm += xLogX(r-1) - xLogX(r)
			leftCounts[label] = l + 1
			rightCounts[label] = r - 1
			lastIndex++
		}
		leftCount := i
		rightCount := sorted.Len - i
		split := SplitInfo{
			Index: i,
			Loss:  xLogX(leftCount) - leftTerm + xLogX(rightCount) - rightTerm,
		}
		if (split.Loss < bestSplit.Loss && leftCount >= c.MinCount && rightCount >= c.MinCount) ||
			i == 0 {
			bestSplit = split
		}
	})

	return bestSplit
}

// Mode returns the most common value in a list.
//
// Ties between modes are broken by the order of first appearance, so the
// result is deterministic for a fixed list. For an empty list, the zero value
// is returned.
func Mode[T comparable](items List[T]) T {
	var values []T
	counts := map[T]int{}
	for i := 0; i < items.Len; i++ {
		x := items.Get(i)
		if _, ok := counts[x]; !ok {
			values = append(values, x)
		}
		counts[x]++
	}
	var res T
	maxCount := 0
	for _, x := range values {
		if c := counts[x]; c > maxCount {
			maxCount = c
			res = x
		}
	}
	return res
}

func countTrue(list List[bool]) int {
	var count int
	for i := 0; i < list.Len; i++ {
		if list.Get(i) {
			count++
		}
	}
	return count
}

func entropy(numPoints, numTrue int) float64 {
	if numPoints == 0 {
		return 0
	}
	numFalse := numPoints - numTrue
	fracTrue := float64(numTrue) / float64(numPoints)
	fracFalse := float64(numFalse) / float64(numPoints)
	return -(float64(numTrue)*logOrZero(fracTrue) +
		float64(numFalse)*logOrZero(fracFalse))
}

func logOrZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Log(x)
}

func xLogX(n int) float64 {
	if n == 0 {
		return 0
	}
	x := float64(n)
	return x * math.Log(x)
}

func iterateSplitPoints[F comparable](thresholds List[F], f func(int)) {
	var prevValue F
	for i := 0; i < thresholds.Len; i++ {
		x := thresholds.Get(i)
		if i == 0 || x != prevValue {
			f(i)
		}
		prevValue = x
	}
	f(thresholds.Len)
}
