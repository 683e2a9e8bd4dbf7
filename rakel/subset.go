package rakel

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/rand"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat/combin"
)

const (
	// combin.Binomial is exact without intermediate overflow up to this many
	// labels; larger label spaces fall back to big.Int.
	exactBinomialLimit = 56

	// Above this many possible labelsets, the sampler never enumerates them.
	enumerationLimit = 1 << 22
)

// A LabelSubset is a sorted list of distinct label indices.
type LabelSubset []int

// A SubsetKey is the canonical comparable form of a LabelSubset.
//
// Two subsets have the same key exactly when they contain the same labels.
type SubsetKey string

// Key returns the canonical key of s, which must be sorted.
func (s LabelSubset) Key() SubsetKey {
	buf := make([]byte, 0, 4*len(s))
	for _, x := range s {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(x))
	}
	return SubsetKey(buf)
}

// Size returns the number of labels in the subset with key k.
func (k SubsetKey) Size() int {
	return len(k) / 4
}

// Contains checks if the sorted subset contains a label.
func (s LabelSubset) Contains(label int) bool {
	_, ok := slices.BinarySearch(s, label)
	return ok
}

// SubsetCapacity returns the number of distinct size-k subsets of numLabels
// labels, saturating at math.MaxInt.
func SubsetCapacity(numLabels, k int) int {
	if k < 0 || k > numLabels {
		return 0
	}
	if numLabels <= exactBinomialLimit {
		return combin.Binomial(numLabels, k)
	}
	b := new(big.Int).Binomial(int64(numLabels), int64(k))
	if b.IsInt64() && b.Int64() <= math.MaxInt {
		return int(b.Int64())
	}
	return math.MaxInt
}

// SampleSubset draws a size-k subset of [0, numLabels) uniformly at random
// among the subsets whose keys are not yet in used, and adds its key to used.
//
// If every size-k subset is already in used, ErrCapacityExceeded is returned.
func SampleSubset(r *rand.Rand, k, numLabels int, used map[SubsetKey]struct{}) (LabelSubset, error) {
	if k <= 0 || k > numLabels {
		return nil, errors.Wrapf(ErrInvalidConfig, "subset size %d for %d labels", k, numLabels)
	}
	return sampleSubset(r, k, numLabels, used, countUsed(used, k))
}

// sampleSubset implements SampleSubset given the number of size-k keys
// already in used.
func sampleSubset(r *rand.Rand, k, numLabels int, used map[SubsetKey]struct{},
	numUsed int) (LabelSubset, error) {
	capacity := SubsetCapacity(numLabels, k)
	remaining := capacity - numUsed
	if remaining <= 0 {
		return nil, errors.Wrapf(ErrCapacityExceeded, "all %d subsets of size %d over %d labels used",
			capacity, k, numLabels)
	}

	// The expected number of draws is capacity/remaining.
	maxAttempts := 64
	if ratio := capacity / remaining; ratio < math.MaxInt/64-64 {
		maxAttempts += 16 * ratio
	} else {
		maxAttempts = math.MaxInt
	}
	if capacity <= enumerationLimit && maxAttempts > capacity {
		maxAttempts = capacity
	}

	selected := make([]bool, numLabels)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		subset := drawSubset(r, k, selected)
		key := subset.Key()
		if _, ok := used[key]; !ok {
			used[key] = struct{}{}
			return subset, nil
		}
	}

	if capacity > enumerationLimit {
		return nil, errors.Wrapf(ErrCapacityExceeded, "no unused subset found in %d draws",
			maxAttempts)
	}
	return pickUnused(r, k, numLabels, used)
}

// drawSubset picks k distinct labels, retrying labels already picked.
// The selected buffer is cleared before returning.
func drawSubset(r *rand.Rand, k int, selected []bool) LabelSubset {
	subset := make(LabelSubset, k)
	for i := range subset {
		label := r.Intn(len(selected))
		for selected[label] {
			label = r.Intn(len(selected))
		}
		selected[label] = true
		subset[i] = label
	}
	for _, label := range subset {
		selected[label] = false
	}
	slices.Sort(subset)
	return subset
}

// pickUnused enumerates every size-k subset and chooses uniformly among the
// ones not in used.
func pickUnused(r *rand.Rand, k, numLabels int, used map[SubsetKey]struct{}) (LabelSubset, error) {
	var unused []LabelSubset
	gen := combin.NewCombinationGenerator(numLabels, k)
	for gen.Next() {
		subset := LabelSubset(gen.Combination(nil))
		slices.Sort(subset)
		if _, ok := used[subset.Key()]; !ok {
			unused = append(unused, subset)
		}
	}
	if len(unused) == 0 {
		return nil, errors.Wrapf(ErrCapacityExceeded, "all subsets of size %d over %d labels used",
			k, numLabels)
	}
	subset := unused[r.Intn(len(unused))]
	used[subset.Key()] = struct{}{}
	return subset, nil
}

func countUsed(used map[SubsetKey]struct{}, k int) int {
	var n int
	for key := range used {
		if key.Size() == k {
			n++
		}
	}
	return n
}

// A SubsetSampler draws labelsets for one ensemble, never repeating a
// labelset over its lifetime.
//
// Every key in its used set has the sampler's subset size, so draws do not
// need to count them.
//
// A SubsetSampler is not safe for concurrent use.
type SubsetSampler struct {
	numLabels int
	size      int
	rand      *rand.Rand
	used      map[SubsetKey]struct{}
}

// NewSubsetSampler creates a sampler for size-k subsets of numLabels labels.
// If r is nil, a time-seeded source is used.
func NewSubsetSampler(numLabels, k int, r *rand.Rand) (*SubsetSampler, error) {
	if k <= 0 || k > numLabels {
		return nil, errors.Wrapf(ErrInvalidConfig, "subset size %d for %d labels", k, numLabels)
	}
	return &SubsetSampler{
		numLabels: numLabels,
		size:      k,
		rand:      randOrDefault(r),
		used:      map[SubsetKey]struct{}{},
	}, nil
}

// Sample draws a labelset that this sampler has not produced before.
func (s *SubsetSampler) Sample() (LabelSubset, error) {
	return sampleSubset(s.rand, s.size, s.numLabels, s.used, len(s.used))
}

// Used returns the number of labelsets drawn so far.
func (s *SubsetSampler) Used() int {
	return len(s.used)
}

// Remaining returns the number of labelsets that can still be drawn.
func (s *SubsetSampler) Remaining() int {
	return SubsetCapacity(s.numLabels, s.size) - len(s.used)
}
