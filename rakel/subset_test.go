package rakel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetKey(t *testing.T) {
	assert.Equal(t, LabelSubset{1, 3, 7}.Key(), LabelSubset{1, 3, 7}.Key())
	assert.NotEqual(t, LabelSubset{1, 3, 7}.Key(), LabelSubset{1, 3, 8}.Key())
	assert.NotEqual(t, LabelSubset{1, 3}.Key(), LabelSubset{1, 3, 0}.Key())
	// Indices that would be ambiguous when naively concatenated as text.
	assert.NotEqual(t, LabelSubset{1, 23}.Key(), LabelSubset{12, 3}.Key())
	assert.Equal(t, 3, LabelSubset{1, 3, 7}.Key().Size())

	assert.True(t, LabelSubset{1, 3, 7}.Contains(3))
	assert.False(t, LabelSubset{1, 3, 7}.Contains(4))
}

func TestSubsetCapacity(t *testing.T) {
	assert.Equal(t, 6, SubsetCapacity(4, 2))
	assert.Equal(t, 120, SubsetCapacity(10, 3))
	assert.Equal(t, 1, SubsetCapacity(5, 0))
	assert.Equal(t, 1, SubsetCapacity(5, 5))
	assert.Equal(t, 0, SubsetCapacity(3, 4))
	assert.Equal(t, 4950, SubsetCapacity(100, 2))
	assert.Equal(t, 161700, SubsetCapacity(100, 3))
	assert.Equal(t, math.MaxInt, SubsetCapacity(200, 100))
}

func TestSamplerExhaustion(t *testing.T) {
	sampler, err := NewSubsetSampler(4, 2, rand.New(rand.NewSource(1337)))
	require.NoError(t, err)

	seen := map[SubsetKey]bool{}
	for i := 0; i < 6; i++ {
		subset, err := sampler.Sample()
		require.NoError(t, err)
		require.Len(t, subset, 2)
		assert.Less(t, subset[0], subset[1])
		assert.False(t, seen[subset.Key()], "duplicate subset %v", subset)
		seen[subset.Key()] = true
	}
	assert.Equal(t, 6, sampler.Used())
	assert.Equal(t, 0, sampler.Remaining())

	_, err = sampler.Sample()
	assert.True(t, errors.Is(err, ErrCapacityExceeded), "unexpected error: %v", err)
}

func TestSamplerUniqueness(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	for numLabels := 1; numLabels <= 8; numLabels++ {
		for k := 1; k <= numLabels; k++ {
			capacity := SubsetCapacity(numLabels, k)
			used := map[SubsetKey]struct{}{}
			for i := 0; i < capacity; i++ {
				subset, err := SampleSubset(r, k, numLabels, used)
				require.NoError(t, err)
				require.Len(t, subset, k)
				for j, label := range subset {
					assert.True(t, label >= 0 && label < numLabels)
					if j > 0 {
						assert.Less(t, subset[j-1], label)
					}
				}
			}
			assert.Len(t, used, capacity)
			_, err := SampleSubset(r, k, numLabels, used)
			assert.True(t, errors.Is(err, ErrCapacityExceeded),
				"n=%d k=%d: unexpected error %v", numLabels, k, err)
		}
	}
}

func TestSampleSubsetAvoidsUsed(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	used := map[SubsetKey]struct{}{}
	for _, s := range []LabelSubset{{0, 1}, {0, 2}, {1, 2}, {1, 3}, {2, 3}} {
		used[s.Key()] = struct{}{}
	}
	subset, err := SampleSubset(r, 2, 4, used)
	require.NoError(t, err)
	assert.Equal(t, LabelSubset{0, 3}, subset)
	assert.Len(t, used, 6)
}

func TestSamplerLargeSpace(t *testing.T) {
	sampler, err := NewSubsetSampler(300, 3, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	seen := map[SubsetKey]bool{}
	for i := 0; i < 1000; i++ {
		subset, err := sampler.Sample()
		require.NoError(t, err)
		assert.False(t, seen[subset.Key()])
		seen[subset.Key()] = true
	}
}

func TestSamplerDeterministic(t *testing.T) {
	draw := func() []LabelSubset {
		sampler, err := NewSubsetSampler(10, 3, rand.New(rand.NewSource(99)))
		require.NoError(t, err)
		var res []LabelSubset
		for i := 0; i < 20; i++ {
			subset, err := sampler.Sample()
			require.NoError(t, err)
			res = append(res, subset)
		}
		return res
	}
	assert.Equal(t, draw(), draw())
}

func TestSamplerInvalid(t *testing.T) {
	for _, k := range []int{0, -1, 5} {
		_, err := NewSubsetSampler(4, k, nil)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "k=%d: unexpected error %v", k, err)
	}
}

func TestSamplerDrainsSpace(t *testing.T) {
	sampler, err := NewSubsetSampler(12, 3, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	capacity := SubsetCapacity(12, 3)
	seen := map[SubsetKey]bool{}
	for i := 0; i < capacity; i++ {
		require.Equal(t, capacity-i, sampler.Remaining())
		subset, err := sampler.Sample()
		require.NoError(t, err)
		require.False(t, seen[subset.Key()], "duplicate subset %v", subset)
		seen[subset.Key()] = true
	}
	assert.Equal(t, capacity, sampler.Used())
	_, err = sampler.Sample()
	assert.True(t, errors.Is(err, ErrCapacityExceeded), "unexpected error: %v", err)
}

func TestSampleSubsetMixedSizes(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	used := map[SubsetKey]struct{}{
		LabelSubset{0}.Key():       {},
		LabelSubset{1}.Key():       {},
		LabelSubset{0, 1, 2}.Key(): {},
	}
	// Keys of other sizes do not count against the 3 pairs of 3 labels.
	for i := 0; i < 3; i++ {
		subset, err := SampleSubset(r, 2, 3, used)
		require.NoError(t, err)
		assert.Len(t, subset, 2)
	}
	_, err := SampleSubset(r, 2, 3, used)
	assert.True(t, errors.Is(err, ErrCapacityExceeded), "unexpected error: %v", err)
	assert.Len(t, used, 6)
}
