package rakel

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatasetValidation(t *testing.T) {
	_, err := NewDataset(2, 2, []Example{
		{Features: DenseFeatures{1, 2}, Labels: []bool{true, false}},
		{Features: DenseFeatures{1}, Labels: []bool{true, false}},
	})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = NewDataset(2, 2, []Example{
		{Features: DenseFeatures{1, 2}, Labels: []bool{true}},
	})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = NewDataset(2, 0, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestFolds(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	labels := make([][]bool, 23)
	for i := range labels {
		// Three labelsets with different frequencies.
		switch {
		case i < 12:
			labels[i] = []bool{true, false}
		case i < 20:
			labels[i] = []bool{false, true}
		default:
			labels[i] = []bool{true, true}
		}
	}
	d := idDataset(t, labels)
	folds, err := d.Folds(4, r)
	require.NoError(t, err)
	require.Len(t, folds, 4)

	testCount := make([]int, d.Len())
	for _, f := range folds {
		assert.Equal(t, d.Len(), len(f.Train)+len(f.Test))
		assert.True(t, len(f.Test) == 5 || len(f.Test) == 6, "fold size %d", len(f.Test))
		inTest := map[int]bool{}
		for _, idx := range f.Test {
			testCount[idx]++
			inTest[idx] = true
		}
		for _, idx := range f.Train {
			assert.False(t, inTest[idx], "example %d in train and test", idx)
		}

		// Each labelset appears about equally often in every fold.
		groups := map[string]int{}
		for _, idx := range f.Test {
			groups[labelsetKey(labels[idx])]++
		}
		assert.Equal(t, 3, groups[labelsetKey([]bool{true, false})])
		assert.Equal(t, 2, groups[labelsetKey([]bool{false, true})])
	}
	for i, c := range testCount {
		assert.Equal(t, 1, c, "example %d", i)
	}
}

func TestFoldsClamped(t *testing.T) {
	d := idDataset(t, constantLabels(3, 2, true))
	folds, err := d.Folds(10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, folds, 3)
	for _, f := range folds {
		assert.Len(t, f.Test, 1)
		assert.Len(t, f.Train, 2)
	}

	_, err = d.Folds(1, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestTrainTestSplit(t *testing.T) {
	d := idDataset(t, constantLabels(10, 3, false))
	train, test, err := d.TrainTestSplit(5, 2, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, 3, train.NumLabels)
	assert.Equal(t, 1, test.NumFeatures)

	_, _, err = d.TrainTestSplit(5, 5, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
