package rakel

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSearchConfig() SearchConfig {
	return SearchConfig{
		NumFolds:           3,
		MinK:               1,
		MaxK:               2,
		StepK:              1,
		MaxM:               10,
		ThresholdStart:     0.2,
		ThresholdIncrement: 0.2,
		ThresholdSteps:     4,
	}
}

func TestSearchSelectsSmallestLoss(t *testing.T) {
	d := idDataset(t, constantLabels(12, 3, true))
	result, err := Search(d, majorityTrainer(), testSearchConfig(), SearchOptions{
		Rand: rand.New(rand.NewSource(1337)),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.CompletedFolds)
	assert.Empty(t, result.FoldErrors)

	// Both subset sizes allow C(3, k) = 3 models, with 4 thresholds each.
	require.Len(t, result.Grid, 24)

	assert.Equal(t, SearchState{SubsetSize: 1, NumModels: 3, Threshold: 0.2, Loss: 0}, result.Best)

	// With k=1, every additional slot covers one more always-relevant label.
	require.Len(t, result.History, 3)
	assert.InDelta(t, 2.0/3.0, result.History[0].Loss, 1e-8)
	assert.InDelta(t, 1.0/3.0, result.History[1].Loss, 1e-8)
	assert.Equal(t, 1, result.History[0].NumModels)
	assert.Equal(t, 2, result.History[1].NumModels)
	assert.Equal(t, result.Best, result.History[2])
}

func TestSearchMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	labels := make([][]bool, 30)
	for i := range labels {
		labels[i] = make([]bool, 5)
		for j := range labels[i] {
			labels[i][j] = r.Intn(3) == 0
		}
	}
	d := idDataset(t, labels)

	// Noisy votes make the loss depend on k, m and the threshold. The models
	// look up the truth in d by index, since they never receive labels.
	base := TrainerFunc(func(data *ProjectedSet) (Model, error) {
		noise := rand.New(rand.NewSource(int64(data.Len()*1000 + len(data.Schema.Subset))))
		flips := map[int][]bool{}
		for i := 0; i < d.Len(); i++ {
			f := make([]bool, len(data.Schema.Subset))
			for j := range f {
				f[j] = noise.Intn(4) == 0
			}
			flips[i] = f
		}
		return ModelFunc(func(x ProjectedExample) ([]float64, error) {
			idx := int(x.Features.At(0))
			res := make([]float64, len(data.Schema.Subset))
			for i, label := range data.Schema.Subset {
				if d.Examples[idx].Labels[label] != flips[idx][i] {
					res[i] = 1
				}
			}
			return res, nil
		}), nil
	})

	cfg := SearchConfig{
		NumFolds:           3,
		MinK:               1,
		MaxK:               4,
		StepK:              2,
		MaxM:               4,
		ThresholdStart:     0.1,
		ThresholdIncrement: 0.2,
		ThresholdSteps:     5,
	}
	result, err := Search(d, base, cfg, SearchOptions{
		Rand:        rand.New(rand.NewSource(1)),
		Concurrency: 1,
	})
	require.NoError(t, err)

	// k=1 allows 4 models (capped by MaxM), and so does k=3.
	assert.Len(t, result.Grid, 2*4*5)
	for _, p := range result.Grid {
		assert.LessOrEqual(t, result.Best.Loss, p.Loss)
		assert.Len(t, p.FoldLosses, 3)
	}
	require.NotEmpty(t, result.History)
	for i := 1; i < len(result.History); i++ {
		assert.Less(t, result.History[i].Loss, result.History[i-1].Loss)
	}
	assert.Equal(t, result.Best, result.History[len(result.History)-1])

	// The first grid point with the best loss wins.
	for _, p := range result.Grid {
		if p.Loss == result.Best.Loss {
			assert.Equal(t, result.Best, p.SearchState)
			break
		}
	}
}

func TestSearchFoldFailures(t *testing.T) {
	d := idDataset(t, constantLabels(9, 3, true))
	// Fails on every fold that trains on example 0.
	base := TrainerFunc(func(data *ProjectedSet) (Model, error) {
		for _, ex := range data.Examples {
			if ex.Features.At(0) == 0 {
				return nil, errors.New("cannot train on example 0")
			}
		}
		return majorityTrainer().Train(data)
	})

	cfg := testSearchConfig()
	result, err := Search(d, base, cfg, SearchOptions{Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedFolds)
	require.Len(t, result.FoldErrors, 2)
	for _, p := range result.Grid {
		assert.Len(t, p.FoldLosses, 1)
	}
	assert.Equal(t, 0.0, result.Best.Loss)

	cfg.PropagateFoldErrors = true
	_, err = Search(d, base, cfg, SearchOptions{Rand: rand.New(rand.NewSource(3))})
	require.Error(t, err)
	var foldErr *FoldError
	assert.True(t, errors.As(err, &foldErr))

	alwaysFails := TrainerFunc(func(data *ProjectedSet) (Model, error) {
		return nil, errors.New("broken")
	})
	_, err = Search(d, alwaysFails, testSearchConfig(), SearchOptions{})
	assert.Error(t, err)
}

func TestSearchConfigValidate(t *testing.T) {
	valid := testSearchConfig()
	assert.NoError(t, valid.Validate(3))
	assert.True(t, errors.Is(valid.Validate(2), ErrInvalidConfig))

	for _, mutate := range []func(c *SearchConfig){
		func(c *SearchConfig) { c.NumFolds = 1 },
		func(c *SearchConfig) { c.MinK = 0 },
		func(c *SearchConfig) { c.MaxK = 0 },
		func(c *SearchConfig) { c.StepK = 0 },
		func(c *SearchConfig) { c.MaxM = 0 },
		func(c *SearchConfig) { c.ThresholdSteps = 0 },
	} {
		c := testSearchConfig()
		mutate(&c)
		assert.True(t, errors.Is(c.Validate(3), ErrInvalidConfig), "config %+v", c)
	}

	assert.Equal(t, []int{1, 3, 5}, SearchConfig{MinK: 1, MaxK: 6, StepK: 2}.SubsetSizes())
	c := SearchConfig{MaxM: 100}
	assert.Equal(t, 10, c.MaxModels(5, 2))
	c.MaxM = 4
	assert.Equal(t, 4, c.MaxModels(5, 2))
}
