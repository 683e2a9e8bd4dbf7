package rakel

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// An Example is one multi-label instance.
//
// Examples are treated as immutable once they are part of a Dataset.
type Example struct {
	Features Features

	// Labels holds one relevance indicator per label. It may be nil for
	// examples that are only used for prediction.
	Labels []bool
}

// A Dataset is a list of examples sharing one attribute layout.
type Dataset struct {
	NumFeatures int
	NumLabels   int
	Examples    []Example
}

// NewDataset creates a dataset, checking that every example has the given
// number of features and labels.
func NewDataset(numFeatures, numLabels int, examples []Example) (*Dataset, error) {
	if numLabels <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "dataset needs at least one label, got %d",
			numLabels)
	}
	for i, ex := range examples {
		if ex.Features == nil || ex.Features.Dim() != numFeatures {
			return nil, errors.Wrapf(ErrDimensionMismatch, "example %d: expected %d features",
				i, numFeatures)
		}
		if len(ex.Labels) != numLabels {
			return nil, errors.Wrapf(ErrDimensionMismatch, "example %d: expected %d labels but got %d",
				i, numLabels, len(ex.Labels))
		}
	}
	return &Dataset{
		NumFeatures: numFeatures,
		NumLabels:   numLabels,
		Examples:    examples,
	}, nil
}

func (d *Dataset) Len() int {
	return len(d.Examples)
}

// Subset creates a dataset from the examples at the given indices.
// The examples themselves are shared, not copied.
func (d *Dataset) Subset(indices []int) *Dataset {
	res := &Dataset{
		NumFeatures: d.NumFeatures,
		NumLabels:   d.NumLabels,
		Examples:    make([]Example, len(indices)),
	}
	for i, idx := range indices {
		res.Examples[i] = d.Examples[idx]
	}
	return res
}

// Truths returns the label vectors of every example.
func (d *Dataset) Truths() [][]bool {
	res := make([][]bool, d.Len())
	for i, ex := range d.Examples {
		res[i] = ex.Labels
	}
	return res
}

// A Fold is one train/test split of a dataset, given as example indices.
type Fold struct {
	Train []int
	Test  []int
}

// Folds partitions the dataset for numFolds-fold cross-validation.
//
// Every example lands in exactly one test set, and test set sizes differ by at
// most one. Examples are grouped by label vector and each group is dealt out
// across the folds, so labelset frequencies are approximately preserved in
// every fold.
//
// If numFolds exceeds the number of examples, leave-one-out folds are
// produced instead. If r is nil, a time-seeded source is used.
func (d *Dataset) Folds(numFolds int, r *rand.Rand) ([]Fold, error) {
	if numFolds < 2 {
		return nil, errors.Wrapf(ErrInvalidConfig, "need at least 2 folds, got %d", numFolds)
	}
	if d.Len() < 2 {
		return nil, errors.Errorf("cannot split %d examples into folds", d.Len())
	}
	if numFolds > d.Len() {
		numFolds = d.Len()
	}
	r = randOrDefault(r)

	tests := make([][]int, numFolds)
	for i, idx := range d.stratifiedOrder(r) {
		tests[i%numFolds] = append(tests[i%numFolds], idx)
	}

	folds := make([]Fold, numFolds)
	inTest := make([]bool, d.Len())
	for i, test := range tests {
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, d.Len()-len(test))
		for idx, held := range inTest {
			if !held {
				train = append(train, idx)
			}
		}
		for _, idx := range test {
			inTest[idx] = false
		}
		slices.Sort(test)
		folds[i] = Fold{Train: train, Test: test}
	}
	return folds, nil
}

// TrainTestSplit returns the training and held-out data for one fold of
// Folds(numFolds, r).
func (d *Dataset) TrainTestSplit(numFolds, fold int, r *rand.Rand) (train, test *Dataset, err error) {
	folds, err := d.Folds(numFolds, r)
	if err != nil {
		return nil, nil, err
	}
	if fold < 0 || fold >= len(folds) {
		return nil, nil, errors.Wrapf(ErrInvalidConfig, "fold %d out of range [0, %d)",
			fold, len(folds))
	}
	return d.Subset(folds[fold].Train), d.Subset(folds[fold].Test), nil
}

// stratifiedOrder lists example indices grouped by label vector, with the
// groups in order of first appearance and each group shuffled.
func (d *Dataset) stratifiedOrder(r *rand.Rand) []int {
	groupIndex := map[string]int{}
	var groups [][]int
	for i, ex := range d.Examples {
		key := labelsetKey(ex.Labels)
		g, ok := groupIndex[key]
		if !ok {
			g = len(groups)
			groupIndex[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	order := make([]int, 0, d.Len())
	for _, group := range groups {
		r.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		order = append(order, group...)
	}
	return order
}

// labelsetKey packs a label vector into a bitmask usable as a map key.
func labelsetKey(labels []bool) string {
	packed := make([]byte, (len(labels)+7)/8)
	for i, x := range labels {
		if x {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	return string(packed)
}

func randOrDefault(r *rand.Rand) *rand.Rand {
	if r != nil {
		return r
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
