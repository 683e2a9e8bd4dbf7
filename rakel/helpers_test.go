package rakel

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// idDataset creates a dataset whose single feature is each example's index.
func idDataset(t *testing.T, labels [][]bool) *Dataset {
	examples := make([]Example, len(labels))
	for i, l := range labels {
		examples[i] = Example{Features: DenseFeatures{float64(i)}, Labels: l}
	}
	d, err := NewDataset(1, len(labels[0]), examples)
	require.NoError(t, err)
	return d
}

func constantLabels(numExamples, numLabels int, value bool) [][]bool {
	res := make([][]bool, numExamples)
	for i := range res {
		res[i] = make([]bool, numLabels)
		for j := range res[i] {
			res[i][j] = value
		}
	}
	return res
}

// scriptedSlot creates a slot whose model returns fixed outputs per example
// index.
func scriptedSlot(t *testing.T, d *Dataset, subset LabelSubset, outputs map[int][]float64) *Slot {
	schema, err := NewSchema(d, subset)
	require.NoError(t, err)
	return NewSlot(schema, ModelFunc(func(x ProjectedExample) ([]float64, error) {
		out, ok := outputs[int(x.Features.At(0))]
		if !ok {
			return nil, errors.New("no scripted output")
		}
		return out, nil
	}))
}

// majorityTrainer produces models that predict each label as relevant if
// it is relevant in most training examples.
func majorityTrainer() Trainer {
	return TrainerFunc(func(data *ProjectedSet) (Model, error) {
		out := make([]float64, len(data.Schema.Subset))
		for i := range out {
			var count int
			for _, ex := range data.Examples {
				if ex.Labels[i] {
					count++
				}
			}
			if 2*count > data.Len() {
				out[i] = 1
			}
		}
		return ModelFunc(func(x ProjectedExample) ([]float64, error) {
			return append([]float64{}, out...), nil
		}), nil
	})
}

// memoTrainer produces models that look up the training labels of an
// example by its index feature.
func memoTrainer() Trainer {
	return TrainerFunc(func(data *ProjectedSet) (Model, error) {
		memory := map[int][]float64{}
		for _, ex := range data.Examples {
			out := make([]float64, len(ex.Labels))
			for i, l := range ex.Labels {
				if l {
					out[i] = 1
				}
			}
			memory[int(ex.Features.At(0))] = out
		}
		return ModelFunc(func(x ProjectedExample) ([]float64, error) {
			out, ok := memory[int(x.Features.At(0))]
			if !ok {
				return nil, errors.New("unknown example")
			}
			return out, nil
		}), nil
	})
}
