// Package learners provides base classifiers for rakel ensembles.
package learners

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/rakel/rakel"
	"github.com/unixpickle/rakel/treed"
)

const (
	// DefaultMaxDepth is the tree depth used when MaxDepth is not set.
	DefaultMaxDepth = 8

	// MaxPowersetLabels is the largest subset a PowersetTree can encode,
	// since each labelset is stored as an int bitmask.
	MaxPowersetLabels = 62
)

// PowersetTree is a label powerset learner: every distinct combination of
// labels in the training view becomes one class of a multi-class decision
// tree, and predicted classes are decoded back into label vectors.
//
// A PowersetTree is safe for concurrent use.
type PowersetTree struct {
	// MaxDepth limits the depth of the tree.
	// If 0, DefaultMaxDepth is used.
	MaxDepth int

	// MinCount is the smallest number of samples allowed in a branch.
	MinCount int

	// Concurrency is passed to treed.GreedyTree().
	Concurrency int
}

func (p *PowersetTree) Train(data *rakel.ProjectedSet) (rakel.Model, error) {
	numLabels := len(data.Schema.Subset)
	if numLabels > MaxPowersetLabels {
		return nil, errors.Errorf("powerset tree: %d labels exceeds maximum of %d",
			numLabels, MaxPowersetLabels)
	}
	coords, err := trainingCoords(data)
	if err != nil {
		return nil, errors.Wrap(err, "powerset tree")
	}
	classes := make([]int, data.Len())
	for i, ex := range data.Examples {
		classes[i] = encodeLabelset(ex.Labels)
	}
	tree := treed.GreedyTree[float64, treed.Vec, int](
		treed.AxisVecs(data.Schema.NumFeatures),
		coords,
		classes,
		treed.ClassEntropySplitLoss[float64]{MinCount: p.MinCount},
		p.Concurrency,
		maxDepth(p.MaxDepth),
	)
	return &powersetModel{tree: tree, numLabels: numLabels}, nil
}

type powersetModel struct {
	tree      *treed.Tree[float64, treed.Vec, int]
	numLabels int
}

func (p *powersetModel) Predict(x rakel.ProjectedExample) ([]float64, error) {
	class := p.tree.Predict(treed.Vec(x.Features.Dense()))
	return decodeLabelset(class, p.numLabels), nil
}

func encodeLabelset(labels []bool) int {
	var res int
	for i, x := range labels {
		if x {
			res |= 1 << uint(i)
		}
	}
	return res
}

func decodeLabelset(class, numLabels int) []float64 {
	res := make([]float64, numLabels)
	for i := range res {
		if class&(1<<uint(i)) != 0 {
			res[i] = 1
		}
	}
	return res
}

func trainingCoords(data *rakel.ProjectedSet) ([]treed.Vec, error) {
	coords := make([]treed.Vec, data.Len())
	for i, ex := range data.Examples {
		if ex.Labels == nil {
			return nil, errors.Errorf("training example %d has no labels", i)
		}
		coords[i] = treed.Vec(ex.Features.Dense())
	}
	return coords, nil
}

func maxDepth(depth int) int {
	if depth <= 0 {
		return DefaultMaxDepth
	}
	return depth
}
