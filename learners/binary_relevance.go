package learners

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/rakel/rakel"
	"github.com/unixpickle/rakel/treed"
)

// BinaryRelevanceTrees trains one independent binary decision tree per label.
//
// Unlike PowersetTree, this ignores correlations between the labels of a
// subset, but it scales to any subset size.
type BinaryRelevanceTrees struct {
	MaxDepth    int
	MinCount    int
	Concurrency int
}

func (b *BinaryRelevanceTrees) Train(data *rakel.ProjectedSet) (rakel.Model, error) {
	coords, err := trainingCoords(data)
	if err != nil {
		return nil, errors.Wrap(err, "binary relevance trees")
	}
	axes := treed.AxisVecs(data.Schema.NumFeatures)
	trees := make([]*treed.Tree[float64, treed.Vec, bool], len(data.Schema.Subset))
	targets := make([]bool, data.Len())
	for i := range trees {
		for j, ex := range data.Examples {
			targets[j] = ex.Labels[i]
		}
		trees[i] = treed.GreedyTree[float64, treed.Vec, bool](
			axes,
			coords,
			targets,
			treed.EntropySplitLoss[float64]{MinCount: b.MinCount},
			b.Concurrency,
			maxDepth(b.MaxDepth),
		)
	}
	return binaryRelevanceModel(trees), nil
}

type binaryRelevanceModel []*treed.Tree[float64, treed.Vec, bool]

func (b binaryRelevanceModel) Predict(x rakel.ProjectedExample) ([]float64, error) {
	coord := treed.Vec(x.Features.Dense())
	res := make([]float64, len(b))
	for i, tree := range b {
		if tree.Predict(coord) {
			res[i] = 1
		}
	}
	return res, nil
}
