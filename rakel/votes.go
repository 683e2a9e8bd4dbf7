package rakel

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultThreshold is the decision cutoff used when none is configured.
const DefaultThreshold = 0.5

// A Prediction is the output of an ensemble for one example.
type Prediction struct {
	// Confidences holds the mean vote of each label, in [0, 1].
	Confidences []float64

	// Decisions is the bipartition: a label is relevant if its confidence
	// is at least the threshold.
	Decisions []bool
}

// Decide applies the thresholding rule to a confidence.
func Decide(confidence, threshold float64) bool {
	return confidence >= threshold
}

// A LabelOutcome pairs the prediction for one label with its ground truth.
type LabelOutcome struct {
	Decision   bool
	Confidence float64
	Truth      bool
}

// A VoteAccumulator tallies the votes of ensemble slots on a fixed list of
// test examples.
//
// For every example and label it keeps the sum of the votes cast on that
// label and the number of slots that voted. Slots may be absorbed one at a
// time and in any order; the tallies only depend on the set of absorbed slots.
type VoteAccumulator struct {
	numLabels int
	sums      [][]float64
	counts    [][]int
	absorbed  int
}

// NewVoteAccumulator creates an empty accumulator.
func NewVoteAccumulator(numExamples, numLabels int) *VoteAccumulator {
	v := &VoteAccumulator{
		numLabels: numLabels,
		sums:      make([][]float64, numExamples),
		counts:    make([][]int, numExamples),
	}
	for i := range v.sums {
		v.sums[i] = make([]float64, numLabels)
		v.counts[i] = make([]int, numLabels)
	}
	return v
}

// Reset zeroes every tally.
func (v *VoteAccumulator) Reset() {
	for i := range v.sums {
		for j := range v.sums[i] {
			v.sums[i][j] = 0
			v.counts[i][j] = 0
		}
	}
	v.absorbed = 0
}

func (v *VoteAccumulator) NumExamples() int {
	return len(v.sums)
}

func (v *VoteAccumulator) NumLabels() int {
	return v.numLabels
}

// Absorbed returns the number of slots absorbed since the last reset.
func (v *VoteAccumulator) Absorbed() int {
	return v.absorbed
}

// Absorb adds the votes of one slot on every example of data, which must be
// the examples the accumulator was created for.
//
// If the slot fails to predict any example, the tallies are left unchanged.
func (v *VoteAccumulator) Absorb(slot *Slot, data *Dataset) error {
	if data.Len() != v.NumExamples() || data.NumLabels != v.numLabels {
		return errors.Wrapf(ErrDimensionMismatch,
			"absorb: accumulator holds %d examples with %d labels, data has %d with %d",
			v.NumExamples(), v.numLabels, data.Len(), data.NumLabels)
	}
	for _, label := range slot.Subset {
		if label < 0 || label >= v.numLabels {
			return errors.Wrapf(ErrDimensionMismatch, "absorb: label %d out of range", label)
		}
	}
	votes := make([][]float64, data.Len())
	for i, ex := range data.Examples {
		out, err := slot.Predict(ex)
		if err != nil {
			return errors.Wrapf(err, "absorb example %d", i)
		}
		votes[i] = out
	}
	for i, out := range votes {
		for j, label := range slot.Subset {
			v.sums[i][label] += out[j]
			v.counts[i][label]++
		}
	}
	v.absorbed++
	return nil
}

// AbsorbAll absorbs every slot in order, stopping at the first failure.
func (v *VoteAccumulator) AbsorbAll(slots []*Slot, data *Dataset) error {
	for i, slot := range slots {
		if err := v.Absorb(slot, data); err != nil {
			return errors.Wrapf(err, "absorb slot %d", i)
		}
	}
	return nil
}

// Tally returns the running vote sum and vote count for a label.
func (v *VoteAccumulator) Tally(example, label int) (sum float64, count int) {
	return v.sums[example][label], v.counts[example][label]
}

// Confidence returns the mean vote on a label, failing with
// ErrUnderCoverage if no absorbed slot covers it.
func (v *VoteAccumulator) Confidence(example, label int) (float64, error) {
	count := v.counts[example][label]
	if count == 0 {
		return 0, errors.Wrapf(ErrUnderCoverage, "example %d, label %d", example, label)
	}
	return v.sums[example][label] / float64(count), nil
}

// Prediction finalizes the tallies of one example.
//
// Every label must be covered by at least one absorbed slot.
func (v *VoteAccumulator) Prediction(example int, threshold float64) (*Prediction, error) {
	res := &Prediction{
		Confidences: make([]float64, v.numLabels),
		Decisions:   make([]bool, v.numLabels),
	}
	for label := range res.Confidences {
		c, err := v.Confidence(example, label)
		if err != nil {
			return nil, err
		}
		res.Confidences[label] = c
		res.Decisions[label] = Decide(c, threshold)
	}
	return res, nil
}

// Predictions finalizes the tallies of every example.
func (v *VoteAccumulator) Predictions(threshold float64) ([]*Prediction, error) {
	res := make([]*Prediction, v.NumExamples())
	for i := range res {
		p, err := v.Prediction(i, threshold)
		if err != nil {
			return nil, err
		}
		res[i] = p
	}
	return res, nil
}

// Outcomes reports the current state of every label of every example next to
// its ground truth, using the default threshold for decisions.
//
// Unlike Prediction, this works on a partially covered ensemble: a label with
// no votes yet gets a NaN confidence and a negative decision.
func (v *VoteAccumulator) Outcomes(truths [][]bool) ([][]LabelOutcome, error) {
	if len(truths) != v.NumExamples() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "outcomes: %d truths for %d examples",
			len(truths), v.NumExamples())
	}
	res := make([][]LabelOutcome, len(truths))
	for i, truth := range truths {
		if len(truth) != v.numLabels {
			return nil, errors.Wrapf(ErrDimensionMismatch, "outcomes: example %d has %d labels",
				i, len(truth))
		}
		res[i] = make([]LabelOutcome, v.numLabels)
		for label, t := range truth {
			confidence := math.NaN()
			if count := v.counts[i][label]; count > 0 {
				confidence = v.sums[i][label] / float64(count)
			}
			res[i][label] = LabelOutcome{
				Decision:   Decide(confidence, DefaultThreshold),
				Confidence: confidence,
				Truth:      t,
			}
		}
	}
	return res, nil
}
