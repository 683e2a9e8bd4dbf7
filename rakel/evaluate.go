package rakel

import (
	"math"

	"github.com/pkg/errors"
)

// HammingLoss computes the fraction of (example, label) pairs whose decision
// differs from the ground truth.
func HammingLoss(predictions []*Prediction, truths [][]bool) (float64, error) {
	if len(predictions) != len(truths) {
		return 0, errors.Wrapf(ErrDimensionMismatch, "hamming loss: %d predictions for %d truths",
			len(predictions), len(truths))
	}
	var mistakes, total int
	for i, p := range predictions {
		truth := truths[i]
		if len(p.Decisions) != len(truth) {
			return 0, errors.Wrapf(ErrDimensionMismatch, "hamming loss: example %d", i)
		}
		for j, d := range p.Decisions {
			if d != truth[j] {
				mistakes++
			}
		}
		total += len(truth)
	}
	if total == 0 {
		return 0, errors.New("hamming loss: no labels to evaluate")
	}
	return float64(mistakes) / float64(total), nil
}

// A ThresholdSweep is an arithmetic sequence of decision thresholds.
type ThresholdSweep struct {
	Start     float64
	Increment float64
	Steps     int
}

// Thresholds lists the thresholds of the sweep.
func (t ThresholdSweep) Thresholds() []float64 {
	res := make([]float64, t.Steps)
	for i := range res {
		res[i] = t.Start + t.Increment*float64(i)
	}
	return res
}

// SweepHammingLoss re-thresholds the confidences of the outcomes at every
// threshold of the sweep and returns the Hamming loss for each.
//
// Labels with a NaN confidence, which no slot has voted on, are decided
// negative at every threshold.
func SweepHammingLoss(outcomes [][]LabelOutcome, sweep ThresholdSweep) []float64 {
	thresholds := sweep.Thresholds()
	mistakes := make([]int, len(thresholds))
	var total int
	for _, example := range outcomes {
		for _, o := range example {
			for i, t := range thresholds {
				if Decide(o.Confidence, t) != o.Truth {
					mistakes[i]++
				}
			}
		}
		total += len(example)
	}
	res := make([]float64, len(thresholds))
	for i, m := range mistakes {
		if total == 0 {
			res[i] = math.NaN()
		} else {
			res[i] = float64(m) / float64(total)
		}
	}
	return res
}
