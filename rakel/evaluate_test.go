package rakel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHammingLoss(t *testing.T) {
	preds := []*Prediction{
		{Decisions: []bool{true, false, true, false}},
		{Decisions: []bool{false, false, false, false}},
	}
	truths := [][]bool{
		{true, true, true, false},
		{false, false, true, true},
	}
	loss, err := HammingLoss(preds, truths)
	require.NoError(t, err)
	assert.Equal(t, 3.0/8.0, loss)

	_, err = HammingLoss(preds, truths[:1])
	assert.Error(t, err)
}

func TestThresholdSweep(t *testing.T) {
	sweep := ThresholdSweep{Start: 0.25, Increment: 0.25, Steps: 3}
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, sweep.Thresholds())

	outcomes := [][]LabelOutcome{
		{
			{Confidence: 0.5, Truth: true},
			{Confidence: 0.25, Truth: false},
		},
		{
			{Confidence: 1, Truth: true},
			{Confidence: math.NaN(), Truth: true},
		},
	}
	losses := SweepHammingLoss(outcomes, sweep)
	// At 0.25 the second label of the first example is a false positive;
	// the uncovered label is always a false negative.
	assert.Equal(t, []float64{0.5, 0.25, 0.5}, losses)
}
