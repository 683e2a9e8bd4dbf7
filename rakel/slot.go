package rakel

import (
	"math"

	"github.com/pkg/errors"
)

// A Slot is one member of an ensemble: a label subset, the schema of its
// projected training view, and the model trained on that view.
//
// The model can be released once it is no longer needed, after which the slot
// still describes its subset but cannot predict.
type Slot struct {
	Subset LabelSubset
	Schema *Schema

	model Model
}

// NewSlot wraps an already trained model.
func NewSlot(schema *Schema, model Model) *Slot {
	return &Slot{
		Subset: schema.Subset,
		Schema: schema,
		model:  model,
	}
}

// BuildSlot projects data onto subset and trains a model on the projection.
//
// Only the schema of the projection is kept, not the projected examples.
func BuildSlot(data *Dataset, subset LabelSubset, trainer Trainer) (*Slot, error) {
	projected, err := data.Project(subset)
	if err != nil {
		return nil, errors.Wrap(err, "build slot")
	}
	model, err := trainer.Train(projected)
	if err != nil {
		return nil, errors.Wrapf(err, "build slot: train subset %v", subset)
	}
	return NewSlot(projected.Schema, model), nil
}

// Predict projects x through the slot's schema and returns the model's
// per-label outputs, parallel to s.Subset.
//
// The labels of x are dropped, so the model only ever sees features.
func (s *Slot) Predict(x Example) ([]float64, error) {
	if s.model == nil {
		return nil, errors.Wrapf(ErrModelReleased, "predict with subset %v", s.Subset)
	}
	projected, err := s.Schema.Project(Example{Features: x.Features})
	if err != nil {
		return nil, errors.Wrap(err, "slot predict")
	}
	out, err := s.model.Predict(projected)
	if err != nil {
		return nil, errors.Wrapf(err, "slot predict: subset %v", s.Subset)
	}
	if len(out) != len(s.Subset) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "model for subset %v returned %d values",
			s.Subset, len(out))
	}
	for i, x := range out {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return nil, errors.Errorf("model for subset %v returned %f for label %d",
				s.Subset, x, s.Subset[i])
		}
	}
	return out, nil
}

// Release drops the trained model to free its memory.
func (s *Slot) Release() {
	s.model = nil
}

// Released checks if Release has been called.
func (s *Slot) Released() bool {
	return s.model == nil
}
