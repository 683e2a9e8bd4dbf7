package rakel

import (
	"github.com/pkg/errors"
)

// A Schema is the attribute layout of a projected view: every feature of the
// original data plus the labels of one subset, in subset order.
//
// A slot keeps its training schema after its training data is discarded, so
// that query examples can be projected the same way at prediction time.
type Schema struct {
	NumFeatures int

	// NumLabels is the label count of the unprojected data.
	NumLabels int

	Subset LabelSubset

	// Sparse is true if projected features use SparseFeatures.
	Sparse bool
}

// A ProjectedExample is an example restricted to the labels of a Schema.
type ProjectedExample struct {
	Features Features

	// Labels is parallel to the schema's Subset, or nil if the source example
	// had no labels.
	Labels []bool
}

// A ProjectedSet is a training view of a dataset for one label subset.
type ProjectedSet struct {
	Schema   *Schema
	Examples []ProjectedExample
}

// NewSchema creates the schema for projecting d onto subset.
func NewSchema(d *Dataset, subset LabelSubset) (*Schema, error) {
	for i, label := range subset {
		if label < 0 || label >= d.NumLabels {
			return nil, errors.Wrapf(ErrDimensionMismatch, "label %d out of range [0, %d)",
				label, d.NumLabels)
		}
		if i > 0 && subset[i-1] >= label {
			return nil, errors.Errorf("label subset %v is not sorted and distinct", subset)
		}
	}
	return &Schema{
		NumFeatures: d.NumFeatures,
		NumLabels:   d.NumLabels,
		Subset:      append(LabelSubset{}, subset...),
		Sparse:      d.Len() > 0 && isSparse(d.Examples[0].Features),
	}, nil
}

// Project restricts d to the labels in subset.
func (d *Dataset) Project(subset LabelSubset) (*ProjectedSet, error) {
	schema, err := NewSchema(d, subset)
	if err != nil {
		return nil, errors.Wrap(err, "project dataset")
	}
	res := &ProjectedSet{
		Schema:   schema,
		Examples: make([]ProjectedExample, d.Len()),
	}
	for i, ex := range d.Examples {
		res.Examples[i], err = schema.Project(ex)
		if err != nil {
			return nil, errors.Wrapf(err, "project example %d", i)
		}
	}
	return res, nil
}

// Project maps an example into the layout of the schema.
//
// Features are kept in full and converted to the schema's representation;
// only the labels in the schema's subset are retained.
func (s *Schema) Project(ex Example) (ProjectedExample, error) {
	if ex.Features == nil || ex.Features.Dim() != s.NumFeatures {
		return ProjectedExample{}, errors.Wrapf(ErrDimensionMismatch, "expected %d features",
			s.NumFeatures)
	}
	var features Features
	if s.Sparse {
		features = ToSparse(ex.Features)
	} else {
		features = ToDense(ex.Features)
	}
	if ex.Labels == nil {
		return ProjectedExample{Features: features}, nil
	}
	if len(ex.Labels) != s.NumLabels {
		return ProjectedExample{}, errors.Wrapf(ErrDimensionMismatch, "expected %d labels but got %d",
			s.NumLabels, len(ex.Labels))
	}
	labels := make([]bool, len(s.Subset))
	for i, label := range s.Subset {
		labels[i] = ex.Labels[label]
	}
	return ProjectedExample{Features: features, Labels: labels}, nil
}

// Len returns the number of projected examples.
func (p *ProjectedSet) Len() int {
	return len(p.Examples)
}
