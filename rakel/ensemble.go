// Package rakel implements the random k-labelsets (RAKEL) ensemble for
// multi-label classification.
//
// Each member of the ensemble is trained on the full feature set but only a
// small random subset of the labels. At prediction time, every label gets the
// mean of the votes of the members covering it, and labels whose mean reaches
// a threshold are predicted relevant.
package rakel

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
)

// Config configures an Ensemble.
type Config struct {
	// NumLabels is the number of labels of the data.
	NumLabels int

	// NumModels is the number of slots, at most
	// SubsetCapacity(NumLabels, SubsetSize).
	NumModels int

	// SubsetSize is the number of labels per slot, in [1, NumLabels).
	SubsetSize int

	// Threshold is the decision cutoff on label confidences.
	// If nil, DefaultThreshold is used.
	Threshold *float64

	// Base trains the model of each slot.
	Base Trainer

	// Rand is the source of randomness for labelset sampling and fold
	// assignment. If nil, a time-seeded source is used, so repeated runs
	// build different ensembles.
	Rand *rand.Rand

	// Concurrency is the maximum number of slots trained, or folds
	// evaluated, at once. If 0, GOMAXPROCS is used.
	Concurrency int

	// Verbose, if true, enables logging during training.
	Verbose bool

	// Search, if non-nil, enables selection of SubsetSize, NumModels and
	// Threshold by cross-validation in Fit(). NumModels and SubsetSize are
	// then not required.
	Search *SearchConfig
}

// Validate checks that the options are within range.
func (c *Config) Validate() error {
	if c.NumLabels <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "number of labels must be positive, got %d",
			c.NumLabels)
	}
	if c.Base == nil {
		return errors.Wrap(ErrInvalidConfig, "no base trainer")
	}
	if c.Concurrency < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative concurrency %d", c.Concurrency)
	}
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		return errors.Wrapf(ErrInvalidConfig, "threshold %f out of range [0, 1]", *c.Threshold)
	}
	if c.Search != nil {
		return c.Search.Validate(c.NumLabels)
	}
	return validateShape(c.NumLabels, c.SubsetSize, c.NumModels)
}

func validateShape(numLabels, subsetSize, numModels int) error {
	if subsetSize <= 0 || subsetSize >= numLabels {
		return errors.Wrapf(ErrInvalidConfig, "subset size %d must be in [1, %d)",
			subsetSize, numLabels)
	}
	if numModels <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "number of models must be positive, got %d",
			numModels)
	}
	if capacity := SubsetCapacity(numLabels, subsetSize); numModels > capacity {
		return errors.Wrapf(ErrCapacityExceeded, "%d models requested but only %d subsets of size %d exist",
			numModels, capacity, subsetSize)
	}
	return nil
}

// An Ensemble is a RAKEL classifier.
type Ensemble struct {
	numLabels   int
	numModels   int
	subsetSize  int
	threshold   float64
	base        Trainer
	rand        *rand.Rand
	concurrency int
	verbose     bool
	search      *SearchConfig

	sampler      *SubsetSampler
	slots        []*Slot
	searchResult *SearchResult
}

// New creates an untrained ensemble.
func New(c Config) (*Ensemble, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	threshold := DefaultThreshold
	if c.Threshold != nil {
		threshold = *c.Threshold
	}
	return &Ensemble{
		numLabels:   c.NumLabels,
		numModels:   c.NumModels,
		subsetSize:  c.SubsetSize,
		threshold:   threshold,
		base:        c.Base,
		rand:        randOrDefault(c.Rand),
		concurrency: c.Concurrency,
		verbose:     c.Verbose,
		search:      c.Search,
	}, nil
}

func (e *Ensemble) NumLabels() int {
	return e.numLabels
}

// NumModels returns the number of slots built by Build().
func (e *Ensemble) NumModels() int {
	return e.numModels
}

func (e *Ensemble) SubsetSize() int {
	return e.subsetSize
}

func (e *Ensemble) Threshold() float64 {
	return e.threshold
}

// Slots returns the slots built so far.
func (e *Ensemble) Slots() []*Slot {
	return e.slots
}

// SearchResult returns the outcome of the last parameter search run by Fit(),
// or nil if no search has run.
func (e *Ensemble) SearchResult() *SearchResult {
	return e.searchResult
}

// Fit trains the ensemble on data, first selecting the subset size, number of
// models and threshold by cross-validation if a search is configured.
func (e *Ensemble) Fit(data *Dataset) error {
	if e.search != nil {
		result, err := Search(data, e.base, *e.search, SearchOptions{
			Rand:        e.rand,
			Concurrency: e.concurrency,
			Verbose:     e.verbose,
		})
		if err != nil {
			return errors.Wrap(err, "fit")
		}
		e.searchResult = result
		e.subsetSize = result.Best.SubsetSize
		e.numModels = result.Best.NumModels
		e.threshold = result.Best.Threshold
		if e.verbose {
			logger.Printf("selected subset size=%d models=%d threshold=%f (hamming loss %f)",
				e.subsetSize, e.numModels, e.threshold, result.Best.Loss)
		}
	}
	return e.Build(data)
}

// Build discards any existing slots and trains NumModels new ones.
//
// Labelsets are drawn one after another from a fresh sampler, after which the
// slots are trained concurrently.
func (e *Ensemble) Build(data *Dataset) error {
	if err := e.checkData(data); err != nil {
		return errors.Wrap(err, "build ensemble")
	}
	if err := validateShape(e.numLabels, e.subsetSize, e.numModels); err != nil {
		return errors.Wrap(err, "build ensemble")
	}
	if err := e.resetSampler(); err != nil {
		return errors.Wrap(err, "build ensemble")
	}

	subsets := make([]LabelSubset, e.numModels)
	for i := range subsets {
		subset, err := e.sampler.Sample()
		if err != nil {
			return errors.Wrapf(err, "build ensemble: sample slot %d", i)
		}
		subsets[i] = subset
	}

	slots := make([]*Slot, e.numModels)
	errs := make([]error, e.numModels)
	essentials.ConcurrentMap(e.concurrency, e.numModels, func(i int) {
		if e.verbose {
			logger.Printf("building model %d, subset: %v", i, subsets[i])
		}
		slots[i], errs[i] = BuildSlot(data, subsets[i], e.base)
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "build ensemble: slot %d", i)
		}
	}
	e.slots = slots
	return nil
}

// AddSlot grows the ensemble by one slot, leaving existing slots untouched.
//
// The new labelset is distinct from every labelset drawn since the last
// Build() or the creation of the ensemble.
func (e *Ensemble) AddSlot(data *Dataset) (*Slot, error) {
	if err := e.checkData(data); err != nil {
		return nil, errors.Wrap(err, "add slot")
	}
	if e.sampler == nil {
		if err := e.resetSampler(); err != nil {
			return nil, errors.Wrap(err, "add slot")
		}
	}
	subset, err := e.sampler.Sample()
	if err != nil {
		return nil, errors.Wrapf(err, "add slot %d", len(e.slots))
	}
	if e.verbose {
		logger.Printf("building model %d, subset: %v", len(e.slots), subset)
	}
	slot, err := BuildSlot(data, subset, e.base)
	if err != nil {
		return nil, errors.Wrapf(err, "add slot %d", len(e.slots))
	}
	e.slots = append(e.slots, slot)
	return slot, nil
}

// Accumulate absorbs the votes of every slot on data.
func (e *Ensemble) Accumulate(data *Dataset) (*VoteAccumulator, error) {
	if data.NumLabels != e.numLabels {
		return nil, errors.Wrapf(ErrDimensionMismatch, "expected %d labels but data has %d",
			e.numLabels, data.NumLabels)
	}
	acc := NewVoteAccumulator(data.Len(), e.numLabels)
	if err := acc.AbsorbAll(e.slots, data); err != nil {
		return nil, err
	}
	return acc, nil
}

// PredictSet predicts every example of data.
//
// Labels not covered by any slot cause ErrUnderCoverage.
func (e *Ensemble) PredictSet(data *Dataset) ([]*Prediction, error) {
	acc, err := e.Accumulate(data)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	preds, err := acc.Predictions(e.threshold)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	return preds, nil
}

// Predict predicts a single example. The example's labels, if any, are
// ignored.
func (e *Ensemble) Predict(x Example) (*Prediction, error) {
	if x.Features == nil {
		return nil, errors.Wrap(ErrDimensionMismatch, "predict: example has no features")
	}
	data := &Dataset{
		NumFeatures: x.Features.Dim(),
		NumLabels:   e.numLabels,
		Examples:    []Example{{Features: x.Features}},
	}
	preds, err := e.PredictSet(data)
	if err != nil {
		return nil, err
	}
	return preds[0], nil
}

func (e *Ensemble) resetSampler() error {
	sampler, err := NewSubsetSampler(e.numLabels, e.subsetSize, e.rand)
	if err != nil {
		return err
	}
	e.sampler = sampler
	e.slots = nil
	return nil
}

func (e *Ensemble) checkData(data *Dataset) error {
	if data.NumLabels != e.numLabels {
		return errors.Wrapf(ErrDimensionMismatch, "expected %d labels but data has %d",
			e.numLabels, data.NumLabels)
	}
	if data.Len() == 0 {
		return errors.New("no training examples")
	}
	return nil
}
