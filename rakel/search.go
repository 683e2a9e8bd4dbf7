package rakel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/stat"
)

// SearchConfig defines the grid explored by Search.
type SearchConfig struct {
	// NumFolds is the number of cross-validation folds.
	NumFolds int

	// Subset sizes MinK, MinK+StepK, ... up to MaxK are tried.
	MinK  int
	MaxK  int
	StepK int

	// For each subset size k, ensembles of 1 up to
	// min(MaxM, SubsetCapacity(numLabels, k)) slots are tried.
	MaxM int

	// Thresholds ThresholdStart + i*ThresholdIncrement for
	// i in [0, ThresholdSteps) are tried for every ensemble.
	ThresholdStart     float64
	ThresholdIncrement float64
	ThresholdSteps     int

	// PropagateFoldErrors, if true, makes the search fail as soon as any
	// fold fails. Otherwise failed folds are reported in the result and left
	// out of the averages.
	PropagateFoldErrors bool
}

// Validate checks the grid against the number of labels of the data.
func (s SearchConfig) Validate(numLabels int) error {
	if s.NumFolds < 2 {
		return errors.Wrapf(ErrInvalidConfig, "search: need at least 2 folds, got %d", s.NumFolds)
	}
	if s.MinK <= 0 || s.MaxK < s.MinK || s.MaxK >= numLabels {
		return errors.Wrapf(ErrInvalidConfig, "search: subset sizes [%d, %d] must lie in [1, %d)",
			s.MinK, s.MaxK, numLabels)
	}
	if s.StepK <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "search: subset size step must be positive, got %d",
			s.StepK)
	}
	if s.MaxM <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "search: max models must be positive, got %d", s.MaxM)
	}
	if s.ThresholdSteps <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "search: threshold steps must be positive, got %d",
			s.ThresholdSteps)
	}
	return nil
}

// Sweep returns the thresholds tried for every ensemble.
func (s SearchConfig) Sweep() ThresholdSweep {
	return ThresholdSweep{
		Start:     s.ThresholdStart,
		Increment: s.ThresholdIncrement,
		Steps:     s.ThresholdSteps,
	}
}

// SubsetSizes lists the subset sizes of the grid.
func (s SearchConfig) SubsetSizes() []int {
	var res []int
	for k := s.MinK; k <= s.MaxK; k += s.StepK {
		res = append(res, k)
	}
	return res
}

// MaxModels returns the largest ensemble tried for subset size k.
func (s SearchConfig) MaxModels(numLabels, k int) int {
	return essentials.MinInt(SubsetCapacity(numLabels, k), s.MaxM)
}

// SearchOptions controls how a Search runs, as opposed to what it explores.
type SearchOptions struct {
	// Rand drives fold assignment and labelset sampling. Each fold gets its
	// own source seeded from Rand, so results do not depend on scheduling.
	// If nil, a time-seeded source is used.
	Rand *rand.Rand

	// Concurrency is the maximum number of folds evaluated at once.
	// If 0, GOMAXPROCS is used. The base trainer must be safe for concurrent
	// use unless this is 1.
	Concurrency int

	// Verbose, if true, enables logging.
	Verbose bool
}

// A SearchState is a configuration together with its mean cross-validated
// Hamming loss.
type SearchState struct {
	SubsetSize int
	NumModels  int
	Threshold  float64
	Loss       float64
}

// A SearchPoint is one evaluated configuration of the grid.
type SearchPoint struct {
	SearchState

	// FoldLosses holds the loss of each completed fold.
	FoldLosses []float64
}

// A FoldError reports a fold that could not be evaluated.
type FoldError struct {
	Fold int
	Err  error
}

func (f *FoldError) Error() string {
	return fmt.Sprintf("fold %d: %v", f.Fold, f.Err)
}

func (f *FoldError) Unwrap() error {
	return f.Err
}

// SearchResult is the outcome of a Search.
type SearchResult struct {
	// Best is the configuration with the lowest mean loss. Ties go to the
	// configuration visited first, in order of subset size, then ensemble
	// size, then threshold.
	Best SearchState

	// Grid lists every evaluated configuration in visiting order.
	Grid []SearchPoint

	// History lists each strict improvement of the best configuration.
	History []SearchState

	CompletedFolds int
	FoldErrors     []*FoldError
}

// Search selects a subset size, ensemble size and threshold by
// cross-validated Hamming loss.
//
// For each fold and subset size, a single ensemble is grown one slot at a
// time. Each new slot is absorbed into a running vote tally on the held-out
// examples and then released, and every threshold is evaluated against the
// tally. Thus each (k, m) pair costs one additional slot, and thresholds are
// nearly free.
//
// While an ensemble is still small, some labels may have no votes; these are
// treated as negative.
func Search(data *Dataset, base Trainer, cfg SearchConfig, opts SearchOptions) (*SearchResult, error) {
	if err := cfg.Validate(data.NumLabels); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "search: no base trainer")
	}
	r := randOrDefault(opts.Rand)
	folds, err := data.Folds(cfg.NumFolds, r)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}
	seeds := make([]int64, len(folds))
	for i := range seeds {
		seeds[i] = r.Int63()
	}

	losses := make([][]float64, len(folds))
	errs := make([]error, len(folds))
	essentials.ConcurrentMap(opts.Concurrency, len(folds), func(i int) {
		foldRand := rand.New(rand.NewSource(seeds[i]))
		losses[i], errs[i] = foldLosses(data, folds[i], base, &cfg, foldRand)
		if opts.Verbose && errs[i] == nil {
			logger.Printf("evaluated fold %d/%d", i+1, len(folds))
		}
	})

	result := &SearchResult{}
	var completed [][]float64
	for i, err := range errs {
		if err != nil {
			if cfg.PropagateFoldErrors {
				return nil, errors.Wrap(&FoldError{Fold: i, Err: err}, "search")
			}
			if opts.Verbose {
				logger.Printf("fold %d failed: %v", i, err)
			}
			result.FoldErrors = append(result.FoldErrors, &FoldError{Fold: i, Err: err})
			continue
		}
		completed = append(completed, losses[i])
	}
	if len(completed) == 0 {
		return nil, errors.Wrap(result.FoldErrors[0], "search: every fold failed")
	}
	result.CompletedFolds = len(completed)
	result.selectBest(data.NumLabels, &cfg, completed)
	if math.IsInf(result.Best.Loss, 1) {
		return nil, errors.New("search: no configuration produced a finite loss")
	}
	return result, nil
}

// selectBest averages the fold losses of every grid point, in the order
// foldLosses produced them, and tracks the best one.
func (s *SearchResult) selectBest(numLabels int, cfg *SearchConfig, foldLosses [][]float64) {
	s.Best = SearchState{Loss: math.Inf(1)}
	thresholds := cfg.Sweep().Thresholds()
	var idx int
	for _, k := range cfg.SubsetSizes() {
		for m := 1; m <= cfg.MaxModels(numLabels, k); m++ {
			for _, threshold := range thresholds {
				point := SearchPoint{
					SearchState: SearchState{
						SubsetSize: k,
						NumModels:  m,
						Threshold:  threshold,
					},
					FoldLosses: make([]float64, len(foldLosses)),
				}
				for f, l := range foldLosses {
					point.FoldLosses[f] = l[idx]
				}
				point.Loss = stat.Mean(point.FoldLosses, nil)
				s.Grid = append(s.Grid, point)
				if point.Loss < s.Best.Loss {
					s.Best = point.SearchState
					s.History = append(s.History, s.Best)
				}
				idx++
			}
		}
	}
}

// foldLosses evaluates the whole grid on one fold, returning the losses
// ordered by subset size, then ensemble size, then threshold.
func foldLosses(data *Dataset, fold Fold, base Trainer, cfg *SearchConfig,
	r *rand.Rand) ([]float64, error) {
	train := data.Subset(fold.Train)
	test := data.Subset(fold.Test)
	truths := test.Truths()
	sweep := cfg.Sweep()

	var res []float64
	for _, k := range cfg.SubsetSizes() {
		numModels := cfg.MaxModels(data.NumLabels, k)
		ensemble := &Ensemble{
			numLabels:   data.NumLabels,
			numModels:   numModels,
			subsetSize:  k,
			threshold:   DefaultThreshold,
			base:        base,
			rand:        r,
			concurrency: 1,
		}
		acc := NewVoteAccumulator(test.Len(), data.NumLabels)
		for j := 0; j < numModels; j++ {
			slot, err := ensemble.AddSlot(train)
			if err != nil {
				return nil, errors.Wrapf(err, "subset size %d", k)
			}
			err = acc.Absorb(slot, test)
			slot.Release()
			if err != nil {
				return nil, errors.Wrapf(err, "subset size %d", k)
			}
			outcomes, err := acc.Outcomes(truths)
			if err != nil {
				return nil, err
			}
			res = append(res, SweepHammingLoss(outcomes, sweep)...)
		}
	}
	return res, nil
}
