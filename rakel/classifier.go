package rakel

// A Trainer fits a sub-model on a projected training view.
//
// Each call to Train must return an independent Model, so that one Trainer
// can serve every slot of an ensemble. Trainers used with a Concurrency other
// than 1 must be safe for concurrent use.
type Trainer interface {
	Train(data *ProjectedSet) (Model, error)
}

// A Model is a trained sub-model for one label subset.
type Model interface {
	// Predict returns one value in [0, 1] per label of the schema's subset.
	Predict(x ProjectedExample) ([]float64, error)
}

// TrainerFunc adapts a function to the Trainer interface.
type TrainerFunc func(data *ProjectedSet) (Model, error)

func (t TrainerFunc) Train(data *ProjectedSet) (Model, error) {
	return t(data)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(x ProjectedExample) ([]float64, error)

func (m ModelFunc) Predict(x ProjectedExample) ([]float64, error) {
	return m(x)
}
