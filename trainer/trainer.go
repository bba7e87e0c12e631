// Package trainer defines the contract between the active-learning loop and
// the machine-learning model, plus a concrete delta trainer (DeltaRidge)
// used by tests and the demo CLI. Production models (GNN potentials and the
// like) live outside this module and only need to satisfy Trainer.
package trainer

import (
	"context"

	"github.com/atomlearn/atomlearn/atoms"
)

// Trainer is the model contract the loop depends on. Train replaces the
// model state from the full training set each round; Predict evaluates the
// current model on one geometry. The loop never retains trainer internals
// beyond these two operations.
type Trainer interface {
	// Train fits the model to the labeled images. The dataset is passed by
	// reference; the trainer must not mutate it.
	Train(ctx context.Context, ds []atoms.Image) error

	// Predict evaluates energy and forces for one geometry with the current
	// model. Calling Predict before the first Train returns NotFittedError.
	Predict(a *atoms.Atoms) (*atoms.Result, error)
}

// UncertaintyPredictor is implemented by trainers that can attach an
// uncertainty estimate to a prediction. The max-uncertainty query strategy
// and the online learner require it.
type UncertaintyPredictor interface {
	// PredictWithStd returns the prediction and a scalar uncertainty
	// estimate (larger means less trustworthy).
	PredictWithStd(a *atoms.Atoms) (*atoms.Result, float64, error)
}
