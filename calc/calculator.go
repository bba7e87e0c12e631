// Package calc defines the calculator contract consumed by the
// active-learning loop and provides the delta calculator, call-counting
// wrapper, and a few analytic pair potentials used by tests and the demo
// CLI. Real parent calculators (DFT codes and the like) live outside this
// module and only need to satisfy the Calculator interface.
package calc

import (
	"context"

	"github.com/atomlearn/atomlearn/atoms"
)

// Calculator is an energy/force oracle. Compute must be safe for concurrent
// use: batch labeling may evaluate several geometries at once.
type Calculator interface {
	// Name identifies the calculator in logs and errors.
	Name() string

	// Compute evaluates energy and forces for a configuration. A failed
	// evaluation returns a CalculatorError; the loop performs no retry.
	Compute(ctx context.Context, a *atoms.Atoms) (*atoms.Result, error)
}

// Predictor is the prediction half of a trainer, accepted here so a trained
// model can stand in as a calculator without this package importing the
// trainer package.
type Predictor interface {
	Predict(a *atoms.Atoms) (*atoms.Result, error)
}

// predictorCalc adapts a Predictor to the Calculator interface.
type predictorCalc struct {
	name string
	p    Predictor
}

// FromPredictor wraps a trained model as a Calculator.
func FromPredictor(name string, p Predictor) Calculator {
	return &predictorCalc{name: name, p: p}
}

func (c *predictorCalc) Name() string { return c.name }

func (c *predictorCalc) Compute(_ context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	return c.p.Predict(a)
}
