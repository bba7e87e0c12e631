package calc

import (
	"context"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

// Mode selects how a DeltaCalc combines its two calculators.
type Mode int

const (
	// ModeSub computes first minus second: the delta between parent and
	// base, shifted by the reference energies. Produces training targets.
	ModeSub Mode = iota
	// ModeAdd computes first plus second: the predicted delta recombined
	// with the base, shifted back by the reference energies. Produces the
	// corrected surrogate.
	ModeAdd
)

func (m Mode) String() string {
	if m == ModeAdd {
		return "add"
	}
	return "sub"
}

// DeltaCalc combines two calculators for delta learning.
//
// In sub mode the first calculator must be the parent and the second the
// base; the energy is
//
//	E = E_parent - E_base - E_refParent + E_refBase
//
// so that the delta vanishes on the reference geometry. In add mode the
// first calculator is the trained delta model and the second the base:
//
//	E = E_model + E_base + E_refParent - E_refBase
//
// Forces combine with the same +/- weights and no offset; the constant
// reference shift has zero gradient.
type DeltaCalc struct {
	first, second Calculator
	mode          Mode
	refParent     *atoms.Result
	refBase       *atoms.Result
}

// NewDelta creates a DeltaCalc. The two calculators must be distinct and
// both reference results must be supplied.
func NewDelta(first, second Calculator, mode Mode, refParent, refBase *atoms.Result) (*DeltaCalc, error) {
	if first == nil || second == nil {
		return nil, errors.NewValueError("calc.NewDelta", "both calculators are required")
	}
	if first == second {
		return nil, errors.WithStack(errors.ErrSameCalculator)
	}
	if mode != ModeSub && mode != ModeAdd {
		return nil, errors.NewValueError("calc.NewDelta", "mode must be sub or add")
	}
	if refParent == nil || refBase == nil {
		return nil, errors.NewValueError("calc.NewDelta", "reference results are required")
	}
	return &DeltaCalc{
		first:     first,
		second:    second,
		mode:      mode,
		refParent: refParent,
		refBase:   refBase,
	}, nil
}

// Name implements Calculator.
func (d *DeltaCalc) Name() string {
	return "delta-" + d.mode.String() + "(" + d.first.Name() + "," + d.second.Name() + ")"
}

// Compute implements Calculator. Both legs are evaluated on the same
// geometry and combined according to the mode.
func (d *DeltaCalc) Compute(ctx context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	r1, err := d.first.Compute(ctx, a)
	if err != nil {
		return nil, errors.NewCalculatorError(d.first.Name(), "compute", err)
	}
	r2, err := d.second.Compute(ctx, a)
	if err != nil {
		return nil, errors.NewCalculatorError(d.second.Name(), "compute", err)
	}

	switch d.mode {
	case ModeSub:
		return r1.Sub(r2, d.refBase.Energy-d.refParent.Energy)
	default:
		return r1.Add(r2, d.refParent.Energy-d.refBase.Energy)
	}
}
