package relax

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/traj"
)

// FIRE is the Fast Inertial Relaxation Engine (Bitzek et al., 2006) with
// unit masses. It stops when the maximum force norm drops to Fmax or after
// Steps force calls, whichever comes first.
type FIRE struct {
	Start *atoms.Atoms // starting geometry, copied on each Run
	Fmax  float64      // force convergence threshold (eV/A)
	Steps int          // step budget

	// Integration parameters; zero values take the standard defaults.
	Dt      float64
	DtMax   float64
	MaxStep float64 // per-coordinate displacement clamp
}

const (
	fireNMin    = 5
	fireFInc    = 1.1
	fireFDec    = 0.5
	fireAlpha   = 0.1
	fireFAlpha  = 0.99
	fireDt      = 0.1
	fireDtMax   = 1.0
	fireMaxStep = 0.2
)

// NewFIRE creates a FIRE relaxation for the given starting geometry.
func NewFIRE(start *atoms.Atoms, fmax float64, steps int) *FIRE {
	return &FIRE{Start: start, Fmax: fmax, Steps: steps}
}

// Run implements Method.
func (f *FIRE) Run(ctx context.Context, c calc.Calculator, w *traj.Writer) (*Outcome, error) {
	if f.Start == nil {
		return nil, errors.NewValueError("FIRE.Run", "no starting geometry")
	}
	if f.Fmax <= 0 {
		return nil, errors.NewValueError("FIRE.Run", "fmax must be positive")
	}
	if f.Steps < 1 {
		return nil, errors.NewValueError("FIRE.Run", "step budget must be at least 1")
	}

	dt := f.Dt
	if dt == 0 {
		dt = fireDt
	}
	dtMax := f.DtMax
	if dtMax == 0 {
		dtMax = fireDtMax
	}
	maxStep := f.MaxStep
	if maxStep == 0 {
		maxStep = fireMaxStep
	}

	a := f.Start.Copy()
	n := a.NumAtoms()
	vel := mat.NewDense(n, 3, nil)
	alpha := fireAlpha
	nPos := 0

	out := &Outcome{FmaxTarget: f.Fmax}

	for step := 0; step < f.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		res, err := c.Compute(ctx, a)
		if err != nil {
			return nil, err
		}
		if err := record(out, w, a, res); err != nil {
			return nil, err
		}
		out.Steps = step + 1
		out.Fmax = res.Fmax()

		if out.Fmax <= f.Fmax {
			out.Converged = true
			return out, nil
		}

		forces := res.Forces

		// v <- v + dt*F, then the FIRE mixing and timestep update.
		vel.Add(vel, scale(dt, forces))
		p := dot(forces, vel)
		if p > 0 {
			vNorm := frobNorm(vel)
			fNorm := frobNorm(forces)
			if fNorm > 0 {
				mix := alpha * vNorm / fNorm
				for i := 0; i < n; i++ {
					for j := 0; j < 3; j++ {
						vel.Set(i, j, (1-alpha)*vel.At(i, j)+mix*forces.At(i, j))
					}
				}
			}
			nPos++
			if nPos > fireNMin {
				dt = math.Min(dt*fireFInc, dtMax)
				alpha *= fireFAlpha
			}
		} else {
			vel.Zero()
			dt *= fireFDec
			alpha = fireAlpha
			nPos = 0
		}

		// x <- x + dt*v with a displacement clamp.
		pos := a.Positions()
		for i := 0; i < n; i++ {
			for j := 0; j < 3; j++ {
				d := dt * vel.At(i, j)
				if d > maxStep {
					d = maxStep
				} else if d < -maxStep {
					d = -maxStep
				}
				pos.Set(i, j, pos.At(i, j)+d)
			}
		}
		if err := a.SetPositions(pos); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func scale(s float64, m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(s, m)
	return out
}

func dot(a, b *mat.Dense) float64 {
	r, c := a.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s += a.At(i, j) * b.At(i, j)
		}
	}
	return s
}

func frobNorm(m *mat.Dense) float64 {
	return math.Sqrt(dot(m, m))
}
