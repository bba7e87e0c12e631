package relax

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/traj"
)

// Verlet is an NVE velocity-Verlet integrator with unit masses, used to
// generate dynamics-style candidate configurations rather than to relax.
// It always runs the full step budget and never reports force convergence.
type Verlet struct {
	Start *atoms.Atoms
	Dt    float64 // timestep
	Steps int

	// V0 sets the initial velocities (n x 3); nil starts from rest.
	V0 *mat.Dense
}

// NewVerlet creates a velocity-Verlet sampler.
func NewVerlet(start *atoms.Atoms, dt float64, steps int) *Verlet {
	return &Verlet{Start: start, Dt: dt, Steps: steps}
}

// Run implements Method.
func (v *Verlet) Run(ctx context.Context, c calc.Calculator, w *traj.Writer) (*Outcome, error) {
	if v.Start == nil {
		return nil, errors.NewValueError("Verlet.Run", "no starting geometry")
	}
	if v.Dt <= 0 {
		return nil, errors.NewValueError("Verlet.Run", "timestep must be positive")
	}
	if v.Steps < 1 {
		return nil, errors.NewValueError("Verlet.Run", "step budget must be at least 1")
	}

	a := v.Start.Copy()
	n := a.NumAtoms()

	vel := mat.NewDense(n, 3, nil)
	if v.V0 != nil {
		r, cCols := v.V0.Dims()
		if r != n || cCols != 3 {
			return nil, errors.NewGeometryError("Verlet.Run", n, r, 0)
		}
		vel.Copy(v.V0)
	}

	out := &Outcome{}

	res, err := c.Compute(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := record(out, w, a, res); err != nil {
		return nil, err
	}

	for step := 0; step < v.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		// x <- x + v*dt + 0.5*F*dt^2
		pos := a.Positions()
		for i := 0; i < n; i++ {
			for j := 0; j < 3; j++ {
				pos.Set(i, j, pos.At(i, j)+vel.At(i, j)*v.Dt+0.5*res.Forces.At(i, j)*v.Dt*v.Dt)
			}
		}
		if err := a.SetPositions(pos); err != nil {
			return nil, err
		}

		next, err := c.Compute(ctx, a)
		if err != nil {
			return nil, err
		}

		// v <- v + 0.5*(F_old + F_new)*dt
		for i := 0; i < n; i++ {
			for j := 0; j < 3; j++ {
				vel.Set(i, j, vel.At(i, j)+0.5*(res.Forces.At(i, j)+next.Forces.At(i, j))*v.Dt)
			}
		}
		res = next

		if err := record(out, w, a, res); err != nil {
			return nil, err
		}
		out.Steps = step + 1
		out.Fmax = res.Fmax()
	}

	return out, nil
}
