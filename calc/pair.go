package calc

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

// pairFunc evaluates a pair potential at distance r, returning the energy
// contribution and its derivative dE/dr.
type pairFunc func(r float64) (e, dEdr float64)

// computePair sums a pair potential over all pairs and accumulates analytic
// forces. A cutoff <= 0 disables the cutoff.
func computePair(a *atoms.Atoms, phi pairFunc, cutoff float64, name string) (*atoms.Result, error) {
	n := a.NumAtoms()
	if n < 2 {
		return nil, errors.NewCalculatorError(name, "compute",
			errors.NewValueError("computePair", "pair potential needs at least two atoms"))
	}

	energy := 0.0
	forces := mat.NewDense(n, 3, nil)

	for i := 0; i < n; i++ {
		xi, yi, zi := a.Position(i)
		for j := i + 1; j < n; j++ {
			xj, yj, zj := a.Position(j)
			dx, dy, dz := xi-xj, yi-yj, zi-zj
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if cutoff > 0 && r > cutoff {
				continue
			}
			if r == 0 {
				return nil, errors.NewCalculatorError(name, "compute",
					errors.NewValueError("computePair", "coincident atoms"))
			}

			e, dEdr := phi(r)
			energy += e

			// F_i = -dE/dr * (r_i - r_j)/r, equal and opposite on j.
			fx := -dEdr * dx / r
			fy := -dEdr * dy / r
			fz := -dEdr * dz / r
			forces.Set(i, 0, forces.At(i, 0)+fx)
			forces.Set(i, 1, forces.At(i, 1)+fy)
			forces.Set(i, 2, forces.At(i, 2)+fz)
			forces.Set(j, 0, forces.At(j, 0)-fx)
			forces.Set(j, 1, forces.At(j, 1)-fy)
			forces.Set(j, 2, forces.At(j, 2)-fz)
		}
	}

	return &atoms.Result{Energy: energy, Forces: forces}, nil
}

// LennardJones is the 12-6 Lennard-Jones pair potential.
type LennardJones struct {
	Epsilon float64 // well depth (eV)
	Sigma   float64 // zero-crossing distance (A)
	Cutoff  float64 // interaction cutoff, 0 for none
}

// NewLennardJones returns a Lennard-Jones calculator with the classic
// reduced-unit defaults.
func NewLennardJones() *LennardJones {
	return &LennardJones{Epsilon: 1.0, Sigma: 1.0}
}

// Name implements Calculator.
func (lj *LennardJones) Name() string { return "lennard-jones" }

// Compute implements Calculator.
func (lj *LennardJones) Compute(_ context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	eps, sig := lj.Epsilon, lj.Sigma
	return computePair(a, func(r float64) (float64, float64) {
		sr6 := math.Pow(sig/r, 6)
		sr12 := sr6 * sr6
		e := 4 * eps * (sr12 - sr6)
		dEdr := -24 * eps * (2*sr12 - sr6) / r
		return e, dEdr
	}, lj.Cutoff, lj.Name())
}

// Morse is the Morse pair potential D*(1-exp(-a(r-r0)))^2 - D.
type Morse struct {
	D      float64 // well depth (eV)
	A      float64 // width parameter (1/A)
	R0     float64 // equilibrium distance (A)
	Cutoff float64
}

// NewMorse returns a Morse calculator roughly matched to the default
// Lennard-Jones well.
func NewMorse() *Morse {
	return &Morse{D: 1.0, A: 6.0 / math.Pow(2, 7.0/6.0), R0: math.Pow(2, 1.0/6.0)}
}

// Name implements Calculator.
func (m *Morse) Name() string { return "morse" }

// Compute implements Calculator.
func (m *Morse) Compute(_ context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	return computePair(a, func(r float64) (float64, float64) {
		ex := math.Exp(-m.A * (r - m.R0))
		e := m.D*(1-ex)*(1-ex) - m.D
		dEdr := 2 * m.D * m.A * ex * (1 - ex)
		return e, dEdr
	}, m.Cutoff, m.Name())
}

// Springs is a harmonic pair potential 0.5*K*(r-R0)^2, a deliberately crude
// base calculator for delta-learning tests.
type Springs struct {
	K      float64 // spring constant (eV/A^2)
	R0     float64 // rest length (A)
	Cutoff float64
}

// NewSprings returns a Springs calculator with unit stiffness at the
// Lennard-Jones minimum distance.
func NewSprings() *Springs {
	return &Springs{K: 1.0, R0: math.Pow(2, 1.0/6.0)}
}

// Name implements Calculator.
func (s *Springs) Name() string { return "springs" }

// Compute implements Calculator.
func (s *Springs) Compute(_ context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	return computePair(a, func(r float64) (float64, float64) {
		d := r - s.R0
		return 0.5 * s.K * d * d, s.K * d
	}, s.Cutoff, s.Name())
}
