package atoms

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/pkg/errors"
)

// Result is a single-point evaluation: a potential energy and the per-atom
// forces (n x 3, eV/A).
type Result struct {
	Energy float64
	Forces *mat.Dense
}

// NewResult creates a Result, copying the force matrix. forces may be nil
// for energy-only results.
func NewResult(energy float64, forces *mat.Dense) *Result {
	res := &Result{Energy: energy}
	if forces != nil {
		r, c := forces.Dims()
		res.Forces = mat.NewDense(r, c, nil)
		res.Forces.Copy(forces)
	}
	return res
}

// Fmax returns the maximum per-atom force norm, or 0 when no forces are
// attached.
func (r *Result) Fmax() float64 {
	if r.Forces == nil {
		return 0
	}
	n, _ := r.Forces.Dims()
	maxNorm := 0.0
	for i := 0; i < n; i++ {
		fx := r.Forces.At(i, 0)
		fy := r.Forces.At(i, 1)
		fz := r.Forces.At(i, 2)
		norm := math.Sqrt(fx*fx + fy*fy + fz*fz)
		if norm > maxNorm {
			maxNorm = norm
		}
	}
	return maxNorm
}

// Copy returns a deep copy.
func (r *Result) Copy() *Result {
	return NewResult(r.Energy, r.Forces)
}

// combine returns a new Result with energy w1*a.E + w2*b.E + offset and
// forces w1*a.F + w2*b.F. Force matrices must agree in shape when both are
// present; a result missing forces drops forces from the output.
func combine(a, b *Result, w1, w2, offset float64, op string) (*Result, error) {
	out := &Result{Energy: w1*a.Energy + w2*b.Energy + offset}
	if a.Forces == nil || b.Forces == nil {
		return out, nil
	}
	ra, ca := a.Forces.Dims()
	rb, cb := b.Forces.Dims()
	if ra != rb {
		return nil, errors.NewGeometryError(op, ra, rb, 0)
	}
	if ca != cb {
		return nil, errors.NewGeometryError(op, ca, cb, 1)
	}
	out.Forces = mat.NewDense(ra, ca, nil)
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			out.Forces.Set(i, j, w1*a.Forces.At(i, j)+w2*b.Forces.At(i, j))
		}
	}
	return out, nil
}

// Sub returns r - other with the given energy offset added. Used to build
// delta-learning targets (parent minus base, shifted by the reference
// energies).
func (r *Result) Sub(other *Result, offset float64) (*Result, error) {
	return combine(r, other, 1, -1, offset, "Result.Sub")
}

// Add returns r + other with the given energy offset added. Used to compose
// the corrected surrogate (predicted delta plus base, shifted back by the
// reference energies).
func (r *Result) Add(other *Result, offset float64) (*Result, error) {
	return combine(r, other, 1, 1, offset, "Result.Add")
}

// Image is a labeled configuration: a geometry with an attached single-point
// result. The training set of the active-learning loop is a slice of
// Images.
type Image struct {
	Atoms  *Atoms
	Result *Result
}

// NewImage attaches a result to a copy of the geometry.
func NewImage(a *Atoms, res *Result) Image {
	return Image{Atoms: a.Copy(), Result: res.Copy()}
}
