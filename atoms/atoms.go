// Package atoms defines the atomic-configuration value types shared by the
// calculators, trainers and the active-learning loop: the geometry itself,
// single-point evaluation results, and labeled training images.
package atoms

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/pkg/errors"
)

// Atoms is an atomic configuration: atomic numbers plus Cartesian positions
// in Angstrom. The zero value is not usable; construct with New.
type Atoms struct {
	numbers   []int
	positions *mat.Dense // n x 3
	cell      *mat.Dense // 3 x 3, nil for non-periodic systems
}

// New creates an Atoms from atomic numbers and an n x 3 position matrix.
// The inputs are copied.
func New(numbers []int, positions *mat.Dense) (*Atoms, error) {
	if len(numbers) == 0 {
		return nil, errors.NewValueError("atoms.New", "no atoms")
	}
	r, c := positions.Dims()
	if r != len(numbers) {
		return nil, errors.NewGeometryError("atoms.New", len(numbers), r, 0)
	}
	if c != 3 {
		return nil, errors.NewGeometryError("atoms.New", 3, c, 1)
	}

	a := &Atoms{
		numbers:   make([]int, len(numbers)),
		positions: mat.NewDense(r, 3, nil),
	}
	copy(a.numbers, numbers)
	a.positions.Copy(positions)
	return a, nil
}

// NumAtoms returns the number of atoms.
func (a *Atoms) NumAtoms() int {
	return len(a.numbers)
}

// Numbers returns a copy of the atomic numbers.
func (a *Atoms) Numbers() []int {
	out := make([]int, len(a.numbers))
	copy(out, a.numbers)
	return out
}

// Positions returns a copy of the n x 3 position matrix.
func (a *Atoms) Positions() *mat.Dense {
	n := a.NumAtoms()
	out := mat.NewDense(n, 3, nil)
	out.Copy(a.positions)
	return out
}

// Position returns the Cartesian position of atom i.
func (a *Atoms) Position(i int) (x, y, z float64) {
	return a.positions.At(i, 0), a.positions.At(i, 1), a.positions.At(i, 2)
}

// SetPositions replaces the positions. The matrix must be n x 3.
func (a *Atoms) SetPositions(p *mat.Dense) error {
	r, c := p.Dims()
	if r != a.NumAtoms() {
		return errors.NewGeometryError("Atoms.SetPositions", a.NumAtoms(), r, 0)
	}
	if c != 3 {
		return errors.NewGeometryError("Atoms.SetPositions", 3, c, 1)
	}
	a.positions.Copy(p)
	return nil
}

// SetCell attaches a 3 x 3 periodic cell. Passing nil clears it.
func (a *Atoms) SetCell(cell *mat.Dense) error {
	if cell == nil {
		a.cell = nil
		return nil
	}
	r, c := cell.Dims()
	if r != 3 || c != 3 {
		return errors.NewGeometryError("Atoms.SetCell", 3, r*c/3, 0)
	}
	a.cell = mat.NewDense(3, 3, nil)
	a.cell.Copy(cell)
	return nil
}

// Cell returns a copy of the periodic cell, or nil for a non-periodic
// system.
func (a *Atoms) Cell() *mat.Dense {
	if a.cell == nil {
		return nil
	}
	out := mat.NewDense(3, 3, nil)
	out.Copy(a.cell)
	return out
}

// Copy returns a deep copy.
func (a *Atoms) Copy() *Atoms {
	cp := &Atoms{
		numbers:   make([]int, len(a.numbers)),
		positions: mat.NewDense(a.NumAtoms(), 3, nil),
	}
	copy(cp.numbers, a.numbers)
	cp.positions.Copy(a.positions)
	if a.cell != nil {
		cp.cell = mat.NewDense(3, 3, nil)
		cp.cell.Copy(a.cell)
	}
	return cp
}

// Distance returns the Euclidean distance between atoms i and j.
func (a *Atoms) Distance(i, j int) float64 {
	dx := a.positions.At(i, 0) - a.positions.At(j, 0)
	dy := a.positions.At(i, 1) - a.positions.At(j, 1)
	dz := a.positions.At(i, 2) - a.positions.At(j, 2)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
