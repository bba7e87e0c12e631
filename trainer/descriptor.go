package trainer

import (
	"math"

	"github.com/atomlearn/atomlearn/atoms"
)

// rbfDescriptor maps a geometry to a fixed-length feature vector: Gaussian
// radial basis functions accumulated over all pair distances up to the
// cutoff. The representation is invariant under translation, rotation and
// permutation, and its gradient with respect to positions is analytic, so a
// linear model on top of it yields consistent forces.
type rbfDescriptor struct {
	centers []float64
	width   float64
	cutoff  float64
}

func newRBFDescriptor(nCenters int, rMin, cutoff float64) *rbfDescriptor {
	d := &rbfDescriptor{
		centers: make([]float64, nCenters),
		cutoff:  cutoff,
	}
	if nCenters == 1 {
		d.centers[0] = (rMin + cutoff) / 2
		d.width = cutoff - rMin
		return d
	}
	h := (cutoff - rMin) / float64(nCenters-1)
	for k := range d.centers {
		d.centers[k] = rMin + float64(k)*h
	}
	d.width = h
	return d
}

func (d *rbfDescriptor) size() int {
	return len(d.centers)
}

// gauss evaluates basis k at distance r, returning the value and its
// derivative with respect to r.
func (d *rbfDescriptor) gauss(k int, r float64) (g, dgdr float64) {
	u := (r - d.centers[k]) / d.width
	g = math.Exp(-0.5 * u * u)
	dgdr = -g * u / d.width
	return g, dgdr
}

// features returns the raw feature vector of a geometry.
func (d *rbfDescriptor) features(a *atoms.Atoms) []float64 {
	phi := make([]float64, d.size())
	n := a.NumAtoms()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := a.Distance(i, j)
			if d.cutoff > 0 && r > d.cutoff {
				continue
			}
			for k := range d.centers {
				g, _ := d.gauss(k, r)
				phi[k] += g
			}
		}
	}
	return phi
}

// pairDerivative evaluates sum_k coeff[k] * dphi_k/dr at distance r. The
// model's force on an atom follows from this via the usual pair-potential
// chain rule.
func (d *rbfDescriptor) pairDerivative(coeff []float64, r float64) float64 {
	s := 0.0
	for k := range d.centers {
		_, dgdr := d.gauss(k, r)
		s += coeff[k] * dgdr
	}
	return s
}
