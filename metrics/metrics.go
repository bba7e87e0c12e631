// Package metrics provides energy and force error metrics for comparing a
// surrogate model against reference calculations.
package metrics

import (
	"math"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

// EnergyMAE computes the mean absolute energy error between reference and
// predicted results.
func EnergyMAE(ref, pred []atoms.Result) (float64, error) {
	if err := checkLengths("EnergyMAE", ref, pred); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range ref {
		sum += math.Abs(ref[i].Energy - pred[i].Energy)
	}
	return sum / float64(len(ref)), nil
}

// EnergyRMSE computes the root mean squared energy error.
func EnergyRMSE(ref, pred []atoms.Result) (float64, error) {
	if err := checkLengths("EnergyRMSE", ref, pred); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range ref {
		d := ref[i].Energy - pred[i].Energy
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ref))), nil
}

// ForceMAE computes the mean absolute force-component error over all atoms
// and Cartesian components.
func ForceMAE(ref, pred []atoms.Result) (float64, error) {
	sum, count, err := forceAccumulate("ForceMAE", ref, pred, func(d float64) float64 {
		return math.Abs(d)
	})
	if err != nil {
		return 0, err
	}
	return sum / float64(count), nil
}

// ForceRMSE computes the root mean squared force-component error.
func ForceRMSE(ref, pred []atoms.Result) (float64, error) {
	sum, count, err := forceAccumulate("ForceRMSE", ref, pred, func(d float64) float64 {
		return d * d
	})
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sum / float64(count)), nil
}

// MaxForceError returns the largest absolute force-component error.
func MaxForceError(ref, pred []atoms.Result) (float64, error) {
	if err := checkLengths("MaxForceError", ref, pred); err != nil {
		return 0, err
	}
	maxErr := 0.0
	for i := range ref {
		if ref[i].Forces == nil || pred[i].Forces == nil {
			return 0, errors.NewValueError("MaxForceError", "result without forces")
		}
		r, c := ref[i].Forces.Dims()
		rp, cp := pred[i].Forces.Dims()
		if r != rp || c != cp {
			return 0, errors.NewGeometryError("MaxForceError", r, rp, 0)
		}
		for a := 0; a < r; a++ {
			for j := 0; j < c; j++ {
				d := math.Abs(ref[i].Forces.At(a, j) - pred[i].Forces.At(a, j))
				if d > maxErr {
					maxErr = d
				}
			}
		}
	}
	return maxErr, nil
}

func checkLengths(op string, ref, pred []atoms.Result) error {
	if len(ref) == 0 {
		return errors.Wrap(errors.ErrEmptyDataset, op)
	}
	if len(ref) != len(pred) {
		return errors.NewGeometryError(op, len(ref), len(pred), 0)
	}
	return nil
}

func forceAccumulate(op string, ref, pred []atoms.Result, f func(d float64) float64) (float64, int, error) {
	if err := checkLengths(op, ref, pred); err != nil {
		return 0, 0, err
	}
	sum := 0.0
	count := 0
	for i := range ref {
		if ref[i].Forces == nil || pred[i].Forces == nil {
			return 0, 0, errors.NewValueError(op, "result without forces")
		}
		r, c := ref[i].Forces.Dims()
		rp, cp := pred[i].Forces.Dims()
		if r != rp || c != cp {
			return 0, 0, errors.NewGeometryError(op, r, rp, 0)
		}
		for a := 0; a < r; a++ {
			for j := 0; j < c; j++ {
				sum += f(ref[i].Forces.At(a, j) - pred[i].Forces.At(a, j))
				count++
			}
		}
	}
	return sum, count, nil
}
