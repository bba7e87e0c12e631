package trainer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/pkg/errors"
)

// scaler standardizes descriptor features to zero mean and unit variance.
// Constant features keep a scale of 1 so transforming them is a no-op shift.
type scaler struct {
	mean  []float64
	scale []float64
}

func (s *scaler) fit(X *mat.Dense) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyDataset, "scaler.fit")
	}

	s.mean = make([]float64, c)
	s.scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.mean[j] = sum / float64(r)
	}

	for j := 0; j < c; j++ {
		sumSq := 0.0
		for i := 0; i < r; i++ {
			d := X.At(i, j) - s.mean[j]
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(r))
		if sd == 0 {
			sd = 1
		}
		s.scale[j] = sd
	}
	return nil
}

// transform standardizes X in place.
func (s *scaler) transform(X *mat.Dense) {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			X.Set(i, j, (X.At(i, j)-s.mean[j])/s.scale[j])
		}
	}
}

// transformRow standardizes a single feature row in place.
func (s *scaler) transformRow(x []float64) {
	for j := range x {
		x[j] = (x[j] - s.mean[j]) / s.scale[j]
	}
}
