package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

func results(energies []float64, forceVals [][]float64) []atoms.Result {
	out := make([]atoms.Result, len(energies))
	for i, e := range energies {
		out[i] = atoms.Result{Energy: e}
		if forceVals != nil {
			out[i].Forces = mat.NewDense(1, 3, forceVals[i])
		}
	}
	return out
}

func TestEnergyMAE(t *testing.T) {
	ref := results([]float64{1, 2, 3}, nil)
	pred := results([]float64{1.5, 2, 2}, nil)

	mae, err := EnergyMAE(ref, pred)
	if err != nil {
		t.Fatalf("EnergyMAE: %v", err)
	}
	if math.Abs(mae-0.5) > 1e-12 {
		t.Errorf("MAE = %v, want 0.5", mae)
	}
}

func TestEnergyRMSE(t *testing.T) {
	ref := results([]float64{0, 0}, nil)
	pred := results([]float64{3, 4}, nil)

	rmse, err := EnergyRMSE(ref, pred)
	if err != nil {
		t.Fatalf("EnergyRMSE: %v", err)
	}
	want := math.Sqrt(12.5)
	if math.Abs(rmse-want) > 1e-12 {
		t.Errorf("RMSE = %v, want %v", rmse, want)
	}
}

func TestForceMetrics(t *testing.T) {
	ref := results([]float64{0, 0}, [][]float64{
		{1, 0, 0},
		{0, 2, 0},
	})
	pred := results([]float64{0, 0}, [][]float64{
		{0, 0, 0},
		{0, 0, 0},
	})

	mae, err := ForceMAE(ref, pred)
	if err != nil {
		t.Fatalf("ForceMAE: %v", err)
	}
	if math.Abs(mae-0.5) > 1e-12 {
		t.Errorf("ForceMAE = %v, want 0.5", mae)
	}

	rmse, err := ForceRMSE(ref, pred)
	if err != nil {
		t.Fatalf("ForceRMSE: %v", err)
	}
	want := math.Sqrt(5.0 / 6.0)
	if math.Abs(rmse-want) > 1e-12 {
		t.Errorf("ForceRMSE = %v, want %v", rmse, want)
	}

	maxErr, err := MaxForceError(ref, pred)
	if err != nil {
		t.Fatalf("MaxForceError: %v", err)
	}
	if math.Abs(maxErr-2) > 1e-12 {
		t.Errorf("MaxForceError = %v, want 2", maxErr)
	}
}

func TestMetricErrors(t *testing.T) {
	if _, err := EnergyMAE(nil, nil); !errors.Is(err, errors.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}

	ref := results([]float64{1, 2}, nil)
	pred := results([]float64{1}, nil)
	if _, err := EnergyMAE(ref, pred); err == nil {
		t.Error("expected error for mismatched lengths")
	}

	withF := results([]float64{1}, [][]float64{{0, 0, 0}})
	withoutF := results([]float64{1}, nil)
	if _, err := ForceMAE(withF, withoutF); err == nil {
		t.Error("expected error for missing forces")
	}
}
