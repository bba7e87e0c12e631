package relax

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
)

func dimer(t *testing.T, r float64) *atoms.Atoms {
	t.Helper()
	a, err := atoms.New([]int{18, 18}, mat.NewDense(2, 3, []float64{
		0, 0, 0,
		r, 0, 0,
	}))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	return a
}

func TestFIRERelaxesDimerToMinimum(t *testing.T) {
	f := NewFIRE(dimer(t, 1.35), 1e-3, 500)
	out, err := f.Run(context.Background(), calc.NewLennardJones(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !out.Converged {
		t.Fatalf("did not converge in %d steps, fmax %v", out.Steps, out.Fmax)
	}
	if out.Fmax > 1e-3 {
		t.Errorf("Fmax = %v, want <= 1e-3", out.Fmax)
	}

	final := out.Final()
	rMin := math.Pow(2, 1.0/6.0)
	if d := final.Atoms.Distance(0, 1); math.Abs(d-rMin) > 1e-2 {
		t.Errorf("final distance %v, want %v", d, rMin)
	}
	if len(out.Images) != out.Steps {
		t.Errorf("recorded %d images over %d steps", len(out.Images), out.Steps)
	}
}

func TestFIREStartGeometryUntouched(t *testing.T) {
	start := dimer(t, 1.35)
	f := NewFIRE(start, 1e-3, 500)
	if _, err := f.Run(context.Background(), calc.NewLennardJones(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := start.Distance(0, 1); math.Abs(d-1.35) > 1e-12 {
		t.Errorf("Run mutated the starting geometry: %v", d)
	}
}

func TestFIREStepBudget(t *testing.T) {
	f := NewFIRE(dimer(t, 1.35), 1e-9, 3)
	out, err := f.Run(context.Background(), calc.NewLennardJones(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Converged {
		t.Error("3 steps should not reach fmax 1e-9")
	}
	if out.Steps != 3 {
		t.Errorf("Steps = %d, want 3", out.Steps)
	}
}

func TestFIREValidation(t *testing.T) {
	if _, err := NewFIRE(nil, 0.05, 10).Run(context.Background(), calc.NewLennardJones(), nil); err == nil {
		t.Error("expected error for nil start")
	}
	if _, err := NewFIRE(dimer(t, 1), 0, 10).Run(context.Background(), calc.NewLennardJones(), nil); err == nil {
		t.Error("expected error for non-positive fmax")
	}
	if _, err := NewFIRE(dimer(t, 1), 0.05, 0).Run(context.Background(), calc.NewLennardJones(), nil); err == nil {
		t.Error("expected error for zero step budget")
	}
}

func TestFIRECanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFIRE(dimer(t, 1.35), 1e-3, 100).Run(ctx, calc.NewLennardJones(), nil)
	if err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestVerletRecordsAllFrames(t *testing.T) {
	v := NewVerlet(dimer(t, math.Pow(2, 1.0/6.0)), 0.01, 10)
	out, err := v.Run(context.Background(), calc.NewLennardJones(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Initial frame plus one per step.
	if len(out.Images) != 11 {
		t.Errorf("recorded %d images, want 11", len(out.Images))
	}
	if out.Steps != 10 {
		t.Errorf("Steps = %d, want 10", out.Steps)
	}
	if out.Converged {
		t.Error("a sampler must never report force convergence")
	}
}

func TestVerletConservesEnergyAtRest(t *testing.T) {
	// Starting at the minimum with zero velocity the dimer must stay put.
	rMin := math.Pow(2, 1.0/6.0)
	v := NewVerlet(dimer(t, rMin), 0.01, 20)
	out, err := v.Run(context.Background(), calc.NewLennardJones(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := out.Final().Atoms.Distance(0, 1); math.Abs(d-rMin) > 1e-6 {
		t.Errorf("dimer drifted from %v to %v", rMin, d)
	}
}

func TestVerletInitialVelocities(t *testing.T) {
	rMin := math.Pow(2, 1.0/6.0)
	v := NewVerlet(dimer(t, rMin), 0.01, 5)
	v.V0 = mat.NewDense(2, 3, []float64{
		-0.1, 0, 0,
		0.1, 0, 0,
	})
	out, err := v.Run(context.Background(), calc.NewLennardJones(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := out.Final().Atoms.Distance(0, 1); math.Abs(d-rMin) < 1e-6 {
		t.Error("initial velocities had no effect")
	}
}

func TestVerletValidation(t *testing.T) {
	if _, err := NewVerlet(dimer(t, 1), 0, 5).Run(context.Background(), calc.NewLennardJones(), nil); err == nil {
		t.Error("expected error for zero timestep")
	}
	v := NewVerlet(dimer(t, 1), 0.01, 5)
	v.V0 = mat.NewDense(3, 3, nil)
	if _, err := v.Run(context.Background(), calc.NewLennardJones(), nil); err == nil {
		t.Error("expected error for mismatched V0 shape")
	}
}
