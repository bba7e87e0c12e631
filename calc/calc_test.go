package calc

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
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

func TestLennardJonesMinimum(t *testing.T) {
	lj := NewLennardJones()
	rMin := math.Pow(2, 1.0/6.0)
	res, err := lj.Compute(context.Background(), dimer(t, rMin))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if math.Abs(res.Energy-(-lj.Epsilon)) > 1e-10 {
		t.Errorf("energy at minimum = %v, want %v", res.Energy, -lj.Epsilon)
	}
	if f := res.Fmax(); f > 1e-9 {
		t.Errorf("force at minimum = %v, want ~0", f)
	}
}

// numericalForce estimates -dE/dx for atom i, component j by central
// differences.
func numericalForce(t *testing.T, c Calculator, a *atoms.Atoms, i, j int) float64 {
	t.Helper()
	const h = 1e-6

	perturb := func(delta float64) float64 {
		cp := a.Copy()
		pos := cp.Positions()
		pos.Set(i, j, pos.At(i, j)+delta)
		if err := cp.SetPositions(pos); err != nil {
			t.Fatalf("SetPositions: %v", err)
		}
		res, err := c.Compute(context.Background(), cp)
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		return res.Energy
	}

	return -(perturb(h) - perturb(-h)) / (2 * h)
}

func TestPairForcesMatchGradient(t *testing.T) {
	trimer, err := atoms.New([]int{18, 18, 18}, mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1.3, 0.1, -0.2,
		0.4, 1.2, 0.3,
	}))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}

	for _, c := range []Calculator{NewLennardJones(), NewMorse(), NewSprings()} {
		res, err := c.Compute(context.Background(), trimer)
		if err != nil {
			t.Fatalf("%s: Compute: %v", c.Name(), err)
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := numericalForce(t, c, trimer, i, j)
				got := res.Forces.At(i, j)
				if math.Abs(got-want) > 1e-5 {
					t.Errorf("%s: force (%d,%d) = %v, numerical %v", c.Name(), i, j, got, want)
				}
			}
		}
	}
}

func TestMorseMinimum(t *testing.T) {
	m := NewMorse()
	res, err := m.Compute(context.Background(), dimer(t, m.R0))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(res.Energy-(-m.D)) > 1e-10 {
		t.Errorf("energy at r0 = %v, want %v", res.Energy, -m.D)
	}
}

func TestComputePairErrors(t *testing.T) {
	lj := NewLennardJones()

	single, err := atoms.New([]int{18}, mat.NewDense(1, 3, nil))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	if _, err := lj.Compute(context.Background(), single); err == nil {
		t.Error("expected error for a single atom")
	}

	coincident, err := atoms.New([]int{18, 18}, mat.NewDense(2, 3, nil))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	_, err = lj.Compute(context.Background(), coincident)
	var ce *errors.CalculatorError
	if !errors.As(err, &ce) {
		t.Errorf("expected CalculatorError for coincident atoms, got %v", err)
	}
}

func TestCutoffSkipsDistantPairs(t *testing.T) {
	lj := NewLennardJones()
	lj.Cutoff = 2.0
	res, err := lj.Compute(context.Background(), dimer(t, 5.0))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Energy != 0 {
		t.Errorf("energy beyond cutoff = %v, want 0", res.Energy)
	}
}

func TestDeltaCalcRoundtrip(t *testing.T) {
	parent := NewMorse()
	base := NewSprings()
	ref := dimer(t, 1.1)

	refParent, err := parent.Compute(context.Background(), ref)
	if err != nil {
		t.Fatalf("parent reference: %v", err)
	}
	refBase, err := base.Compute(context.Background(), ref)
	if err != nil {
		t.Fatalf("base reference: %v", err)
	}

	sub, err := NewDelta(parent, base, ModeSub, refParent, refBase)
	if err != nil {
		t.Fatalf("NewDelta sub: %v", err)
	}

	// On the reference geometry the delta energy must vanish.
	onRef, err := sub.Compute(context.Background(), ref)
	if err != nil {
		t.Fatalf("sub on reference: %v", err)
	}
	if math.Abs(onRef.Energy) > 1e-12 {
		t.Errorf("delta on reference geometry = %v, want 0", onRef.Energy)
	}

	// sub followed by add recovers the parent on any geometry.
	a := dimer(t, 1.6)
	delta, err := sub.Compute(context.Background(), a)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	deltaCalc := &fixedCalc{name: "delta", res: delta}
	add, err := NewDelta(deltaCalc, base, ModeAdd, refParent, refBase)
	if err != nil {
		t.Fatalf("NewDelta add: %v", err)
	}
	got, err := add.Compute(context.Background(), a)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	want, err := parent.Compute(context.Background(), a)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if math.Abs(got.Energy-want.Energy) > 1e-10 {
		t.Errorf("recombined energy = %v, parent %v", got.Energy, want.Energy)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(got.Forces.At(i, j)-want.Forces.At(i, j)) > 1e-10 {
				t.Errorf("recombined force (%d,%d) = %v, parent %v",
					i, j, got.Forces.At(i, j), want.Forces.At(i, j))
			}
		}
	}
}

type fixedCalc struct {
	name string
	res  *atoms.Result
}

func (c *fixedCalc) Name() string { return c.name }

func (c *fixedCalc) Compute(context.Context, *atoms.Atoms) (*atoms.Result, error) {
	return c.res.Copy(), nil
}

func TestNewDeltaValidation(t *testing.T) {
	m := NewMorse()
	s := NewSprings()
	ref := &atoms.Result{}

	if _, err := NewDelta(nil, s, ModeSub, ref, ref); err == nil {
		t.Error("expected error for nil calculator")
	}
	if _, err := NewDelta(m, m, ModeSub, ref, ref); !errors.Is(err, errors.ErrSameCalculator) {
		t.Errorf("expected ErrSameCalculator, got %v", err)
	}
	if _, err := NewDelta(m, s, Mode(7), ref, ref); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := NewDelta(m, s, ModeSub, nil, ref); err == nil {
		t.Error("expected error for missing reference")
	}
}

func TestCounterCounts(t *testing.T) {
	c := NewCounter(NewLennardJones())
	a := dimer(t, 1.2)
	for i := 0; i < 3; i++ {
		if _, err := c.Compute(context.Background(), a); err != nil {
			t.Fatalf("Compute: %v", err)
		}
	}
	if c.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", c.Calls())
	}
	if c.Name() != "lennard-jones" {
		t.Errorf("Name = %q, want inner name", c.Name())
	}
}

type panicCalc struct{}

func (panicCalc) Name() string { return "panicky" }

func (panicCalc) Compute(context.Context, *atoms.Atoms) (*atoms.Result, error) {
	panic("boom")
}

func TestCounterRecoversPanic(t *testing.T) {
	c := NewCounter(panicCalc{})
	_, err := c.Compute(context.Background(), dimer(t, 1.0))
	if err == nil {
		t.Fatal("expected error from panicking calculator")
	}
	var ce *errors.CalculatorError
	if !errors.As(err, &ce) {
		t.Errorf("expected CalculatorError, got %T: %v", err, err)
	}
	if c.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", c.Calls())
	}
}

func TestFromPredictor(t *testing.T) {
	res := &atoms.Result{Energy: 7}
	c := FromPredictor("stub", predictorFunc(func(*atoms.Atoms) (*atoms.Result, error) {
		return res, nil
	}))
	if c.Name() != "stub" {
		t.Errorf("Name = %q", c.Name())
	}
	got, err := c.Compute(context.Background(), dimer(t, 1))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Energy != 7 {
		t.Errorf("Energy = %v, want 7", got.Energy)
	}
}

type predictorFunc func(a *atoms.Atoms) (*atoms.Result, error)

func (f predictorFunc) Predict(a *atoms.Atoms) (*atoms.Result, error) { return f(a) }
