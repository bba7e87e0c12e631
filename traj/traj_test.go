package traj

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
)

func frame(t *testing.T, r, energy float64) atoms.Image {
	t.Helper()
	a, err := atoms.New([]int{18, 29}, mat.NewDense(2, 3, []float64{
		0.1, -0.2, 0.3,
		r, 0, 0,
	}))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	forces := mat.NewDense(2, 3, []float64{
		0.01, 0.02, -0.03,
		-0.01, -0.02, 0.03,
	})
	return atoms.NewImage(a, atoms.NewResult(energy, forces))
}

func TestWriteReadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.extxyz")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []atoms.Image{frame(t, 1.2, -3.5), frame(t, 1.4, -3.9)}
	for _, img := range want {
		if err := w.WriteFrame(img); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d frames, want %d", len(got), len(want))
	}

	for f := range want {
		if math.Abs(got[f].Result.Energy-want[f].Result.Energy) > 1e-9 {
			t.Errorf("frame %d energy %v, want %v", f, got[f].Result.Energy, want[f].Result.Energy)
		}
		wn := want[f].Atoms.Numbers()
		gn := got[f].Atoms.Numbers()
		for i := range wn {
			if wn[i] != gn[i] {
				t.Errorf("frame %d atom %d number %d, want %d", f, i, gn[i], wn[i])
			}
			wx, wy, wz := want[f].Atoms.Position(i)
			gx, gy, gz := got[f].Atoms.Position(i)
			if math.Abs(wx-gx) > 1e-9 || math.Abs(wy-gy) > 1e-9 || math.Abs(wz-gz) > 1e-9 {
				t.Errorf("frame %d atom %d position (%v,%v,%v), want (%v,%v,%v)",
					f, i, gx, gy, gz, wx, wy, wz)
			}
			for j := 0; j < 3; j++ {
				wf := want[f].Result.Forces.At(i, j)
				gf := got[f].Result.Forces.At(i, j)
				if math.Abs(wf-gf) > 1e-9 {
					t.Errorf("frame %d force (%d,%d) = %v, want %v", f, i, j, gf, wf)
				}
			}
		}
	}
}

func TestWriteFrameForceShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.extxyz")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	a, err := atoms.New([]int{18, 18}, mat.NewDense(2, 3, []float64{0, 0, 0, 1, 0, 0}))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	img := atoms.Image{Atoms: a, Result: atoms.NewResult(0, mat.NewDense(3, 3, nil))}
	if err := w.WriteFrame(img); err == nil {
		t.Error("expected error for force row mismatch")
	}
}

func TestReadFileMalformed(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad_count.extxyz":  "two\ncomment\n",
		"no_energy.extxyz":  "1\nProperties=species:S:1:pos:R:3:forces:R:3\nAr 0 0 0 0 0 0\n",
		"truncated.extxyz":  "2\nProperties=x energy=1.0\nAr 0 0 0 0 0 0\n",
		"bad_number.extxyz": "1\nenergy=1.0\nAr zero 0 0 0 0 0\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := ReadFile(path); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.extxyz")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	frames, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("read %d frames from empty file", len(frames))
	}
}
