package imagedb

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "queried_images.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func image(t *testing.T, r, energy float64) atoms.Image {
	t.Helper()
	a, err := atoms.New([]int{18, 18}, mat.NewDense(2, 3, []float64{
		0, 0, 0,
		r, 0, 0,
	}))
	if err != nil {
		t.Fatalf("atoms.New: %v", err)
	}
	forces := mat.NewDense(2, 3, []float64{0.1, 0, 0, -0.1, 0, 0})
	return atoms.Image{Atoms: a, Result: atoms.NewResult(energy, forces)}
}

func TestInsertAndCount(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, 0, image(t, 1.2, -1.5)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, 1, image(t, 1.4, -1.7)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestInsertBatchAndByIteration(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	batch := []atoms.Image{
		image(t, 1.1, -1.0),
		image(t, 1.3, -2.0),
		image(t, 1.5, -3.0),
	}
	if err := s.InsertBatch(ctx, 2, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if err := s.Insert(ctx, 3, image(t, 2.0, -4.0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.ByIteration(ctx, 2)
	if err != nil {
		t.Fatalf("ByIteration: %v", err)
	}
	if len(got) != len(batch) {
		t.Fatalf("ByIteration returned %d images, want %d", len(got), len(batch))
	}

	for i, img := range got {
		if math.Abs(img.Result.Energy-batch[i].Result.Energy) > 1e-12 {
			t.Errorf("image %d energy %v, want %v", i, img.Result.Energy, batch[i].Result.Energy)
		}
		wantD := batch[i].Atoms.Distance(0, 1)
		if d := img.Atoms.Distance(0, 1); math.Abs(d-wantD) > 1e-12 {
			t.Errorf("image %d distance %v, want %v", i, d, wantD)
		}
	}

	empty, err := s.ByIteration(ctx, 99)
	if err != nil {
		t.Fatalf("ByIteration(99): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ByIteration(99) returned %d images", len(empty))
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queried_images.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Insert(ctx, 0, image(t, 1.2, -1.0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	n, err := s2.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}

func TestPositionBlobRoundtrip(t *testing.T) {
	p := mat.NewDense(2, 3, []float64{0.25, -1.5, 3.75, 1e-9, math.Pi, -42})
	buf := encodePositions(p)
	got, err := decodePositions(buf, 2)
	if err != nil {
		t.Fatalf("decodePositions: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if got.At(i, j) != p.At(i, j) {
				t.Errorf("position (%d,%d) = %v, want %v", i, j, got.At(i, j), p.At(i, j))
			}
		}
	}

	if _, err := decodePositions(buf[:8], 2); err == nil {
		t.Error("expected error for short blob")
	}
}
