// Package traj reads and writes trajectory files in the extended XYZ
// format: one frame per visited geometry, with the frame energy in the
// comment line and per-atom forces in extra columns. The format is plain
// text and interoperable with the usual atomistic tooling.
package traj

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

const propertiesSpec = "species:S:1:pos:R:3:forces:R:3"

// Writer appends frames to an extended XYZ file.
type Writer struct {
	f *os.File
	w *bufio.Writer
}

// Create opens path for writing, truncating any existing file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "traj.Create %s", path)
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteFrame appends one labeled configuration.
func (t *Writer) WriteFrame(img atoms.Image) error {
	a, res := img.Atoms, img.Result
	n := a.NumAtoms()
	if res.Forces != nil {
		fr, _ := res.Forces.Dims()
		if fr != n {
			return errors.NewGeometryError("Writer.WriteFrame", n, fr, 0)
		}
	}

	fmt.Fprintf(t.w, "%d\n", n)
	fmt.Fprintf(t.w, "Properties=%s energy=%.10f\n", propertiesSpec, res.Energy)
	numbers := a.Numbers()
	for i := 0; i < n; i++ {
		x, y, z := a.Position(i)
		var fx, fy, fz float64
		if res.Forces != nil {
			fx = res.Forces.At(i, 0)
			fy = res.Forces.At(i, 1)
			fz = res.Forces.At(i, 2)
		}
		fmt.Fprintf(t.w, "%-3s %16.10f %16.10f %16.10f %16.10f %16.10f %16.10f\n",
			atoms.Symbol(numbers[i]), x, y, z, fx, fy, fz)
	}
	return nil
}

// Close flushes and closes the file.
func (t *Writer) Close() error {
	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return errors.Wrap(err, "traj.Close")
	}
	return errors.Wrap(t.f.Close(), "traj.Close")
}

// ReadFile parses all frames from an extended XYZ file.
func ReadFile(path string) ([]atoms.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "traj.ReadFile %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frames []atoms.Image
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, errors.Newf("traj.ReadFile %s: bad atom count line %q", path, line)
		}

		if !sc.Scan() {
			return nil, errors.Newf("traj.ReadFile %s: truncated frame header", path)
		}
		energy, err := parseEnergy(sc.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "traj.ReadFile %s", path)
		}

		numbers := make([]int, n)
		positions := mat.NewDense(n, 3, nil)
		forces := mat.NewDense(n, 3, nil)
		for i := 0; i < n; i++ {
			if !sc.Scan() {
				return nil, errors.Newf("traj.ReadFile %s: truncated frame body", path)
			}
			fields := strings.Fields(sc.Text())
			if len(fields) < 7 {
				return nil, errors.Newf("traj.ReadFile %s: bad atom line %q", path, sc.Text())
			}
			numbers[i] = atoms.Number(fields[0])
			vals := make([]float64, 6)
			for j := 0; j < 6; j++ {
				v, err := strconv.ParseFloat(fields[j+1], 64)
				if err != nil {
					return nil, errors.Newf("traj.ReadFile %s: bad number %q", path, fields[j+1])
				}
				vals[j] = v
			}
			positions.SetRow(i, vals[:3])
			forces.SetRow(i, vals[3:])
		}

		a, err := atoms.New(numbers, positions)
		if err != nil {
			return nil, err
		}
		frames = append(frames, atoms.Image{
			Atoms:  a,
			Result: &atoms.Result{Energy: energy, Forces: forces},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "traj.ReadFile %s", path)
	}
	return frames, nil
}

func parseEnergy(comment string) (float64, error) {
	for _, tok := range strings.Fields(comment) {
		if strings.HasPrefix(tok, "energy=") {
			return strconv.ParseFloat(strings.TrimPrefix(tok, "energy="), 64)
		}
	}
	return 0, errors.Newf("no energy field in comment line %q", comment)
}
