// Package relax provides the atomistic methods driven by the
// active-learning loop: a FIRE geometry relaxation and a velocity-Verlet
// sampler. Both run under an arbitrary calculator and report every visited
// configuration, which is exactly the candidate pool the loop queries from.
package relax

import (
	"context"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/traj"
)

// Outcome summarizes one run of an atomistic method.
type Outcome struct {
	// Images are the visited configurations with the calculator's results
	// attached, in visit order. The last image is the final geometry.
	Images []atoms.Image

	// Fmax is the maximum force norm on the final geometry.
	Fmax float64

	// FmaxTarget is the convergence threshold the method was run with
	// (zero for samplers without a force criterion).
	FmaxTarget float64

	// Steps is the number of steps actually taken.
	Steps int

	// Converged reports whether the force criterion stopped the run before
	// the step budget did.
	Converged bool
}

// Final returns the last visited image. It must not be called on an
// Outcome with no Images.
func (o *Outcome) Final() atoms.Image {
	return o.Images[len(o.Images)-1]
}

// Method is an atomistic procedure the loop can drive: it evaluates the
// supplied calculator along some path from a fixed starting geometry. Each
// Run restarts from the starting geometry, so successive rounds explore
// under successively better surrogates. When w is non-nil every visited
// frame is appended to it. A successful Run must return an Outcome with at
// least one image: the starting geometry counts as visited even when the
// method takes no steps.
type Method interface {
	Run(ctx context.Context, c calc.Calculator, w *traj.Writer) (*Outcome, error)
}

// record appends the frame to the outcome and, when a writer is attached,
// to the trajectory file.
func record(o *Outcome, w *traj.Writer, a *atoms.Atoms, res *atoms.Result) error {
	img := atoms.NewImage(a, res)
	o.Images = append(o.Images, img)
	if w != nil {
		return w.WriteFrame(img)
	}
	return nil
}
