// Package report renders run artifacts from a finished learning loop,
// currently a learning-curve plot of force convergence and training-set
// growth per round.
package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/atomlearn/atomlearn/learner"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

// LearningCurve writes a PNG plot of the per-round surrogate fmax and
// training-set size to path.
func LearningCurve(history []learner.IterationRecord, path string) error {
	if len(history) == 0 {
		return errors.Wrap(errors.ErrEmptyDataset, "report.LearningCurve")
	}

	p := plot.New()
	p.Title.Text = "Active learning progress"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "fmax (eV/A) / training images"

	fmaxPts := make(plotter.XYs, len(history))
	sizePts := make(plotter.XYs, len(history))
	var parentPts plotter.XYs
	for i, rec := range history {
		fmaxPts[i].X = float64(rec.Iteration)
		fmaxPts[i].Y = rec.Fmax
		sizePts[i].X = float64(rec.Iteration)
		sizePts[i].Y = float64(rec.TrainingImages)
		if rec.ParentFmax > 0 {
			parentPts = append(parentPts, plotter.XY{X: float64(rec.Iteration), Y: rec.ParentFmax})
		}
	}

	fmaxLine, err := plotter.NewLine(fmaxPts)
	if err != nil {
		return errors.Wrap(err, "report.LearningCurve")
	}
	sizeLine, err := plotter.NewLine(sizePts)
	if err != nil {
		return errors.Wrap(err, "report.LearningCurve")
	}
	sizeLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(fmaxLine, sizeLine)
	p.Legend.Add("fmax", fmaxLine)
	p.Legend.Add("training images", sizeLine)

	if len(parentPts) > 0 {
		parentLine, err := plotter.NewLine(parentPts)
		if err != nil {
			return errors.Wrap(err, "report.LearningCurve")
		}
		parentLine.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}
		p.Add(parentLine)
		p.Legend.Add("parent fmax", parentLine)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report.LearningCurve %s", path)
	}
	return nil
}
