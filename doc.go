// Package atomlearn provides an offline active-learning toolkit for training
// surrogate interatomic potentials against an expensive reference calculator.
//
// The library implements a delta-learning loop: a cheap base potential
// captures the rough physics, a machine-learned model is trained on the
// difference to the expensive parent calculator, and structure relaxation
// runs under the combined surrogate. Each round relaxes the structure,
// queries the most informative candidate geometries, labels them with the
// parent, and retrains.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/atomlearn/atomlearn/calc"
//	    "github.com/atomlearn/atomlearn/learner"
//	    "github.com/atomlearn/atomlearn/relax"
//	    "github.com/atomlearn/atomlearn/trainer"
//	)
//
//	func main() {
//	    parent := calc.NewMorse()
//	    base := calc.NewSprings()
//	    // seed: parent-labeled starting images (see atoms.NewImage)
//	    cfg := learner.Config{MaxIterations: 5, SamplesToRetrain: 2, Filename: "relax"}
//
//	    ol, err := learner.NewOffline(cfg,
//	        relax.NewFIRE(start, 0.05, 200),
//	        trainer.NewDeltaRidge(),
//	        parent, base, seed)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := ol.Learn(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - atoms: atomic configurations, calculation results, fingerprints
//   - calc: the Calculator interface, delta combination, analytic pair potentials
//   - trainer: the Trainer interface and a delta ridge-regression model
//   - relax: FIRE relaxation and velocity-Verlet sampling
//   - learner: the offline loop, query strategies, and an online learner
//   - traj: extended-XYZ trajectory reading and writing
//   - imagedb: SQLite store of queried images
//   - metrics: energy and force error metrics
//   - report: learning-curve plots
package atomlearn
