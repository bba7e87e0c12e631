// Package learner implements the active-learning control loops: the offline
// learner, which alternates relax-under-surrogate, query, label, retrain
// rounds until convergence or iteration exhaustion, and the online learner,
// a calculator that queries the parent on the fly when the surrogate is
// uncertain.
package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/core/parallel"
	"github.com/atomlearn/atomlearn/imagedb"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/pkg/log"
	"github.com/atomlearn/atomlearn/relax"
	"github.com/atomlearn/atomlearn/trainer"
	"github.com/atomlearn/atomlearn/traj"
)

// Option configures an OfflineLearner.
type Option func(*OfflineLearner)

// WithLogger sets the logger. Defaults to the process-wide logger.
func WithLogger(l log.Logger) Option {
	return func(ol *OfflineLearner) {
		ol.logger = l
	}
}

// WithStore attaches a queried-images store; every labeled batch is
// recorded to it.
func WithStore(s *imagedb.Store) Option {
	return func(ol *OfflineLearner) {
		ol.store = s
	}
}

// WithQueryStrategy overrides the strategy named in the configuration.
func WithQueryStrategy(q QueryStrategy) Option {
	return func(ol *OfflineLearner) {
		ol.query = q
	}
}

// OfflineLearner drives offline active learning: it owns the training set,
// retrains the supplied trainer once per round, and decides when to stop.
// Construct with NewOffline; a learner runs exactly once.
type OfflineLearner struct {
	cfg     Config
	method  relax.Method
	trainer trainer.Trainer
	parent  calc.Calculator
	base    calc.Calculator
	seed    []atoms.Image
	query   QueryStrategy
	store   *imagedb.Store
	logger  log.Logger

	// Delta-learning references, established from the first seed image.
	refParent *atoms.Result
	refBase   *atoms.Result
	deltaSub  *calc.DeltaCalc

	// Mutated only by the Learn goroutine, after the labeling barrier.
	training []atoms.Image
	final    []atoms.Image

	mu        sync.Mutex
	state     State
	outcome   State
	iteration int
	history   []IterationRecord
}

// NewOffline creates an offline learner. The seed images must carry parent
// labels; the first one doubles as the delta reference geometry. The
// configuration is validated here, so a bad config fails before any
// simulation work.
func NewOffline(cfg Config, method relax.Method, tr trainer.Trainer, parent, base calc.Calculator, seed []atoms.Image, opts ...Option) (*OfflineLearner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if method == nil {
		return nil, errors.NewConfigurationError("atomistic_method", "is required", nil)
	}
	if tr == nil {
		return nil, errors.NewConfigurationError("trainer", "is required", nil)
	}
	if parent == nil || base == nil {
		return nil, errors.NewConfigurationError("calculators", "parent and base are required", nil)
	}
	if parent == base {
		return nil, errors.NewConfigurationError("calculators", "parent and base must be distinct", parent.Name())
	}
	if len(seed) == 0 {
		return nil, errors.NewConfigurationError("training_data", "at least one seed image is required", 0)
	}
	for i, img := range seed {
		if img.Atoms == nil || img.Result == nil {
			return nil, errors.NewConfigurationError("training_data",
				fmt.Sprintf("seed image %d has no parent label", i), nil)
		}
	}

	ol := &OfflineLearner{
		cfg:     cfg,
		method:  method,
		trainer: tr,
		parent:  parent,
		base:    base,
		seed:    seed,
		state:   StateInitialized,
	}
	for _, opt := range opts {
		opt(ol)
	}
	if ol.logger == nil {
		ol.logger = log.GetLogger().With(log.ComponentKey, "learner")
	}
	if ol.query == nil {
		q, err := strategyFor(cfg, tr)
		if err != nil {
			return nil, err
		}
		ol.query = q
	}
	return ol, nil
}

func strategyFor(cfg Config, tr trainer.Trainer) (QueryStrategy, error) {
	switch cfg.Query {
	case "", QueryRandom:
		return NewRandomQuery(cfg.Seed), nil
	case QuerySpaced:
		return SpacedQuery{}, nil
	case QueryMaxUncertainty:
		up, ok := tr.(trainer.UncertaintyPredictor)
		if !ok {
			return nil, errors.NewConfigurationError("query",
				"max_uncertainty requires a trainer with PredictWithStd", cfg.Query)
		}
		return NewMaxUncertaintyQuery(up), nil
	default:
		return nil, errors.NewConfigurationError("query", "unknown strategy", cfg.Query)
	}
}

// Learn runs the loop until convergence or iteration exhaustion and writes
// the per-round trajectory files plus a run summary under the configured
// output directory. Exhaustion is reported through Status (and a
// ConvergenceWarning), not as an error; a calculator or trainer failure
// aborts the current round and is returned with the training set from all
// fully labeled rounds intact.
func (ol *OfflineLearner) Learn(ctx context.Context) error {
	ol.mu.Lock()
	if ol.state != StateInitialized {
		ol.mu.Unlock()
		return errors.NewValueError("OfflineLearner.Learn", "learner has already run")
	}
	ol.state = StateRunning
	ol.mu.Unlock()

	if ol.cfg.MaxIterations == 0 {
		// Zero rounds: report exhaustion without touching any
		// collaborator.
		errors.Warn(errors.NewConvergenceWarning("offline active learning", 0,
			"max_iterations is 0"))
		ol.finish(StateExhausted)
		return ol.writeSummary()
	}

	if err := ol.initTrainingData(ctx); err != nil {
		ol.finish(StateFailed)
		return err
	}

	converged := false

	// Each round trains on the current set, relaxes under the corrected
	// surrogate, and then, unless the round terminated the loop, queries and
	// labels a fresh batch from the round's trajectory. A single permitted
	// round therefore still grows the training set by one full batch.
	for r := 0; r < ol.cfg.MaxIterations; r++ {
		// Cancellation is checked at round boundaries only, so in-flight
		// calculator work always completes.
		if err := ctx.Err(); err != nil {
			ol.finish(StateFailed)
			return errors.Wrapf(err, "canceled before round %d", r)
		}

		ol.mu.Lock()
		ol.iteration = r
		ol.mu.Unlock()

		start := time.Now()

		if err := ol.trainer.Train(ctx, ol.training); err != nil {
			ol.finish(StateFailed)
			return errors.Wrapf(err, "round %d: train", r)
		}

		out, err := ol.relaxRound(ctx, r)
		if err != nil {
			ol.finish(StateFailed)
			return errors.Wrapf(err, "round %d", r)
		}

		rec := IterationRecord{
			Iteration:      r,
			TrainingImages: len(ol.training),
			Fmax:           out.Fmax,
			Steps:          out.Steps,
		}

		roundConverged := out.Converged
		if roundConverged && ol.cfg.VerifyWithParent {
			if len(out.Images) == 0 {
				ol.finish(StateFailed)
				return errors.Wrapf(errors.NewValueError("OfflineLearner.Learn",
					"method reported convergence without visiting any configuration"),
					"round %d", r)
			}
			pres, err := ol.parent.Compute(ctx, out.Final().Atoms)
			if err != nil {
				ol.finish(StateFailed)
				return errors.Wrapf(errors.NewCalculatorError(ol.parent.Name(), "verify", err),
					"round %d", r)
			}
			rec.ParentFmax = pres.Fmax()
			roundConverged = rec.ParentFmax <= out.FmaxTarget
		}
		rec.Converged = roundConverged

		if !roundConverged {
			n, err := ol.queryAndLabel(ctx, r, out.Images)
			if err != nil {
				ol.finish(StateFailed)
				return errors.Wrapf(err, "round %d", r)
			}
			rec.Queried = n
		}

		rec.Duration = time.Since(start)

		ol.mu.Lock()
		ol.history = append(ol.history, rec)
		ol.final = out.Images
		ol.mu.Unlock()

		ol.logger.Info("round finished",
			log.IterationKey, r,
			log.ImagesKey, rec.TrainingImages,
			log.BatchKey, rec.Queried,
			log.FmaxKey, rec.Fmax,
			log.StepsKey, rec.Steps,
			"converged", rec.Converged,
			log.DurationMsKey, rec.Duration.Milliseconds(),
		)

		if roundConverged {
			// Tie-break: a round that converges on the last allowed
			// iteration reports convergence, not exhaustion.
			converged = true
			break
		}
	}

	if converged {
		ol.finish(StateConverged)
	} else {
		errors.Warn(errors.NewConvergenceWarning("offline active learning",
			ol.cfg.MaxIterations, ""))
		ol.finish(StateExhausted)
	}
	return ol.writeSummary()
}

// initTrainingData converts the parent-labeled seed images into delta
// training data: the first seed geometry evaluated with parent and base
// becomes the reference pair, and every seed label has the base
// contribution (and the reference offset) subtracted.
func (ol *OfflineLearner) initTrainingData(ctx context.Context) error {
	ol.refParent = ol.seed[0].Result.Copy()
	baseRef, err := ol.base.Compute(ctx, ol.seed[0].Atoms)
	if err != nil {
		return errors.NewCalculatorError(ol.base.Name(), "reference compute", err)
	}
	ol.refBase = baseRef

	deltaSub, err := calc.NewDelta(ol.parent, ol.base, calc.ModeSub, ol.refParent, ol.refBase)
	if err != nil {
		return err
	}
	ol.deltaSub = deltaSub

	offset := ol.refBase.Energy - ol.refParent.Energy
	converted := make([]atoms.Image, 0, len(ol.seed))
	for i, img := range ol.seed {
		baseRes, err := ol.base.Compute(ctx, img.Atoms)
		if err != nil {
			return errors.Wrapf(errors.NewCalculatorError(ol.base.Name(), "seed compute", err),
				"seed image %d", i)
		}
		delta, err := img.Result.Sub(baseRes, offset)
		if err != nil {
			return errors.Wrapf(err, "seed image %d", i)
		}
		converted = append(converted, atoms.NewImage(img.Atoms, delta))
	}
	ol.mu.Lock()
	ol.training = converted
	ol.mu.Unlock()

	ol.logger.Debug("training data initialized", log.ImagesKey, len(ol.training))
	return nil
}

// queryAndLabel selects the round's batch from the round's trajectory,
// labels it with the parent/base delta, and appends the results to the
// training set in selection order. All labeling completes before anything
// is appended: a failed evaluation leaves the training set untouched.
func (ol *OfflineLearner) queryAndLabel(ctx context.Context, round int, candidates []atoms.Image) (int, error) {
	pool := dedupe(candidates)
	batch, err := ol.query.Select(pool, ol.cfg.SamplesToRetrain)
	if err != nil {
		return 0, errors.Wrap(err, "query")
	}
	if len(batch) < ol.cfg.SamplesToRetrain {
		ol.logger.Debug("candidate pool smaller than batch",
			log.BatchKey, len(batch), "requested", ol.cfg.SamplesToRetrain)
	}

	labeled := make([]atoms.Image, len(batch))
	label := func(ctx context.Context, i int) error {
		res, err := ol.deltaSub.Compute(ctx, batch[i].Atoms)
		if err != nil {
			return errors.Wrapf(err, "candidate %d", i)
		}
		labeled[i] = atoms.NewImage(batch[i].Atoms, res)
		return nil
	}

	if ol.cfg.Parallel {
		// MapErr is the synchronization barrier: it returns only after
		// every dispatched evaluation has finished, and labeled is
		// indexed by selection order, so completion order is irrelevant.
		err = parallel.MapErr(ctx, len(batch), ol.cfg.ParallelLimit, label)
	} else {
		for i := range batch {
			if err = label(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		return 0, err
	}

	ol.mu.Lock()
	ol.training = append(ol.training, labeled...)
	ol.mu.Unlock()

	if ol.store != nil {
		if err := ol.store.InsertBatch(ctx, round, labeled); err != nil {
			// The store is an auxiliary artifact; losing it does not
			// invalidate the round.
			ol.logger.Warn("failed to record queried images", err, log.IterationKey, round)
		}
	}
	return len(labeled), nil
}

// relaxRound builds the corrected surrogate and runs the atomistic method
// under it, writing the round's trajectory file.
func (ol *OfflineLearner) relaxRound(ctx context.Context, round int) (*relax.Outcome, error) {
	surrogate := calc.FromPredictor("trained", ol.trainer)
	corrected, err := calc.NewDelta(surrogate, ol.base, calc.ModeAdd, ol.refParent, ol.refBase)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(ol.cfg.FileDir, fmt.Sprintf("%s_iter_%d.extxyz", ol.cfg.Filename, round))
	w, err := traj.Create(path)
	if err != nil {
		return nil, err
	}

	out, runErr := ol.method.Run(ctx, corrected, w)
	closeErr := w.Close()
	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return out, nil
}

func (ol *OfflineLearner) finish(outcome State) {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	ol.state = StateDone
	ol.outcome = outcome
	ol.logger.Info("learning finished", log.StateKey, outcome.String(),
		log.ImagesKey, len(ol.training))
}

// writeSummary persists the iteration history and outcome next to the
// trajectory files.
func (ol *OfflineLearner) writeSummary() error {
	ol.mu.Lock()
	summary := struct {
		Outcome string            `json:"outcome"`
		Rounds  []IterationRecord `json:"rounds"`
	}{
		Outcome: ol.outcome.String(),
		Rounds:  ol.history,
	}
	ol.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "writeSummary")
	}
	path := filepath.Join(ol.cfg.FileDir, ol.cfg.Filename+"_summary.json")
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writeSummary")
}

// Status returns a snapshot of the learner. Safe to call from any
// goroutine.
func (ol *OfflineLearner) Status() Status {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	return Status{
		State:          ol.state,
		Outcome:        ol.outcome,
		Iteration:      ol.iteration,
		TrainingImages: len(ol.training),
	}
}

// History returns the per-round records collected so far.
func (ol *OfflineLearner) History() []IterationRecord {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	out := make([]IterationRecord, len(ol.history))
	copy(out, ol.history)
	return out
}

// TrainingSet returns a copy of the current delta training set.
func (ol *OfflineLearner) TrainingSet() []atoms.Image {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	out := make([]atoms.Image, len(ol.training))
	copy(out, ol.training)
	return out
}

// FinalImages returns the trajectory of the last completed round.
func (ol *OfflineLearner) FinalImages() []atoms.Image {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	out := make([]atoms.Image, len(ol.final))
	copy(out, ol.final)
	return out
}
