package learner

import (
	"context"
	"math"
	"sync"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/imagedb"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/pkg/log"
	"github.com/atomlearn/atomlearn/trainer"
)

// OnlineConfig holds the options of the online learner.
type OnlineConfig struct {
	// StatUncertainTol is the static uncertainty tolerance: a prediction
	// with uncertainty above it always triggers a parent query.
	StatUncertainTol float64 `yaml:"stat_uncertain_tol"`

	// DynUncertainTol scales with the current max force: the effective
	// tolerance is max(DynUncertainTol * fmax, StatUncertainTol).
	DynUncertainTol float64 `yaml:"dyn_uncertain_tol"`

	// FmaxVerifyThreshold forces a parent verification once the predicted
	// max force drops to this value, i.e. near apparent convergence. Zero
	// disables verification.
	FmaxVerifyThreshold float64 `yaml:"fmax_verify_threshold"`

	// MaxParentCalls caps parent queries; once spent, surrogate results
	// are served with an UncertaintyWarning. Zero means unlimited.
	MaxParentCalls int `yaml:"max_parent_calls"`
}

// Validate checks the configuration.
func (c *OnlineConfig) Validate() error {
	if c.StatUncertainTol < 0 {
		return errors.NewConfigurationError("stat_uncertain_tol", "must be >= 0", c.StatUncertainTol)
	}
	if c.DynUncertainTol < 0 {
		return errors.NewConfigurationError("dyn_uncertain_tol", "must be >= 0", c.DynUncertainTol)
	}
	if c.StatUncertainTol == 0 && c.DynUncertainTol == 0 {
		return errors.NewConfigurationError("stat_uncertain_tol", "at least one uncertainty tolerance must be positive", 0)
	}
	if c.FmaxVerifyThreshold < 0 {
		return errors.NewConfigurationError("fmax_verify_threshold", "must be >= 0", c.FmaxVerifyThreshold)
	}
	if c.MaxParentCalls < 0 {
		return errors.NewConfigurationError("max_parent_calls", "must be >= 0", c.MaxParentCalls)
	}
	return nil
}

// OnlineOption configures an OnlineLearner.
type OnlineOption func(*OnlineLearner)

// WithOnlineLogger sets the logger.
func WithOnlineLogger(l log.Logger) OnlineOption {
	return func(o *OnlineLearner) {
		o.logger = l
	}
}

// WithOnlineStore attaches a queried-images store; every parent query is
// recorded to it.
func WithOnlineStore(s *imagedb.Store) OnlineOption {
	return func(o *OnlineLearner) {
		o.store = s
	}
}

// OnlineLearner is a calculator that answers from the surrogate model when
// it is trustworthy and falls back to the parent, retraining on the new
// label, when the prediction is too uncertain, when fewer than two labeled
// points exist, or when the geometry looks converged and deserves
// verification. Unlike the offline loop it updates after every single
// query, and it trains on raw parent labels rather than deltas.
type OnlineLearner struct {
	cfg    OnlineConfig
	ml     trainer.Trainer
	up     trainer.UncertaintyPredictor
	parent calc.Calculator
	store  *imagedb.Store
	logger log.Logger

	mu          sync.Mutex
	dataset     []atoms.Image
	needsTrain  bool
	parentCalls int
	step        int
}

var _ calc.Calculator = (*OnlineLearner)(nil)

// NewOnline creates an online learner. The trainer must support uncertainty
// estimates; seed images (parent-labeled) may be empty.
func NewOnline(cfg OnlineConfig, ml trainer.Trainer, parent calc.Calculator, seed []atoms.Image, opts ...OnlineOption) (*OnlineLearner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ml == nil {
		return nil, errors.NewConfigurationError("trainer", "is required", nil)
	}
	up, ok := ml.(trainer.UncertaintyPredictor)
	if !ok {
		return nil, errors.NewConfigurationError("trainer",
			"online learning requires a trainer with PredictWithStd", nil)
	}
	if parent == nil {
		return nil, errors.NewConfigurationError("parent_calc", "is required", nil)
	}

	o := &OnlineLearner{
		cfg:        cfg,
		ml:         ml,
		up:         up,
		parent:     parent,
		dataset:    append([]atoms.Image(nil), seed...),
		needsTrain: len(seed) > 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLogger().With(log.ComponentKey, "online-learner")
	}
	return o, nil
}

// Name implements calc.Calculator.
func (o *OnlineLearner) Name() string { return "online-learner" }

// Compute implements calc.Calculator.
func (o *OnlineLearner) Compute(ctx context.Context, a *atoms.Atoms) (*atoms.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.step++

	// With fewer than two labeled points the uncertainty estimate is
	// meaningless, so go straight to the parent.
	if len(o.dataset) < 2 {
		return o.addDataAndRetrain(ctx, a, nil)
	}

	if o.needsTrain {
		if err := o.ml.Train(ctx, o.dataset); err != nil {
			return nil, err
		}
		o.needsTrain = false
	}

	res, std, err := o.up.PredictWithStd(a)
	if err != nil {
		return nil, err
	}

	fmax := res.Fmax()
	tol := math.Max(o.cfg.DynUncertainTol*fmax, o.cfg.StatUncertainTol)
	unsafe := std > tol
	verify := o.cfg.FmaxVerifyThreshold > 0 && fmax <= o.cfg.FmaxVerifyThreshold

	if !unsafe && !verify {
		return res, nil
	}

	reason := "uncertain prediction"
	if !unsafe {
		reason = "force below verification threshold"
	}
	o.logger.Debug("parent query",
		log.OperationKey, "compute",
		log.UncertaintyKey, std,
		log.FmaxKey, fmax,
		"tolerance", tol,
		"reason", reason,
	)
	return o.addDataAndRetrain(ctx, a, &fallback{result: res, std: std, tol: tol})
}

// fallback carries the surrogate prediction to serve when the parent-call
// budget is exhausted.
type fallback struct {
	result *atoms.Result
	std    float64
	tol    float64
}

func (o *OnlineLearner) addDataAndRetrain(ctx context.Context, a *atoms.Atoms, fb *fallback) (*atoms.Result, error) {
	if o.cfg.MaxParentCalls > 0 && o.parentCalls >= o.cfg.MaxParentCalls {
		if fb == nil {
			return nil, errors.NewCalculatorError(o.Name(), "compute",
				errors.Newf("parent-call budget of %d exhausted before the model was usable", o.cfg.MaxParentCalls))
		}
		errors.Warn(errors.NewUncertaintyWarning(fb.std, fb.tol,
			"parent-call budget exhausted"))
		return fb.result, nil
	}

	res, err := o.parent.Compute(ctx, a)
	if err != nil {
		return nil, errors.NewCalculatorError(o.parent.Name(), "compute", err)
	}
	o.parentCalls++
	o.dataset = append(o.dataset, atoms.NewImage(a, res))

	if o.store != nil {
		if err := o.store.Insert(ctx, o.step, atoms.NewImage(a, res)); err != nil {
			o.logger.Warn("failed to record queried image", err)
		}
	}

	if len(o.dataset) >= 2 {
		if err := o.ml.Train(ctx, o.dataset); err != nil {
			return nil, err
		}
		o.needsTrain = false
	}
	return res, nil
}

// ParentCalls returns the number of parent queries made so far.
func (o *OnlineLearner) ParentCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.parentCalls
}

// DatasetSize returns the current number of labeled images.
func (o *OnlineLearner) DatasetSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.dataset)
}
