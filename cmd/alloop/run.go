package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/calc"
	"github.com/atomlearn/atomlearn/imagedb"
	"github.com/atomlearn/atomlearn/learner"
	"github.com/atomlearn/atomlearn/pkg/errors"
	"github.com/atomlearn/atomlearn/pkg/log"
	"github.com/atomlearn/atomlearn/relax"
	"github.com/atomlearn/atomlearn/report"
	"github.com/atomlearn/atomlearn/trainer"
)

// runConfig is the YAML layout of a run file.
type runConfig struct {
	Learner learner.Config `yaml:"learner"`

	System struct {
		NAtoms     int     `yaml:"natoms"`
		Element    string  `yaml:"element"`
		Spread     float64 `yaml:"spread"`      // initial cluster extent (A)
		Seed       int64   `yaml:"seed"`        // geometry RNG seed
		SeedImages int     `yaml:"seed_images"` // initial parent-labeled images
	} `yaml:"system"`

	Parent calcConfig `yaml:"parent"`
	Base   calcConfig `yaml:"base"`

	Trainer struct {
		Lambda  float64 `yaml:"lambda"`
		Centers int     `yaml:"centers"`
		Cutoff  float64 `yaml:"cutoff"`
	} `yaml:"trainer"`

	Method struct {
		Kind  string  `yaml:"kind"` // fire or verlet
		Fmax  float64 `yaml:"fmax"`
		Steps int     `yaml:"steps"`
		Dt    float64 `yaml:"dt"`
	} `yaml:"method"`

	Output struct {
		Plot  string `yaml:"plot"`  // learning-curve PNG, empty to skip
		Store string `yaml:"store"` // queried-images sqlite db, empty to skip
	} `yaml:"output"`
}

type calcConfig struct {
	Kind    string  `yaml:"kind"` // lennard-jones, morse, springs
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
	D       float64 `yaml:"d"`
	A       float64 `yaml:"a"`
	R0      float64 `yaml:"r0"`
	K       float64 `yaml:"k"`
	Cutoff  float64 `yaml:"cutoff"`
}

func newRunCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an offline active-learning loop from a YAML config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := log.LevelInfo
			if verbose {
				level = log.LevelDebug
			}
			log.SetDefault(log.NewConsoleLogger(os.Stderr, level))
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "alloop.yaml", "path to the run configuration")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadRunConfig(configPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := log.GetLogger().With(log.ComponentKey, "cmd", log.RunIDKey, runID)
	logger.Info("starting run", "config", configPath)

	if cfg.Learner.FileDir != "" {
		if err := os.MkdirAll(cfg.Learner.FileDir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}

	parent, err := buildCalculator(cfg.Parent)
	if err != nil {
		return err
	}
	base, err := buildCalculator(cfg.Base)
	if err != nil {
		return err
	}
	parentCounter := calc.NewCounter(parent)
	baseCounter := calc.NewCounter(base)

	start, err := buildCluster(cfg)
	if err != nil {
		return err
	}

	seed, err := labelSeedImages(ctx, cfg, start, parentCounter)
	if err != nil {
		return err
	}

	tr := buildTrainer(cfg)
	method, err := buildMethod(cfg, start)
	if err != nil {
		return err
	}

	opts := []learner.Option{learner.WithLogger(logger.With(log.ComponentKey, "learner"))}
	if cfg.Output.Store != "" {
		store, err := imagedb.Open(filepath.Join(cfg.Learner.FileDir, cfg.Output.Store))
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, learner.WithStore(store))
	}

	ol, err := learner.NewOffline(cfg.Learner, method, tr, parentCounter, baseCounter, seed, opts...)
	if err != nil {
		return err
	}

	if err := ol.Learn(ctx); err != nil {
		return err
	}

	status := ol.Status()
	logger.Info("run complete",
		log.StateKey, status.Outcome.String(),
		log.ImagesKey, status.TrainingImages,
		"parent_calls", parentCounter.Calls(),
		"base_calls", baseCounter.Calls(),
	)

	if cfg.Output.Plot != "" {
		plotPath := filepath.Join(cfg.Learner.FileDir, cfg.Output.Plot)
		if err := report.LearningCurve(ol.History(), plotPath); err != nil {
			return err
		}
		logger.Info("learning curve written", "path", plotPath)
	}
	return nil
}

func loadRunConfig(path string) (*runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := &runConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	// Defaults for everything the file leaves out.
	if cfg.System.NAtoms == 0 {
		cfg.System.NAtoms = 7
	}
	if cfg.System.Element == "" {
		cfg.System.Element = "Ar"
	}
	if cfg.System.Spread == 0 {
		cfg.System.Spread = 2.0
	}
	if cfg.System.SeedImages == 0 {
		cfg.System.SeedImages = 3
	}
	if cfg.Method.Kind == "" {
		cfg.Method.Kind = "fire"
	}
	if cfg.Method.Fmax == 0 {
		cfg.Method.Fmax = 0.05
	}
	if cfg.Method.Steps == 0 {
		cfg.Method.Steps = 200
	}
	return cfg, nil
}

func buildCalculator(cc calcConfig) (calc.Calculator, error) {
	switch cc.Kind {
	case "lennard-jones", "lj":
		lj := calc.NewLennardJones()
		if cc.Epsilon != 0 {
			lj.Epsilon = cc.Epsilon
		}
		if cc.Sigma != 0 {
			lj.Sigma = cc.Sigma
		}
		lj.Cutoff = cc.Cutoff
		return lj, nil
	case "morse":
		m := calc.NewMorse()
		if cc.D != 0 {
			m.D = cc.D
		}
		if cc.A != 0 {
			m.A = cc.A
		}
		if cc.R0 != 0 {
			m.R0 = cc.R0
		}
		m.Cutoff = cc.Cutoff
		return m, nil
	case "springs":
		s := calc.NewSprings()
		if cc.K != 0 {
			s.K = cc.K
		}
		if cc.R0 != 0 {
			s.R0 = cc.R0
		}
		s.Cutoff = cc.Cutoff
		return s, nil
	default:
		return nil, errors.NewConfigurationError("calculator.kind", "unknown calculator", cc.Kind)
	}
}

// buildCluster places natoms atoms randomly inside a sphere, rejecting
// placements closer than 0.7 spread so the pair potentials stay finite.
func buildCluster(cfg *runConfig) (*atoms.Atoms, error) {
	z := atoms.Number(cfg.System.Element)
	if z == 0 {
		return nil, errors.NewConfigurationError("system.element", "unknown element", cfg.System.Element)
	}

	rng := rand.New(rand.NewSource(cfg.System.Seed))
	n := cfg.System.NAtoms
	spread := cfg.System.Spread
	minDist := 0.7 * spread

	positions := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		for attempt := 0; ; attempt++ {
			if attempt > 1000 {
				return nil, errors.NewConfigurationError("system",
					"could not place atoms; increase spread or reduce natoms", n)
			}
			x := (rng.Float64()*2 - 1) * spread * math.Cbrt(float64(n))
			y := (rng.Float64()*2 - 1) * spread * math.Cbrt(float64(n))
			zc := (rng.Float64()*2 - 1) * spread * math.Cbrt(float64(n))
			ok := true
			for j := 0; j < i; j++ {
				dx := x - positions.At(j, 0)
				dy := y - positions.At(j, 1)
				dz := zc - positions.At(j, 2)
				if math.Sqrt(dx*dx+dy*dy+dz*dz) < minDist {
					ok = false
					break
				}
			}
			if ok {
				positions.SetRow(i, []float64{x, y, zc})
				break
			}
		}
	}

	numbers := make([]int, n)
	for i := range numbers {
		numbers[i] = z
	}
	return atoms.New(numbers, positions)
}

// labelSeedImages produces the initial parent-labeled training data: the
// starting geometry plus slightly perturbed copies.
func labelSeedImages(ctx context.Context, cfg *runConfig, start *atoms.Atoms, parent calc.Calculator) ([]atoms.Image, error) {
	rng := rand.New(rand.NewSource(cfg.System.Seed + 1))
	seed := make([]atoms.Image, 0, cfg.System.SeedImages)

	for i := 0; i < cfg.System.SeedImages; i++ {
		a := start.Copy()
		if i > 0 {
			pos := a.Positions()
			r, _ := pos.Dims()
			for ai := 0; ai < r; ai++ {
				for j := 0; j < 3; j++ {
					pos.Set(ai, j, pos.At(ai, j)+rng.NormFloat64()*0.05)
				}
			}
			if err := a.SetPositions(pos); err != nil {
				return nil, err
			}
		}

		res, err := parent.Compute(ctx, a)
		if err != nil {
			return nil, err
		}
		seed = append(seed, atoms.NewImage(a, res))
	}
	return seed, nil
}

func buildTrainer(cfg *runConfig) trainer.Trainer {
	var opts []trainer.RidgeOption
	if cfg.Trainer.Lambda != 0 {
		opts = append(opts, trainer.WithRidgeLambda(cfg.Trainer.Lambda))
	}
	if cfg.Trainer.Centers != 0 {
		opts = append(opts, trainer.WithRBFCenters(cfg.Trainer.Centers))
	}
	if cfg.Trainer.Cutoff != 0 {
		opts = append(opts, trainer.WithCutoff(cfg.Trainer.Cutoff))
	}
	return trainer.NewDeltaRidge(opts...)
}

func buildMethod(cfg *runConfig, start *atoms.Atoms) (relax.Method, error) {
	switch cfg.Method.Kind {
	case "fire":
		return relax.NewFIRE(start, cfg.Method.Fmax, cfg.Method.Steps), nil
	case "verlet":
		dt := cfg.Method.Dt
		if dt == 0 {
			dt = 0.01
		}
		return relax.NewVerlet(start, dt, cfg.Method.Steps), nil
	default:
		return nil, errors.NewConfigurationError("method.kind", "unknown method", cfg.Method.Kind)
	}
}
