package learner

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atomlearn/atomlearn/pkg/errors"
)

// Recognized query strategy names.
const (
	QueryRandom         = "random"
	QueryMaxUncertainty = "max_uncertainty"
	QuerySpaced         = "spaced"
)

// Config holds the offline learner options. The zero value is not valid;
// fill the fields (or load them from YAML) and call Validate.
type Config struct {
	// MaxIterations bounds the number of active-learning rounds. Zero
	// means the loop performs no rounds and reports exhaustion
	// immediately.
	MaxIterations int `yaml:"max_iterations"`

	// SamplesToRetrain is the number of newly labeled configurations
	// appended per round before retraining. Must be at least 1.
	SamplesToRetrain int `yaml:"samples_to_retrain"`

	// Filename is the stem of the per-round trajectory files,
	// "<filename>_iter_<n>.extxyz".
	Filename string `yaml:"filename"`

	// FileDir is the output directory. Empty means the working directory.
	FileDir string `yaml:"file_dir"`

	// Parallel dispatches the per-round batch of parent/base evaluations
	// across goroutines. Results are appended in selection order either
	// way.
	Parallel bool `yaml:"parallel"`

	// ParallelLimit bounds in-flight evaluations when Parallel is set.
	// Zero means one goroutine per candidate.
	ParallelLimit int `yaml:"parallel_limit"`

	// Query selects the candidate query strategy. Empty means random.
	Query string `yaml:"query"`

	// Seed seeds the random query strategy, making runs reproducible.
	Seed int64 `yaml:"seed"`

	// VerifyWithParent re-checks an apparently converged geometry with the
	// parent calculator before declaring convergence.
	VerifyWithParent bool `yaml:"verify_with_parent"`
}

// Validate checks the configuration. It is called by NewOffline before any
// simulation work; a violation is a ConfigurationError.
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return errors.NewConfigurationError("max_iterations", "must be >= 0", c.MaxIterations)
	}
	if c.SamplesToRetrain < 1 {
		return errors.NewConfigurationError("samples_to_retrain", "must be >= 1", c.SamplesToRetrain)
	}
	if c.Filename == "" {
		return errors.NewConfigurationError("filename", "is required", c.Filename)
	}
	switch c.Query {
	case "", QueryRandom, QueryMaxUncertainty, QuerySpaced:
	default:
		return errors.NewConfigurationError("query", "unknown strategy", c.Query)
	}
	if c.FileDir != "" {
		info, err := os.Stat(c.FileDir)
		if err != nil {
			return errors.NewConfigurationError("file_dir", "not accessible", c.FileDir)
		}
		if !info.IsDir() {
			return errors.NewConfigurationError("file_dir", "not a directory", c.FileDir)
		}
	}
	return nil
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "learner.LoadConfig %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "learner.LoadConfig %s", path)
	}
	return cfg, nil
}
