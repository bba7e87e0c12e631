// Standard attribute keys for active-learning and simulation events. Using
// these keys consistently keeps log streams filterable across packages.

package log

// Component and operation context.
const (
	// ComponentKey identifies the package or subsystem emitting the event.
	// Examples: "learner", "trainer", "relax", "cmd"
	ComponentKey = "component"

	// OperationKey names the operation being performed.
	// Standard values: "learn", "train", "predict", "compute", "relax", "query"
	OperationKey = "operation"

	// RunIDKey carries the unique identifier of an active-learning run.
	RunIDKey = "run.id"

	// CalculatorKey names the calculator involved in the event.
	CalculatorKey = "calculator"

	// StateKey carries the learner state ("running", "converged", ...).
	StateKey = "learner.state"
)

// Loop progress.
const (
	// IterationKey is the zero-based active-learning round index.
	IterationKey = "iteration"

	// ImagesKey is the current size of the training set.
	ImagesKey = "training.images"

	// BatchKey is the number of candidates labeled in the current round.
	BatchKey = "batch.size"

	// StepsKey is the number of relaxation/dynamics steps used in a round.
	StepsKey = "relax.steps"
)

// Physical quantities.
const (
	// FmaxKey is the maximum per-atom force norm (eV/A).
	FmaxKey = "fmax"

	// EnergyKey is a potential energy value (eV).
	EnergyKey = "energy"

	// UncertaintyKey is a surrogate uncertainty estimate.
	UncertaintyKey = "uncertainty"

	// NAtomsKey is the number of atoms in a configuration.
	NAtomsKey = "natoms"
)

// Performance.
const (
	// DurationMsKey is the wall-clock duration of an operation in
	// milliseconds.
	DurationMsKey = "duration_ms"
)

// Error context.
const (
	// ErrAttrKey is the key under which error values are logged.
	ErrAttrKey = "error"

	// StacktraceAttrKey is the key under which stack traces are logged.
	StacktraceAttrKey = "stacktrace"
)
