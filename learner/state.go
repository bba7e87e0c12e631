package learner

import "time"

// State is the lifecycle state of a learner. The machine is
//
//	Initialized -> Running -> {Converged, Exhausted, Failed} -> Done
//
// Running is re-entered once per round; Done is terminal and keeps the
// terminal classification available through Status.Outcome.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateConverged
	StateExhausted
	StateFailed
	StateDone
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the terminal
// classifications.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted || s == StateFailed
}

// Status is a point-in-time snapshot of a learner.
type Status struct {
	// State is the current lifecycle state.
	State State `json:"state"`
	// Outcome is the terminal classification once the loop has finished,
	// StateInitialized otherwise.
	Outcome State `json:"outcome"`
	// Iteration is the index of the current (or last completed) round.
	Iteration int `json:"iteration"`
	// TrainingImages is the current training-set size.
	TrainingImages int `json:"training_images"`
}

// IterationRecord is the per-round bookkeeping kept by the loop and
// persisted in the run summary.
type IterationRecord struct {
	// Iteration is the zero-based round index.
	Iteration int `json:"iteration"`
	// TrainingImages is the training-set size the round trained on.
	TrainingImages int `json:"training_images"`
	// Queried is the number of new configurations labeled this round.
	Queried int `json:"queried"`
	// Fmax is the surrogate's max force norm on the round's final
	// geometry.
	Fmax float64 `json:"fmax"`
	// ParentFmax is the parent-verified max force norm, present only when
	// verification ran.
	ParentFmax float64 `json:"parent_fmax,omitempty"`
	// Steps is the number of relaxation/dynamics steps the round used.
	Steps int `json:"steps"`
	// Converged reports whether this round satisfied the termination
	// criterion.
	Converged bool `json:"converged"`
	// Duration is the wall-clock duration of the round.
	Duration time.Duration `json:"duration_ns"`
}
