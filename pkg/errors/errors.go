// Package errors provides the error handling and warning system used across
// atomlearn. It is modeled on the exception/warning split familiar from
// scientific Python: hard failures are structured error values carrying stack
// traces, while recoverable conditions (an exhausted loop, a suspect model)
// are emitted as warnings through a configurable handler.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("atomlearn-warning: %v\n", w)
	}
	// zerolog-backed warning sink, installed lazily by pkg/log to avoid a
	// circular import.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the warning handler for the whole library.
// Callers can use this to silence or redirect warnings such as
// ConvergenceWarning.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog warning sink (set by pkg/log).
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. When a zerolog sink is installed warnings are logged
// as structured events; otherwise the plain handler is used.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is emitted when an iterative procedure stops because it
// ran out of iterations rather than because it converged. Exhaustion is a
// normal, reportable outcome, not an error.
type ConvergenceWarning struct {
	Procedure  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Procedure, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iterations or loosening fmax.", w.Procedure, w.Iterations)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("procedure", w.Procedure).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(procedure string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Procedure: procedure, Iterations: iterations, Message: message}
}

// UncertaintyWarning is emitted when a surrogate prediction had to be served
// even though its uncertainty exceeded the configured tolerance, for example
// because the parent-call budget was already spent.
type UncertaintyWarning struct {
	Uncertainty float64
	Tolerance   float64
	Reason      string
}

func (w *UncertaintyWarning) Error() string {
	return fmt.Sprintf("surrogate prediction served with uncertainty %.4g above tolerance %.4g: %s",
		w.Uncertainty, w.Tolerance, w.Reason)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *UncertaintyWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("uncertainty", w.Uncertainty).
		Float64("tolerance", w.Tolerance).
		Str("reason", w.Reason).
		Str("type", "UncertaintyWarning")
}

// NewUncertaintyWarning creates a new UncertaintyWarning.
func NewUncertaintyWarning(uncertainty, tolerance float64, reason string) *UncertaintyWarning {
	return &UncertaintyWarning{Uncertainty: uncertainty, Tolerance: tolerance, Reason: reason}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// ConfigurationError reports a missing or invalid learner option. It is
// surfaced before any simulation work begins and is always fatal.
type ConfigurationError struct {
	Option string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("atomlearn: invalid configuration for %q: %s (got: %v)", e.Option, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("option", e.Option).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a new ConfigurationError with a stack trace.
func NewConfigurationError(option, reason string, value interface{}) error {
	err := &ConfigurationError{Option: option, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// CalculatorError reports a failed oracle evaluation. The loop performs no
// implicit retry; the error propagates to the caller with the calculator
// name and operation attached.
type CalculatorError struct {
	Calculator string
	Op         string
	Err        error
}

func (e *CalculatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("atomlearn: calculator %q: %s: %v", e.Calculator, e.Op, e.Err)
	}
	return fmt.Sprintf("atomlearn: calculator %q: %s", e.Calculator, e.Op)
}

func (e *CalculatorError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *CalculatorError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("calculator", e.Calculator).
		Str("operation", e.Op).
		Str("type", "CalculatorError")
}

// NewCalculatorError creates a new CalculatorError with a stack trace.
func NewCalculatorError(calculator, op string, err error) error {
	calcErr := &CalculatorError{Calculator: calculator, Op: op, Err: err}
	return errors.WithStack(calcErr)
}

// GeometryError reports a shape mismatch in atomic data, for example a force
// array whose row count differs from the number of atoms.
type GeometryError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for atoms (rows), 1 for Cartesian components (columns)
}

func (e *GeometryError) Error() string {
	axisName := "components"
	if e.Axis == 0 {
		axisName = "atoms"
	}
	return fmt.Sprintf("atomlearn: %s: geometry mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *GeometryError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "components"
	if e.Axis == 0 {
		axisName = "atoms"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "GeometryError")
}

// NewGeometryError creates a new GeometryError with a stack trace.
func NewGeometryError(op string, expected, got, axis int) error {
	err := &GeometryError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// NotFittedError is returned when Predict is called on a trainer that has
// never been trained.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("atomlearn: %s: this model is not fitted yet. Call Train() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// ValueError reports an inappropriate argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("atomlearn: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be assigned to target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error values
//
// ===========================================================================

var (
	// ErrEmptyDataset is returned when a training set or batch is empty.
	ErrEmptyDataset = New("empty dataset")

	// ErrSameCalculator is returned when a delta calculator is built from
	// the same calculator on both legs.
	ErrSameCalculator = New("calculators cannot be the same")

	// ErrSingularMatrix is returned when a linear solve hits a singular
	// system.
	ErrSingularMatrix = New("singular matrix")
)
