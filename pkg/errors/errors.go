// Package errors provides structured error handling and a warning system for
// the model-selection toolkit. It is inspired by scikit-learn's exception and
// warning hierarchy: fatal conditions are returned as errors carrying stack
// traces, while non-fatal conditions (convergence problems, degraded metrics)
// are routed through a configurable warning handler.
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
		log.Printf("ml-warning: %v\n", w)
	}
	// zerolog sink, injected lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler installs a custom handler for library warnings such as
// ConvergenceWarning. Passing a no-op function silences warnings entirely.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc wires a zerolog-backed warning sink. When set it takes
// precedence over the plain handler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the configured handler.
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
//	Search-fatal error types
//
// ===========================================================================

// ConfigurationError reports a hyperparameter name or value that the target
// estimator does not accept. It is fatal to a search and is raised during
// validation, before any training starts.
type ConfigurationError struct {
	Estimator string
	Param     string
	Value     interface{}
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("ml: invalid configuration for %s: parameter %q with value %v: %s",
			e.Estimator, e.Param, e.Value, e.Reason)
	}
	return fmt.Sprintf("ml: invalid configuration for %s: parameter %q: %s", e.Estimator, e.Param, e.Reason)
}

// MarshalZerologObject adds the structured configuration failure to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("estimator", e.Estimator).
		Str("param", e.Param).
		Interface("value", e.Value).
		Str("reason", e.Reason).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(estimator, param string, value interface{}, reason string) error {
	err := &ConfigurationError{Estimator: estimator, Param: param, Value: value, Reason: reason}
	return errors.WithStack(err)
}

// InsufficientDataError reports that the requested number of cross-validation
// folds cannot be satisfied by the available data. Like ConfigurationError it
// is raised before any training starts.
type InsufficientDataError struct {
	Folds int
	// Available is the limiting count: the dataset size for a plain split,
	// or the size of the smallest class under stratification.
	Available int
	// Class is the label of the limiting class, or empty for a plain split.
	Class string
}

func (e *InsufficientDataError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("ml: cannot split %d folds: smallest class %q has only %d samples",
			e.Folds, e.Class, e.Available)
	}
	return fmt.Sprintf("ml: cannot split %d folds: only %d samples available", e.Folds, e.Available)
}

// MarshalZerologObject adds the structured split failure to a zerolog event.
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("folds", e.Folds).
		Int("available", e.Available).
		Str("class", e.Class).
		Str("type", "InsufficientDataError")
}

// NewInsufficientDataError creates an InsufficientDataError with a stack trace.
func NewInsufficientDataError(folds, available int, class string) error {
	err := &InsufficientDataError{Folds: folds, Available: available, Class: class}
	return errors.WithStack(err)
}

// SearchAbortedError reports caller-initiated cancellation of a search. The
// candidates completed before cancellation are still returned alongside it.
type SearchAbortedError struct {
	Completed int
	Total     int
	Cause     error
}

func (e *SearchAbortedError) Error() string {
	return fmt.Sprintf("ml: search aborted after %d/%d candidates: %v", e.Completed, e.Total, e.Cause)
}

func (e *SearchAbortedError) Unwrap() error {
	return e.Cause
}

// NewSearchAbortedError creates a SearchAbortedError with a stack trace.
func NewSearchAbortedError(completed, total int, cause error) error {
	err := &SearchAbortedError{Completed: completed, Total: total, Cause: cause}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Estimator error types
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("ml: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports an input whose dimensions do not match expectations.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("ml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is invalid for the operation,
// for example a negative fold count or an empty parameter domain.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("ml: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// ConvergenceWarning signals that an iterative optimizer stopped before
// reaching its tolerance.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject adds the structured warning to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning signals that a metric is ill-defined for the given
// inputs, e.g. precision with no positive predictions.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
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

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an operation receives no data.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a matrix cannot be inverted.
	ErrSingularMatrix = New("singular matrix")

	// ErrAllCandidatesFailed is returned when every candidate in a search
	// failed to train, so no best configuration exists.
	ErrAllCandidatesFailed = New("all candidates failed")
)
