// Package validation provides field-level validation rules and the error
// types reported by the unit of work when staged entities fail validation.
package validation

import (
	"errors"
	"strings"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("validation failed")

// Error is a single validation failure on one or more fields.
type Error struct {
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message"`
}

// NewError creates a validation failure for the given fields.
func NewError(message string, fields ...string) *Error {
	return &Error{Fields: fields, Message: message}
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return strings.Join(e.Fields, ", ") + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// AggregateError wraps several validation failures of one entity.
type AggregateError struct {
	Message string   `json:"message"`
	Errors  []*Error `json:"errors"`
}

func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Result turns collected failures into the error returned to callers:
// nil when empty, the failure itself when there is one, an AggregateError otherwise.
func Result(failures []*Error) error {
	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	default:
		return &AggregateError{
			Message: "Entity validation failed",
			Errors:  failures,
		}
	}
}

// Failures flattens a validation error back into its individual failures.
// Errors that are not validation failures yield nil.
func Failures(err error) []*Error {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.Errors
	}
	var single *Error
	if errors.As(err, &single) {
		return []*Error{single}
	}
	return nil
}

// Collector accumulates failures from several rules.
type Collector struct {
	failures []*Error
}

// Check records err when it is non-nil.
func (c *Collector) Check(err *Error) {
	if err != nil {
		c.failures = append(c.failures, err)
	}
}

// Failures returns the recorded failures in the order they were checked.
func (c *Collector) Failures() []*Error {
	return c.failures
}
