package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidBody indicates a body rejected at construction (bad mass or
	// non-finite coordinates). The store is left unchanged.
	ErrInvalidBody = errors.New("dynamo: invalid body")

	// ErrUnknownHandle indicates a handle that was never issued or has been removed.
	ErrUnknownHandle = errors.New("dynamo: unknown body handle")

	// ErrNumericalInstability indicates a non-finite acceleration, velocity
	// or position produced during a step.
	ErrNumericalInstability = errors.New("dynamo: numerical instability")

	// ErrFaulted is returned by Step once the engine has faulted. Only Reset
	// clears it.
	ErrFaulted = errors.New("dynamo: engine faulted")

	// ErrInvalidParams indicates simulation parameters outside their valid range.
	ErrInvalidParams = errors.New("dynamo: invalid parameters")
)

// InvalidBodyError names the field that made a body invalid.
type InvalidBodyError struct {
	Field string
	Value float64
}

func (e *InvalidBodyError) Error() string {
	if e.Field == "mass" {
		return fmt.Sprintf("%v: mass must be positive and finite, got %g", ErrInvalidBody, e.Value)
	}
	return fmt.Sprintf("%v: %s must be finite, got %g", ErrInvalidBody, e.Field, e.Value)
}

func (e *InvalidBodyError) Unwrap() error { return ErrInvalidBody }

// UnknownHandleError carries the offending handle.
type UnknownHandleError struct {
	Handle Handle
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnknownHandle, e.Handle)
}

func (e *UnknownHandleError) Unwrap() error { return ErrUnknownHandle }

// NumericalInstabilityError wraps a step failure with simulation context.
type NumericalInstabilityError struct {
	Step     int64
	Time     float64
	Body     Handle
	Quantity string
	Cause    error
}

func (e *NumericalInstabilityError) Error() string {
	msg := fmt.Sprintf("%v: non-finite %s of body %d at step %d (t=%.6f)", ErrNumericalInstability, e.Quantity, e.Body, e.Step, e.Time)
	if e.Body < 0 {
		msg = fmt.Sprintf("%v: %s failed at step %d (t=%.6f)", ErrNumericalInstability, e.Quantity, e.Step, e.Time)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NumericalInstabilityError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrNumericalInstability, e.Cause}
	}
	return []error{ErrNumericalInstability}
}

// FaultedError is returned for every Step attempted after a fault.
type FaultedError struct {
	Cause error
}

func (e *FaultedError) Error() string {
	return fmt.Sprintf("%v (reset required): %v", ErrFaulted, e.Cause)
}

func (e *FaultedError) Unwrap() []error { return []error{ErrFaulted, e.Cause} }
