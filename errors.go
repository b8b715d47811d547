// Package bandalign structured error types
package bandalign

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Malformed request or call on an unusable aligner
	ErrTypeInvalidInput ErrorType = iota
	// Sequence longer than the configured limit
	ErrTypeExceedsMaxLength
	// Batch already holds the configured number of requests
	ErrTypeExceedsMaxAlignments
	// Request cannot fit the device memory budget
	ErrTypeOutOfMemory
	// Accelerator execution or allocation failure
	ErrTypeDevice
	// Not implemented errors
	ErrTypeNotImplemented
)

// AlignError represents a structured error with context
type AlignError struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *AlignError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bandalign %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("bandalign %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *AlignError) Unwrap() error {
	return e.Err
}

// Is matches the category sentinels, so errors.Is(err, ErrOutOfMemory)
// holds for every out-of-memory error whatever its operation.
func (e *AlignError) Is(target error) bool {
	t, ok := target.(*AlignError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Type == e.Type
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidInput:
		return "InvalidInput"
	case ErrTypeExceedsMaxLength:
		return "ExceedsMaxLength"
	case ErrTypeExceedsMaxAlignments:
		return "ExceedsMaxAlignments"
	case ErrTypeOutOfMemory:
		return "OutOfMemory"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

func newError(t ErrorType, op, message string, err error) error {
	return &AlignError{Type: t, Op: op, Message: message, Err: err}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(op string, message string) error {
	return newError(ErrTypeInvalidInput, op, message, nil)
}

// NewOutOfMemoryError creates a budget error
func NewOutOfMemoryError(op string, message string) error {
	return newError(ErrTypeOutOfMemory, op, message, nil)
}

// NewDeviceError wraps a runtime failure
func NewDeviceError(op string, message string, err error) error {
	return newError(ErrTypeDevice, op, message, err)
}

// NewNotImplementedError creates a not implemented error
func NewNotImplementedError(op string, feature string) error {
	return newError(ErrTypeNotImplemented, op, fmt.Sprintf("%s is not implemented", feature), nil)
}

// Sentinel errors, one per category.
var (
	ErrInvalidInput         = &AlignError{Type: ErrTypeInvalidInput, Message: "invalid input"}
	ErrExceedsMaxLength     = &AlignError{Type: ErrTypeExceedsMaxLength, Message: "sequence exceeds maximum length"}
	ErrExceedsMaxAlignments = &AlignError{Type: ErrTypeExceedsMaxAlignments, Message: "batch is full"}
	ErrOutOfMemory          = &AlignError{Type: ErrTypeOutOfMemory, Message: "request exceeds device memory budget"}
	ErrDevice               = &AlignError{Type: ErrTypeDevice, Message: "device failure"}
	ErrNotImplemented       = &AlignError{Type: ErrTypeNotImplemented, Message: "not implemented"}
)

func isType(err error, t ErrorType) bool {
	var e *AlignError
	return errors.As(err, &e) && e.Type == t
}

// IsInvalidInputError checks if an error is an invalid input error
func IsInvalidInputError(err error) bool { return isType(err, ErrTypeInvalidInput) }

// IsOutOfMemoryError checks if an error is a budget error
func IsOutOfMemoryError(err error) bool { return isType(err, ErrTypeOutOfMemory) }

// IsDeviceError checks if an error is a device failure
func IsDeviceError(err error) bool { return isType(err, ErrTypeDevice) }

// IsNotImplementedError checks if an error is a not implemented error
func IsNotImplementedError(err error) bool { return isType(err, ErrTypeNotImplemented) }
