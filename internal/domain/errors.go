package domain

import (
	"errors"
	"fmt"
)

// ValidationKind distinguishes the client-side rejection reasons that
// occur before any network call.
type ValidationKind string

const (
	ValidationInvalidType ValidationKind = "invalid_type"
	ValidationTooLarge    ValidationKind = "too_large"
)

// ValidationError is a client-side rejection of user input. It is
// locally recoverable by retrying the same action with corrected input.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewInvalidType builds the rejection for a non-CSV dataset file.
func NewInvalidType(fileName string) *ValidationError {
	return &ValidationError{
		Kind:    ValidationInvalidType,
		Message: fmt.Sprintf("file %q is not a CSV file", fileName),
	}
}

// NewTooLarge builds the rejection for an oversized dataset file.
func NewTooLarge(size int64) *ValidationError {
	return &ValidationError{
		Kind:    ValidationTooLarge,
		Message: fmt.Sprintf("file is %d bytes, limit is %d", size, MaxDatasetSize),
	}
}

// BackendRejected is a well-formed 4xx from the backend. The message is
// surfaced to the user verbatim.
type BackendRejected struct {
	Status  int
	Message string
}

func (e *BackendRejected) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend rejected the request (status %d)", e.Status)
}

// NetworkFailure is a transport-level failure or a malformed response
// body: no definite answer was obtained from the backend.
type NetworkFailure struct {
	Op  string
	Err error
}

func (e *NetworkFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// ContractViolation is a 2xx response missing a required field. It is
// fatal for the current attempt: the caller must not proceed as if the
// operation succeeded.
type ContractViolation struct {
	Field   string
	Message string
}

func (e *ContractViolation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend response missing required field %q", e.Field)
}

// IsValidation reports whether err is a client-side validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBackendRejected reports whether err is a well-formed backend 4xx.
func IsBackendRejected(err error) bool {
	var br *BackendRejected
	return errors.As(err, &br)
}

// IsNetworkFailure reports whether err is a transport-level failure.
func IsNetworkFailure(err error) bool {
	var nf *NetworkFailure
	return errors.As(err, &nf)
}

// IsContractViolation reports whether err is a 2xx response that broke
// the backend contract.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// IsRetryable reports whether err leaves the session in a state where
// the same action may simply be reissued. Contract violations require
// returning to the ingestion step first; everything else is retryable
// in place.
func IsRetryable(err error) bool {
	return err != nil && !IsContractViolation(err)
}
