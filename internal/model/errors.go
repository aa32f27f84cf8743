package model

import "fmt"

// ValidationError marks malformed or missing input. It is always raised
// before any external call and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps failures of an external collaborator such as
// the matrix provider. The core does not retry; callers surface it as a
// failed result.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// SolverFailure reports that no feasible solution was found within the time
// budget. It is a domain outcome, not a system error.
type SolverFailure struct {
	Reason string
}

func (e *SolverFailure) Error() string { return e.Reason }
