package service

import (
	"errors"
	"fmt"
)

// ErrRunFailed is returned when a run aborted after its ledger entry was opened. RunID
// is empty when the ledger could not be written.
type ErrRunFailed struct {
	error
	RunID string
}

func NewErrRunFailed(runID string, cause error) *ErrRunFailed {
	return &ErrRunFailed{error: cause, RunID: runID}
}

func (e *ErrRunFailed) Unwrap() error {
	return e.error
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

type ErrUnauthorized struct {
	error
}

func NewErrUnauthorized(reason string) *ErrUnauthorized {
	return &ErrUnauthorized{errors.New(reason)}
}

type ErrForbidden struct {
	error
}

func NewErrForbidden(reason string) *ErrForbidden {
	return &ErrForbidden{errors.New(reason)}
}
