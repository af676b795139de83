package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrInvalidURL   = errors.New("invalid URL")
	ErrNoVideoID    = errors.New("no video ID in URL")
	ErrInvalidStart = errors.New("invalid start_time")
	ErrInvalidEnd   = errors.New("invalid end_time")
	ErrInvalidRange = errors.New("start_time not before end_time")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrBodyRead     = errors.New("request body unreadable")
)

// Kind classifies a job failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTooLarge   Kind = "too_large"
	KindDependency Kind = "dependency"
	KindExtraction Kind = "extraction"
	KindIntegrity  Kind = "integrity"
	KindFilesystem Kind = "filesystem"
	KindInternal   Kind = "internal"
)

// HTTPStatus returns the response status for failures of this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// JobError is a job-level failure carrying the most specific diagnosis
// available. Message is safe to return to the client.
type JobError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *JobError) Error() string {
	return e.Message
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a JobError of the given kind.
func NewJobError(kind Kind, msg string, err error) *JobError {
	return &JobError{Kind: kind, Message: msg, Err: err}
}

// JobErrorf creates a JobError with a formatted message and no cause.
func JobErrorf(kind Kind, format string, args ...any) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(cause error, msg string) *JobError {
	return NewJobError(KindValidation, msg, cause)
}

// asJobError maps any error onto a JobError, keeping the kind of a wrapped
// JobError when there is one.
func asJobError(err error) *JobError {
	var je *JobError
	if errors.As(err, &je) {
		return je
	}
	return NewJobError(KindInternal, err.Error(), err)
}
