package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is the umbrella for every ingestion failure.
	ErrMalformedInput = errors.New("malformed input")
	// ErrMalformedLine flags a line without exactly three fields.
	ErrMalformedLine = fmt.Errorf("%w: malformed line", ErrMalformedInput)
	// ErrMalformedTimestamp flags a timestamp that is not YYYYMMDDHHMMSS.
	ErrMalformedTimestamp = fmt.Errorf("%w: malformed timestamp", ErrMalformedInput)
	// ErrMalformedAddress flags an address that is neither a prefix nor a bare IP.
	ErrMalformedAddress = fmt.Errorf("%w: malformed address", ErrMalformedInput)
	// ErrInvalidConfiguration flags tunables rejected before any scan starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidRequest flags an RPC payload of the wrong shape.
	ErrInvalidRequest = errors.New("invalid request")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// IsClientError reports whether err stems from bad input, tunables or request shape rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidRequest)
}
