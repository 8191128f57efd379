// Package errs defines the error kinds shared by every domain package.
//
// Domain packages declare their own sentinels with New so callers can match
// either the precise error or its kind:
//
//	var ErrAlreadySettled = errs.New(errs.ErrInvalidState, "already_settled")
//
//	errors.Is(err, ErrAlreadySettled)     // precise
//	errors.Is(err, errs.ErrInvalidState)  // kind
package errs

import "errors"

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrInvalidState = errors.New("invalid_state")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
)

var kinds = []error{ErrInvalidInput, ErrNotFound, ErrInvalidState, ErrConflict, ErrUnavailable}

// Error is a domain error carrying a stable code and its kind.
type Error struct {
	kind error
	code string
}

func New(kind error, code string) *Error {
	return &Error{kind: kind, code: code}
}

func (e *Error) Error() string { return e.code }

// Code returns the snake_case code exposed to API clients.
func (e *Error) Code() string { return e.code }

func (e *Error) Kind() error { return e.kind }

func (e *Error) Unwrap() error { return e.kind }

// KindOf returns the kind of err, or nil when err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code returns the code of the first domain error in err's chain.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	if kind := KindOf(err); kind != nil {
		return kind.Error()
	}
	return ""
}

// Unavailable marks a collaborator failure (storage, network) as ErrUnavailable
// while keeping the cause inspectable.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return errors.Join(ErrUnavailable, cause)
}
