package domain

import "errors"

// Error kinds. Every error returned by the service layer either wraps one of
// these through *Error or is an unexpected store failure.
var (
	// ErrValidation is returned when required input is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an identifier is not a valid ObjectID
	ErrInvalidID = errors.New("invalid identifier")

	// ErrNotFound is returned when no record matches the identifier
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a worker tries to accept their own job
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the same worker accepts the same job twice
	ErrConflict = errors.New("conflict")
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message + ": " + e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError creates a new *Error of the given kind
func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}
