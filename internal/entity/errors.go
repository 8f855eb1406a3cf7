package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrShortCodeExists is returned by a store when the short code is already taken.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned by a store when no URL matches the lookup.
	ErrURLNotFound = errors.New("url not found")
)

// Kind classifies an application error.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrInternal
	}
}

// Error is an application error carrying a kind and a client-facing message.
// Field names the offending input for validation errors.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// WithField sets the offending input field and returns e.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func NewValidationError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewConflictError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewNotFoundError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewInternalError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
