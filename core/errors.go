package core

import "github.com/pkg/errors"

// ErrAuthRequired is returned by operations that silently skip anonymous callers.
var ErrAuthRequired = errors.New("authentication required")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// NotFoundError is returned when the targeted object does not exist.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{message: msg}
}

func (e NotFoundError) Error() string {
	return e.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError is returned when an operation violates a uniqueness precondition.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) error {
	return &ConflictError{message: msg}
}

func (e ConflictError) Error() string {
	return e.message
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// AuthorizationError is returned when the caller lacks the rights for an operation.
type AuthorizationError struct {
	message string
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{message: msg}
}

func (e AuthorizationError) Error() string {
	return e.message
}

func IsAuthorization(err error) bool {
	_, ok := errors.Cause(err).(*AuthorizationError)
	return ok
}

// StorageError wraps a transient infrastructure failure. Callers may retry it.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e StorageError) Error() string {
	if e.Err == nil {
		return "storage unavailable: " + e.Op
	}
	return "storage unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e StorageError) Unwrap() error { return e.Err }

func (e StorageError) Retryable() bool { return true }

func IsStorage(err error) bool {
	_, ok := errors.Cause(err).(*StorageError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
