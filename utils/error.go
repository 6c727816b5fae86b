package utils

import (
	"errors"
	"fmt"
)

// Error kinds shared by every pipeline component. Concrete errors wrap one of
// these so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrIntegrity   = errors.New("integrity error")
	ErrIO          = errors.New("io error")
	ErrPersistence = errors.New("persistence error")
	ErrImport      = errors.New("import failed")
)

var ErrorRecordNotFound = fmt.Errorf("record %w", ErrNotFound)

// KindError attaches a kind to a message while keeping an optional cause.
type KindError struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *KindError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *KindError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func NewError(kind error, msg string, cause error) error {
	return &KindError{Kind: kind, Msg: msg, Cause: cause}
}

func Validationf(format string, args ...any) error {
	return &KindError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &KindError{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &KindError{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func Integrityf(format string, args ...any) error {
	return &KindError{Kind: ErrIntegrity, Msg: fmt.Sprintf(format, args...)}
}

func IOError(msg string, cause error) error {
	return &KindError{Kind: ErrIO, Msg: msg, Cause: cause}
}

func PersistenceError(msg string, cause error) error {
	return &KindError{Kind: ErrPersistence, Msg: msg, Cause: cause}
}
