package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicate is returned by stores when an insert-if-absent finds the key taken.
var ErrDuplicate = errors.New("record already exists")

// ErrorKind classifies failures so the transport layer can pick a status code.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation is missing or malformed input the caller can correct.
	KindValidation
	// KindConflict is a duplicate submission or an illegal session transition.
	KindConflict
	// KindNotFound is an unknown entity.
	KindNotFound
	// KindStore is an underlying persistence failure.
	KindStore
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every core operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a user-correctable input error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Conflict builds a duplicate/state conflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an unknown-entity error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// StoreFailure wraps a persistence error. The message is safe to log but not to show.
func StoreFailure(op string, err error) error {
	return &Error{Kind: KindStore, Message: op, Err: err}
}

// KindOf reports the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// PublicMessage returns the message a caller may see.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindStore {
		return de.Message
	}
	return "Server error"
}
