package snapshot

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes snapshot errors.
type ErrorCode string

const (
	// ErrCodeMissingObjectID means a value expected in the id space has no id.
	ErrCodeMissingObjectID ErrorCode = "MISSING_OBJECT_ID"

	// ErrCodeNotSerializable means a value's type has no snapshot form.
	ErrCodeNotSerializable ErrorCode = "NOT_SERIALIZABLE"

	// ErrCodeMissingElement means an element id is absent from the DOM.
	ErrCodeMissingElement ErrorCode = "MISSING_ELEMENT"

	// ErrCodeInvalidID means an object id does not parse or is out of range.
	ErrCodeInvalidID ErrorCode = "INVALID_ID"

	// ErrCodeInvalidMeta means a ctx metadata record is inconsistent.
	ErrCodeInvalidMeta ErrorCode = "INVALID_META"

	// ErrCodeInvalidClosure means a closure descriptor cannot be parsed.
	ErrCodeInvalidClosure ErrorCode = "INVALID_CLOSURE"

	// ErrCodeInvalidSubscription means a subs entry cannot be revived.
	ErrCodeInvalidSubscription ErrorCode = "INVALID_SUBSCRIPTION"

	// ErrCodeMalformed means the snapshot text is not a valid State.
	ErrCodeMalformed ErrorCode = "MALFORMED_SNAPSHOT"
)

// Error is a snapshot write or resume failure.
//
// Every code except ErrCodeMalformed is an assertion: the object graph or
// the snapshot broke a contract the writer and reader rely on.
type Error struct {
	Code    ErrorCode
	Message string
	// ID is the offending id, if any.
	ID string
	// Value is the offending value, if any.
	Value any
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsAssertion reports whether err is a contract violation rather than bad
// input text.
func IsAssertion(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code != ErrCodeMalformed
	}
	return false
}
