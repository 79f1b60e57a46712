// Package failure defines the error taxonomy shared by every pipeline stage.
package failure

import (
	"errors"
	"fmt"
)

// Code is the machine-readable failure identifier returned to callers.
type Code string

const (
	MalformedInput       Code = "MalformedInput"
	SecretAccessDenied   Code = "SecretAccessDenied"
	SecretNotFound       Code = "SecretNotFound"
	AuthenticationFailed Code = "AuthenticationFailed"
	RecordNotFound       Code = "RecordNotFound"
	CrmUnavailable       Code = "CrmUnavailable"
	RequiredFieldMissing Code = "RequiredFieldMissing"
	InvalidFieldValue    Code = "InvalidFieldValue"
	InsertRejected       Code = "InsertRejected"
	SendFailed           Code = "SendFailed"
	Internal             Code = "Internal"
)

// Error carries a taxonomy code, the offending field or secret name when
// there is one, and the underlying cause.
type Error struct {
	Code  Code
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s(%s): %v", e.Code, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s(%s)", e.Code, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so callers can write
// errors.Is(err, failure.New(failure.RecordNotFound, nil)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Field == "" || t.Field == e.Field)
}

// New wraps err under code.
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// ForField builds an error about a named field or secret.
func ForField(code Code, field string, err error) *Error {
	return &Error{Code: code, Field: field, Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to Internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Internal
}
