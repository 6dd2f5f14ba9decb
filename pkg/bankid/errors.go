package bankid

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call against the BankID RP API.
type ErrorKind string

const (
	KindNotInitialized       ErrorKind = "NOT_INITIALIZED"
	KindAlreadyInProgress    ErrorKind = "ALREADY_IN_PROGRESS"
	KindInvalidParameters    ErrorKind = "INVALID_PARAMETERS"
	KindUnauthorized         ErrorKind = "UNAUTHORIZED"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindMethodNotAllowed     ErrorKind = "METHOD_NOT_ALLOWED"
	KindRequestTimeout       ErrorKind = "REQUEST_TIMEOUT"
	KindUnsupportedMediaType ErrorKind = "UNSUPPORTED_MEDIA_TYPE"
	KindInternalError        ErrorKind = "INTERNAL_ERROR"
	KindMaintenance          ErrorKind = "MAINTENANCE"

	// KindExpired is only produced by QR code generation.
	KindExpired ErrorKind = "EXPIRED"
)

// Error is the classified outcome of a failed operation. Details carries the
// raw server payload for JSON error responses.
type Error struct {
	HTTPStatus int       `json:"httpStatus"`
	Kind       ErrorKind `json:"errorKind"`
	Details    string    `json:"details"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("bankid: %s (%d): %s", e.Kind, e.HTTPStatus, e.Details)
}

// Is reports whether target is an *Error of the same kind, so callers can
// match with errors.Is(err, &bankid.Error{Kind: bankid.KindMaintenance}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a classified error, or an empty kind if err is
// not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(status int, kind ErrorKind, details string) *Error {
	return &Error{
		HTTPStatus: status,
		Kind:       kind,
		Details:    details,
	}
}
