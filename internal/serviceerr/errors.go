package serviceerr

import "net/http"

type Code string

const (
	CodeInvalidRequest Code = "invalid_request"
	CodeAccessDenied   Code = "access_denied"

	CodeUnknown        Code = "unknown"
	CodeNotFound       Code = "not_found"
	CodeQRCodeNotFound Code = "qr_code_not_found"
	CodeNotInitialized Code = "not_initialized"
)

// Error is an error produced by the REST facade itself, as opposed to
// errors reported by the BankID service which are passed through.
type Error struct {
	Err         Code
	Description string
}

var (
	ErrUnknown        = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrNotFound       = &Error{Err: CodeNotFound, Description: "no such route"}
	ErrMissingOrder   = &Error{Err: CodeInvalidRequest, Description: "order reference is required"}
	ErrQRCodeNotFound = &Error{Err: CodeQRCodeNotFound, Description: "no QR code for the order"}
	ErrNotInitialized = &Error{Err: CodeNotInitialized, Description: "BankID session not initialized"}
	ErrOrderNotOwned  = &Error{Err: CodeAccessDenied, Description: "order was started by another client"}
)

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}
	return string(e.Err) + ": " + e.Description
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeQRCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
