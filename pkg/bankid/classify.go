package bankid

import (
	"encoding/json"
	"net/http"
)

// RawResponse is what the transport returned for a single call.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

type validator interface {
	validate() error
}

type statusStamper interface {
	setHTTPStatus(status int)
}

var statusKinds = map[int]ErrorKind{
	http.StatusBadRequest:           KindInvalidParameters,
	http.StatusUnauthorized:         KindUnauthorized,
	http.StatusForbidden:            KindUnauthorized,
	http.StatusNotFound:             KindNotFound,
	http.StatusMethodNotAllowed:     KindMethodNotAllowed,
	http.StatusRequestTimeout:       KindRequestTimeout,
	http.StatusUnsupportedMediaType: KindUnsupportedMediaType,
	http.StatusInternalServerError:  KindInternalError,
	http.StatusServiceUnavailable:   KindMaintenance,
}

// defaultMessages are used when the server sends an error status without a body.
// An empty 400 is unhandled.
var defaultMessages = map[int]string{
	http.StatusUnauthorized:         "You do not have access to the service.",
	http.StatusForbidden:            "You do not have access to the service.",
	http.StatusNotFound:             "An invalid URL path was used.",
	http.StatusMethodNotAllowed:     "Only HTTP method POST is allowed.",
	http.StatusRequestTimeout:       "Timeout while transmitting the request.",
	http.StatusUnsupportedMediaType: "The type is missing or invalid.",
	http.StatusInternalServerError:  "Internal technical error in the BankID system.",
	http.StatusServiceUnavailable:   "The service is temporarily unavailable.",
}

const (
	errorCodeAlreadyInProgress = "alreadyInProgress"
	errorCodeInvalidParameters = "invalidParameters"

	detailsNoResponse = "SSL server verification failed"
	detailsUnhandled  = "Unhandled HTTP error"
)

// ClassifyStatus maps an HTTP status to an error kind. Unknown statuses are
// internal errors.
func ClassifyStatus(status int) ErrorKind {
	if kind, ok := statusKinds[status]; ok {
		return kind
	}
	return KindInternalError
}

// Classify turns a transport outcome into either a decoded T or a *Error.
// A nil res means no response was received at all. overrides maps a status
// code to a caller supplied message and takes precedence over the body.
func Classify[T any](res *RawResponse, overrides map[int]string) (T, error) {
	var out T

	// Every transport failure is reported as this fixed triple, whatever the cause.
	if res == nil {
		return out, newError(http.StatusForbidden, KindInternalError, detailsNoResponse)
	}

	if res.StatusCode == http.StatusOK {
		if err := decode(res.Body, &out); err != nil {
			return out, newError(res.StatusCode, KindInvalidParameters, "Failed to parse response: "+err.Error())
		}
		if s, ok := any(&out).(statusStamper); ok {
			s.setHTTPStatus(http.StatusOK)
		}
		return out, nil
	}

	if msg, ok := overrides[res.StatusCode]; ok {
		return out, newError(res.StatusCode, KindInvalidParameters, msg)
	}

	if len(res.Body) > 0 {
		var body any
		if err := json.Unmarshal(res.Body, &body); err != nil {
			details := "Non-JSON error response: " + err.Error() + " - " + string(res.Body)
			return out, newError(res.StatusCode, ClassifyStatus(res.StatusCode), details)
		}

		kind := ClassifyStatus(res.StatusCode)
		if res.StatusCode == http.StatusBadRequest {
			kind = classifyErrorCode(body)
		}
		return out, newError(res.StatusCode, kind, string(res.Body))
	}

	if msg, ok := defaultMessages[res.StatusCode]; ok {
		return out, newError(res.StatusCode, statusKinds[res.StatusCode], msg)
	}

	return out, newError(res.StatusCode, KindInternalError, detailsUnhandled)
}

// classifyErrorCode inspects the errorCode field of a 400 response body.
func classifyErrorCode(body any) ErrorKind {
	obj, ok := body.(map[string]any)
	if !ok {
		return KindInvalidParameters
	}
	raw, ok := obj["errorCode"]
	if !ok {
		return KindInvalidParameters
	}

	code, _ := raw.(string)
	switch code {
	case errorCodeAlreadyInProgress:
		return KindAlreadyInProgress
	case errorCodeInvalidParameters:
		return KindInvalidParameters
	default:
		return KindInternalError
	}
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	if v, ok := out.(validator); ok {
		return v.validate()
	}
	return nil
}
