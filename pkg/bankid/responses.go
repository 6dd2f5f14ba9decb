package bankid

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultResponse is embedded in every response type. HTTPStatus is 200 on
// every successfully decoded response.
type DefaultResponse struct {
	HTTPStatus int `json:"httpStatus,omitempty"`
}

func (r *DefaultResponse) setHTTPStatus(status int) {
	r.HTTPStatus = status
}

// OrderResponse is returned by /auth, /sign and /payment.
type OrderResponse struct {
	DefaultResponse

	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken"`
	QRStartToken   string `json:"qrStartToken"`
	QRStartSecret  string `json:"qrStartSecret"`
}

func (r *OrderResponse) validate() error {
	return requireFields(
		field{"orderRef", r.OrderRef},
		field{"autoStartToken", r.AutoStartToken},
		field{"qrStartToken", r.QRStartToken},
		field{"qrStartSecret", r.QRStartSecret},
	)
}

// LimitedResponse is returned by the phone and other payment endpoints which
// carry no QR or autostart data.
type LimitedResponse struct {
	DefaultResponse

	OrderRef string `json:"orderRef"`
}

func (r *LimitedResponse) validate() error {
	return requireFields(field{"orderRef", r.OrderRef})
}

// EmptyResponse is returned by /cancel.
type EmptyResponse struct {
	DefaultResponse
}

type CollectStatus string

const (
	CollectStatusPending  CollectStatus = "pending"
	CollectStatusComplete CollectStatus = "complete"
	CollectStatusFailed   CollectStatus = "failed"
)

func (s *CollectStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch CollectStatus(v) {
	case CollectStatusPending, CollectStatusComplete, CollectStatusFailed:
		*s = CollectStatus(v)
		return nil
	default:
		return fmt.Errorf("invalid collect status: %q", v)
	}
}

type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
)

func (r *Risk) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch Risk(v) {
	case RiskLow, RiskModerate, RiskHigh:
		*r = Risk(v)
		return nil
	default:
		return fmt.Errorf("invalid collect risk: %q", v)
	}
}

type User struct {
	PersonalNumber string `json:"personalNumber,omitempty"`
	Name           string `json:"name,omitempty"`
	GivenName      string `json:"givenName,omitempty"`
	Surname        string `json:"surname,omitempty"`
}

type Device struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UHI       string `json:"uhi,omitempty"`
}

type StepUp struct {
	MRTD *bool `json:"mrtd,omitempty"`
}

// CompletionData is only present on a complete order. It is passed through
// as received; signature and OCSP response are not verified here.
type CompletionData struct {
	User            *User   `json:"user,omitempty"`
	Device          *Device `json:"device,omitempty"`
	StepUp          *StepUp `json:"stepUp,omitempty"`
	BankIDIssueDate string  `json:"bankIdIssueDate,omitempty"`
	Signature       string  `json:"signature,omitempty"`
	OCSPResponse    string  `json:"ocspResponse,omitempty"`
	Risk            Risk    `json:"risk,omitempty"`
}

// CollectResponse is returned by /collect.
type CollectResponse struct {
	DefaultResponse

	OrderRef       string          `json:"orderRef"`
	Status         CollectStatus   `json:"status"`
	HintCode       string          `json:"hintCode,omitempty"`
	CompletionData *CompletionData `json:"completionData,omitempty"`
}

func (r *CollectResponse) validate() error {
	return requireFields(
		field{"orderRef", r.OrderRef},
		field{"status", string(r.Status)},
	)
}

type field struct {
	name, value string
}

func requireFields(fields ...field) error {
	var errs []error
	for _, f := range fields {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("missing required field %q", f.name))
		}
	}
	return errors.Join(errs...)
}
