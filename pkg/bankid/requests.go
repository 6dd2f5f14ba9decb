package bankid

// UserVisibleDataFormat values accepted by the RP API.
const (
	FormatPlaintext        = "plaintext"
	FormatSimpleMarkdownV1 = "simpleMarkdownV1"
)

// Call initiators for the phone endpoints.
const (
	CallInitiatorUser = "user"
	CallInitiatorRP   = "RP"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencySEK Currency = "SEK"
	CurrencyNOK Currency = "NOK"
	CurrencyDKK Currency = "DKK"
	CurrencyGBP Currency = "GBP"
)

type AppConfig struct {
	AppIdentifier    string `json:"appIdentifier"`
	DeviceOS         string `json:"deviceOS"`
	DeviceIdentifier string `json:"deviceIdentifier"`
	DeviceModelName  string `json:"deviceModelName"`
}

type WebConfig struct {
	DeviceIdentifier string `json:"deviceIdentifier"`
	ReferringDomain  string `json:"referringDomain"`
	UserAgent        string `json:"userAgent"`
}

// Requirement narrows which users may complete an order.
type Requirement struct {
	CardReader          string   `json:"cardReader,omitempty"`
	CertificatePolicies []string `json:"certificatePolicies,omitempty"`
	MRTD                *bool    `json:"mrtd,omitempty"`
	PersonalNumber      string   `json:"personalNumber,omitempty"`
	PinCode             *bool    `json:"pinCode,omitempty"`
}

// requirementOrNil drops a requirement that would serialize to an empty object.
func requirementOrNil(r *Requirement) *Requirement {
	if r == nil {
		return nil
	}
	if r.CardReader == "" && len(r.CertificatePolicies) == 0 && r.MRTD == nil &&
		r.PersonalNumber == "" && r.PinCode == nil {
		return nil
	}
	return r
}

type Recipient struct {
	Name string `json:"name"`
}

type Money struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// UserVisibleTransaction describes a payment to the user. TransactionType is
// "card" or "npa"; Money is not allowed for "npa".
type UserVisibleTransaction struct {
	TransactionType string    `json:"transactionType"`
	Recipient       Recipient `json:"recipient"`
	Money           *Money    `json:"money,omitempty"`
	RiskWarning     string    `json:"riskWarning,omitempty"`
}

// AuthRequest is the payload of /auth.
type AuthRequest struct {
	EndUserIP             string       `json:"endUserIp"`
	ReturnRisk            *bool        `json:"returnRisk,omitempty"`
	ReturnURL             string       `json:"returnUrl,omitempty"`
	UserNonVisibleData    string       `json:"userNonVisibleData,omitempty"`
	UserVisibleData       string       `json:"userVisibleData,omitempty"`
	UserVisibleDataFormat string       `json:"userVisibleDataFormat,omitempty"`
	App                   *AppConfig   `json:"app,omitempty"`
	Web                   *WebConfig   `json:"web,omitempty"`
	Requirement           *Requirement `json:"requirement,omitempty"`
}

// SignRequest is the payload of /sign. UserVisibleData is required.
type SignRequest struct {
	EndUserIP             string       `json:"endUserIp"`
	UserVisibleData       string       `json:"userVisibleData"`
	ReturnRisk            *bool        `json:"returnRisk,omitempty"`
	ReturnURL             string       `json:"returnUrl,omitempty"`
	UserNonVisibleData    string       `json:"userNonVisibleData,omitempty"`
	UserVisibleDataFormat string       `json:"userVisibleDataFormat,omitempty"`
	App                   *AppConfig   `json:"app,omitempty"`
	Web                   *WebConfig   `json:"web,omitempty"`
	Requirement           *Requirement `json:"requirement,omitempty"`
}

// PaymentRequest is the payload of /payment.
type PaymentRequest struct {
	EndUserIP              string                 `json:"endUserIp"`
	UserVisibleTransaction UserVisibleTransaction `json:"userVisibleTransaction"`
	ReturnRisk             *bool                  `json:"returnRisk,omitempty"`
	ReturnURL              string                 `json:"returnUrl,omitempty"`
	RiskFlags              []string               `json:"riskFlags,omitempty"`
	UserNonVisibleData     string                 `json:"userNonVisibleData,omitempty"`
	UserVisibleData        string                 `json:"userVisibleData,omitempty"`
	UserVisibleDataFormat  string                 `json:"userVisibleDataFormat,omitempty"`
	App                    *AppConfig             `json:"app,omitempty"`
	Web                    *WebConfig             `json:"web,omitempty"`
	Requirement            *Requirement           `json:"requirement,omitempty"`
}

// PhoneAuthRequest is the payload of /phone/auth.
type PhoneAuthRequest struct {
	CallInitiator         string       `json:"callInitiator"`
	PersonalNumber        string       `json:"personalNumber,omitempty"`
	UserNonVisibleData    string       `json:"userNonVisibleData,omitempty"`
	UserVisibleData       string       `json:"userVisibleData,omitempty"`
	UserVisibleDataFormat string       `json:"userVisibleDataFormat,omitempty"`
	Requirement           *Requirement `json:"requirement,omitempty"`
}

// PhoneSignRequest is the payload of /phone/sign.
type PhoneSignRequest struct {
	CallInitiator         string       `json:"callInitiator"`
	UserVisibleData       string       `json:"userVisibleData"`
	PersonalNumber        string       `json:"personalNumber,omitempty"`
	UserNonVisibleData    string       `json:"userNonVisibleData,omitempty"`
	UserVisibleDataFormat string       `json:"userVisibleDataFormat,omitempty"`
	Requirement           *Requirement `json:"requirement,omitempty"`
}

// OtherPaymentRequest is the payload of /other/payment.
type OtherPaymentRequest struct {
	PersonalNumber         string                 `json:"personalNumber"`
	UserVisibleTransaction UserVisibleTransaction `json:"userVisibleTransaction"`
	ReturnRisk             *bool                  `json:"returnRisk,omitempty"`
	ReturnURL              string                 `json:"returnUrl,omitempty"`
	RiskFlags              []string               `json:"riskFlags,omitempty"`
	UserNonVisibleData     string                 `json:"userNonVisibleData,omitempty"`
	UserVisibleData        string                 `json:"userVisibleData,omitempty"`
	UserVisibleDataFormat  string                 `json:"userVisibleDataFormat,omitempty"`
	App                    *AppConfig             `json:"app,omitempty"`
	Web                    *WebConfig             `json:"web,omitempty"`
	Requirement            *Requirement           `json:"requirement,omitempty"`
}

type CollectRequest struct {
	OrderRef string `json:"orderRef"`
}

type CancelRequest struct {
	OrderRef string `json:"orderRef"`
}
