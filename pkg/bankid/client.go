// Package bankid is a relying party client for the BankID RP API v6.0.
//
// A Client starts orders (auth, sign, payment and their phone and "other"
// variants), collects and cancels them over mutual TLS. Successful auth
// orders are registered in a QRCache which derives the animated QR codes
// shown to the user while the order is pending.
package bankid

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

const (
	apiBasePath = "/rp/v6.0"

	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

const (
	endpointAuth         = "/auth"
	endpointSign         = "/sign"
	endpointPayment      = "/payment"
	endpointPhoneAuth    = "/phone/auth"
	endpointPhoneSign    = "/phone/sign"
	endpointOtherPayment = "/other/payment"
	endpointCollect      = "/collect"
	endpointCancel       = "/cancel"
)

type Option func(*Client)

// WithBaseURL replaces https://<environment host> as the target of all calls.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTLSConfig uses a TLS configuration loaded elsewhere, normally by
// LoadTLSConfig, instead of reading the files named in the SessionConfig.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = tlsConfig
	}
}

// WithTimeouts overrides the connect and read timeouts.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) {
		if connect > 0 {
			c.connectTimeout = connect
		}
		if read > 0 {
			c.readTimeout = read
		}
	}
}

// Client executes one HTTPS POST per operation with the TLS profile bound at
// construction. It is safe for concurrent use.
type Client struct {
	cfg      SessionConfig
	registry OrderRegistry

	httpClient     *http.Client
	tlsConfig      *tls.Config
	baseURL        string
	connectTimeout time.Duration
	readTimeout    time.Duration

	initialized bool
}

// NewClient validates cfg and prepares the mutual TLS transport. If that
// fails the returned client is not initialized and every operation fails
// with KindNotInitialized; a new client has to be created once the
// configuration is fixed. registry may be nil.
func NewClient(ctx context.Context, cfg SessionConfig, registry OrderRegistry, opts ...Option) *Client {
	c := &Client{
		cfg:            cfg,
		registry:       registry,
		baseURL:        "https://" + cfg.Environment.Host(),
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx = slogctx.With(ctx, "environment", cfg.Environment.String())

	tlsConfig := c.tlsConfig
	if tlsConfig == nil {
		if err := cfg.Validate(); err != nil {
			slogctx.Error(ctx, "Invalid BankID session configuration", "error", err)
			return c
		}

		var err error
		tlsConfig, err = LoadTLSConfig(cfg.Environment, cfg.MTLS())
		if err != nil {
			slogctx.Error(ctx, "Failed to load BankID TLS configuration", "error", err)
			return c
		}
	}

	c.httpClient = &http.Client{
		Timeout: c.connectTimeout + c.readTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: c.connectTimeout,
			}).DialContext,
			TLSClientConfig:       tlsConfig,
			TLSHandshakeTimeout:   c.connectTimeout,
			ResponseHeaderTimeout: c.readTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
	c.initialized = true

	slogctx.Info(ctx, "BankID session initialised", "host", cfg.Environment.Host())

	return c
}

// Initialized reports whether the client can issue calls.
func (c *Client) Initialized() bool {
	return c.initialized
}

func (c *Client) Config() SessionConfig {
	return c.cfg
}

// Auth starts an authentication order and registers its QR generator.
func (c *Client) Auth(ctx context.Context, req AuthRequest) (*OrderResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)

	resp, err := call[OrderResponse](ctx, c, endpointAuth, req)
	if err != nil {
		return nil, err
	}

	if c.registry != nil {
		c.registry.Add(resp.OrderRef, resp.QRStartToken, resp.QRStartSecret)
	}

	return resp, nil
}

// Sign starts a signing order.
func (c *Client) Sign(ctx context.Context, req SignRequest) (*OrderResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)
	return call[OrderResponse](ctx, c, endpointSign, req)
}

// Payment starts a payment order.
func (c *Client) Payment(ctx context.Context, req PaymentRequest) (*OrderResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)
	return call[OrderResponse](ctx, c, endpointPayment, req)
}

// PhoneAuth starts an authentication order over the phone.
func (c *Client) PhoneAuth(ctx context.Context, req PhoneAuthRequest) (*LimitedResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)
	return call[LimitedResponse](ctx, c, endpointPhoneAuth, req)
}

// PhoneSign starts a signing order over the phone.
func (c *Client) PhoneSign(ctx context.Context, req PhoneSignRequest) (*LimitedResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)
	return call[LimitedResponse](ctx, c, endpointPhoneSign, req)
}

// OtherPayment starts a payment order for a user identified by personal number.
func (c *Client) OtherPayment(ctx context.Context, req OtherPaymentRequest) (*LimitedResponse, error) {
	req.Requirement = requirementOrNil(req.Requirement)
	return call[LimitedResponse](ctx, c, endpointOtherPayment, req)
}

// Collect returns the current state of an order.
func (c *Client) Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	return call[CollectResponse](ctx, c, endpointCollect, req)
}

// Cancel evicts the order's QR generator and cancels it. The eviction
// happens before the request and regardless of its outcome.
func (c *Client) Cancel(ctx context.Context, req CancelRequest) (*EmptyResponse, error) {
	if c.registry != nil {
		c.registry.Remove(req.OrderRef)
	}

	return call[EmptyResponse](ctx, c, endpointCancel, req)
}

func call[T any](ctx context.Context, c *Client, endpoint string, payload any) (*T, error) {
	ctx = slogctx.With(ctx, "endpoint", endpoint)

	if !c.initialized {
		slogctx.Error(ctx, "BankID session not initialized")
		return nil, newError(http.StatusInternalServerError, KindNotInitialized, "Session not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, KindInternalError, "Failed to encode request: "+err.Error())
	}

	slogctx.Debug(ctx, "Calling BankID")

	out, err := Classify[T](c.post(ctx, endpoint, body), nil)
	if err != nil {
		var bErr *Error
		if errors.As(err, &bErr) {
			slogctx.Warn(ctx, "BankID call failed", "status", bErr.HTTPStatus, "kind", bErr.Kind)
		}
		return nil, err
	}

	return &out, nil
}

// post returns nil when no complete response was received.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) *RawResponse {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiBasePath+endpoint, bytes.NewReader(body))
	if err != nil {
		slogctx.Error(ctx, "Failed to create BankID request", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slogctx.Error(ctx, "No response from BankID", "error", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slogctx.Error(ctx, "Failed to read BankID response", "error", err)
		return nil
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}
}
