package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/config"
	"github.com/openkcm/bankid-rp/internal/middleware/cors"
	"github.com/openkcm/bankid-rp/internal/serviceerr"
	"github.com/openkcm/bankid-rp/pkg/bankid"
	"github.com/openkcm/bankid-rp/pkg/fingerprint"
)

const (
	// authCountdown is the number of seconds the frontend shows while waiting
	// for the user to open the BankID app.
	authCountdown = 60

	// ownerRetention outlives any BankID auth order.
	ownerRetention = 10 * time.Minute
)

// BankIDClient is the part of *bankid.Client used by the REST facade.
type BankIDClient interface {
	Auth(ctx context.Context, req bankid.AuthRequest) (*bankid.OrderResponse, error)
	Collect(ctx context.Context, req bankid.CollectRequest) (*bankid.CollectResponse, error)
	Cancel(ctx context.Context, req bankid.CancelRequest) (*bankid.EmptyResponse, error)
}

// QRCodes looks up the QR generator of a pending auth order.
type QRCodes interface {
	Get(orderRef string) (*bankid.QRGenerator, bool)
}

type initResponse struct {
	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken"`
	AuthCountdown  int    `json:"authCountdown"`
}

type pollResponse struct {
	Status         bankid.CollectStatus `json:"status"`
	OrderRef       string               `json:"orderRef"`
	HintCode       string               `json:"hintCode,omitempty"`
	QRCode         string               `json:"qrCode,omitempty"`
	AutoStartToken string               `json:"autoStartToken,omitempty"`
	User           *bankid.User         `json:"user,omitempty"`
}

type cancelResponse struct {
	Message string `json:"message"`
}

type authHandler struct {
	auth    config.Auth
	client  BankIDClient
	qrCodes QRCodes
	// results keeps completed orders so late polls do not reach BankID again.
	results *cache.Cache
	// owners maps an orderRef to the fingerprint of the client that started it.
	owners *cache.Cache
}

func newAuthHandler(cfg *config.Config, client BankIDClient, qrCodes QRCodes) *authHandler {
	return &authHandler{
		auth:    cfg.Auth,
		client:  client,
		qrCodes: qrCodes,
		results: cache.New(cfg.HTTP.ResultRetention, 2*cfg.HTTP.ResultRetention),
		owners:  cache.New(ownerRetention, ownerRetention),
	}
}

func (h *authHandler) authRequest() bankid.AuthRequest {
	req := bankid.AuthRequest{
		EndUserIP:             h.auth.EndUserIP,
		UserVisibleDataFormat: h.auth.UserVisibleDataFormat,
	}
	if h.auth.UserVisibleData != "" {
		req.UserVisibleData = base64.StdEncoding.EncodeToString([]byte(h.auth.UserVisibleData))
	}
	return req
}

func (h *authHandler) init(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if origin, err := cors.OriginFromContext(ctx); err == nil {
		ctx = slogctx.With(ctx, "origin", origin)
	}

	order, err := h.client.Auth(ctx, h.authRequest())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.bind(ctx, order.OrderRef)
	slogctx.Info(ctx, "Auth order started", "orderRef", order.OrderRef)

	writeJSON(ctx, w, http.StatusOK, initResponse{
		OrderRef:       order.OrderRef,
		AutoStartToken: order.AutoStartToken,
		AuthCountdown:  authCountdown,
	})
}

func (h *authHandler) poll(w http.ResponseWriter, r *http.Request) {
	orderRef := mux.Vars(r)["orderRef"]
	ctx := slogctx.With(r.Context(), "orderRef", orderRef)

	if err := h.checkOwner(ctx, orderRef); err != nil {
		writeError(ctx, w, err)
		return
	}

	if v, ok := h.results.Get(orderRef); ok {
		//nolint:forcetypeassert
		writeJSON(ctx, w, http.StatusOK, v.(pollResponse))
		return
	}

	res, err := h.client.Collect(ctx, bankid.CollectRequest{OrderRef: orderRef})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var resp pollResponse
	switch res.Status {
	case bankid.CollectStatusPending:
		resp, err = h.pending(orderRef, res.HintCode)
	case bankid.CollectStatusComplete:
		resp = pollResponse{Status: bankid.CollectStatusComplete, OrderRef: orderRef}
		if res.CompletionData != nil {
			resp.User = res.CompletionData.User
		}
		h.results.Set(orderRef, resp, cache.DefaultExpiration)
		slogctx.Info(ctx, "Auth order completed")
	case bankid.CollectStatusFailed:
		slogctx.Info(ctx, "Auth order failed, starting a new one", "hintCode", res.HintCode)
		resp, err = h.restart(ctx)
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *authHandler) pending(orderRef, hintCode string) (pollResponse, error) {
	code, err := h.nextQRCode(orderRef)
	if err != nil {
		return pollResponse{}, err
	}

	return pollResponse{
		Status:   bankid.CollectStatusPending,
		OrderRef: orderRef,
		HintCode: hintCode,
		QRCode:   code,
	}, nil
}

// restart replaces a failed order with a new one and returns its first QR
// code as a pending result.
func (h *authHandler) restart(ctx context.Context) (pollResponse, error) {
	order, err := h.client.Auth(ctx, h.authRequest())
	if err != nil {
		return pollResponse{}, err
	}

	h.bind(ctx, order.OrderRef)

	resp, err := h.pending(order.OrderRef, "")
	if err != nil {
		return pollResponse{}, err
	}
	resp.AutoStartToken = order.AutoStartToken

	return resp, nil
}

// bind records the client that started orderRef.
func (h *authHandler) bind(ctx context.Context, orderRef string) {
	if fp, err := fingerprint.FromContext(ctx); err == nil {
		h.owners.Set(orderRef, fp, cache.DefaultExpiration)
	}
}

// checkOwner rejects requests for orders started by another client. Orders
// this instance did not start are not checked.
func (h *authHandler) checkOwner(ctx context.Context, orderRef string) error {
	if orderRef == "" {
		return serviceerr.ErrMissingOrder
	}

	owner, ok := h.owners.Get(orderRef)
	if !ok {
		return nil
	}

	fp, err := fingerprint.FromContext(ctx)
	//nolint:forcetypeassert
	if err != nil || fp != owner.(string) {
		slogctx.Warn(ctx, "Order requested by another client")
		return serviceerr.ErrOrderNotOwned
	}

	return nil
}

func (h *authHandler) nextQRCode(orderRef string) (string, error) {
	g, ok := h.qrCodes.Get(orderRef)
	if !ok {
		return "", serviceerr.ErrQRCodeNotFound
	}
	return g.NextCode()
}

func (h *authHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderRef := mux.Vars(r)["orderRef"]
	ctx := slogctx.With(r.Context(), "orderRef", orderRef)

	if err := h.checkOwner(ctx, orderRef); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.results.Delete(orderRef)

	if _, err := h.client.Cancel(ctx, bankid.CancelRequest{OrderRef: orderRef}); err != nil {
		writeError(ctx, w, err)
		return
	}

	slogctx.Info(ctx, "Auth order cancelled")

	writeJSON(ctx, w, http.StatusOK, cancelResponse{Message: "Order cancelled successfully"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogctx.Error(ctx, "Failed to write response", "error", err)
	}
}

// writeError answers with the status and details of a BankID error, or
// with the status of a service error.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var bErr *bankid.Error
	var svcErr *serviceerr.Error

	switch {
	case errors.As(err, &bErr):
		slogctx.Warn(ctx, "BankID request failed", "status", bErr.HTTPStatus, "kind", bErr.Kind)
		http.Error(w, bErr.Details, bErr.HTTPStatus)
	case errors.As(err, &svcErr):
		slogctx.Warn(ctx, "Request failed", "error", svcErr)
		http.Error(w, svcErr.Error(), svcErr.HTTPStatus())
	default:
		slogctx.Error(ctx, "Unexpected error", "error", err)
		http.Error(w, serviceerr.ErrUnknown.Error(), serviceerr.ErrUnknown.HTTPStatus())
	}
}
