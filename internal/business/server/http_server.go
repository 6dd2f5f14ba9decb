package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/config"
	"github.com/openkcm/bankid-rp/internal/middleware/cors"
	"github.com/openkcm/bankid-rp/internal/serviceerr"
	"github.com/openkcm/bankid-rp/pkg/fingerprint"
)

// newRouter registers the auth routes. OPTIONS is routed so that the CORS
// middleware can answer preflight requests.
func newRouter(cfg *config.Config, h *authHandler) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(req.Context(), w, serviceerr.ErrNotFound)
	})
	r.Use(cors.Middleware(cfg.HTTP.AllowedOrigins), fingerprint.Middleware)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.Handle("/init", instrument(cfg, "init", http.HandlerFunc(h.init))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	api.Handle("/poll/{orderRef}", instrument(cfg, "poll", http.HandlerFunc(h.poll))).
		Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/cancel/{orderRef}", instrument(cfg, "cancel", http.HandlerFunc(h.cancel))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	return r
}

// createHTTPServer creates the REST API http server using the given config
func createHTTPServer(_ context.Context, cfg *config.Config, client BankIDClient, qrCodes QRCodes) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, newAuthHandler(cfg, client, qrCodes)),
	}
}

// StartHTTPServer serves the REST API until ctx is done, then shuts the
// server down gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, client BankIDClient, qrCodes QRCodes) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, client, qrCodes)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	network, address := splitNetworkAddress(server.Addr)

	listener, err := new(net.ListenConfig).Listen(ctx, network, address)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

// splitNetworkAddress splits addresses of the form network://address, e.g.
// unix:///run/bankid-rp.sock. Anything else listens on tcp.
func splitNetworkAddress(addr string) (network, address string) {
	network, address, ok := strings.Cut(addr, "://")
	if !ok || network == "" || address == "" {
		return "tcp", addr
	}
	return network, address
}
