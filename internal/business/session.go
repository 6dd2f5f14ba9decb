package business

import (
	"context"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/config"
	"github.com/openkcm/bankid-rp/internal/serviceerr"
	"github.com/openkcm/bankid-rp/pkg/bankid"
)

var errSweeperStopped = errors.New("QR cache sweeper stopped")

// Session is the BankID client of the process and the cache holding the QR
// generators of its pending auth orders.
type Session struct {
	Client  *bankid.Client
	QRCodes *bankid.QRCache
}

// NewSession loads the mutual TLS material and builds the client. The QR
// cache sweeper runs until Close or until ctx is done.
func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	sessionCfg, err := config.MakeSessionConfig(cfg.BankID)
	if err != nil {
		return nil, fmt.Errorf("making bankid session config: %w", err)
	}

	tlsConfig, err := config.LoadTLSConfig(cfg.BankID, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising the bankid client: %w: %w", serviceerr.ErrNotInitialized, err)
	}

	qrCodes := bankid.NewQRCache(ctx, bankid.WithSweepInterval(cfg.QRCache.SweepInterval))

	client := bankid.NewClient(ctx, sessionCfg, qrCodes, bankid.WithTLSConfig(tlsConfig))
	if !client.Initialized() {
		qrCodes.Shutdown()
		return nil, fmt.Errorf("initialising the bankid client: %w", serviceerr.ErrNotInitialized)
	}

	return &Session{Client: client, QRCodes: qrCodes}, nil
}

// Ready fails when the client cannot issue calls or expired QR generators
// are no longer swept.
func (s *Session) Ready(ctx context.Context) error {
	switch {
	case !s.Client.Initialized():
		return serviceerr.ErrNotInitialized
	case !s.QRCodes.Running():
		slogctx.Warn(ctx, "QR cache is not swept", "pendingQRCodes", s.QRCodes.Len())
		return errSweeperStopped
	default:
		return nil
	}
}

func (s *Session) Close() {
	s.QRCodes.Shutdown()
}
