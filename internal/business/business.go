package business

import (
	"context"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/business/server"
	"github.com/openkcm/bankid-rp/internal/config"
)

// Main serves the REST API with the session until ctx is done.
func Main(ctx context.Context, cfg *config.Config, sess *Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// errChan is used to capture the first error and shutdown the server.
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	wg.Go(func() {
		errChan <- server.StartHTTPServer(ctx, cfg, sess.Client, sess.QRCodes)
	})

	// wait for the server to stop or fail
	err := <-errChan
	if err != nil {
		slogctx.Error(ctx, "Shutting down", "error", err)
	}
	cancel()

	wg.Wait()

	slogctx.Info(ctx, "Stopped", "pendingQRCodes", sess.QRCodes.Len())

	return err
}
