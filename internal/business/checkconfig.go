package business

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/config"
)

// CheckConfigMain reports the session built from the configuration. No
// request is sent to BankID.
func CheckConfigMain(ctx context.Context, _ *config.Config, sess *Session) error {
	if err := sess.Ready(ctx); err != nil {
		return err
	}

	sessionCfg := sess.Client.Config()
	slogctx.Info(ctx, "BankID configuration is valid",
		"environment", sessionCfg.Environment.String(),
		"host", sessionCfg.Environment.Host(),
		"caFile", sessionCfg.CAFilePath(),
	)

	return nil
}
