// Package cmdutils runs the commands of the binary: it loads the
// configuration, sets up logging and telemetry, builds the BankID session
// and, for services, serves its readiness on the status server.
package cmdutils

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/internal/business"
	"github.com/openkcm/bankid-rp/internal/config"
)

const (
	healthStatusTimeout = 5 * time.Second

	bankIDCheckName = "bankid"
)

// BusinessFunc is the body of a command. It owns neither the session nor
// the ambient services around it.
type BusinessFunc func(ctx context.Context, cfg *config.Config, sess *business.Session) error

// Mode selects what runs around a BusinessFunc.
type Mode struct {
	Telemetry    bool
	StatusServer bool
}

var (
	// Service is a long running process exporting telemetry and serving
	// liveness and readiness.
	Service = Mode{Telemetry: true, StatusServer: true}
	// Job runs once and exits.
	Job = Mode{}
)

func CobraCommand(use, short, long, buildInfo string, mode Mode, fn BusinessFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := Run(cmd.Context(), mode, cfg, fn); err != nil {
				return fmt.Errorf("running %s: %w", use, err)
			}

			return nil
		},
	}
}

// Run builds the BankID session for fn and closes it once fn returns.
func Run(ctx context.Context, mode Mode, cfg *config.Config, fn BusinessFunc) error {
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to initialise the logger")
	}
	slogctx.Debug(ctx, "Starting the application", slog.Any("config", cfg))

	if mode.Telemetry {
		err = otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger)
		if err != nil {
			return oops.In("main").Wrapf(err, "Failed to load the telemetry")
		}
	}

	sess, err := business.NewSession(ctx, cfg)
	if err != nil {
		return oops.In("main").
			With("environment", cfg.BankID.Environment).
			Wrapf(err, "Failed to initialise the BankID session")
	}
	defer sess.Close()

	if mode.StatusServer {
		go func() {
			err := startStatusServer(ctx, cfg, sess)
			if err != nil {
				slogctx.Error(ctx, "Failure on the status server", "error", err)
				_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			}
		}()
	}

	err = fn(ctx, cfg, sess)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to run the BankID relying party")
	}

	return nil
}

func loadConfig(buildInfo string) (*config.Config, error) {
	cfg := &config.Config{}

	err := commoncfg.LoadConfig(cfg, map[string]any{}, "/etc/bankid-rp", "$HOME/.bankid-rp", ".")
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	err = commoncfg.UpdateConfigVersion(&cfg.BaseConfig, buildInfo)
	if err != nil {
		return nil, fmt.Errorf("updating the version configuration: %w", err)
	}

	return cfg, nil
}

// readinessCheck is down while the session cannot serve auth orders.
func readinessCheck(sess *business.Session) health.Check {
	return health.Check{
		Name:  bankIDCheckName,
		Check: sess.Ready,
	}
}

func startStatusServer(ctx context.Context, cfg *config.Config, sess *business.Session) error {
	liveness := status.WithLiveness(
		health.NewHandler(
			health.NewChecker(health.WithDisabledAutostart()),
		),
	)

	readiness := status.WithReadiness(
		health.NewHandler(
			health.NewChecker(
				health.WithDisabledAutostart(),
				health.WithTimeout(healthStatusTimeout),
				health.WithCheck(readinessCheck(sess)),
				health.WithStatusListener(statusListener),
			),
		),
	)

	err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness)
	if err != nil {
		return fmt.Errorf("starting status server: %w", err)
	}

	return nil
}

func statusListener(ctx context.Context, state health.State) {
	attrs := make([]any, 0, 2+2*len(state.CheckState))
	attrs = append(attrs, "status", state.Status)
	for name, check := range state.CheckState {
		attrs = append(attrs, "check."+name, check.Status)
		if check.Result != nil {
			attrs = append(attrs, "check."+name+".error", check.Result.Error())
		}
	}

	slogctx.Info(ctx, "readiness status changed", attrs...)
}
