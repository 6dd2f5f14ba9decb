package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/bankid-rp/cmd/bankid-rp/apiserver"
	"github.com/openkcm/bankid-rp/cmd/bankid-rp/checkconfig"
)

// BuildInfo will be set by the build system
var BuildInfo = "{}"

// app carries what the root command learns from its flags and subcommands.
type app struct {
	buildInfo        string
	gracefulShutdown time.Duration
	skipShutdown     bool
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "BankID RP Version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.skipShutdown = true

			value, err := utils.ExtractFromComplexValue(a.buildInfo)
			if err != nil {
				return err
			}

			slog.InfoContext(cmd.Context(), value)

			return nil
		},
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bankid-rp",
		Short:         "BankID RP",
		Long:          "BankID relying party service, authenticating users with animated QR codes over the BankID RP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&a.gracefulShutdown, "graceful-shutdown", time.Second,
		"time to wait after the command returned, letting telemetry exporters flush")

	cmd.AddCommand(
		a.versionCmd(),
		apiserver.Cmd(a.buildInfo),
		checkconfig.Cmd(a.buildInfo),
	)

	return cmd
}

// execute runs the command named by args and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string, stderr io.Writer) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to start the application", "error", err)
		_, _ = fmt.Fprintln(stderr, err)

		return 1
	}

	if !a.skipShutdown && a.gracefulShutdown > 0 {
		_, _ = fmt.Fprintf(stderr, "Graceful shutdown in %s\n", a.gracefulShutdown)
		time.Sleep(a.gracefulShutdown)
	}

	return 0
}

func main() {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelOnSignal()

	a := &app{buildInfo: BuildInfo}
	code := a.execute(ctx, os.Args[1:], os.Stderr)

	cancelOnSignal()
	os.Exit(code)
}
