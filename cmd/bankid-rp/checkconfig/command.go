package checkconfig

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/bankid-rp/internal/business"
	"github.com/openkcm/bankid-rp/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"check-config",
		"Validate the BankID configuration",
		"Loads the configuration and the mutual TLS material and exits non-zero if the BankID client cannot be initialised.",
		buildInfo,
		cmdutils.Job,
		business.CheckConfigMain,
	)
}
