package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/bankid-rp/internal/business"
	"github.com/openkcm/bankid-rp/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"BankID RP API server",
		"BankID RP API server hosts the public http API starting, polling and cancelling BankID authentications.",
		buildInfo,
		cmdutils.Service,
		business.Main,
	)
}
