package cmd

import (
	"github.com/kiosk404/athena/internal/athenactl/cmd/util"
	"github.com/spf13/pflag"
)

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String(util.FlagConfig, "", "Path to the athenactl configuration file.")
	flags.String(util.FlagServer, "127.0.0.1:11788", "Address of the athena admin API (host:port or URL).")
	flags.String(util.FlagUI, "ws://127.0.0.1:11790/ws", "Websocket URL of the webui plugin.")
	flags.String(util.FlagToken, "", "Bearer token for the admin API.")
}
