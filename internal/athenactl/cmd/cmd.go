// Package cmd builds the athenactl command tree.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/athena/internal/athenactl/cmd/chat"
	"github.com/kiosk404/athena/internal/athenactl/cmd/events"
	"github.com/kiosk404/athena/internal/athenactl/cmd/plugins"
	"github.com/kiosk404/athena/internal/athenactl/cmd/tools"
	cmdutil "github.com/kiosk404/athena/internal/athenactl/cmd/util"
	genericapiserver "github.com/kiosk404/athena/internal/pkg/server"
	"github.com/kiosk404/athena/pkg/cli/genericclioptions"
	"github.com/kiosk404/athena/pkg/utils/cliflag"
	"github.com/kiosk404/athena/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewDefaultAthenaCtlCommand creates the `athenactl` command with default arguments.
func NewDefaultAthenaCtlCommand() *cobra.Command {
	return NewAthenaCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

// NewAthenaCtlCommand returns the root command wired to the given streams.
func NewAthenaCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	cmds := &cobra.Command{
		Use:   "athenactl",
		Short: "athenactl inspects and drives a running athena runtime",
		Long: fmt.Sprintf("%s\n%s", Banner(), heredoc.Doc(`
			athenactl is the operator CLI of the athena agent runtime.

			It lists, loads and unloads plugins, calls tools and emits events through the
			admin API, and chats with the runtime through the webui plugin.`)),
		Run:          runHelp,
		SilenceUsage: true,
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(err)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	addGlobalFlags(flags)

	_ = viper.BindPFlags(flags)
	cobra.OnInitialize(func() {
		genericapiserver.LoadConfig(viper.GetString(cmdutil.FlagConfig), "athenactl")
	})

	ioStreams := genericclioptions.IOStreams{In: in, Out: out, ErrOut: err}
	f := cmdutil.NewDefaultFactory()

	cmds.AddGroup(
		&cobra.Group{ID: "basic", Title: "Basic Commands:"},
		&cobra.Group{ID: "registry", Title: "Registry Commands:"},
	)
	for _, c := range []*cobra.Command{chat.NewCmdChat(f, ioStreams)} {
		c.GroupID = "basic"
		cmds.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		plugins.NewCmdPlugins(f, ioStreams),
		tools.NewCmdTools(f, ioStreams),
		events.NewCmdEvents(f, ioStreams),
	} {
		c.GroupID = "registry"
		cmds.AddCommand(c)
	}
	cmds.AddCommand(newCmdVersion(ioStreams))

	return cmds
}

func newCmdVersion(ioStreams genericclioptions.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(ioStreams.Out, version.Get().String())
		},
	}
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
