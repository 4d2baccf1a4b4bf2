// Package events implements the `athenactl events` command group.
package events

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/athena/internal/athenactl/cmd/tools"
	"github.com/kiosk404/athena/internal/athenactl/cmd/util"
	"github.com/kiosk404/athena/pkg/cli/genericclioptions"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
)

// NewCmdEvents returns the events command group.
func NewCmdEvents(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and emit registered events",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdList(f, ioStreams))
	cmd.AddCommand(newCmdEmit(f, ioStreams))
	return cmd
}

// ListOptions is an options struct to support 'events list'.
type ListOptions struct {
	Verbose bool

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdList(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &ListOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the registered events",
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Print the arguments of every event.")
	return cmd
}

func (o *ListOptions) Run(ctx context.Context) error {
	events, err := o.factory.AdminClient().ListEvents(ctx)
	if err != nil {
		return err
	}

	table := uitable.New()
	table.AddRow("NAME", "DESCRIPTION")
	for _, e := range events {
		table.AddRow(color.MagentaString(e.Name), wordwrap.WrapString(e.Desc, 64))
		if o.Verbose {
			for _, line := range tools.FormatArgs(e.Args) {
				table.AddRow("", line)
			}
		}
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

// EmitOptions is an options struct to support 'events emit'.
type EmitOptions struct {
	Name string
	Args string
	Set  []string

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdEmit(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &EmitOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "emit NAME [key=value...]",
		Short: "Emit an event as if a plugin had raised it",
		Example: heredoc.Doc(`
			# Pretend the web UI received a message
			athenactl events emit ui/message-received content="hello" time=2024-01-01T00:00:00Z`),
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			o.Name = args[0]
			o.Set = args[1:]
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&o.Args, "args", o.Args, "Event arguments as a JSON object.")
	return cmd
}

func (o *EmitOptions) Run(ctx context.Context) error {
	args, err := util.ParseArgs(o.Args, o.Set)
	if err != nil {
		return err
	}
	if err := o.factory.AdminClient().EmitEvent(ctx, o.Name, args); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "event %s emitted\n", color.MagentaString(o.Name))
	return nil
}
