// Package plugins implements the `athenactl plugins` command group.
package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/athena/internal/athenactl/cmd/util"
	"github.com/kiosk404/athena/pkg/cli/genericclioptions"
	"github.com/spf13/cobra"
)

// NewCmdPlugins returns the plugins command group.
func NewCmdPlugins(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List, load and unload plugins",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdList(f, ioStreams))
	cmd.AddCommand(newCmdLoad(f, ioStreams))
	cmd.AddCommand(newCmdUnload(f, ioStreams))
	return cmd
}

// ListOptions is an options struct to support 'plugins list'.
type ListOptions struct {
	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdList(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &ListOptions{factory: f, IOStreams: ioStreams}
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every built-in plugin and its phase",
		Example: heredoc.Doc(`
			# List plugins
			athenactl plugins list`),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
}

func (o *ListOptions) Run(ctx context.Context) error {
	plugins, err := o.factory.AdminClient().ListPlugins(ctx)
	if err != nil {
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("NAME", "PHASE", "TOOLS", "EVENTS")
	for _, p := range plugins {
		table.AddRow(p.Name, phaseColor(p.Phase), len(p.Tools), len(p.Events))
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

func phaseColor(phase string) string {
	switch phase {
	case "loaded":
		return color.GreenString(phase)
	case "loading", "unloading":
		return color.YellowString(phase)
	default:
		return color.New(color.Faint).Sprint(phase)
	}
}

// LoadOptions is an options struct to support 'plugins load'.
type LoadOptions struct {
	Name   string
	Config string
	Set    []string

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdLoad(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &LoadOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "load NAME [key=value...]",
		Short: "Load a plugin, reloading it when it is already loaded",
		Example: heredoc.Doc(`
			# Load the clock plugin ticking every minute
			athenactl plugins load clock tick_every_seconds=60

			# Load the webui plugin with a JSON configuration
			athenactl plugins load webui --config '{"addr":"127.0.0.1:11790"}'`),
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Complete(args))
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&o.Config, "config", o.Config, "Plugin configuration as a JSON object.")
	return cmd
}

func (o *LoadOptions) Complete(args []string) error {
	o.Name = args[0]
	o.Set = args[1:]
	return nil
}

func (o *LoadOptions) Run(ctx context.Context) error {
	cfg, err := util.ParseArgs(o.Config, o.Set)
	if err != nil {
		return err
	}
	if err := o.factory.AdminClient().LoadPlugin(ctx, o.Name, cfg); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "plugin %s loaded\n", color.GreenString(o.Name))
	return nil
}

// UnloadOptions is an options struct to support 'plugins unload'.
type UnloadOptions struct {
	Names []string

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdUnload(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &UnloadOptions{factory: f, IOStreams: ioStreams}
	return &cobra.Command{
		Use:   "unload NAME...",
		Short: "Unload plugins",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			o.Names = args
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
}

func (o *UnloadOptions) Run(ctx context.Context) error {
	c := o.factory.AdminClient()
	var failed []string
	for _, name := range o.Names {
		if err := c.UnloadPlugin(ctx, name); err != nil {
			fmt.Fprintf(o.ErrOut, "unload %s: %v\n", name, err)
			failed = append(failed, name)
			continue
		}
		fmt.Fprintf(o.Out, "plugin %s unloaded\n", color.GreenString(name))
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to unload %s", strings.Join(failed, ", "))
	}
	return nil
}
