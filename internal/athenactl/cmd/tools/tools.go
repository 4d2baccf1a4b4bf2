// Package tools implements the `athenactl tools` command group.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/athenactl/cmd/util"
	"github.com/kiosk404/athena/pkg/cli/genericclioptions"
	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
)

const descWidth = 64

// NewCmdTools returns the tools command group.
func NewCmdTools(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and call registered tools",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdList(f, ioStreams))
	cmd.AddCommand(newCmdCall(f, ioStreams))
	return cmd
}

// ListOptions is an options struct to support 'tools list'.
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
		Short:   "List the registered tools",
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Print the arguments of every tool.")
	return cmd
}

func (o *ListOptions) Run(ctx context.Context) error {
	tools, err := o.factory.AdminClient().ListTools(ctx)
	if err != nil {
		return err
	}

	table := uitable.New()
	table.AddRow("NAME", "DESCRIPTION")
	for _, t := range tools {
		table.AddRow(color.CyanString(t.Name), wordwrap.WrapString(t.Desc, descWidth))
		if o.Verbose {
			for _, line := range FormatArgs(t.Args) {
				table.AddRow("", line)
			}
		}
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

// FormatArgs renders one line per argument, nested fields indented.
func FormatArgs(args plugin.Args) []string {
	var lines []string
	formatArgs(&lines, args, "  ")
	return lines
}

func formatArgs(lines *[]string, args plugin.Args, indent string) {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := args[name]
		if s == nil {
			continue
		}
		req := ""
		if s.Required {
			req = " required"
		}
		*lines = append(*lines, fmt.Sprintf("%s%s (%s%s): %s", indent, name, s.Type, req, s.Desc))
		switch {
		case s.Fields != nil:
			formatArgs(lines, s.Fields, indent+"  ")
		case s.Items != nil && s.Items.Fields != nil:
			formatArgs(lines, s.Items.Fields, indent+"  ")
		}
	}
}

// CallOptions is an options struct to support 'tools call'.
type CallOptions struct {
	Name string
	Args string
	Set  []string

	factory util.Factory
	genericclioptions.IOStreams
}

func newCmdCall(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &CallOptions{factory: f, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:   "call NAME [key=value...]",
		Short: "Call a tool and print its result",
		Example: heredoc.Doc(`
			# Evaluate an expression
			athenactl tools call calculator/evaluate expression="2 ** 10"

			# Set a timer with JSON arguments
			athenactl tools call clock/set-timer --args '{"seconds": 60, "reason": "tea"}'`),
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			o.Name = args[0]
			o.Set = args[1:]
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&o.Args, "args", o.Args, "Tool arguments as a JSON object.")
	return cmd
}

func (o *CallOptions) Run(ctx context.Context) error {
	args, err := util.ParseArgs(o.Args, o.Set)
	if err != nil {
		return err
	}
	result, err := o.factory.AdminClient().CallTool(ctx, o.Name, args)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, strings.TrimSpace(string(out)))
	return nil
}
