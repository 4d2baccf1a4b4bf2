// Package chat implements `athenactl chat`, a line mode client of the webui
// plugin.
package chat

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/athena/internal/athenactl/cmd/util"
	"github.com/kiosk404/athena/pkg/cli/genericclioptions"
	"github.com/kiosk404/athena/pkg/version"
	"github.com/spf13/cobra"
)

var chatExample = heredoc.Doc(`
	# Chat through the webui plugin on its default address
	athenactl chat

	# Connect to another address and hand the model a fresh API key
	athenactl chat --ui=ws://10.0.0.2:11790/ws --api-key=$OPENAI_API_KEY`)

// ChatOptions is an options struct to support 'chat' sub command.
type ChatOptions struct {
	APIKey      string
	Raw         bool
	DialTimeout time.Duration

	factory util.Factory
	genericclioptions.IOStreams
}

// NewChatOptions returns an initialized ChatOptions instance.
func NewChatOptions(f util.Factory, ioStreams genericclioptions.IOStreams) *ChatOptions {
	return &ChatOptions{
		factory:     f,
		IOStreams:   ioStreams,
		DialTimeout: 10 * time.Second,
	}
}

// NewCmdChat returns new initialized instance of 'chat' sub command.
func NewCmdChat(f util.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewChatOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "chat",
		DisableFlagsInUseLine: true,
		Short:                 "Chat with athena through the webui plugin",
		Long: heredoc.Doc(`
			Open a line mode conversation with athena.

			Messages are delivered as ui/message-received events. The model's thoughts,
			tool calls and ui/send-message replies are printed as they arrive.`),
		Example: chatExample,
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context()))
		},
	}

	cmd.Flags().StringVar(&o.APIKey, "api-key", o.APIKey, "Send this LLM API key to the runtime once connected.")
	cmd.Flags().BoolVar(&o.Raw, "raw", o.Raw, "Print replies without Markdown rendering.")
	cmd.Flags().DurationVar(&o.DialTimeout, "dial-timeout", o.DialTimeout, "Timeout for connecting to the webui plugin.")

	return cmd
}

// Run executes the chat sub command.
func (o *ChatOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := o.factory.UIAddress()
	p := newPrinter(o.Out, !o.Raw)

	dialCtx, cancel := context.WithTimeout(ctx, o.DialTimeout)
	s, err := dial(dialCtx, addr, p)
	cancel()
	if err != nil {
		return err
	}

	if o.APIKey != "" {
		if err := s.send(ctx, "token", map[string]interface{}{"token": o.APIKey}); err != nil {
			return err
		}
	}

	p.banner(addr, version.Get().GitVersion)
	return s.run(ctx, o.In)
}
