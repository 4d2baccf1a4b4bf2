package athena

import (
	"github.com/kiosk404/athena/internal/athena/config"
	"github.com/kiosk404/athena/internal/athena/options"
	"github.com/kiosk404/athena/pkg/app"
	"github.com/kiosk404/athena/pkg/logger"
)

const commandDesc = `Athena is a plugin driven agent runtime.

Plugins contribute tools and events to a shared registry. The cerebrum plugin
feeds events to a language model and dispatches the tool calls it answers with.

Find more information in the README of the project.`

// NewApp creates an App object with default parameters.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("Athena agent runtime",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)

	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		logger.SetLevel(opts.LogOptions.Level)
		if err := logger.InitLog(opts.LogOptions.File); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts, app.ConfigFile())
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
