package athena

import (
	"github.com/kiosk404/athena/internal/athena/config"
)

// Run runs the specified athena server. It should never exit.
func Run(cfg *config.Config) error {
	server, err := createAthenaServer(cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run()
}
