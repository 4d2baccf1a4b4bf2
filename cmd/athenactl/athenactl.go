package main

import (
	"os"

	"github.com/kiosk404/athena/internal/athenactl/cmd"
)

func main() {
	command := cmd.NewDefaultAthenaCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
