// athena is the plugin driven agent runtime daemon.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/athena/internal/athena"
)

func main() {
	athena.NewApp("athena").Run()
}
