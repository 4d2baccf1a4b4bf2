package cmd

import (
	"fmt"

	"github.com/kiosk404/athena/pkg/version"
)

const bannerText = `
     _   _   _                    
    / \ | |_| |__   ___ _ __   __ _ 
   / _ \| __| '_ \ / _ \ '_ \ / _' |
  / ___ \ |_| | | |  __/ | | | (_| |
 /_/   \_\__|_| |_|\___|_| |_|\__,_|

        Athena agent runtime
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", bannerText, version.Get().String())
}
