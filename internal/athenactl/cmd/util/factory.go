// Package util holds helpers shared by athenactl commands.
package util

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kiosk404/athena/internal/athenactl/client"
	"github.com/spf13/viper"
)

// Global flag names, also readable from the athenactl configuration file.
const (
	FlagServer = "server"
	FlagUI     = "ui"
	FlagToken  = "token"
	FlagConfig = "config"
)

// Factory provides the resources commands need.
type Factory interface {
	// AdminClient returns a client of the athena admin API.
	AdminClient() *client.Client
	// UIAddress returns the websocket URL of the webui plugin.
	UIAddress() string
}

type factoryImpl struct{}

// NewDefaultFactory returns a Factory reading the global flags through viper.
func NewDefaultFactory() Factory {
	return factoryImpl{}
}

func (factoryImpl) AdminClient() *client.Client {
	return client.New(viper.GetString(FlagServer), viper.GetString(FlagToken), nil)
}

func (factoryImpl) UIAddress() string {
	addr := viper.GetString(FlagUI)
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		addr = "ws://" + addr
	}
	return addr
}

var fatalErrHandler = fatal

// CheckErr prints a user friendly error and exits with a non-zero code.
func CheckErr(err error) {
	if err == nil {
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fatalErrHandler(fmt.Sprintf("error from server: %s", apiErr.Error()), 1)
		return
	}
	fatalErrHandler(err.Error(), 1)
}

func fatal(msg string, code int) {
	if len(msg) > 0 {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, color.RedString(msg))
	}
	os.Exit(code)
}

// UsageErrorf returns an error pointing the user at the command help.
func UsageErrorf(cmdPath string, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s\nSee '%s -h' for help and examples", msg, cmdPath)
}
