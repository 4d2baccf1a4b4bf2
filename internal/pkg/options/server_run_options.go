package options

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/pkg/server"
	"github.com/spf13/pflag"
)

// ServerRunOptions contains the options while running the admin API server.
type ServerRunOptions struct {
	Mode            string   `json:"mode"             mapstructure:"mode"`
	Healthz         bool     `json:"healthz"          mapstructure:"healthz"`
	Middlewares     []string `json:"middlewares"      mapstructure:"middlewares"`
	BindAddress     string   `json:"bind-address"     mapstructure:"bind-address"`
	BindPort        int      `json:"bind-port"        mapstructure:"bind-port"`
	EnableProfiling bool     `json:"enable-profiling" mapstructure:"enable-profiling"`
	// AuthToken enables bearer authentication for non-loopback callers when set.
	AuthToken string `json:"-" mapstructure:"auth-token"`
}

// NewServerRunOptions creates a new ServerRunOptions object with default parameters.
func NewServerRunOptions() *ServerRunOptions {
	defaults := server.NewConfig()

	return &ServerRunOptions{
		Mode:            defaults.Mode,
		Healthz:         defaults.Healthz,
		Middlewares:     defaults.Middlewares,
		BindAddress:     "127.0.0.1",
		BindPort:        11788,
		EnableProfiling: defaults.EnableProfiling,
	}
}

// ApplyTo applies the run options to the method receiver and returns self.
func (s *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.Mode = s.Mode
	c.Healthz = s.Healthz
	c.Middlewares = s.Middlewares
	c.EnableProfiling = s.EnableProfiling
	c.InsecureServing = &server.InsecureServingInfo{}
	c.InsecureServing.SetAddress(s.BindAddress, s.BindPort)

	return nil
}

// Validate checks validation of ServerRunOptions.
func (s *ServerRunOptions) Validate() []error {
	var errs []error

	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("--serving.mode must be one of debug, release, test, got %q", s.Mode))
	}
	if s.BindPort < 0 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--serving.bind-port %v must be between 0 and 65535, inclusive", s.BindPort))
	}

	return errs
}

// AddFlags adds flags for a specific APIServer to the specified FlagSet.
func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.Mode, "serving.mode", s.Mode, ""+
		"Start the server in a specified server mode. Supported server mode: debug, test, release.")
	fs.BoolVar(&s.Healthz, "serving.healthz", s.Healthz, ""+
		"Add self readiness check and install /healthz router.")
	fs.StringSliceVar(&s.Middlewares, "serving.middlewares", s.Middlewares, ""+
		"List of allowed middlewares for server, comma separated. If this list is empty default middlewares will be used.")
	fs.StringVar(&s.BindAddress, "serving.bind-address", s.BindAddress, ""+
		"The IP address on which to serve the admin API.")
	fs.IntVar(&s.BindPort, "serving.bind-port", s.BindPort, ""+
		"The port on which to serve the admin API. Set to zero to disable.")
	fs.BoolVar(&s.EnableProfiling, "serving.enable-profiling", s.EnableProfiling, ""+
		"Enable profiling via web interface host:port/debug/pprof/")
	fs.StringVar(&s.AuthToken, "serving.auth-token", s.AuthToken, ""+
		"Bearer token required from non-loopback admin API callers.")
}
