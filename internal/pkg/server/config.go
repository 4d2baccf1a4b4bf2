package server

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/spf13/viper"
)

const (
	// RecommendedHomeDir defines the default directory used to place all athena service configurations.
	RecommendedHomeDir = ".athena"

	// RecommendedEnvPrefix defines the ENV prefix used by all athena service.
	RecommendedEnvPrefix = "ATHENA"
)

// Config is a structure used to configure a GenericAPIServer.
type Config struct {
	InsecureServing *InsecureServingInfo
	Mode            string
	Middlewares     []string
	Healthz         bool
	EnableProfiling bool
	ShutdownTimeout time.Duration
}

// InsecureServingInfo holds configuration of the insecure http server.
type InsecureServingInfo struct {
	Address string
}

// NewConfig returns a Config struct with the default values.
func NewConfig() *Config {
	return &Config{
		Healthz:         true,
		Mode:            gin.ReleaseMode,
		Middlewares:     []string{},
		EnableProfiling: true,
		ShutdownTimeout: 10 * time.Second,
		InsecureServing: &InsecureServingInfo{Address: "127.0.0.1:11788"},
	}
}

// SetAddress fills the serving address from a host and a port.
func (s *InsecureServingInfo) SetAddress(host string, port int) {
	s.Address = net.JoinHostPort(host, strconv.Itoa(port))
}

// CompletedConfig is the completed configuration for GenericAPIServer.
type CompletedConfig struct {
	*Config
}

// Complete fills in any fields not set that are required to have valid data.
func (c *Config) Complete() CompletedConfig {
	if c.InsecureServing == nil || c.InsecureServing.Address == "" {
		c.InsecureServing = &InsecureServingInfo{Address: "127.0.0.1:11788"}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return CompletedConfig{c}
}

// New returns a new instance of GenericAPIServer from the given config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)

	s := &GenericAPIServer{
		InsecureServingInfo: c.InsecureServing,
		healthz:             c.Healthz,
		enableProfiling:     c.EnableProfiling,
		middlewares:         c.Middlewares,
		shutdownTimeout:     c.ShutdownTimeout,
		Engine:              gin.New(),
	}

	initGenericAPIServer(s)

	return s, nil
}

// LoadConfig reads in config file and ENV variables if set.
func LoadConfig(cfg string, defaultName string) {
	if cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("conf")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, RecommendedHomeDir))
		}
		viper.SetConfigName(defaultName)
	}

	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix(RecommendedEnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("WARNING: viper failed to discover and load the configuration file: %s", err.Error())
	}
}
