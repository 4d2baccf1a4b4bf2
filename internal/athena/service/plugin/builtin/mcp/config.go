package mcp

import (
	"fmt"
	"sort"
	"time"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config is the plugin configuration. The servers map uses the same shape
// as the Claude Desktop mcpServers section, keyed by server name.
type Config struct {
	Servers        map[string]*ServerConfig `mapstructure:"servers"`
	ConnectTimeout time.Duration            `mapstructure:"connect_timeout"`
}

// ServerConfig defines a single MCP server.
type ServerConfig struct {
	// Transport is "stdio" (default) or "sse".
	Transport string `mapstructure:"transport"`

	// stdio only.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`

	// sse only.
	URL string `mapstructure:"url"`

	// ToolFilter limits the exposed tools. Empty exposes all of them.
	ToolFilter []string `mapstructure:"tool_filter"`
}

// complete fills defaults and validates every server.
func (c *Config) complete() error {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	for _, name := range c.names() {
		srv := c.Servers[name]
		if srv == nil {
			return fmt.Errorf("servers.%s: empty server configuration", name)
		}
		if srv.Transport == "" {
			srv.Transport = TransportStdio
		}
		switch srv.Transport {
		case TransportStdio:
			if srv.Command == "" {
				return fmt.Errorf("servers.%s: command is required for stdio transport", name)
			}
		case TransportSSE:
			if srv.URL == "" {
				return fmt.Errorf("servers.%s: url is required for sse transport", name)
			}
		default:
			return fmt.Errorf("servers.%s: unsupported transport %q (must be 'stdio' or 'sse')", name, srv.Transport)
		}
	}
	return nil
}

func (c *Config) names() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
