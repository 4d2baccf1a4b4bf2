package mcp

import (
	"context"
	"fmt"

	mcpTool "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/athena/pkg/version"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// session is one connected MCP server.
type session struct {
	tools []tool.BaseTool
	close func() error
}

// connector opens a server and discovers its tools.
type connector func(ctx context.Context, name string, cfg *ServerConfig) (*session, error)

func connect(ctx context.Context, name string, cfg *ServerConfig) (*session, error) {
	cli, err := createClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("server %q: create client: %w", name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "athena",
		Version: version.Get().GitVersion,
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("server %q: initialize: %w", name, err)
	}

	tools, err := mcpTool.GetTools(ctx, &mcpTool.Config{
		Cli:          cli,
		ToolNameList: cfg.ToolFilter,
	})
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("server %q: list tools: %w", name, err)
	}
	return &session{tools: tools, close: cli.Close}, nil
}

func createClient(cfg *ServerConfig) (*client.Client, error) {
	switch cfg.Transport {
	case TransportSSE:
		cli, err := client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		// SSE clients need an explicit Start before the handshake.
		if err := cli.Start(context.Background()); err != nil {
			return nil, err
		}
		return cli, nil
	default:
		return client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	}
}
