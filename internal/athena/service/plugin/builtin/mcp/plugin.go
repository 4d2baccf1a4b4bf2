// Package mcp exposes the tools of Model Context Protocol servers as
// registry tools named mcp/<server>/<tool>.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/utils/json"
)

const (
	PluginName = "mcp"
	logModule  = "mcp"
)

type Plugin struct {
	cfg     Config
	connect connector

	mu       sync.Mutex
	sessions map[string]*session
	tools    []plugin.ToolDefinition
	failed   map[string]string
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return newPlugin(cfg, connect)
}

func newPlugin(cfg plugin.Config, dial connector) (*Plugin, error) {
	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode mcp config: %w", err)
	}
	if err := conf.complete(); err != nil {
		return nil, err
	}
	return &Plugin{cfg: conf, connect: dial}, nil
}

// Load connects to every server concurrently. A server that fails to
// connect is logged and skipped; Load fails only when all of them do.
func (p *Plugin) Load(ctx context.Context, api plugin.API) error {
	names := p.cfg.names()
	if len(names) == 0 {
		logger.InfoX(logModule, "no MCP servers configured")
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sessions = make(map[string]*session, len(names))
		failed   = make(map[string]string)
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			s, err := p.connect(connectCtx, name, p.cfg.Servers[name])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WarnX(logModule, "server %q failed to connect: %v", name, err)
				failed[name] = err.Error()
				return
			}
			sessions[name] = s
		}(name)
	}
	wg.Wait()

	logger.InfoX(logModule, "%d/%d servers connected", len(sessions), len(names))
	if len(sessions) == 0 {
		return fmt.Errorf("all %d MCP servers failed to connect", len(names))
	}

	var tools []plugin.ToolDefinition
	for _, name := range names {
		s, ok := sessions[name]
		if !ok {
			continue
		}
		for _, t := range s.tools {
			def, err := toolDefinition(ctx, name, t)
			if err != nil {
				logger.WarnX(logModule, "server %q: skip tool: %v", name, err)
				continue
			}
			tools = append(tools, def)
		}
	}

	p.mu.Lock()
	p.sessions = sessions
	p.failed = failed
	p.tools = tools
	p.mu.Unlock()

	if err := plugin.RegisterAll(api, nil, tools); err != nil {
		_ = plugin.DeregisterAll(api, nil, tools)
		p.closeAll()
		return err
	}
	return nil
}

func (p *Plugin) Unload(_ context.Context, api plugin.API) error {
	p.mu.Lock()
	tools := p.tools
	p.tools = nil
	p.mu.Unlock()

	err := plugin.DeregisterAll(api, nil, tools)
	p.closeAll()
	return err
}

func (p *Plugin) closeAll() {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions = nil
	p.mu.Unlock()

	for name, s := range sessions {
		if s.close == nil {
			continue
		}
		if err := s.close(); err != nil {
			logger.WarnX(logModule, "server %q: close client: %v", name, err)
		}
	}
}

func (p *Plugin) Describe() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tools) == 0 && len(p.failed) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You can use tools provided by %d external MCP servers, named mcp/<server>/<tool>.", len(p.sessions))
	if len(p.failed) > 0 {
		down := make([]string, 0, len(p.failed))
		for name := range p.failed {
			down = append(down, name)
		}
		sort.Strings(down)
		fmt.Fprintf(&b, " These servers are unavailable: %s.", strings.Join(down, ", "))
	}
	return b.String()
}

func toolDefinition(ctx context.Context, server string, t tool.BaseTool) (plugin.ToolDefinition, error) {
	invokable, ok := t.(tool.InvokableTool)
	if !ok {
		return plugin.ToolDefinition{}, errors.New("tool is not invokable")
	}
	name, desc, args, err := toolArgs(ctx, t)
	if err != nil {
		return plugin.ToolDefinition{}, err
	}
	return plugin.ToolDefinition{
		Name:        fmt.Sprintf("%s/%s/%s", PluginName, server, name),
		Description: desc,
		Args:        args,
		Retvals: plugin.Args{
			"result": plugin.String("The output of the tool.", true),
		},
		Handler: invoke(invokable),
	}, nil
}

func invoke(t tool.InvokableTool) plugin.ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if args == nil {
			args = map[string]interface{}{}
		}
		argsJSON, err := json.MarshalString(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		out, err := t.InvokableRun(ctx, argsJSON)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"result": out}, nil
	}
}
