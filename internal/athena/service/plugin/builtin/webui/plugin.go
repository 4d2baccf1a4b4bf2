// Package webui serves a websocket that lets a browser or terminal client
// talk to the agent and watch what it is doing.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	PluginName = "webui"
	logModule  = "webui"

	EventMessageReceived = "ui/message-received"
	ToolSendMessage      = "ui/send-message"

	// PrivateTokenRefreshed carries {token} from a client to the model plugins.
	PrivateTokenRefreshed = "webui/token-refreshed"
)

// relayed private events are forwarded to every client as {type, data}.
var relayed = map[string]bool{
	"cerebrum/thinking":      true,
	"cerebrum/busy":          true,
	"cerebrum/error":         true,
	plugin.PrivateToolCall:   true,
	plugin.PrivateToolResult: true,
	plugin.PrivateEvent:      true,
}

type Config struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`

	// OriginPatterns lists extra origins allowed to open the socket.
	OriginPatterns  []string      `mapstructure:"origin_patterns"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Plugin struct {
	cfg Config

	mu      sync.Mutex
	api     plugin.API
	clients map[*client]struct{}
	addr    net.Addr

	srv         *http.Server
	serve       *errgroup.Group
	ctx         context.Context
	cancel      context.CancelFunc
	conns       sync.WaitGroup
	unsubscribe func()

	events []plugin.EventDefinition
	tools  []plugin.ToolDefinition
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	conf := Config{
		Addr:            "127.0.0.1:11790",
		Path:            "/ws",
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
	if err := cfg.Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode webui config: %w", err)
	}
	return &Plugin{cfg: conf, clients: make(map[*client]struct{})}, nil
}

func (p *Plugin) Describe() string {
	return "A user may talk to you through the web UI. Their messages arrive as " + EventMessageReceived +
		" events; answer them with " + ToolSendMessage + "."
}

func (p *Plugin) Load(ctx context.Context, api plugin.API) error {
	p.events = []plugin.EventDefinition{{
		Name:        EventMessageReceived,
		Description: "The user sent a message from the web UI.",
		Args: plugin.Args{
			"content": plugin.String("The message text.", true),
			"time":    plugin.String("When the message was sent, RFC 3339.", true),
		},
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{Summary: "UI message", Details: plugin.StringArg(args, "content")}
		},
	}}
	p.tools = []plugin.ToolDefinition{{
		Name:        ToolSendMessage,
		Description: "Sends a message to the user in the web UI.",
		Args: plugin.Args{
			"content": plugin.String("The message text.", true),
		},
		Retvals: plugin.Args{
			"status":  plugin.String("The status of the operation.", true),
			"clients": plugin.Number("How many UI clients received the message.", true),
		},
		Handler: p.sendMessage,
		ExplainArgs: func(args map[string]interface{}) *plugin.Explanation {
			return &plugin.Explanation{Summary: "Replying in the UI", Details: plugin.StringArg(args, "content")}
		},
	}}
	if err := plugin.RegisterAll(api, p.events, p.tools); err != nil {
		return err
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		_ = plugin.DeregisterAll(api, p.events, p.tools)
		return fmt.Errorf("listen on %s: %w", p.cfg.Addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(p.cfg.Path, p.handleSocket)

	p.mu.Lock()
	p.api = api
	p.addr = ln.Addr()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	p.serve = &errgroup.Group{}
	srv := p.srv
	p.mu.Unlock()

	p.serve.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorX(logModule, "serve: %v", err)
			return err
		}
		return nil
	})
	p.unsubscribe = api.SubscribePrivate(p.onPrivateEvent)
	logger.InfoX(logModule, "listening on ws://%s%s", ln.Addr(), p.cfg.Path)
	return nil
}

func (p *Plugin) Unload(ctx context.Context, api plugin.API) error {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}

	p.mu.Lock()
	srv, serve, cancel := p.srv, p.serve, p.cancel
	p.api = nil
	p.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
	}
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
		errs = append(errs, srv.Shutdown(shutdownCtx))
		done()
		errs = append(errs, serve.Wait())
	}
	p.conns.Wait()
	errs = append(errs, plugin.DeregisterAll(api, p.events, p.tools))
	return errors.Join(errs...)
}

// Addr is the bound listen address, useful when the port was 0.
func (p *Plugin) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

func (p *Plugin) onPrivateEvent(name string, data interface{}) {
	if relayed[name] {
		p.broadcast(frame{Type: name, Data: data})
	}
}

func (p *Plugin) sendMessage(_ context.Context, args map[string]interface{}) (interface{}, error) {
	n := p.broadcast(frame{Type: "message", Data: map[string]interface{}{
		"content": plugin.StringArg(args, "content"),
		"time":    time.Now().Format(time.RFC3339),
	}})
	status := "success"
	if n == 0 {
		status = "no UI client is connected, the message was not delivered"
	}
	return map[string]interface{}{"status": status, "clients": n}, nil
}

// broadcast queues f on every client and returns how many accepted it.
func (p *Plugin) broadcast(f frame) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for c := range p.clients {
		if c.enqueue(f) {
			n++
		} else {
			logger.WarnX(logModule, "client %s is too slow, dropping %s", c.remote, f.Type)
		}
	}
	return n
}

func (p *Plugin) register(c *client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.api == nil {
		return false
	}
	p.clients[c] = struct{}{}
	return true
}

func (p *Plugin) unregister(c *client) {
	p.mu.Lock()
	delete(p.clients, c)
	p.mu.Unlock()
}

// handle dispatches one client frame.
func (p *Plugin) handle(c *client, in frame) {
	p.mu.Lock()
	api := p.api
	p.mu.Unlock()
	if api == nil {
		return
	}

	switch in.Type {
	case "ping":
		c.enqueue(frame{Type: "pong"})
	case "message":
		content := dataString(in.Data, "content")
		if content == "" {
			c.enqueue(errorFrame("message content is empty"))
			return
		}
		err := api.EmitEvent(EventMessageReceived, map[string]interface{}{
			"content": content,
			"time":    time.Now().Format(time.RFC3339),
		})
		if err != nil {
			c.enqueue(errorFrame(err.Error()))
		}
	case "token":
		token := dataString(in.Data, "token")
		if token == "" {
			c.enqueue(errorFrame("token is empty"))
			return
		}
		api.EmitPrivateEvent(PrivateTokenRefreshed, map[string]interface{}{"token": token})
	default:
		c.enqueue(errorFrame("unknown message type: " + in.Type))
	}
}

func dataString(data interface{}, key string) string {
	if m, ok := data.(map[string]interface{}); ok {
		return plugin.StringArg(m, key)
	}
	return ""
}
