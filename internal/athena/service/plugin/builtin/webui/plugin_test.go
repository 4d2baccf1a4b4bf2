package webui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	reg  *plugin.Registry
	ui   *Plugin
	conn *websocket.Conn

	mu      sync.Mutex
	events  []map[string]interface{}
	private []interface{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{}
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, func(cfg plugin.Config) (plugin.Plugin, error) {
		p, err := New(cfg)
		if err == nil {
			h.ui = p.(*Plugin)
		}
		return p, err
	})
	h.reg = (&plugin.RegistryConfig{
		Factories:     factories,
		Plugins:       []string{PluginName},
		PluginConfigs: map[string]plugin.Config{PluginName: {"addr": "127.0.0.1:0"}},
	}).Complete().New()

	unsub := h.reg.Subscribe(func(name string, args map[string]interface{}) {
		if name == EventMessageReceived {
			h.mu.Lock()
			h.events = append(h.events, args)
			h.mu.Unlock()
		}
	})
	unsubPrivate := h.reg.SubscribePrivate(func(name string, data interface{}) {
		if name == PrivateTokenRefreshed {
			h.mu.Lock()
			h.private = append(h.private, data)
			h.mu.Unlock()
		}
	})
	require.NoError(t, h.reg.LoadPlugins(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+h.ui.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	h.conn = conn

	t.Cleanup(func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.reg.UnloadPlugins(context.Background())
		unsub()
		unsubPrivate()
	})

	// A pong proves the server registered the client.
	h.write(t, frame{Type: "ping"})
	assert.Equal(t, "pong", h.read(t).Type)
	return h
}

func (h *harness) write(t *testing.T, f frame) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, h.conn, f))
}

func (h *harness) read(t *testing.T) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var f frame
	require.NoError(t, wsjson.Read(ctx, h.conn, &f))
	return f
}

// readType skips frames until one of the given type arrives.
func (h *harness) readType(t *testing.T, typ string) frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := h.read(t); f.Type == typ {
			return f
		}
	}
	t.Fatalf("no %s frame received", typ)
	return frame{}
}

func TestClientMessageBecomesEvent(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame{Type: "message", Data: map[string]interface{}{"content": "hello"}})

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.events) == 1
	}, 2*time.Second, 10*time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, "hello", h.events[0]["content"])
	assert.NotEmpty(t, h.events[0]["time"])
}

func TestSendMessageReachesClient(t *testing.T) {
	h := newHarness(t)
	out, err := h.reg.CallTool(context.Background(), ToolSendMessage, map[string]interface{}{"content": "hi there"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.(map[string]interface{})["clients"])

	f := h.readType(t, "message")
	assert.Equal(t, "hi there", f.Data.(map[string]interface{})["content"])
}

func TestPrivateEventsAreRelayed(t *testing.T) {
	h := newHarness(t)
	h.reg.EmitPrivateEvent("cerebrum/unrelated", nil)
	h.reg.EmitPrivateEvent("cerebrum/thinking", map[string]interface{}{"content": "hmm"})

	f := h.readType(t, "cerebrum/thinking")
	assert.Equal(t, "hmm", f.Data.(map[string]interface{})["content"])
}

func TestTokenIsForwarded(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame{Type: "token", Data: map[string]interface{}{"token": "sk-new"}})

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.private) == 1
	}, 2*time.Second, 10*time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, map[string]interface{}{"token": "sk-new"}, h.private[0])
}

func TestUnknownFrame(t *testing.T) {
	h := newHarness(t)
	h.write(t, frame{Type: "dance"})
	f := h.read(t)
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, f.Data.(map[string]interface{})["content"], "unknown message type")
}
