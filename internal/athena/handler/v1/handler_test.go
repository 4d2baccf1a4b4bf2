package v1

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/pkg/core"
	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPlugin struct {
	prefix string
	tools  []plugin.ToolDefinition
	events []plugin.EventDefinition
}

func newEcho(cfg plugin.Config) (plugin.Plugin, error) {
	p := &echoPlugin{}
	if prefix, ok := cfg["prefix"].(string); ok {
		p.prefix = prefix
	}
	return p, nil
}

func (p *echoPlugin) Load(_ context.Context, api plugin.API) error {
	p.events = []plugin.EventDefinition{{
		Name:        "echo/said",
		Description: "Something was said.",
		Args:        plugin.Args{"text": plugin.String("What was said.", true)},
	}}
	p.tools = []plugin.ToolDefinition{
		{
			Name:        "echo/say",
			Description: "Echoes the text back.",
			Args:        plugin.Args{"text": plugin.String("The text.", true)},
			Retvals:     plugin.Args{"text": plugin.String("The echoed text.", true)},
			Handler: func(_ context.Context, args map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"text": p.prefix + plugin.StringArg(args, "text")}, nil
			},
		},
		{
			Name:        "echo/fail",
			Description: "Always fails.",
			Args:        plugin.Args{},
			Handler: func(context.Context, map[string]interface{}) (interface{}, error) {
				return nil, errors.New("boom")
			},
		},
	}
	return plugin.RegisterAll(api, p.events, p.tools)
}

func (p *echoPlugin) Unload(_ context.Context, api plugin.API) error {
	return plugin.DeregisterAll(api, p.events, p.tools)
}

func (p *echoPlugin) State() (plugin.StateBlob, error) {
	return json.Marshal(map[string]string{"prefix": p.prefix})
}

func (p *echoPlugin) SetState(plugin.StateBlob) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *plugin.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	factories := plugin.NewInTreeRegistry()
	factories.MustRegister("echo", newEcho)
	registry := (&plugin.RegistryConfig{
		Factories: factories,
		Plugins:   []string{"echo"},
	}).Complete().New()
	require.NoError(t, registry.LoadPlugins(context.Background()))
	t.Cleanup(func() { registry.UnloadPlugins(context.Background()) })

	g := gin.New()
	ph := NewPluginHandler(registry)
	th := NewToolHandler(registry)
	eh := NewEventHandler(registry)
	sh := NewStateHandler(registry)
	g.GET("/v1/plugins", ph.List)
	g.POST("/v1/plugins/:name/load", ph.Load)
	g.POST("/v1/plugins/:name/unload", ph.Unload)
	g.GET("/v1/tools", th.List)
	g.POST("/v1/tools/call", th.Call)
	g.GET("/v1/events", eh.List)
	g.POST("/v1/events/emit", eh.Emit)
	g.GET("/v1/states", sh.List)
	g.GET("/v1/stream", NewStreamHandler(registry).Stream)
	return g, registry
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp core.ErrResponse
	decode(t, w, &resp)
	return resp.Code
}

func TestPluginList(t *testing.T) {
	g, _ := newTestRouter(t)

	w := do(g, http.MethodGet, "/v1/plugins", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Name   string   `json:"name"`
			Phase  string   `json:"phase"`
			Loaded bool     `json:"loaded"`
			Tools  []string `json:"tools"`
			Events []string `json:"events"`
		} `json:"data"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "echo", resp.Data[0].Name)
	assert.True(t, resp.Data[0].Loaded)
	assert.Equal(t, []string{"echo/fail", "echo/say"}, resp.Data[0].Tools)
	assert.Equal(t, []string{"echo/said"}, resp.Data[0].Events)
}

func TestPluginLoadUnload(t *testing.T) {
	g, registry := newTestRouter(t)

	w := do(g, http.MethodPost, "/v1/plugins/echo/unload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, registry.IsLoaded("echo"))

	w = do(g, http.MethodPost, "/v1/plugins/echo/unload", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrPluginNotLoaded, errorCode(t, w))

	w = do(g, http.MethodPost, "/v1/plugins/echo/load", `{"prefix":"> "}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, registry.IsLoaded("echo"))

	out, err := registry.CallTool(context.Background(), "echo/say", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"text": "> hi"}, out)

	// A loaded plugin is reloaded with the new config.
	w = do(g, http.MethodPost, "/v1/plugins/echo/load", `{"prefix":"# "}`)
	require.Equal(t, http.StatusOK, w.Code)
	out, err = registry.CallTool(context.Background(), "echo/say", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"text": "# hi"}, out)
}

func TestPluginLoadErrors(t *testing.T) {
	g, _ := newTestRouter(t)

	w := do(g, http.MethodPost, "/v1/plugins/nope/load", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrPluginNotFound, errorCode(t, w))

	w = do(g, http.MethodPost, "/v1/plugins/echo/load", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrBind, errorCode(t, w))
}

func TestToolCall(t *testing.T) {
	g, _ := newTestRouter(t)

	w := do(g, http.MethodPost, "/v1/tools/call", `{"name":"echo/say","args":{"text":"hello"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp CallToolResponse
	decode(t, w, &resp)
	assert.Equal(t, "echo/say", resp.Name)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, map[string]interface{}{"text": "hello"}, resp.Result)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   int
	}{
		{name: "unknown tool", body: `{"name":"echo/nope"}`, wantStatus: http.StatusNotFound, wantCode: ErrToolNotFound},
		{name: "invalid args", body: `{"name":"echo/say","args":{"text":3}}`, wantStatus: http.StatusBadRequest, wantCode: ErrToolArgs},
		{name: "missing args", body: `{"name":"echo/say"}`, wantStatus: http.StatusBadRequest, wantCode: ErrToolArgs},
		{name: "handler error", body: `{"name":"echo/fail"}`, wantStatus: http.StatusInternalServerError, wantCode: ErrToolCall},
		{name: "missing name", body: `{"args":{}}`, wantStatus: http.StatusBadRequest, wantCode: ErrBind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(g, http.MethodPost, "/v1/tools/call", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestCatalogEndpoints(t *testing.T) {
	g, _ := newTestRouter(t)

	w := do(g, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tools struct {
		Data []plugin.ToolSpec `json:"data"`
	}
	decode(t, w, &tools)
	require.Len(t, tools.Data, 2)
	assert.Equal(t, "echo/fail", tools.Data[0].Name)
	assert.Equal(t, "echo/say", tools.Data[1].Name)
	assert.Equal(t, "Echoes the text back.", tools.Data[1].Desc)

	w = do(g, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Data []plugin.EventSpec `json:"data"`
	}
	decode(t, w, &events)
	require.Len(t, events.Data, 1)
	assert.Equal(t, "echo/said", events.Data[0].Name)
}

func TestEventEmit(t *testing.T) {
	g, registry := newTestRouter(t)

	var got []string
	unsubscribe := registry.Subscribe(func(name string, args map[string]interface{}) {
		got = append(got, name+":"+plugin.StringArg(args, "text"))
	})
	defer unsubscribe()

	w := do(g, http.MethodPost, "/v1/events/emit", `{"name":"echo/said","args":{"text":"hey"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"echo/said:hey"}, got)

	w = do(g, http.MethodPost, "/v1/events/emit", `{"name":"echo/unknown"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrEventNotFound, errorCode(t, w))

	w = do(g, http.MethodPost, "/v1/events/emit", `{"name":"echo/said"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrEventArgs, errorCode(t, w))
}

func TestStates(t *testing.T) {
	g, _ := newTestRouter(t)

	do(g, http.MethodPost, "/v1/plugins/echo/load", `{"prefix":"$ "}`)

	w := do(g, http.MethodGet, "/v1/states", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data map[string]map[string]string `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "$ ", resp.Data["echo"]["prefix"])
}

func TestStream(t *testing.T) {
	g, registry := newTestRouter(t)
	srv := httptest.NewServer(g)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Headers are flushed after the subscription exists.
	registry.EmitPrivateEvent("cerebrum/busy", map[string]interface{}{"busy": true})

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if event != "" && data != "" {
			break
		}
	}
	require.Equal(t, "cerebrum/busy", event)

	var frame StreamFrame
	require.NoError(t, json.UnmarshalString(data, &frame))
	assert.Equal(t, "cerebrum/busy", frame.Name)
	assert.Equal(t, map[string]interface{}{"busy": true}, frame.Data)
}
