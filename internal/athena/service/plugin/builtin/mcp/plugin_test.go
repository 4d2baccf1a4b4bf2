package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name   string
	params map[string]*schema.ParameterInfo
	got    string
}

func (e *echoTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        e.name,
		Desc:        "Echoes its input.",
		ParamsOneOf: schema.NewParamsOneOfByParams(e.params),
	}, nil
}

func (e *echoTool) InvokableRun(_ context.Context, argsJSON string, _ ...tool.Option) (string, error) {
	e.got = argsJSON
	return "echo:" + argsJSON, nil
}

type fakeServers struct {
	mu     sync.Mutex
	tools  map[string][]tool.BaseTool
	fail   map[string]bool
	closed []string
}

func (f *fakeServers) dial(_ context.Context, name string, _ *ServerConfig) (*session, error) {
	if f.fail[name] {
		return nil, errors.New("connection refused")
	}
	return &session{
		tools: f.tools[name],
		close: func() error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.closed = append(f.closed, name)
			return nil
		},
	}, nil
}

func twoServers() plugin.Config {
	return plugin.Config{
		"servers": map[string]interface{}{
			"files": map[string]interface{}{"command": "mcp-files"},
			"web":   map[string]interface{}{"transport": "sse", "url": "http://127.0.0.1:9/sse"},
		},
	}
}

func newRegistry(t *testing.T, cfg plugin.Config, servers *fakeServers) (*plugin.Registry, error) {
	t.Helper()
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, func(c plugin.Config) (plugin.Plugin, error) {
		return newPlugin(c, servers.dial)
	})
	reg := (&plugin.RegistryConfig{
		Factories:     factories,
		Plugins:       []string{PluginName},
		PluginConfigs: map[string]plugin.Config{PluginName: cfg},
	}).Complete().New()
	return reg, reg.LoadPlugins(context.Background())
}

func TestToolsAreRegisteredPerServer(t *testing.T) {
	read := &echoTool{name: "read_file", params: map[string]*schema.ParameterInfo{
		"path":  {Type: schema.String, Desc: "File path.", Required: true},
		"limit": {Type: schema.Integer, Desc: "Max bytes."},
	}}
	servers := &fakeServers{tools: map[string][]tool.BaseTool{
		"files": {read},
		"web":   {&echoTool{name: "fetch"}},
	}}
	reg, err := newRegistry(t, twoServers(), servers)
	require.NoError(t, err)

	var names []string
	var spec plugin.ToolSpec
	for _, ts := range reg.Catalog().Tools {
		names = append(names, ts.Name)
		if ts.Name == "mcp/files/read_file" {
			spec = ts
		}
	}
	assert.Contains(t, names, "mcp/files/read_file")
	assert.Contains(t, names, "mcp/web/fetch")
	require.NotNil(t, spec.Args["path"])
	assert.Equal(t, plugin.TypeString, spec.Args["path"].Type)
	assert.True(t, spec.Args["path"].Required)
	assert.Equal(t, plugin.TypeNumber, spec.Args["limit"].Type)
	assert.False(t, spec.Args["limit"].Required)

	out, err := reg.CallTool(context.Background(), "mcp/files/read_file", map[string]interface{}{"path": "/tmp/a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"result": `echo:{"path":"/tmp/a"}`}, out)

	_, err = reg.CallTool(context.Background(), "mcp/files/read_file", map[string]interface{}{})
	assert.ErrorIs(t, err, plugin.ErrInvalidArgs)

	reg.UnloadPlugins(context.Background())
	assert.ElementsMatch(t, []string{"files", "web"}, servers.closed)
	for _, ts := range reg.Catalog().Tools {
		assert.NotContains(t, ts.Name, "mcp/")
	}
}

func TestPartialFailureIsTolerated(t *testing.T) {
	servers := &fakeServers{
		tools: map[string][]tool.BaseTool{"files": {&echoTool{name: "read_file"}}},
		fail:  map[string]bool{"web": true},
	}
	reg, err := newRegistry(t, twoServers(), servers)
	require.NoError(t, err)
	t.Cleanup(func() { reg.UnloadPlugins(context.Background()) })

	var text string
	for _, d := range reg.Descriptions() {
		if d.Plugin == PluginName {
			text = d.Text
		}
	}
	assert.Contains(t, text, "unavailable: web")
}

func TestAllServersFailing(t *testing.T) {
	servers := &fakeServers{fail: map[string]bool{"files": true, "web": true}}
	reg, err := newRegistry(t, twoServers(), servers)
	require.Error(t, err)
	assert.False(t, reg.IsLoaded(PluginName))
}

func TestConfigValidation(t *testing.T) {
	_, err := New(plugin.Config{"servers": map[string]interface{}{
		"broken": map[string]interface{}{"transport": "sse"},
	}})
	assert.ErrorContains(t, err, "url is required")

	_, err = New(plugin.Config{"servers": map[string]interface{}{
		"broken": map[string]interface{}{"transport": "grpc", "command": "x"},
	}})
	assert.ErrorContains(t, err, "unsupported transport")

	_, err = New(plugin.Config{"servers": map[string]interface{}{
		"broken": map[string]interface{}{"args": []string{"-y"}},
	}})
	assert.ErrorContains(t, err, "command is required")
}

func TestConvertNestedSchema(t *testing.T) {
	var s jsonSchema
	require.NoError(t, json.UnmarshalString(`{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}},
			"opts": {"type": ["object", "null"], "properties": {"deep": {"type": "boolean"}}, "required": ["deep"]},
			"any":  {}
		},
		"required": ["tags"]
	}`, &s))

	args := convertProperties(&s)
	assert.Equal(t, plugin.TypeArray, args["tags"].Type)
	assert.True(t, args["tags"].Required)
	assert.Equal(t, plugin.TypeString, args["tags"].Items.Type)
	assert.Equal(t, plugin.TypeObject, args["opts"].Type)
	assert.True(t, args["opts"].Fields["deep"].Required)
	assert.Equal(t, plugin.TypeBoolean, args["opts"].Fields["deep"].Type)
	assert.Equal(t, plugin.TypeString, args["any"].Type)
}
