package shorttermmemory

import (
	"context"
	"testing"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, cfg plugin.Config) *plugin.Registry {
	t.Helper()
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, New)
	reg := (&plugin.RegistryConfig{
		Factories:     factories,
		Plugins:       []string{PluginName},
		PluginConfigs: map[string]plugin.Config{PluginName: cfg},
	}).Complete().New()
	require.NoError(t, reg.LoadPlugins(context.Background()))
	t.Cleanup(func() { reg.UnloadPlugins(context.Background()) })
	return reg
}

func call(t *testing.T, reg *plugin.Registry, tool string, args map[string]interface{}) error {
	t.Helper()
	_, err := reg.CallTool(context.Background(), "short-term-memory/"+tool, args)
	return err
}

func TestShortTermMemory(t *testing.T) {
	reg := newRegistry(t, plugin.Config{"max_messages": 2, "max_length": 10})

	require.NoError(t, call(t, reg, "add", map[string]interface{}{"message": "first"}))
	require.NoError(t, call(t, reg, "add", map[string]interface{}{"message": "second"}))
	assert.ErrorContains(t, call(t, reg, "add", map[string]interface{}{"message": "third"}), "full")
	assert.ErrorContains(t, call(t, reg, "edit", map[string]interface{}{"index": 0, "message": "far too long!"}), "too long")

	require.NoError(t, call(t, reg, "edit", map[string]interface{}{"index": 1, "message": "2nd"}))
	require.NoError(t, call(t, reg, "remove", map[string]interface{}{"index": 0}))
	assert.Error(t, call(t, reg, "remove", map[string]interface{}{"index": 5}))
	assert.Error(t, call(t, reg, "remove", map[string]interface{}{"index": 0.5}))

	assert.Contains(t, reg.Descriptions()[0].Text, `Current messages: ["2nd"]`)

	require.NoError(t, reg.UnloadPlugin(context.Background(), PluginName))
	require.NoError(t, reg.LoadPlugin(context.Background(), PluginName, plugin.Config{"max_messages": 2, "max_length": 10}))
	assert.Contains(t, reg.Descriptions()[0].Text, `Current messages: ["2nd"]`)
}
