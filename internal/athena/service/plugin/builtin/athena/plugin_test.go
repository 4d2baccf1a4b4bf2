package athena

import (
	"context"
	"testing"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/internal/athena/service/plugin/builtin/shorttermmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, New)
	factories.MustRegister(shorttermmemory.PluginName, shorttermmemory.New)
	reg := (&plugin.RegistryConfig{
		Factories: factories,
		Plugins:   []string{PluginName},
	}).Complete().New()
	require.NoError(t, reg.LoadPlugins(context.Background()))
	t.Cleanup(func() { reg.UnloadPlugins(context.Background()) })
	return reg
}

func TestLoadListUnload(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	_, err := reg.CallTool(ctx, "athena/load-plugin", map[string]interface{}{
		"name": shorttermmemory.PluginName,
		"args": map[string]interface{}{"max_messages": 3},
	})
	require.NoError(t, err)
	assert.True(t, reg.IsLoaded(shorttermmemory.PluginName))

	out, err := reg.CallTool(ctx, "athena/list-plugins", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"plugins": []interface{}{
		map[string]interface{}{"name": PluginName, "loaded": true},
		map[string]interface{}{"name": shorttermmemory.PluginName, "loaded": true},
	}}, out)

	// Reloading an already loaded plugin succeeds.
	_, err = reg.CallTool(ctx, "athena/load-plugin", map[string]interface{}{"name": shorttermmemory.PluginName})
	require.NoError(t, err)
	assert.True(t, reg.IsLoaded(shorttermmemory.PluginName))

	_, err = reg.CallTool(ctx, "athena/unload-plugin", map[string]interface{}{"name": shorttermmemory.PluginName})
	require.NoError(t, err)
	assert.False(t, reg.IsLoaded(shorttermmemory.PluginName))
}

func TestRefusesToTouchItself(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.CallTool(context.Background(), "athena/unload-plugin", map[string]interface{}{"name": PluginName})
	assert.ErrorContains(t, err, "cannot unload itself")
	_, err = reg.CallTool(context.Background(), "athena/load-plugin", map[string]interface{}{"name": PluginName})
	assert.ErrorContains(t, err, "cannot reload itself")
	assert.True(t, reg.IsLoaded(PluginName))
}

func TestUnknownPlugin(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.CallTool(context.Background(), "athena/load-plugin", map[string]interface{}{"name": "nope"})
	assert.Error(t, err)
}

func TestDescribeListsAvailable(t *testing.T) {
	reg := newRegistry(t)
	var text string
	for _, d := range reg.Descriptions() {
		if d.Plugin == PluginName {
			text = d.Text
		}
	}
	assert.Contains(t, text, shorttermmemory.PluginName)
}
