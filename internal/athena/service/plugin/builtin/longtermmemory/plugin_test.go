package longtermmemory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongTermMemory(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ltm.db")
	cfg := plugin.Config{"db_path": dbPath}

	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, New)
	reg := (&plugin.RegistryConfig{Factories: factories}).Complete().New()
	require.NoError(t, reg.LoadPlugin(ctx, PluginName, cfg))

	_, err := reg.CallTool(ctx, "long-term-memory/store", map[string]interface{}{
		"key":  "user/name",
		"desc": "The user's name.",
		"data": map[string]interface{}{"name": "Ada"},
	})
	require.NoError(t, err)

	out, err := reg.CallTool(ctx, "long-term-memory/list", nil)
	require.NoError(t, err)
	list := out.(map[string]interface{})["list"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "user/name", list[0].(map[string]interface{})["key"])

	// Entries survive a reload.
	require.NoError(t, reg.UnloadPlugin(ctx, PluginName))
	require.NoError(t, reg.LoadPlugin(ctx, PluginName, cfg))
	t.Cleanup(func() { _ = reg.UnloadPlugin(ctx, PluginName) })

	out, err = reg.CallTool(ctx, "long-term-memory/retrieve", map[string]interface{}{"key": "user/name"})
	require.NoError(t, err)
	got := out.(map[string]interface{})
	assert.Equal(t, "The user's name.", got["desc"])
	assert.Equal(t, map[string]interface{}{"name": "Ada"}, got["data"])

	_, err = reg.CallTool(ctx, "long-term-memory/remove", map[string]interface{}{"key": "user/name"})
	require.NoError(t, err)
	_, err = reg.CallTool(ctx, "long-term-memory/retrieve", map[string]interface{}{"key": "user/name"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.CallTool(ctx, "long-term-memory/remove", map[string]interface{}{"key": "user/name"})
	assert.ErrorIs(t, err, ErrNotFound)
}
