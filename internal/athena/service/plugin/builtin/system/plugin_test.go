package system

import (
	"context"
	"testing"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, New)
	reg := (&plugin.RegistryConfig{
		Factories: factories,
		Plugins:   []string{PluginName},
	}).Complete().New()
	require.NoError(t, reg.LoadPlugins(context.Background()))
	defer reg.UnloadPlugins(context.Background())

	out, err := reg.CallTool(context.Background(), "system/get-info", nil)
	require.NoError(t, err)
	info, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, info["hostname"])
	assert.NotEmpty(t, info["os_release"])
	assert.Contains(t, info, "cpu_cores")
	assert.Contains(t, info, "uptime_sec")
}
