package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, map[string]plugin.StateBlob{
		"clock":    plugin.StateBlob(`{"timers":[]}`),
		"cerebrum": plugin.StateBlob(`{"prompts":[]}`),
		"empty":    nil,
	}))
	require.NoError(t, s.Save(ctx, map[string]plugin.StateBlob{
		"clock": plugin.StateBlob(`{"timers":[{"id":"1"}]}`),
	}))
	require.NoError(t, s.Delete(ctx, "cerebrum"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	states, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 1)
	assert.JSONEq(t, `{"timers":[{"id":"1"}]}`, string(states["clock"]))
}
