package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	args   []map[string]interface{}
}

func (r *recorder) handle(name string, args map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	r.args = append(r.args, args)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func newRegistry(t *testing.T, cfg plugin.Config, states map[string]plugin.StateBlob) (*plugin.Registry, *recorder) {
	t.Helper()
	factories := plugin.NewInTreeRegistry()
	factories.MustRegister(PluginName, New)
	reg := (&plugin.RegistryConfig{
		Factories:     factories,
		Plugins:       []string{PluginName},
		PluginConfigs: map[string]plugin.Config{PluginName: cfg},
		States:        states,
	}).Complete().New()

	rec := &recorder{}
	unsubscribe := reg.Subscribe(rec.handle)
	require.NoError(t, reg.LoadPlugins(context.Background()))
	t.Cleanup(func() {
		reg.UnloadPlugins(context.Background())
		unsubscribe()
	})
	return reg, rec
}

func TestClock_TimerFires(t *testing.T) {
	reg, rec := newRegistry(t, nil, nil)

	out, err := reg.CallTool(context.Background(), "clock/set-timer", map[string]interface{}{"seconds": 0.05, "reason": "tea"})
	require.NoError(t, err)
	res := out.(map[string]interface{})
	assert.NotEmpty(t, res["id"])
	assert.NotEmpty(t, res["target_time"])

	require.Eventually(t, func() bool { return rec.count(EventTimerExpired) == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, "tea", rec.args[0]["reason"])
	assert.Equal(t, 0.05, rec.args[0]["seconds"])
	rec.mu.Unlock()
}

func TestClock_CancelTimer(t *testing.T) {
	reg, rec := newRegistry(t, nil, nil)

	out, err := reg.CallTool(context.Background(), "clock/set-timer", map[string]interface{}{"seconds": 0.1, "reason": "x"})
	require.NoError(t, err)
	id := out.(map[string]interface{})["id"]

	_, err = reg.CallTool(context.Background(), "clock/cancel-timer", map[string]interface{}{"id": id})
	require.NoError(t, err)
	_, err = reg.CallTool(context.Background(), "clock/cancel-timer", map[string]interface{}{"id": id})
	assert.Error(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rec.count(EventTimerExpired))
}

func TestClock_StateRoundTrip(t *testing.T) {
	reg, _ := newRegistry(t, nil, nil)
	for _, reason := range []string{"a", "b", "c"} {
		_, err := reg.CallTool(context.Background(), "clock/set-timer", map[string]interface{}{"seconds": 60, "reason": reason})
		require.NoError(t, err)
	}
	assert.Contains(t, reg.Descriptions()[0].Text, "There are 3 timers pending.")

	require.NoError(t, reg.UnloadPlugin(context.Background(), PluginName))
	blob := reg.States()[PluginName]
	require.NotNil(t, blob)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, reg.LoadPlugin(context.Background(), PluginName, nil))
	assert.Contains(t, reg.Descriptions()[0].Text, "There are 3 timers pending.")

	var s stateBlob
	require.NoError(t, json.Unmarshal(blob, &s))
	require.Len(t, s.Timers, 3)
	for _, timer := range s.Timers {
		remaining := time.Until(timer.TargetTime)
		assert.Less(t, remaining, 60*time.Second)
		assert.Greater(t, remaining, 50*time.Second)
	}
}

func TestClock_OverdueTimerFiresOnRestore(t *testing.T) {
	blob, err := json.Marshal(stateBlob{Timers: []Timer{{
		ID: "late", Seconds: 5, Reason: "missed", TargetTime: time.Now().Add(-time.Minute),
	}}})
	require.NoError(t, err)

	_, rec := newRegistry(t, nil, map[string]plugin.StateBlob{PluginName: blob})
	require.Eventually(t, func() bool { return rec.count(EventTimerExpired) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestClock_TicksAfterPluginsLoaded(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real tick")
	}
	_, rec := newRegistry(t, plugin.Config{"tick_every_seconds": 1}, nil)
	require.Eventually(t, func() bool { return rec.count(EventTick) >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestNew_RejectsNegativeTick(t *testing.T) {
	_, err := New(plugin.Config{"tick_every_seconds": -1})
	assert.Error(t, err)
}
