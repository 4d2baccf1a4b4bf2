package shutdown

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type manualManager struct {
	started  bool
	finished bool
}

func (m *manualManager) GetName() string            { return "manual" }
func (m *manualManager) Start(gs GSInterface) error { m.started = true; return nil }
func (m *manualManager) ShutdownStart() error       { return nil }
func (m *manualManager) ShutdownFinish() error      { m.finished = true; return nil }

func TestStartShutdownRunsCallbacksOnce(t *testing.T) {
	gs := New()
	m := &manualManager{}
	gs.AddShutdownManager(m)

	var calls int32
	gs.AddShutdownCallback(Func(func(name string) error {
		assert.Equal(t, "manual", name)
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	var reported []error
	gs.SetErrorHandler(ErrorFunc(func(err error) { reported = append(reported, err) }))
	gs.AddShutdownCallback(Func(func(string) error { return errors.New("boom") }))

	assert.NoError(t, gs.Start())
	assert.True(t, m.started)

	gs.StartShutdown(m)
	gs.StartShutdown(m)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, m.finished)
	assert.Len(t, reported, 1)
}
