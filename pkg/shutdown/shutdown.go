// Package shutdown coordinates graceful termination. Shutdown managers detect
// the trigger (a signal, an admin call) and the registered callbacks run once.
package shutdown

import (
	"sync"
)

// Callback is run when a shutdown is requested.
type Callback interface {
	OnShutdown(string) error
}

// Func is a helper type so a plain function can be used as a Callback.
type Func func(string) error

// OnShutdown implements Callback.
func (f Func) OnShutdown(shutdownManager string) error {
	return f(shutdownManager)
}

// Manager starts listening for its trigger and reports back through GSInterface.
type Manager interface {
	GetName() string
	Start(gs GSInterface) error
	ShutdownStart() error
	ShutdownFinish() error
}

// ErrorHandler receives errors raised by managers and callbacks.
type ErrorHandler interface {
	OnError(err error)
}

// ErrorFunc is a helper type so a plain function can be used as an ErrorHandler.
type ErrorFunc func(err error)

// OnError implements ErrorHandler.
func (f ErrorFunc) OnError(err error) {
	f(err)
}

// GSInterface is the view of GracefulShutdown handed to managers.
type GSInterface interface {
	StartShutdown(sm Manager)
	ReportError(err error)
	AddShutdownCallback(callback Callback)
}

// GracefulShutdown holds the managers and callbacks.
type GracefulShutdown struct {
	mu           sync.Mutex
	callbacks    []Callback
	managers     []Manager
	errorHandler ErrorHandler
	once         sync.Once
}

// New returns an empty GracefulShutdown.
func New() *GracefulShutdown {
	return &GracefulShutdown{}
}

// Start starts all managers.
func (gs *GracefulShutdown) Start() error {
	for _, manager := range gs.managers {
		if err := manager.Start(gs); err != nil {
			return err
		}
	}
	return nil
}

// AddShutdownManager adds a manager that listens for shutdown triggers.
func (gs *GracefulShutdown) AddShutdownManager(manager Manager) {
	gs.managers = append(gs.managers, manager)
}

// AddShutdownCallback adds a callback. Callbacks run concurrently.
func (gs *GracefulShutdown) AddShutdownCallback(callback Callback) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.callbacks = append(gs.callbacks, callback)
}

// SetErrorHandler sets the handler for errors from managers and callbacks.
func (gs *GracefulShutdown) SetErrorHandler(errorHandler ErrorHandler) {
	gs.errorHandler = errorHandler
}

// StartShutdown runs every callback once, waiting for all of them.
func (gs *GracefulShutdown) StartShutdown(sm Manager) {
	gs.once.Do(func() {
		gs.ReportError(sm.ShutdownStart())

		gs.mu.Lock()
		callbacks := append([]Callback(nil), gs.callbacks...)
		gs.mu.Unlock()

		var wg sync.WaitGroup
		for _, cb := range callbacks {
			wg.Add(1)
			go func(cb Callback) {
				defer wg.Done()
				gs.ReportError(cb.OnShutdown(sm.GetName()))
			}(cb)
		}
		wg.Wait()

		gs.ReportError(sm.ShutdownFinish())
	})
}

// ReportError forwards a non-nil error to the error handler.
func (gs *GracefulShutdown) ReportError(err error) {
	if err != nil && gs.errorHandler != nil {
		gs.errorHandler.OnError(err)
	}
}
