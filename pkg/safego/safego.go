package safego

import (
	"context"
	"runtime/debug"

	"github.com/kiosk404/athena/pkg/logger"
)

// Go runs fn in a new goroutine and logs any panic instead of crashing the process.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer Recover(ctx)
		fn()
	}()
}

// Recover logs a recovered panic with its stack. It must be deferred directly.
func Recover(ctx context.Context) {
	if r := recover(); r != nil {
		if ctx != nil && ctx.Err() != nil {
			logger.Warn("[SafeGo] panic after context done (%v): %v\n%s", ctx.Err(), r, debug.Stack())
			return
		}
		logger.Error("[SafeGo] recovered panic: %v\n%s", r, debug.Stack())
	}
}
