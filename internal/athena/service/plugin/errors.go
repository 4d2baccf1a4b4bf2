package plugin

import (
	"errors"
)

// Registry contract violations. They are always returned wrapped with the
// offending name, test them with errors.Is.
var (
	ErrAlreadyLoaded  = errors.New("plugin already loaded")
	ErrNotLoaded      = errors.New("plugin not loaded")
	ErrUnknownPlugin  = errors.New("unknown plugin")
	ErrDuplicateTool  = errors.New("tool already registered")
	ErrUnknownTool    = errors.New("tool not registered")
	ErrDuplicateEvent = errors.New("event already registered")
	ErrUnknownEvent   = errors.New("event not registered")
	ErrInvalidArgs    = errors.New("invalid arguments")
)
