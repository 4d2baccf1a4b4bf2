package plugin

import (
	"fmt"
)

// Phase is the lifecycle phase of a plugin handle.
//
//	absent -> loading -> loaded -> unloading -> absent
type Phase int

const (
	// PhaseAbsent means no handle exists for the name.
	PhaseAbsent Phase = iota
	// PhaseLoading covers factory, Load and SetState.
	PhaseLoading
	// PhaseLoaded means the plugin is live.
	PhaseLoaded
	// PhaseUnloading covers state gathering and Unload.
	PhaseUnloading
)

var phaseNames = map[Phase]string{
	PhaseAbsent:    "absent",
	PhaseLoading:   "loading",
	PhaseLoaded:    "loaded",
	PhaseUnloading: "unloading",
}

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
