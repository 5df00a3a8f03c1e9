package main

import "fmt"

// Action is the semantic result of routing a trigger. Exactly one of
// Unlock, ToggleRingerMode, LaunchConfigured, LaunchCamera or NoOp.
type Action interface {
	actionMarker()
	String() string
}

// Unlock proceeds to the unlock (or security) screen.
type Unlock struct{}

// ToggleRingerMode flips between normal and silent (or vibrate).
type ToggleRingerMode struct{}

// LaunchConfigured runs the custom app configured in Slot, then unlocks.
type LaunchConfigured struct {
	Slot int
}

// LaunchCamera runs the fixed camera action, then unlocks.
type LaunchCamera struct{}

// NoOp is returned for codes the active variant does not map.
type NoOp struct{}

func (Unlock) actionMarker()           {}
func (ToggleRingerMode) actionMarker() {}
func (LaunchConfigured) actionMarker() {}
func (LaunchCamera) actionMarker()     {}
func (NoOp) actionMarker()             {}

func (Unlock) String() string             { return "unlock" }
func (ToggleRingerMode) String() string   { return "toggle_ringer_mode" }
func (a LaunchConfigured) String() string { return fmt.Sprintf("launch_configured(%d)", a.Slot) }
func (LaunchCamera) String() string       { return "launch_camera" }
func (NoOp) String() string               { return "noop" }

// actionKind is the slot-free label used for metrics.
func actionKind(a Action) string {
	switch a.(type) {
	case Unlock:
		return "unlock"
	case ToggleRingerMode:
		return "toggle_ringer_mode"
	case LaunchConfigured:
		return "launch_configured"
	case LaunchCamera:
		return "launch_camera"
	default:
		return "noop"
	}
}
