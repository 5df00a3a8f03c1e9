package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ==============================
// Events
// ==============================

// Event is the input to the reducer: a gesture, a lifecycle change, a
// collaborator notification or the observed result of a Command.
type Event interface {
	eventMarker()
}

// TimedEvent stamps an event with its arrival time at the daemon loop.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// Grab reports a handle being grabbed. HandleNone releases.
type Grab struct {
	Handle int `json:"handle"`
}

func (Grab) eventMarker() {}

// Release reports the gesture ending without a trigger.
type Release struct{}

func (Release) eventMarker() {}

// Trigger reports a completed gesture on the active variant.
type Trigger struct {
	Code int `json:"code"`
	Sub  int `json:"sub,omitempty"`
}

func (Trigger) eventMarker() {}

// Pause is sent when the surface is hidden.
type Pause struct{}

func (Pause) eventMarker() {}

// Resume is sent when the surface is shown again.
type Resume struct{}

func (Resume) eventMarker() {}

// OrientationChanged reports a new display orientation.
type OrientationChanged struct {
	Orientation Orientation `json:"orientation"`
}

func (OrientationChanged) eventMarker() {}

// MenuKeyPressed reports a hardware menu key press.
type MenuKeyPressed struct{}

func (MenuKeyPressed) eventMarker() {}

// KeyboardChanged reports a hardware keyboard being opened or closed.
type KeyboardChanged struct {
	Open bool `json:"open"`
}

func (KeyboardChanged) eventMarker() {}

// ConfigChanged carries a new snapshot from the ConfigStore.
type ConfigChanged struct {
	Snapshot ConfigSnapshot `json:"snapshot"`
}

func (ConfigChanged) eventMarker() {}

// RingerChanged carries a ringer mode observed from the ringer service,
// either by notification or by an explicit read.
type RingerChanged struct {
	Mode RingerMode `json:"mode"`
}

func (RingerChanged) eventMarker() {}

// RingerModeApplied acknowledges a CmdSetRingerMode.
type RingerModeApplied struct {
	Mode RingerMode
}

func (RingerModeApplied) eventMarker() {}

// LaunchSucceeded reports a resolved and started launch.
type LaunchSucceeded struct {
	Ref  string
	Slot int
}

func (LaunchSucceeded) eventMarker() {}

// LaunchFailed reports a launch that could not be resolved or started.
type LaunchFailed struct {
	Ref  string
	Slot int
	Err  error
}

func (LaunchFailed) eventMarker() {}

// PingDue is emitted when the resume ping timer fires.
type PingDue struct {
	Token uint64
}

func (PingDue) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for a StateSnapshot on Reply.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for JSON serialization/deserialization.
// Only externally sourced events have a wire form.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "grab":
		var e Grab
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Grab: %w", err)
		}
		return e, nil

	case "release":
		return Release{}, nil

	case "trigger":
		var e Trigger
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal Trigger: %w", err)
		}
		return e, nil

	case "pause":
		return Pause{}, nil
	case "resume":
		return Resume{}, nil
	case "menu_key":
		return MenuKeyPressed{}, nil

	case "orientation_changed":
		var e OrientationChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal OrientationChanged: %w", err)
		}
		return e, nil

	case "keyboard_changed":
		var e KeyboardChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal KeyboardChanged: %w", err)
		}
		return e, nil

	case "ringer_changed":
		var e RingerChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal RingerChanged: %w", err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	withData := func(typ string, v any) error {
		env.Type = typ
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %T: %w", v, err)
		}
		env.Data = data
		return nil
	}

	var err error
	switch e := e.(type) {
	case Grab:
		err = withData("grab", e)
	case Release:
		env.Type = "release"
	case Trigger:
		err = withData("trigger", e)
	case Pause:
		env.Type = "pause"
	case Resume:
		env.Type = "resume"
	case MenuKeyPressed:
		env.Type = "menu_key"
	case OrientationChanged:
		err = withData("orientation_changed", e)
	case KeyboardChanged:
		err = withData("keyboard_changed", e)
	case RingerChanged:
		err = withData("ringer_changed", e)
	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(env)
}
