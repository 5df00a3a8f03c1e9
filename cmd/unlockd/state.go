package main

import (
	"fmt"
	"time"
)

// Phase is the controller's interaction phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGrabbed
	// PhaseTransitioning is only held inside a single Reduce call while a
	// variant is being swapped; it is never observed between events.
	PhaseTransitioning
)

func (p Phase) String() string {
	switch p {
	case PhaseGrabbed:
		return "grabbed"
	case PhaseTransitioning:
		return "transitioning"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "grabbed":
		*p = PhaseGrabbed
	case "transitioning":
		*p = PhaseTransitioning
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// InteractionState is shared by routing and resource selection.
// Only the reducer mutates it.
type InteractionState struct {
	SilentMode        bool `json:"silent_mode"`
	Grabbed           bool `json:"grabbed"`
	CameraDisabled    bool `json:"camera_disabled"`
	CustomModeEnabled bool `json:"custom_mode_enabled"`
}

// SurfaceOptions are the daemon-level knobs that shape the controller.
type SurfaceOptions struct {
	// TabVariant is built when lockscreen_type selects the default layout.
	TabVariant VariantIdentity

	// Orientation is the orientation at startup.
	Orientation Orientation

	ResumePingDelay time.Duration

	// KeyguardBypass unlocks when a hardware keyboard is opened.
	KeyguardBypass bool

	// MenuKeyUnlock lets the menu key unlock.
	MenuKeyUnlock bool

	Builtins BuiltinRefs
}

// LockState is the daemon-owned state container. It is only touched by
// the daemon goroutine; other goroutines get a StateSnapshot.
type LockState struct {
	Phase      Phase
	GrabHandle int

	// Variant is the active widget; nil until the first configuration arrives.
	Variant WidgetVariant
	Factory VariantFactory

	// Built is the snapshot the active variant was constructed from. Live is
	// the latest snapshot from the store; a differing Live is reconciled at
	// the next Idle entry.
	Built ConfigSnapshot
	Live  ConfigSnapshot

	Orientation     Orientation
	WantOrientation Orientation

	Interaction InteractionState
	Slots       CustomSlots

	// Ringer is the last mode observed from the ringer service.
	Ringer      RingerMode
	RingerKnown bool

	// PendingRinger is the mode requested by a toggle and not yet acknowledged.
	PendingRinger *RingerMode

	// PingToken identifies the scheduled resume ping; 0 means none.
	PingToken     uint64
	lastPingToken uint64

	Paused       bool
	KeyboardOpen bool

	// Generation counts variant constructions.
	Generation uint64

	Options SurfaceOptions
}

// NewLockState returns an empty state using the production variant factory.
func NewLockState(opts SurfaceOptions) *LockState {
	if opts.ResumePingDelay <= 0 {
		opts.ResumePingDelay = defaultResumePingDelay
	}
	return &LockState{
		Factory:         newWidgetVariant,
		Live:            DefaultSnapshot(),
		Orientation:     opts.Orientation,
		WantOrientation: opts.Orientation,
		Options:         opts,
	}
}

// resourceEnv is what the active variant sees when picking resources. A
// toggle awaiting acknowledgement is shown as already applied.
func (s *LockState) resourceEnv() ResourceEnv {
	mode := s.Ringer
	if s.PendingRinger != nil {
		mode = *s.PendingRinger
	}
	return ResourceEnv{Interaction: s.Interaction, Ringer: mode}
}

func (s *LockState) nextPingToken() uint64 {
	s.lastPingToken++
	return s.lastPingToken
}

// StateSnapshot is a coherent copy of the controller state for other goroutines.
type StateSnapshot struct {
	Phase       Phase            `json:"phase"`
	Variant     *VariantIdentity `json:"variant,omitempty"`
	View        *View            `json:"view,omitempty"`
	Orientation Orientation      `json:"orientation"`
	Interaction InteractionState `json:"interaction"`
	Ringer      RingerMode       `json:"ringer"`
	RingerKnown bool             `json:"ringer_known"`
	Slots       CustomSlots      `json:"slots"`
	Paused      bool             `json:"paused"`
	Generation  uint64           `json:"generation"`
}

func (s *LockState) snapshot() StateSnapshot {
	snap := StateSnapshot{
		Phase:       s.Phase,
		Orientation: s.Orientation,
		Interaction: s.Interaction,
		Ringer:      s.Ringer,
		RingerKnown: s.RingerKnown,
		Slots:       s.Slots,
		Paused:      s.Paused,
		Generation:  s.Generation,
	}
	if s.Variant != nil {
		id := s.Variant.Identity()
		v := s.Variant.View()
		snap.Variant = &id
		snap.View = &v
	}
	return snap
}
