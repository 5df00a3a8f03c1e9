package main

import (
	"slices"
	"time"
)

// RawTrigger is a gesture completion as reported by a variant, before
// routing gives it meaning.
type RawTrigger struct {
	Variant VariantIdentity `json:"variant"`
	Code    int             `json:"code"`
	Sub     int             `json:"sub,omitempty"`
}

// ResourceEnv is what a variant needs to pick its resources.
type ResourceEnv struct {
	Interaction InteractionState
	Ringer      RingerMode
}

// SlotResource describes one custom slot as drawn.
type SlotResource struct {
	Index   int    `json:"index"`
	Visible bool   `json:"visible"`
	Icon    string `json:"icon,omitempty"`
}

// ResourceSet is the renderer-facing description of handles, targets and hints.
type ResourceSet struct {
	LeftIcon    string         `json:"left_icon,omitempty"`
	RightIcon   string         `json:"right_icon,omitempty"`
	RightTarget string         `json:"right_target,omitempty"`
	RightBar    string         `json:"right_bar,omitempty"`
	RightTab    string         `json:"right_tab,omitempty"`
	RightHint   string         `json:"right_hint,omitempty"`
	HideArrows  bool           `json:"hide_arrows,omitempty"`
	MiddleRing  bool           `json:"middle_ring,omitempty"`
	Slots       []SlotResource `json:"slots,omitempty"`
	TargetSet   string         `json:"target_set,omitempty"`
}

// View is the surface handle handed to the host for rendering.
type View struct {
	Variant       VariantIdentity `json:"variant"`
	Layout        string          `json:"layout"`
	Orientation   Orientation     `json:"orientation"`
	Resources     ResourceSet     `json:"resources"`
	Resets        uint64          `json:"resets"`
	AnimatedReset bool            `json:"animated_reset"`
	Pings         uint64          `json:"pings"`
}

// GrabResponse tells the controller what a grab asks of it.
type GrabResponse struct {
	// RefreshSilent asks for an eager ringer read so resources match the
	// live ringer state mid-gesture.
	RefreshSilent bool
	Poke          bool
	PokeTimeout   time.Duration
}

// WidgetVariant is the common contract of the gesture widgets.
// Implementations are owned by the daemon goroutine and are not safe for
// concurrent use.
type WidgetVariant interface {
	Identity() VariantIdentity
	UpdateResources(env ResourceEnv)
	View() View
	Reset(animate bool)
	Ping()
	GrabStateChange(handle int) GrabResponse
	RawTrigger(code, sub int) RawTrigger
	Detach()
	Attached() bool
}

// VariantParams carries everything a variant is built from.
type VariantParams struct {
	Orientation Orientation
	Config      ConfigSnapshot
	Slots       CustomSlots
	Tab         bool
}

// VariantFactory constructs a variant.
type VariantFactory func(VariantIdentity, VariantParams) WidgetVariant

// newWidgetVariant is the production VariantFactory.
func newWidgetVariant(id VariantIdentity, p VariantParams) WidgetVariant {
	switch id {
	case VariantRotary:
		return newRotaryWidget(p)
	case VariantRing:
		return newRingWidget(p)
	case VariantWave:
		return newWaveWidget(p)
	case VariantMultiTarget:
		return newMultiTargetWidget(p)
	default:
		return newSliderWidget(p)
	}
}

// widgetBase holds the state every variant shares.
type widgetBase struct {
	id          VariantIdentity
	layout      string
	orientation Orientation
	res         ResourceSet

	resets   uint64
	animated bool
	pings    uint64
	detached bool
}

func newWidgetBase(id VariantIdentity, layout string, p VariantParams) widgetBase {
	if p.Orientation == OrientationLandscape && id != VariantMultiTarget {
		layout += "_land"
	}
	return widgetBase{id: id, layout: layout, orientation: p.Orientation}
}

func (w *widgetBase) Identity() VariantIdentity { return w.id }

func (w *widgetBase) View() View {
	res := w.res
	res.Slots = slices.Clone(w.res.Slots)
	return View{
		Variant:       w.id,
		Layout:        w.layout,
		Orientation:   w.orientation,
		Resources:     res,
		Resets:        w.resets,
		AnimatedReset: w.animated,
		Pings:         w.pings,
	}
}

func (w *widgetBase) Reset(animate bool) {
	w.resets++
	w.animated = animate
}

// Ping is a no-op unless a variant has an affordance to pulse.
func (w *widgetBase) Ping() {}

func (w *widgetBase) Detach()        { w.detached = true }
func (w *widgetBase) Attached() bool { return !w.detached }

func (w *widgetBase) pack(code, sub int, keepSub bool) RawTrigger {
	if !keepSub {
		sub = 0
	}
	return RawTrigger{Variant: w.id, Code: code, Sub: sub}
}

// soundHandle picks the resources of the right-hand ringer handle shared by
// the two-target variants.
type soundHandle struct {
	icon, target, bar, tab, hint string
}

func soundHandleFor(env ResourceEnv) soundHandle {
	if !env.Interaction.SilentMode {
		return soundHandle{
			icon:   "ic_jog_dial_sound_on",
			target: "jog_tab_target_gray",
			bar:    "jog_tab_bar_right_sound_off",
			tab:    "jog_tab_right_sound_off",
			hint:   "lockscreen_sound_off_label",
		}
	}
	icon := "ic_jog_dial_sound_off"
	if env.Ringer == RingerVibrate {
		icon = "ic_jog_dial_vibrate_on"
	}
	return soundHandle{
		icon:   icon,
		target: "jog_tab_target_yellow",
		bar:    "jog_tab_bar_right_sound_on",
		tab:    "jog_tab_right_sound_on",
		hint:   "lockscreen_sound_on_label",
	}
}
