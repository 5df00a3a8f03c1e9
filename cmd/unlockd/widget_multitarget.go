package main

// Target sets the multi-target widget can show.
const (
	targetSetWithCamera       = "lockscreen_targets_with_camera"
	targetSetExtraApps        = "lockscreen_targets_extra_apps"
	targetSetWhenSilent       = "lockscreen_targets_when_silent"
	targetSetWhenSoundOn      = "lockscreen_targets_when_soundon"
	targetSetExtraAppsSilent  = "lockscreen_targets_extra_apps_silent"
	targetSetExtraAppsSoundOn = "lockscreen_targets_extra_apps_soundon"
)

// multiTargetWidget is the honeycomb ring of four targets around a center
// handle. It is the only variant with a ping affordance.
type multiTargetWidget struct {
	widgetBase
	slots CustomSlots
}

func newMultiTargetWidget(p VariantParams) *multiTargetWidget {
	w := &multiTargetWidget{
		widgetBase: newWidgetBase(VariantMultiTarget, "honeycomb_unlock", p),
		slots:      p.Slots,
	}
	for i := 0; i < 2; i++ {
		s := p.Slots[i]
		w.res.Slots = append(w.res.Slots, SlotResource{Index: i, Visible: true, Icon: s.Icon})
	}
	return w
}

func (w *multiTargetWidget) UpdateResources(env ResourceEnv) {
	w.res.TargetSet = multiTargetSet(env.Interaction)
}

// multiTargetSet chooses the target set. With the camera disabled the
// fourth target toggles sound, so its set follows the ringer state.
func multiTargetSet(in InteractionState) string {
	switch {
	case in.CameraDisabled && in.CustomModeEnabled:
		if in.SilentMode {
			return targetSetExtraAppsSilent
		}
		return targetSetExtraAppsSoundOn
	case in.CameraDisabled:
		if in.SilentMode {
			return targetSetWhenSilent
		}
		return targetSetWhenSoundOn
	case in.CustomModeEnabled:
		return targetSetExtraApps
	default:
		return targetSetWithCamera
	}
}

func (w *multiTargetWidget) Ping() {
	w.pings++
}

func (w *multiTargetWidget) GrabStateChange(handle int) GrabResponse {
	return GrabResponse{Poke: handle != HandleNone}
}

// The multi-target widget reports the target index as the code.
func (w *multiTargetWidget) RawTrigger(code, sub int) RawTrigger {
	return w.pack(code, sub, false)
}
