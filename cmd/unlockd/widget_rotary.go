package main

// rotaryWidget is the dial: left unlocks, right toggles sound. Its arrows
// can be hidden from configuration.
type rotaryWidget struct {
	widgetBase
}

func newRotaryWidget(p VariantParams) *rotaryWidget {
	w := &rotaryWidget{widgetBase: newWidgetBase(VariantRotary, "rotary_unlock", p)}
	w.res.LeftIcon = "ic_jog_dial_unlock"
	w.res.HideArrows = p.Config.HideArrows
	return w
}

func (w *rotaryWidget) UpdateResources(env ResourceEnv) {
	h := soundHandleFor(env)
	w.res.RightIcon = h.icon
	w.res.RightTarget = h.target
}

// The dial does not hold the wake lock while grabbed.
func (w *rotaryWidget) GrabStateChange(handle int) GrabResponse {
	return GrabResponse{RefreshSilent: handle == HandleRight}
}

func (w *rotaryWidget) RawTrigger(code, sub int) RawTrigger {
	return w.pack(code, sub, false)
}
