package main

// sliderWidget is the two-tab slider: left unlocks, right toggles sound.
type sliderWidget struct {
	widgetBase
}

func newSliderWidget(p VariantParams) *sliderWidget {
	layout := "slider_unlock"
	if p.Tab {
		layout = "tab_unlock"
	}
	w := &sliderWidget{widgetBase: newWidgetBase(VariantSlider, layout, p)}
	w.res.LeftIcon = "ic_jog_dial_unlock"
	return w
}

func (w *sliderWidget) UpdateResources(env ResourceEnv) {
	h := soundHandleFor(env)
	w.res.RightIcon = h.icon
	w.res.RightTarget = h.target
	w.res.RightBar = h.bar
	w.res.RightTab = h.tab
	w.res.RightHint = h.hint
}

func (w *sliderWidget) GrabStateChange(handle int) GrabResponse {
	return GrabResponse{
		RefreshSilent: handle == HandleRight,
		Poke:          handle != HandleNone,
	}
}

func (w *sliderWidget) RawTrigger(code, sub int) RawTrigger {
	return w.pack(code, sub, false)
}
