package main

// waveWidget is a single center handle; any completed wave unlocks.
type waveWidget struct {
	widgetBase
}

func newWaveWidget(p VariantParams) *waveWidget {
	return &waveWidget{widgetBase: newWidgetBase(VariantWave, "tab_unlock", p)}
}

// UpdateResources is a no-op; the wave has nothing ringer-dependent.
func (w *waveWidget) UpdateResources(ResourceEnv) {}

func (w *waveWidget) GrabStateChange(handle int) GrabResponse {
	if handle == HandleNone {
		return GrabResponse{}
	}
	return GrabResponse{Poke: true, PokeTimeout: waveStayAwake}
}

func (w *waveWidget) RawTrigger(code, sub int) RawTrigger {
	return w.pack(code, sub, false)
}
