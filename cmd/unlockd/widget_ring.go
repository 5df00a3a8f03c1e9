package main

// ringWidget has left, right and middle rings. The middle ring carries the
// four custom app slots and is only active in custom mode.
type ringWidget struct {
	widgetBase
	slots CustomSlots
}

func newRingWidget(p VariantParams) *ringWidget {
	w := &ringWidget{
		widgetBase: newWidgetBase(VariantRing, "ring_unlock", p),
		slots:      p.Slots,
	}
	w.res.LeftIcon = "ic_jog_dial_unlock"
	for i, s := range p.Slots {
		w.res.Slots = append(w.res.Slots, SlotResource{
			Index:   i,
			Visible: s.Populated(),
			Icon:    s.Icon,
		})
	}
	return w
}

func (w *ringWidget) UpdateResources(env ResourceEnv) {
	h := soundHandleFor(env)
	w.res.RightIcon = h.icon
	w.res.RightTarget = h.target
	w.res.MiddleRing = env.Interaction.CustomModeEnabled
}

func (w *ringWidget) GrabStateChange(handle int) GrabResponse {
	return GrabResponse{
		RefreshSilent: handle == HandleRight,
		Poke:          handle != HandleNone,
	}
}

func (w *ringWidget) RawTrigger(code, sub int) RawTrigger {
	return w.pack(code, sub, code == HandleMiddle)
}
