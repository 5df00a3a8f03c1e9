package main

// RouteContext is the controller state routing may consult.
type RouteContext struct {
	Interaction InteractionState
	Slots       CustomSlots
}

// Route maps a raw trigger from variant to its semantic Action. It is pure
// and total: codes a variant does not define route to NoOp.
func Route(variant VariantIdentity, raw RawTrigger, rc RouteContext) Action {
	if raw.Variant != variant {
		return NoOp{}
	}

	switch variant {
	case VariantSlider, VariantRotary:
		switch raw.Code {
		case HandleLeft:
			return Unlock{}
		case HandleRight:
			return ToggleRingerMode{}
		}

	case VariantRing:
		switch raw.Code {
		case HandleLeft:
			return Unlock{}
		case HandleRight:
			return ToggleRingerMode{}
		case HandleMiddle:
			if rc.Slots.Populated(raw.Sub) {
				return LaunchConfigured{Slot: raw.Sub}
			}
		}

	case VariantWave:
		if raw.Code == HandleCenter {
			return Unlock{}
		}

	case VariantMultiTarget:
		return routeMultiTarget(raw.Code, rc.Interaction)
	}

	return NoOp{}
}

func routeMultiTarget(target int, in InteractionState) Action {
	soundOrCamera := func() Action {
		if in.CameraDisabled {
			return ToggleRingerMode{}
		}
		return LaunchCamera{}
	}

	if in.CustomModeEnabled {
		switch target {
		case TargetUnlock:
			return Unlock{}
		case TargetSlotOne:
			return LaunchConfigured{Slot: 0}
		case TargetSlotTwo:
			return LaunchConfigured{Slot: 1}
		case TargetSoundOrCam:
			return soundOrCamera()
		}
		return NoOp{}
	}

	switch target {
	case TargetUnlock, TargetSlotOne:
		return Unlock{}
	case TargetSlotTwo, TargetSoundOrCam:
		return soundOrCamera()
	}
	return NoOp{}
}
