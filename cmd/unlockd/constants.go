package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_SW  = 0x05

	KEY_MENU = 139

	// SW_LID doubles as the slide-out keyboard switch on most handsets.
	SW_LID = 0x00
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Trigger and grab handle codes reported by the gesture widgets.
const (
	HandleNone   = 0
	HandleLeft   = 1
	HandleRight  = 2
	HandleMiddle = 3
	HandleCenter = 10
)

// MultiTarget target indices, in ring order.
const (
	TargetUnlock     = 0
	TargetSlotOne    = 1
	TargetSlotTwo    = 2
	TargetSoundOrCam = 3
)

// lockscreen_type values understood by the variant selector.
const (
	lockTypeSlider    = 1
	lockTypeRotary    = 2
	lockTypeRing      = 3
	lockTypeHoneycomb = 4
)

const (
	// customSlotCount is the number of configurable app slots on the ring.
	customSlotCount = 4

	// defaultResumePingDelay is how long after resume the affordance ping fires.
	defaultResumePingDelay = 500 * time.Millisecond

	// waveStayAwake keeps the screen on while the wave handle is held.
	waveStayAwake = 30000 * time.Millisecond

	// defaultMenuKeyOverrideFile enables the menu key when it exists.
	defaultMenuKeyOverrideFile = "/data/local/enable_menu_key"
)

// Toast texts shown after a ringer toggle.
const (
	toastSoundOff = "Sound is off"
	toastSoundOn  = "Sound is on"
)
