package main

import "errors"

// Sentinel errors. Use errors.Is() to test for them.
var (
	// ErrConfigMalformed marks an unparseable configuration value or file.
	ErrConfigMalformed = errors.New("unlockd: malformed configuration")

	// ErrLaunchResolution is returned by a Launcher when a reference has no handler.
	ErrLaunchResolution = errors.New("unlockd: launch reference could not be resolved")

	// ErrUnknownVariant is returned when a variant name is not recognised.
	ErrUnknownVariant = errors.New("unlockd: unknown widget variant")

	// ErrNotConnected is returned when the message bus is unavailable.
	ErrNotConnected = errors.New("unlockd: bus not connected")

	// ErrPublishFailed is returned when a bus publish fails or times out.
	ErrPublishFailed = errors.New("unlockd: publish failed")

	// ErrSubscribeFailed is returned when a bus subscription fails or times out.
	ErrSubscribeFailed = errors.New("unlockd: subscribe failed")

	// ErrRingerUnknown is returned before the ringer service has reported a mode.
	ErrRingerUnknown = errors.New("unlockd: ringer mode not yet known")

	// ErrHostBusy is returned when a host request could not be queued for the renderer.
	ErrHostBusy = errors.New("unlockd: host request queue full")
)
