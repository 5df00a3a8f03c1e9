package main

import "time"

// StateBroadcast is an externally visible change emitted by the reducer
// (or by the host adapter) and fanned out to websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastSurfaceChanged carries the active variant's view after any
// visual change.
type BroadcastSurfaceChanged struct {
	View        View
	Interaction InteractionState
	Ringer      RingerMode
	At          time.Time
}

func (BroadcastSurfaceChanged) broadcastMarker() {}

// BroadcastVariantChanged is emitted after a variant has been (re)built.
type BroadcastVariantChanged struct {
	Variant     VariantIdentity
	Orientation Orientation
	Generation  uint64
	At          time.Time
}

func (BroadcastVariantChanged) broadcastMarker() {}

// BroadcastActionRouted records the outcome of routing one trigger.
type BroadcastActionRouted struct {
	Variant VariantIdentity
	Raw     RawTrigger
	Action  Action
	At      time.Time
}

func (BroadcastActionRouted) broadcastMarker() {}
