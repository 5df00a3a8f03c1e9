package main

import (
	"fmt"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// The reducer only emits commands; runEffect executes them.
type Command interface {
	commandMarker()
	String() string
}

// CmdGoToUnlock asks the host to proceed to the unlock screen.
type CmdGoToUnlock struct{}

func (CmdGoToUnlock) commandMarker() {}
func (CmdGoToUnlock) String() string { return "CmdGoToUnlock()" }

// CmdPokeWakelock keeps the screen on. A zero Timeout uses the host default.
type CmdPokeWakelock struct {
	Timeout time.Duration
}

func (CmdPokeWakelock) commandMarker() {}
func (c CmdPokeWakelock) String() string {
	return fmt.Sprintf("CmdPokeWakelock(timeout=%s)", c.Timeout)
}

// CmdRecreateSurface asks the host to rebuild its surface for a new orientation.
type CmdRecreateSurface struct {
	Orientation Orientation
}

func (CmdRecreateSurface) commandMarker() {}
func (c CmdRecreateSurface) String() string {
	return fmt.Sprintf("CmdRecreateSurface(orientation=%s)", c.Orientation)
}

// CmdShowToast shows a transient confirmation.
type CmdShowToast struct {
	Text string
}

func (CmdShowToast) commandMarker()   {}
func (c CmdShowToast) String() string { return fmt.Sprintf("CmdShowToast(%q)", c.Text) }

// CmdSetRingerMode applies a ringer mode.
type CmdSetRingerMode struct {
	Mode RingerMode
}

func (CmdSetRingerMode) commandMarker() {}
func (c CmdSetRingerMode) String() string {
	return fmt.Sprintf("CmdSetRingerMode(mode=%s)", c.Mode)
}

// CmdReadRingerMode reads the live ringer mode.
type CmdReadRingerMode struct{}

func (CmdReadRingerMode) commandMarker() {}
func (CmdReadRingerMode) String() string { return "CmdReadRingerMode()" }

// CmdLaunch resolves and runs Ref. On success the reducer unlocks.
type CmdLaunch struct {
	Ref string
	// Slot is the custom slot index, or -1 for the camera.
	Slot int
}

func (CmdLaunch) commandMarker() {}
func (c CmdLaunch) String() string {
	return fmt.Sprintf("CmdLaunch(ref=%q, slot=%d)", c.Ref, c.Slot)
}

// CmdSchedulePing arms the resume ping timer.
type CmdSchedulePing struct {
	Token uint64
	Delay time.Duration
}

func (CmdSchedulePing) commandMarker() {}
func (c CmdSchedulePing) String() string {
	return fmt.Sprintf("CmdSchedulePing(token=%d, delay=%s)", c.Token, c.Delay)
}

// CmdCancelPing disarms the resume ping timer if it still holds Token.
type CmdCancelPing struct {
	Token uint64
}

func (CmdCancelPing) commandMarker()   {}
func (c CmdCancelPing) String() string { return fmt.Sprintf("CmdCancelPing(token=%d)", c.Token) }

// CmdPublishStateSnapshot delivers a snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
