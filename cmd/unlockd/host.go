package main

import (
	"log/slog"
	"time"
)

// Host is the platform side of the lock surface.
type Host interface {
	GoToUnlockScreen() error
	PokeWakelock(timeout time.Duration) error
	RecreateSurface(o Orientation) error
	ShowToast(text string) error
}

// Host requests travel to the renderer over the state websocket.

type BroadcastHostUnlock struct {
	At time.Time
}

func (BroadcastHostUnlock) broadcastMarker() {}

type BroadcastHostPokeWakelock struct {
	Timeout time.Duration
	At      time.Time
}

func (BroadcastHostPokeWakelock) broadcastMarker() {}

type BroadcastHostRecreateSurface struct {
	Orientation Orientation
	At          time.Time
}

func (BroadcastHostRecreateSurface) broadcastMarker() {}

type BroadcastHostToast struct {
	Text string
	At   time.Time
}

func (BroadcastHostToast) broadcastMarker() {}

// hostSendWait is how long a host request may wait for room in the
// broadcast queue before it is reported as failed.
const hostSendWait = 250 * time.Millisecond

// HubHost forwards host requests to the websocket hub. The renderer
// connected there performs them.
type HubHost struct {
	out    chan<- StateBroadcast
	logger *slog.Logger
	wait   time.Duration
}

func NewHubHost(out chan<- StateBroadcast, logger *slog.Logger) *HubHost {
	return &HubHost{out: out, logger: logger, wait: hostSendWait}
}

// send queues b. When the queue stays full it returns ErrHostBusy so the
// request surfaces as a CommandFailed instead of vanishing.
func (h *HubHost) send(b StateBroadcast) error {
	if h.out == nil {
		return errNoCollaborator{name: "host"}
	}
	select {
	case h.out <- b:
		return nil
	default:
	}

	t := time.NewTimer(h.wait)
	defer t.Stop()
	select {
	case h.out <- b:
		return nil
	case <-t.C:
		h.logger.Warn("host request dropped, broadcast queue full", "request", b)
		return ErrHostBusy
	}
}

func (h *HubHost) GoToUnlockScreen() error {
	return h.send(BroadcastHostUnlock{At: time.Now()})
}

func (h *HubHost) PokeWakelock(timeout time.Duration) error {
	return h.send(BroadcastHostPokeWakelock{Timeout: timeout, At: time.Now()})
}

func (h *HubHost) RecreateSurface(o Orientation) error {
	return h.send(BroadcastHostRecreateSurface{Orientation: o, At: time.Now()})
}

func (h *HubHost) ShowToast(text string) error {
	return h.send(BroadcastHostToast{Text: text, At: time.Now()})
}
