package main

import (
	"fmt"
	"strings"
	"sync"
)

// RingerMode is the device ringer state.
type RingerMode int

const (
	RingerNormal RingerMode = iota
	RingerVibrate
	RingerSilent
)

func (m RingerMode) String() string {
	switch m {
	case RingerVibrate:
		return "vibrate"
	case RingerSilent:
		return "silent"
	default:
		return "normal"
	}
}

// Silent reports whether the ringer is muted, with or without vibration.
func (m RingerMode) Silent() bool { return m != RingerNormal }

func (m RingerMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *RingerMode) UnmarshalText(b []byte) error {
	v, err := ParseRingerMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseRingerMode accepts "normal", "vibrate" or "silent".
func ParseRingerMode(s string) (RingerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return RingerNormal, nil
	case "vibrate":
		return RingerVibrate, nil
	case "silent":
		return RingerSilent, nil
	default:
		return 0, fmt.Errorf("invalid ringer mode %q (must be normal, vibrate or silent)", s)
	}
}

// silencedMode is the mode a toggle to silent applies.
func silencedMode(vibrateInSilent bool) RingerMode {
	if vibrateInSilent {
		return RingerVibrate
	}
	return RingerSilent
}

// RingerService reads, sets and observes the ringer mode.
type RingerService interface {
	RingerMode() (RingerMode, error)
	SetRingerMode(RingerMode) error
	// Subscribe registers fn for external changes and returns its unsubscribe.
	Subscribe(fn func(RingerMode)) (unsubscribe func())
}

// LocalRinger keeps the ringer mode in process. It is used when no device
// bus is configured.
type LocalRinger struct {
	mu   sync.Mutex
	mode RingerMode
	subs subscriberSet[RingerMode]
}

func NewLocalRinger(initial RingerMode) *LocalRinger {
	return &LocalRinger{mode: initial}
}

func (r *LocalRinger) RingerMode() (RingerMode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode, nil
}

// SetRingerMode stores m and notifies subscribers when it changed.
func (r *LocalRinger) SetRingerMode(m RingerMode) error {
	r.mu.Lock()
	changed := r.mode != m
	r.mode = m
	r.mu.Unlock()

	if changed {
		r.subs.notify(m)
	}
	return nil
}

func (r *LocalRinger) Subscribe(fn func(RingerMode)) func() {
	return r.subs.add(fn)
}

// Subscribers returns the number of registered callbacks.
func (r *LocalRinger) Subscribers() int {
	return r.subs.len()
}
