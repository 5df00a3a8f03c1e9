package main

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ringerPayload is the wire form on the ringer topics.
type ringerPayload struct {
	Mode RingerMode `json:"mode"`
}

// MQTTRinger is a RingerService backed by the device bus. The device
// publishes its mode (retained) on the state topic and accepts requests on
// the set topic.
type MQTTRinger struct {
	bus    messageBus
	topics busTopics

	mu    sync.Mutex
	mode  RingerMode
	known bool

	subs  subscriberSet[RingerMode]
	unsub func()
}

// NewMQTTRinger subscribes to the ringer state topic.
func NewMQTTRinger(bus messageBus, topics busTopics) (*MQTTRinger, error) {
	r := &MQTTRinger{bus: bus, topics: topics}
	unsub, err := bus.Subscribe(topics.RingerState(), r.handleState)
	if err != nil {
		return nil, fmt.Errorf("subscribe ringer state: %w", err)
	}
	r.unsub = unsub
	return r, nil
}

func (r *MQTTRinger) handleState(_ string, payload []byte) error {
	var p ringerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode ringer state: %w", err)
	}

	r.mu.Lock()
	changed := !r.known || r.mode != p.Mode
	r.mode = p.Mode
	r.known = true
	r.mu.Unlock()

	if changed {
		r.subs.notify(p.Mode)
	}
	return nil
}

func (r *MQTTRinger) RingerMode() (RingerMode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.known {
		return RingerNormal, ErrRingerUnknown
	}
	return r.mode, nil
}

// SetRingerMode publishes the request. The device's echo on the state
// topic then matches and does not notify.
func (r *MQTTRinger) SetRingerMode(m RingerMode) error {
	b, err := json.Marshal(ringerPayload{Mode: m})
	if err != nil {
		return fmt.Errorf("encode ringer mode: %w", err)
	}
	if err := r.bus.Publish(r.topics.RingerSet(), b, false); err != nil {
		return fmt.Errorf("set ringer mode: %w", err)
	}

	r.mu.Lock()
	r.mode = m
	r.known = true
	r.mu.Unlock()
	return nil
}

func (r *MQTTRinger) Subscribe(fn func(RingerMode)) func() {
	return r.subs.add(fn)
}

// Close drops the bus subscription.
func (r *MQTTRinger) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}
