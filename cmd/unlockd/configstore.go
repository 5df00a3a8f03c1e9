package main

import (
	"slices"
	"sync"
)

// ConfigSnapshot is the set of user-configurable lock surface values.
// Field tags match the keys of the settings YAML file.
type ConfigSnapshot struct {
	LockscreenType int `yaml:"lockscreen_type" json:"lockscreen_type"`

	// CustomRingApps holds up to four ring slot references. Empty entries are absent.
	CustomRingApps []string `yaml:"lockscreen_custom_ring_app_activities" json:"lockscreen_custom_ring_app_activities"`

	CustomAppOne string `yaml:"lockscreen_custom_one" json:"lockscreen_custom_one"`
	CustomAppTwo string `yaml:"lockscreen_custom_two" json:"lockscreen_custom_two"`

	HideArrows     bool `yaml:"lockscreen_hide_arrows" json:"lockscreen_hide_arrows"`
	ForceSoundIcon bool `yaml:"lockscreen_force_sound_icon" json:"lockscreen_force_sound_icon"`
	ExtraIcons     bool `yaml:"lockscreen_extra_icons" json:"lockscreen_extra_icons"`

	VibrateInSilent bool `yaml:"vibrate_in_silent" json:"vibrate_in_silent"`

	DevicePolicyCameraDisabled bool `yaml:"device_policy_camera_disabled" json:"device_policy_camera_disabled"`
}

// DefaultSnapshot returns the values used for keys missing from the store.
func DefaultSnapshot() ConfigSnapshot {
	return ConfigSnapshot{
		VibrateInSilent: true,
	}
}

// Equal reports whether two snapshots hold the same values.
func (c ConfigSnapshot) Equal(o ConfigSnapshot) bool {
	return c.LockscreenType == o.LockscreenType &&
		slices.Equal(c.CustomRingApps, o.CustomRingApps) &&
		c.CustomAppOne == o.CustomAppOne &&
		c.CustomAppTwo == o.CustomAppTwo &&
		c.HideArrows == o.HideArrows &&
		c.ForceSoundIcon == o.ForceSoundIcon &&
		c.ExtraIcons == o.ExtraIcons &&
		c.VibrateInSilent == o.VibrateInSilent &&
		c.DevicePolicyCameraDisabled == o.DevicePolicyCameraDisabled
}

func (c ConfigSnapshot) clone() ConfigSnapshot {
	c.CustomRingApps = slices.Clone(c.CustomRingApps)
	return c
}

// ConfigStore is the source of lock surface configuration.
type ConfigStore interface {
	Snapshot() (ConfigSnapshot, error)
	// Subscribe registers fn for change notifications and returns its unsubscribe.
	Subscribe(fn func(ConfigSnapshot)) (unsubscribe func())
}

// subscriberSet is a small registry of change callbacks shared by the
// in-process collaborators.
type subscriberSet[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func (s *subscriberSet[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(T))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscriberSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// notify calls every subscriber outside the lock.
func (s *subscriberSet[T]) notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// MemoryStore is an in-process ConfigStore.
type MemoryStore struct {
	mu   sync.RWMutex
	snap ConfigSnapshot
	subs subscriberSet[ConfigSnapshot]
}

// NewMemoryStore returns a store holding snap.
func NewMemoryStore(snap ConfigSnapshot) *MemoryStore {
	return &MemoryStore{snap: snap.clone()}
}

func (m *MemoryStore) Snapshot() (ConfigSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone(), nil
}

func (m *MemoryStore) Subscribe(fn func(ConfigSnapshot)) func() {
	return m.subs.add(fn)
}

// Set replaces the snapshot and notifies subscribers when it changed.
func (m *MemoryStore) Set(snap ConfigSnapshot) {
	m.mu.Lock()
	changed := !m.snap.Equal(snap)
	m.snap = snap.clone()
	m.mu.Unlock()

	if changed {
		m.subs.notify(snap.clone())
	}
}

// Update applies fn to a copy of the current snapshot and stores the result.
func (m *MemoryStore) Update(fn func(*ConfigSnapshot)) {
	m.mu.RLock()
	next := m.snap.clone()
	m.mu.RUnlock()
	fn(&next)
	m.Set(next)
}

// Subscribers returns the number of registered callbacks.
func (m *MemoryStore) Subscribers() int {
	return m.subs.len()
}
