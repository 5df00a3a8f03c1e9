package main

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// CustomSlot is one configurable launch target on the ring or the
// multi-target widget. A slot without a Ref is absent; Fallback, when
// set, is launched in its place.
type CustomSlot struct {
	Ref      string `json:"ref,omitempty"`
	Fallback string `json:"fallback,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Populated reports whether the user configured this slot.
func (s CustomSlot) Populated() bool { return s.Ref != "" }

// Target returns the reference to launch for this slot.
func (s CustomSlot) Target() (string, bool) {
	if s.Ref != "" {
		return s.Ref, true
	}
	if s.Fallback != "" {
		return s.Fallback, true
	}
	return "", false
}

// CustomSlots is the fixed slot table built when a variant is constructed.
type CustomSlots [customSlotCount]CustomSlot

// Populated reports whether slot i exists and is configured.
func (cs CustomSlots) Populated(i int) bool {
	if i < 0 || i >= len(cs) {
		return false
	}
	return cs[i].Populated()
}

// Slot returns slot i, or an absent slot when out of range.
func (cs CustomSlots) Slot(i int) CustomSlot {
	if i < 0 || i >= len(cs) {
		return CustomSlot{}
	}
	return cs[i]
}

// BuiltinRefs are the launch references used when nothing is configured.
type BuiltinRefs struct {
	Messaging string
	Dialer    string
	Camera    string
}

// parseActionRef validates a stored action reference. An empty value is
// absent and returns "" with no error.
func parseActionRef(raw string) (string, error) {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return "", nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: action reference %q: %w", ErrConfigMalformed, raw, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: action reference %q has no scheme", ErrConfigMalformed, raw)
	}
	return ref, nil
}

// iconFor derives the icon key the renderer uses for a reference.
func iconFor(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	switch {
	case u.Host != "":
		return u.Host
	case u.Opaque != "":
		return strings.SplitN(u.Opaque, "/", 2)[0]
	case u.Path != "":
		return path.Base(u.Path)
	}
	return u.Scheme
}

func newSlot(raw, fallback string) CustomSlot {
	ref, err := parseActionRef(raw)
	if err != nil {
		// Unparseable entries are treated as absent.
		ref = ""
	}
	s := CustomSlot{Ref: ref, Fallback: fallback}
	if t, ok := s.Target(); ok {
		s.Icon = iconFor(t)
	}
	return s
}

// ringSlots builds the four ring slots. Ring slots have no fallback.
func ringSlots(cfg ConfigSnapshot) CustomSlots {
	var cs CustomSlots
	for i := range cs {
		raw := ""
		if i < len(cfg.CustomRingApps) {
			raw = cfg.CustomRingApps[i]
		}
		cs[i] = newSlot(raw, "")
	}
	return cs
}

// multiTargetSlots builds the two multi-target app slots. Slot 0 falls back
// to messaging and slot 1 to the dialer.
func multiTargetSlots(cfg ConfigSnapshot, builtins BuiltinRefs) CustomSlots {
	var cs CustomSlots
	cs[0] = newSlot(cfg.CustomAppOne, builtins.Messaging)
	cs[1] = newSlot(cfg.CustomAppTwo, builtins.Dialer)
	return cs
}

// slotsFor returns the slot table for a variant.
func slotsFor(id VariantIdentity, cfg ConfigSnapshot, builtins BuiltinRefs) CustomSlots {
	switch id {
	case VariantRing:
		return ringSlots(cfg)
	case VariantMultiTarget:
		return multiTargetSlots(cfg, builtins)
	default:
		return CustomSlots{}
	}
}
