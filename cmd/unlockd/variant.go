package main

import (
	"fmt"
	"strings"
)

// VariantIdentity names one of the five gesture widgets.
type VariantIdentity int

const (
	VariantSlider VariantIdentity = iota
	VariantRotary
	VariantRing
	VariantWave
	VariantMultiTarget
)

var variantNames = map[VariantIdentity]string{
	VariantSlider:      "slider",
	VariantRotary:      "rotary",
	VariantRing:        "ring",
	VariantWave:        "wave",
	VariantMultiTarget: "multitarget",
}

func (v VariantIdentity) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// MarshalText lets the identity appear by name in JSON payloads.
func (v VariantIdentity) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VariantIdentity) UnmarshalText(b []byte) error {
	id, err := ParseVariantIdentity(string(b))
	if err != nil {
		return err
	}
	*v = id
	return nil
}

// ParseVariantIdentity maps a variant name back to its identity.
func ParseVariantIdentity(name string) (VariantIdentity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for id, s := range variantNames {
		if s == n {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// Orientation of the display the surface is laid out for.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationLandscape
)

func (o Orientation) String() string {
	if o == OrientationLandscape {
		return "landscape"
	}
	return "portrait"
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOrientation accepts "portrait" or "landscape".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait", "port":
		return OrientationPortrait, nil
	case "landscape", "land":
		return OrientationLandscape, nil
	default:
		return 0, fmt.Errorf("%w: orientation %q", ErrConfigMalformed, s)
	}
}

// SelectVariant picks the widget for a configuration snapshot.
// Unrecognised lockscreen_type values fall back to the slider.
func SelectVariant(cfg ConfigSnapshot) VariantIdentity {
	return selectVariant(cfg, VariantSlider)
}

// selectVariant is SelectVariant with the fallback used by the default
// ("tab") layout made explicit. Some devices ship the wave widget there.
func selectVariant(cfg ConfigSnapshot, tab VariantIdentity) VariantIdentity {
	switch cfg.LockscreenType {
	case lockTypeSlider:
		return VariantSlider
	case lockTypeRotary:
		return VariantRotary
	case lockTypeRing:
		return VariantRing
	case lockTypeHoneycomb:
		return VariantMultiTarget
	default:
		return tab
	}
}

// usesTabLayout reports whether cfg falls through to the default layout.
func usesTabLayout(cfg ConfigSnapshot) bool {
	switch cfg.LockscreenType {
	case lockTypeSlider, lockTypeRotary, lockTypeRing, lockTypeHoneycomb:
		return false
	}
	return true
}
