package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseActionRef(t *testing.T) {
	ref, err := parseActionRef("  app://com.example.mail ")
	assert.NoError(t, err)
	assert.Equal(t, "app://com.example.mail", ref)

	ref, err = parseActionRef("")
	assert.NoError(t, err)
	assert.Equal(t, "", ref)

	_, err = parseActionRef("com.example.mail")
	assert.True(t, errors.Is(err, ErrConfigMalformed))

	_, err = parseActionRef("app://%zz")
	assert.True(t, errors.Is(err, ErrConfigMalformed))
}

func TestRingSlots(t *testing.T) {
	cs := ringSlots(ConfigSnapshot{CustomRingApps: []string{"app://music", "", "not a ref", "tel:5551234"}})

	assert.True(t, cs.Populated(0))
	assert.False(t, cs.Populated(1))
	assert.False(t, cs.Populated(2), "unparseable entries are absent")
	assert.True(t, cs.Populated(3))
	assert.False(t, cs.Populated(4))
	assert.False(t, cs.Populated(-1))

	assert.Equal(t, "music", cs[0].Icon)
	assert.Equal(t, "5551234", cs[3].Icon)

	_, ok := cs.Slot(1).Target()
	assert.False(t, ok, "ring slots have no fallback")
	assert.Equal(t, CustomSlot{}, cs.Slot(10))
}

func TestMultiTargetSlots_Fallbacks(t *testing.T) {
	builtins := BuiltinRefs{Messaging: "app://mms", Dialer: "app://contacts/dialer", Camera: "app://camera"}

	cs := multiTargetSlots(ConfigSnapshot{CustomAppTwo: "app://notes"}, builtins)

	ref, ok := cs[0].Target()
	assert.True(t, ok)
	assert.Equal(t, "app://mms", ref)
	assert.False(t, cs.Populated(0), "a fallback does not make the slot configured")
	assert.Equal(t, "mms", cs[0].Icon)

	ref, ok = cs[1].Target()
	assert.True(t, ok)
	assert.Equal(t, "app://notes", ref)

	assert.Equal(t, CustomSlots{}, slotsFor(VariantSlider, ConfigSnapshot{CustomAppOne: "app://x"}, builtins))
}
