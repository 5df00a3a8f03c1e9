package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, c *Controller) Event {
	t.Helper()
	select {
	case ev := <-c.events:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for controller event")
		return nil
	}
}

func TestController_AttachQueuesCurrentState(t *testing.T) {
	store := NewMemoryStore(snapshotOfType(lockTypeRing))
	ringer := NewLocalRinger(RingerSilent)
	c := NewController(store, ringer, 8, discardLogger())
	defer c.Close()

	require.NoError(t, c.Attach())

	cc, ok := nextEvent(t, c).(ConfigChanged)
	require.True(t, ok)
	assert.Equal(t, lockTypeRing, cc.Snapshot.LockscreenType)

	assert.Equal(t, RingerChanged{Mode: RingerSilent}, nextEvent(t, c))

	assert.Equal(t, 1, store.Subscribers())
	assert.Equal(t, 1, ringer.Subscribers())
}

func TestController_ForwardsCollaboratorChanges(t *testing.T) {
	store := NewMemoryStore(DefaultSnapshot())
	ringer := NewLocalRinger(RingerNormal)
	c := NewController(store, ringer, 8, discardLogger())
	defer c.Close()
	require.NoError(t, c.Attach())
	nextEvent(t, c)
	nextEvent(t, c)

	store.Update(func(s *ConfigSnapshot) { s.LockscreenType = lockTypeHoneycomb })
	cc, ok := nextEvent(t, c).(ConfigChanged)
	require.True(t, ok)
	assert.Equal(t, lockTypeHoneycomb, cc.Snapshot.LockscreenType)

	// Setting the same snapshot again is not a change.
	store.Update(func(s *ConfigSnapshot) {})
	require.NoError(t, ringer.SetRingerMode(RingerVibrate))
	assert.Equal(t, RingerChanged{Mode: RingerVibrate}, nextEvent(t, c))
}

func TestController_UnknownRingerIsNotQueued(t *testing.T) {
	bus := newFakeBus()
	ringer, err := NewMQTTRinger(bus, busTopics("dev"))
	require.NoError(t, err)

	c := NewController(NewMemoryStore(DefaultSnapshot()), ringer, 8, discardLogger())
	defer c.Close()
	require.NoError(t, c.Attach())

	assert.IsType(t, ConfigChanged{}, nextEvent(t, c))
	select {
	case ev := <-c.events:
		t.Fatalf("unexpected event %T before the ringer reported", ev)
	default:
	}
}

func TestController_AttachWithoutStore(t *testing.T) {
	c := NewController(nil, nil, 0, discardLogger())
	assert.Error(t, c.Attach())
}

func TestController_CloseUnsubscribesOnce(t *testing.T) {
	store := NewMemoryStore(DefaultSnapshot())
	ringer := NewLocalRinger(RingerNormal)
	c := NewController(store, ringer, 8, discardLogger())
	require.NoError(t, c.Attach())

	c.Close()
	c.Close()

	assert.Equal(t, 0, store.Subscribers())
	assert.Equal(t, 0, ringer.Subscribers())
	assert.False(t, c.Post(Pause{}), "post after close")
}

func TestController_PostFullQueue(t *testing.T) {
	c := NewController(NewMemoryStore(DefaultSnapshot()), nil, 1, discardLogger())
	defer c.Close()

	assert.True(t, c.Post(Pause{}))
	assert.False(t, c.Post(Resume{}))
}

func TestController_OverflowKeepsNotificationOrder(t *testing.T) {
	c := NewController(NewMemoryStore(DefaultSnapshot()), nil, 1, discardLogger())
	defer c.Close()

	require.True(t, c.Post(Pause{}))
	for _, typ := range []int{lockTypeSlider, lockTypeRotary, lockTypeRing, lockTypeHoneycomb} {
		c.notify(ConfigChanged{Snapshot: snapshotOfType(typ)})
	}
	c.notify(RingerChanged{Mode: RingerSilent})

	assert.Equal(t, Pause{}, nextEvent(t, c))
	for _, want := range []int{lockTypeSlider, lockTypeRotary, lockTypeRing, lockTypeHoneycomb} {
		ev, ok := nextEvent(t, c).(ConfigChanged)
		require.True(t, ok)
		assert.Equal(t, want, ev.Snapshot.LockscreenType, "older snapshot overtook a newer one")
	}
	assert.Equal(t, RingerChanged{Mode: RingerSilent}, nextEvent(t, c))
}

func TestController_CloseStopsOverflowForwarder(t *testing.T) {
	c := NewController(NewMemoryStore(DefaultSnapshot()), nil, 1, discardLogger())
	require.True(t, c.Post(Pause{}))
	c.notify(Resume{})
	c.Close()

	waitUntil(t, time.Second, func() bool {
		c.overflowMu.Lock()
		defer c.overflowMu.Unlock()
		return !c.forwarding && len(c.overflow) == 0
	}, "forwarder still running after Close")
}

func TestController_RunDrivesDaemon(t *testing.T) {
	store := NewMemoryStore(snapshotOfType(lockTypeSlider))
	ringer := NewLocalRinger(RingerNormal)
	host := &fakeHost{}
	c := NewController(store, ringer, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	state := NewLockState(SurfaceOptions{Builtins: testBuiltins})
	fx := &Effects{Ringer: ringer, Launcher: &fakeLauncher{}, Host: host}

	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, state, fx, nil) }()

	// Wait for the initial configuration to be reduced.
	waitUntil(t, time.Second, func() bool {
		reply := make(chan StateSnapshot, 1)
		c.Events() <- RequestStateSnapshot{Reply: reply}
		select {
		case s := <-reply:
			return s.Variant != nil
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, "initial configuration not applied")

	c.Events() <- Trigger{Code: HandleRight}
	waitUntil(t, time.Second, func() bool {
		m, _ := ringer.RingerMode()
		return m == RingerVibrate
	}, "toggle did not reach the ringer")

	c.Events() <- Trigger{Code: HandleLeft}
	waitUntil(t, time.Second, func() bool { return host.unlockCount() == 1 }, "no unlock")

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("controller did not stop")
	}
	assert.Equal(t, 0, store.Subscribers())
	assert.Equal(t, 0, ringer.Subscribers())
	assert.True(t, state.Interaction.SilentMode)
}
