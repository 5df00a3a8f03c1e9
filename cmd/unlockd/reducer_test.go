package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyVariant wraps a real variant and counts the calls the controller makes.
type spyVariant struct {
	WidgetVariant
	updates int
}

func (s *spyVariant) UpdateResources(env ResourceEnv) {
	s.updates++
	s.WidgetVariant.UpdateResources(env)
}

// spyFactory records every variant the reducer builds.
type spyFactory struct {
	built []*spyVariant
}

func (f *spyFactory) build(id VariantIdentity, p VariantParams) WidgetVariant {
	v := &spyVariant{WidgetVariant: newWidgetVariant(id, p)}
	f.built = append(f.built, v)
	return v
}

func (f *spyFactory) last() *spyVariant {
	if len(f.built) == 0 {
		return nil
	}
	return f.built[len(f.built)-1]
}

var testBuiltins = BuiltinRefs{
	Messaging: "app://messaging",
	Dialer:    "app://dialer",
	Camera:    "app://camera",
}

// newTestState returns a state whose first variant has been built from snap.
func newTestState(t *testing.T, snap ConfigSnapshot) (*LockState, *spyFactory) {
	t.Helper()
	f := &spyFactory{}
	s := NewLockState(SurfaceOptions{Builtins: testBuiltins})
	s.Factory = f.build
	Reduce(s, ConfigChanged{Snapshot: snap})
	require.NotNil(t, s.Variant, "variant not built")
	return s, f
}

func snapshotOfType(lockType int) ConfigSnapshot {
	snap := DefaultSnapshot()
	snap.LockscreenType = lockType
	return snap
}

func commandsOf[T Command](cmds []Command) []T {
	var out []T
	for _, c := range cmds {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func broadcastsOf[T StateBroadcast](bcs []StateBroadcast) []T {
	var out []T
	for _, b := range bcs {
		if v, ok := b.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestReduce_FirstConfigBuildsVariant(t *testing.T) {
	f := &spyFactory{}
	s := NewLockState(SurfaceOptions{})
	s.Factory = f.build

	at := time.Unix(1700000000, 0)
	rr := Reduce(s, TimedEvent{Event: ConfigChanged{Snapshot: snapshotOfType(lockTypeRing)}, At: at})

	require.Len(t, f.built, 1)
	assert.Equal(t, VariantRing, s.Variant.Identity())
	assert.Equal(t, uint64(1), s.Generation)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 1, f.last().updates, "a new variant gets its resources once")
	assert.Empty(t, commandsOf[CmdRecreateSurface](rr.Commands), "first build is not a recreate")

	vc := broadcastsOf[BroadcastVariantChanged](rr.Broadcasts)
	require.Len(t, vc, 1)
	assert.Equal(t, VariantRing, vc[0].Variant)
	assert.Equal(t, at, vc[0].At)
	assert.Len(t, broadcastsOf[BroadcastSurfaceChanged](rr.Broadcasts), 1)
}

func TestReduce_TriggerBeforeFirstConfigIsIgnored(t *testing.T) {
	s := NewLockState(SurfaceOptions{})
	rr := Reduce(s, Trigger{Code: HandleLeft})
	assert.Empty(t, rr.Commands)
	assert.Nil(t, s.Variant)
}

func TestReduce_UnchangedConfigDoesNotRebuild(t *testing.T) {
	snap := snapshotOfType(lockTypeRotary)
	s, f := newTestState(t, snap)

	snap.HideArrows = true
	Reduce(s, ConfigChanged{Snapshot: snap})

	assert.Len(t, f.built, 1, "same identity and orientation keep the variant")
	assert.True(t, s.Live.HideArrows)
	assert.False(t, s.Built.HideArrows)
}

func TestReduce_UnlockFromLeftHandle(t *testing.T) {
	for _, lockType := range []int{lockTypeSlider, lockTypeRotary, lockTypeRing} {
		s, _ := newTestState(t, snapshotOfType(lockType))

		rr := Reduce(s, Grab{Handle: HandleLeft})
		assert.Equal(t, PhaseGrabbed, s.Phase)
		assert.True(t, s.Interaction.Grabbed)
		assert.Empty(t, commandsOf[CmdReadRingerMode](rr.Commands), "left grab does not refresh the ringer")

		rr = Reduce(s, Trigger{Code: HandleLeft})
		assert.Equal(t, []Command{CmdGoToUnlock{}}, rr.Commands, "lock type %d", lockType)
		assert.Equal(t, PhaseIdle, s.Phase)
		assert.False(t, s.Interaction.Grabbed)
		assert.False(t, s.Interaction.SilentMode, "unlock does not touch interaction state")
	}
}

func TestReduce_RightGrabRefreshesRinger(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeSlider))

	rr := Reduce(s, Grab{Handle: HandleRight})
	assert.Len(t, commandsOf[CmdReadRingerMode](rr.Commands), 1)
	assert.Len(t, commandsOf[CmdPokeWakelock](rr.Commands), 1)

	rr = Reduce(s, Grab{Handle: HandleNone})
	assert.Empty(t, rr.Commands, "releasing to no handle does not poke")
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestReduce_ToggleTwiceRestoresSilentMode(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	v := f.last()
	before := v.updates

	rr := Reduce(s, Trigger{Code: HandleRight})
	assert.True(t, s.Interaction.SilentMode)
	assert.Equal(t, []Command{
		CmdSetRingerMode{Mode: RingerVibrate},
		CmdShowToast{Text: toastSoundOff},
		CmdPokeWakelock{},
	}, rr.Commands)
	assert.Equal(t, "ic_jog_dial_vibrate_on", v.View().Resources.RightIcon, "pending mode drives resources")

	Reduce(s, RingerModeApplied{Mode: RingerVibrate})
	assert.Nil(t, s.PendingRinger)

	rr = Reduce(s, Trigger{Code: HandleRight})
	assert.False(t, s.Interaction.SilentMode)
	assert.Equal(t, []Command{
		CmdSetRingerMode{Mode: RingerNormal},
		CmdShowToast{Text: toastSoundOn},
		CmdPokeWakelock{},
	}, rr.Commands)
	Reduce(s, RingerModeApplied{Mode: RingerNormal})

	assert.Equal(t, 2, v.updates-before)
	assert.Len(t, f.built, 1)
}

func TestReduce_ToggleUsesFullSilentWithoutVibratePreference(t *testing.T) {
	snap := snapshotOfType(lockTypeRotary)
	snap.VibrateInSilent = false
	s, _ := newTestState(t, snap)

	rr := Reduce(s, Trigger{Code: HandleRight})
	require.NotEmpty(t, rr.Commands)
	assert.Equal(t, CmdSetRingerMode{Mode: RingerSilent}, rr.Commands[0])
}

func TestReduce_RingerAcknowledgementDoesNotUpdateAgain(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	Reduce(s, Trigger{Code: HandleRight})
	n := f.last().updates

	// The ringer service echoes the change it was asked to make.
	Reduce(s, RingerModeApplied{Mode: RingerVibrate})
	Reduce(s, RingerChanged{Mode: RingerVibrate})

	assert.Equal(t, n, f.last().updates)
	assert.True(t, s.Interaction.SilentMode)
}

func TestReduce_ExternalRingerChange(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	v := f.last()
	n := v.updates

	rr := Reduce(s, RingerChanged{Mode: RingerSilent})
	assert.True(t, s.Interaction.SilentMode)
	assert.Equal(t, n+1, v.updates)
	assert.Equal(t, "ic_jog_dial_sound_off", v.View().Resources.RightIcon)
	assert.Len(t, broadcastsOf[BroadcastSurfaceChanged](rr.Broadcasts), 1)

	// Silent to vibrate keeps silentMode, so nothing is recomputed.
	Reduce(s, RingerChanged{Mode: RingerVibrate})
	assert.Equal(t, n+1, v.updates)
	assert.Equal(t, RingerVibrate, s.Ringer)

	Reduce(s, RingerChanged{Mode: RingerNormal})
	assert.False(t, s.Interaction.SilentMode)
	assert.Equal(t, n+2, v.updates)
}

func TestReduce_FailedRingerSetClearsPending(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeSlider))
	Reduce(s, Trigger{Code: HandleRight})
	require.NotNil(t, s.PendingRinger)

	Reduce(s, CommandFailed{Command: CmdSetRingerMode{Mode: RingerVibrate}, Err: errors.New("bus down")})
	assert.Nil(t, s.PendingRinger)
	assert.True(t, s.Interaction.SilentMode)
}

func TestReduce_SwapWhileGrabbedIsDeferred(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	old := f.last()

	Reduce(s, Grab{Handle: HandleLeft})
	rr := Reduce(s, ConfigChanged{Snapshot: snapshotOfType(lockTypeRing)})
	assert.Len(t, f.built, 1, "no rebuild mid-gesture")
	assert.Empty(t, broadcastsOf[BroadcastVariantChanged](rr.Broadcasts))
	assert.Equal(t, VariantSlider, s.Variant.Identity())

	rr = Reduce(s, Trigger{Code: HandleLeft})

	routed := broadcastsOf[BroadcastActionRouted](rr.Broadcasts)
	require.Len(t, routed, 1)
	assert.Equal(t, VariantSlider, routed[0].Variant, "gesture resolves against the old variant")
	assert.Equal(t, Unlock{}, routed[0].Action)
	assert.Equal(t, []Command{CmdGoToUnlock{}}, rr.Commands)

	require.Len(t, f.built, 2)
	assert.Equal(t, VariantRing, s.Variant.Identity())
	assert.False(t, old.Attached(), "old variant detached")
	assert.True(t, s.Variant.Attached())
	assert.Equal(t, uint64(2), s.Generation)
}

func TestReduce_SwapAppliedOnPlainRelease(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	Reduce(s, Grab{Handle: HandleRight})
	Reduce(s, ConfigChanged{Snapshot: snapshotOfType(lockTypeHoneycomb)})
	require.Len(t, f.built, 1)

	rr := Reduce(s, Release{})
	assert.Empty(t, commandsOf[CmdGoToUnlock](rr.Commands))
	assert.Equal(t, VariantMultiTarget, s.Variant.Identity())
}

func TestReduce_PauseResetsAndDiscardsGrab(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeRing))
	Reduce(s, Grab{Handle: HandleRight})

	Reduce(s, Pause{})
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Interaction.Grabbed)
	view := f.last().View()
	assert.Equal(t, uint64(1), view.Resets)
	assert.False(t, view.AnimatedReset)
}

func TestReduce_PauseCancelsResumePing(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeHoneycomb))

	rr := Reduce(s, Resume{})
	sched := commandsOf[CmdSchedulePing](rr.Commands)
	require.Len(t, sched, 1)
	assert.Equal(t, defaultResumePingDelay, sched[0].Delay)
	first := sched[0].Token

	rr = Reduce(s, Pause{})
	assert.Equal(t, []Command{CmdCancelPing{Token: first}}, rr.Commands)

	rr = Reduce(s, Resume{})
	sched = commandsOf[CmdSchedulePing](rr.Commands)
	require.Len(t, sched, 1)
	second := sched[0].Token
	assert.NotEqual(t, first, second)

	// A stale timer firing late must not ping.
	Reduce(s, PingDue{Token: first})
	assert.Equal(t, uint64(0), f.last().View().Pings)

	Reduce(s, PingDue{Token: second})
	assert.Equal(t, uint64(1), f.last().View().Pings, "exactly one ping")

	Reduce(s, PingDue{Token: second})
	assert.Equal(t, uint64(1), f.last().View().Pings)
}

func TestReduce_SwapCancelsResumePing(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeHoneycomb))
	rr := Reduce(s, Resume{})
	token := commandsOf[CmdSchedulePing](rr.Commands)[0].Token

	rr = Reduce(s, ConfigChanged{Snapshot: snapshotOfType(lockTypeSlider)})
	assert.Contains(t, rr.Commands, Command(CmdCancelPing{Token: token}))

	Reduce(s, PingDue{Token: token})
	assert.Equal(t, uint64(0), f.built[0].View().Pings)
	assert.Equal(t, uint64(0), s.PingToken)
}

func TestReduce_OrientationChangeRecreatesSurface(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeRotary))

	rr := Reduce(s, OrientationChanged{Orientation: OrientationLandscape})
	assert.Equal(t, []Command{CmdRecreateSurface{Orientation: OrientationLandscape}}, rr.Commands)
	require.Len(t, f.built, 2)
	assert.Equal(t, VariantRotary, s.Variant.Identity(), "same identity, new geometry")
	assert.Equal(t, "rotary_unlock_land", s.Variant.View().Layout)

	rr = Reduce(s, OrientationChanged{Orientation: OrientationLandscape})
	assert.Empty(t, rr.Commands)
	assert.Len(t, f.built, 2)
}

func TestReduce_OrientationChangeWhileGrabbedIsDeferred(t *testing.T) {
	s, f := newTestState(t, snapshotOfType(lockTypeSlider))
	Reduce(s, Grab{Handle: HandleLeft})

	rr := Reduce(s, OrientationChanged{Orientation: OrientationLandscape})
	assert.Empty(t, rr.Commands)
	assert.Len(t, f.built, 1)

	rr = Reduce(s, Release{})
	assert.Equal(t, []Command{CmdRecreateSurface{Orientation: OrientationLandscape}}, rr.Commands)
	assert.Equal(t, OrientationLandscape, s.Orientation)
}

func TestReduce_MultiTargetLaunchesConfiguredSlot(t *testing.T) {
	snap := snapshotOfType(lockTypeHoneycomb)
	snap.ExtraIcons = true
	snap.CustomAppOne = "app://mail"
	s, _ := newTestState(t, snap)

	rr := Reduce(s, Trigger{Code: TargetSlotOne})
	assert.Equal(t, []Command{CmdLaunch{Ref: "app://mail", Slot: 0}}, rr.Commands)

	rr = Reduce(s, LaunchSucceeded{Ref: "app://mail", Slot: 0})
	assert.Equal(t, []Command{CmdGoToUnlock{}}, rr.Commands)
}

func TestReduce_MultiTargetFallsBackToBuiltin(t *testing.T) {
	snap := snapshotOfType(lockTypeHoneycomb)
	snap.ExtraIcons = true
	s, _ := newTestState(t, snap)

	rr := Reduce(s, Trigger{Code: TargetSlotOne})
	assert.Equal(t, []Command{CmdLaunch{Ref: testBuiltins.Messaging, Slot: 0}}, rr.Commands)

	rr = Reduce(s, Trigger{Code: TargetSlotTwo})
	assert.Equal(t, []Command{CmdLaunch{Ref: testBuiltins.Dialer, Slot: 1}}, rr.Commands)

	rr = Reduce(s, LaunchSucceeded{Ref: testBuiltins.Dialer, Slot: 1})
	assert.Equal(t, []Command{CmdGoToUnlock{}}, rr.Commands)
}

func TestReduce_MultiTargetCameraDisabledToggles(t *testing.T) {
	snap := snapshotOfType(lockTypeHoneycomb)
	snap.DevicePolicyCameraDisabled = true
	s, _ := newTestState(t, snap)
	require.True(t, s.Interaction.CameraDisabled)

	rr := Reduce(s, Trigger{Code: TargetSoundOrCam})
	assert.Empty(t, commandsOf[CmdLaunch](rr.Commands))
	assert.Len(t, commandsOf[CmdSetRingerMode](rr.Commands), 1)
	assert.Equal(t, targetSetWhenSilent, s.Variant.View().Resources.TargetSet)
}

func TestReduce_ForcedSoundIconDisablesCamera(t *testing.T) {
	snap := snapshotOfType(lockTypeHoneycomb)
	snap.ForceSoundIcon = true
	s, _ := newTestState(t, snap)
	assert.True(t, s.Interaction.CameraDisabled)
}

func TestReduce_MultiTargetLaunchesCamera(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeHoneycomb))

	rr := Reduce(s, Trigger{Code: TargetSoundOrCam})
	assert.Equal(t, []Command{CmdLaunch{Ref: testBuiltins.Camera, Slot: cameraSlot}}, rr.Commands)
}

func TestReduce_LaunchFailureStaysLocked(t *testing.T) {
	snap := snapshotOfType(lockTypeRing)
	snap.CustomRingApps = []string{"", "app://music"}
	s, f := newTestState(t, snap)

	rr := Reduce(s, Trigger{Code: HandleMiddle, Sub: 1})
	require.Equal(t, []Command{CmdLaunch{Ref: "app://music", Slot: 1}}, rr.Commands)

	rr = Reduce(s, LaunchFailed{Ref: "app://music", Slot: 1, Err: ErrLaunchResolution})
	assert.Empty(t, rr.Commands)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Len(t, f.built, 1)
}

func TestReduce_RingMiddleOnEmptySlotIsNoOp(t *testing.T) {
	snap := snapshotOfType(lockTypeRing)
	snap.CustomRingApps = []string{"", "app://music"}
	s, _ := newTestState(t, snap)

	rr := Reduce(s, Trigger{Code: HandleMiddle, Sub: 0})
	assert.Empty(t, rr.Commands)
	routed := broadcastsOf[BroadcastActionRouted](rr.Broadcasts)
	require.Len(t, routed, 1)
	assert.Equal(t, NoOp{}, routed[0].Action)
}

func TestReduce_MenuKey(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeSlider))
	assert.Empty(t, Reduce(s, MenuKeyPressed{}).Commands)

	s.Options.MenuKeyUnlock = true
	assert.Equal(t, []Command{CmdGoToUnlock{}}, Reduce(s, MenuKeyPressed{}).Commands)
}

func TestReduce_KeyboardOpenWithBypassUnlocks(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeSlider))
	assert.Empty(t, Reduce(s, KeyboardChanged{Open: true}).Commands, "bypass disabled")
	Reduce(s, KeyboardChanged{Open: false})

	s.Options.KeyguardBypass = true
	assert.Equal(t, []Command{CmdGoToUnlock{}}, Reduce(s, KeyboardChanged{Open: true}).Commands)
	assert.Empty(t, Reduce(s, KeyboardChanged{Open: true}).Commands, "already open")
}

func TestReduce_SnapshotRequest(t *testing.T) {
	s, _ := newTestState(t, snapshotOfType(lockTypeRing))
	reply := make(chan StateSnapshot, 1)

	rr := Reduce(s, RequestStateSnapshot{Reply: reply})
	cmds := commandsOf[CmdPublishStateSnapshot](rr.Commands)
	require.Len(t, cmds, 1)
	require.NotNil(t, cmds[0].Snapshot.Variant)
	assert.Equal(t, VariantRing, *cmds[0].Snapshot.Variant)
	assert.Equal(t, uint64(1), cmds[0].Snapshot.Generation)
}

func TestReduce_WaveTabVariant(t *testing.T) {
	f := &spyFactory{}
	s := NewLockState(SurfaceOptions{TabVariant: VariantWave})
	s.Factory = f.build
	Reduce(s, ConfigChanged{Snapshot: DefaultSnapshot()})

	require.NotNil(t, s.Variant)
	assert.Equal(t, VariantWave, s.Variant.Identity())

	rr := Reduce(s, Grab{Handle: HandleCenter})
	assert.Equal(t, []Command{CmdPokeWakelock{Timeout: waveStayAwake}}, rr.Commands)

	rr = Reduce(s, Trigger{Code: HandleCenter})
	assert.Equal(t, []Command{CmdGoToUnlock{}}, rr.Commands)
}
