package main

import "time"

// This file implements the controller as a reducer:
//
//   - Events: gestures, lifecycle, collaborator notifications, command results
//   - Commands: host callbacks, ringer and launcher calls, ping timer
//   - Reduce(): computes next state + commands + broadcasts, without I/O
//
// The active WidgetVariant is part of the state and is only ever touched
// from here, on the daemon goroutine.

// cameraSlot marks a CmdLaunch for the fixed camera action.
const cameraSlot = -1

// ReduceResult is the output of Reduce(): next state plus the Commands to
// execute and the Broadcasts to publish.
type ReduceResult struct {
	State      *LockState
	Commands   []Command
	Broadcasts []StateBroadcast
}

type reduction struct {
	s  *LockState
	at time.Time

	cmds []Command
	bcs  []StateBroadcast

	// dirty is set when the visible surface changed during this event.
	dirty bool
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop executes Commands and feeds their results back as Events.
func Reduce(s *LockState, e Event) ReduceResult {
	if s == nil {
		s = NewLockState(SurfaceOptions{})
	}

	r := &reduction{s: s}
	if te, ok := e.(TimedEvent); ok {
		r.at = te.At
		e = te.Event
	}

	r.reduce(e)

	if r.dirty && s.Variant != nil {
		r.broadcast(BroadcastSurfaceChanged{
			View:        s.Variant.View(),
			Interaction: s.Interaction,
			Ringer:      s.resourceEnv().Ringer,
			At:          r.at,
		})
	}

	return ReduceResult{
		State:      s,
		Commands:   r.cmds,
		Broadcasts: r.bcs,
	}
}

func (r *reduction) emit(cmds ...Command) {
	r.cmds = append(r.cmds, cmds...)
}

func (r *reduction) broadcast(b StateBroadcast) {
	r.bcs = append(r.bcs, b)
}

func (r *reduction) reduce(e Event) {
	s := r.s

	switch ev := e.(type) {
	case ConfigChanged:
		s.Live = ev.Snapshot.clone()
		r.reconcile()

	case OrientationChanged:
		s.WantOrientation = ev.Orientation
		r.reconcile()

	case Grab:
		if ev.Handle == HandleNone {
			r.release()
			return
		}
		if !r.variantReady() {
			return
		}
		s.Phase = PhaseGrabbed
		s.GrabHandle = ev.Handle
		s.Interaction.Grabbed = true
		r.dirty = true

		resp := s.Variant.GrabStateChange(ev.Handle)
		if resp.RefreshSilent {
			r.emit(CmdReadRingerMode{})
		}
		if resp.Poke {
			r.emit(CmdPokeWakelock{Timeout: resp.PokeTimeout})
		}

	case Release:
		r.release()

	case Trigger:
		if !r.variantReady() {
			return
		}
		id := s.Variant.Identity()
		raw := s.Variant.RawTrigger(ev.Code, ev.Sub)
		action := Route(id, raw, RouteContext{Interaction: s.Interaction, Slots: s.Slots})
		r.broadcast(BroadcastActionRouted{Variant: id, Raw: raw, Action: action, At: r.at})

		// The gesture resolves against the variant it started on; any
		// queued swap is applied by the release that follows.
		r.apply(action)
		r.release()

	case Pause:
		s.Paused = true
		r.cancelPing()
		if s.Variant != nil {
			s.Variant.Reset(false)
			r.dirty = true
		}
		s.Phase = PhaseIdle
		s.GrabHandle = HandleNone
		s.Interaction.Grabbed = false
		r.reconcile()

	case Resume:
		s.Paused = false
		r.cancelPing()
		if s.Variant != nil {
			s.PingToken = s.nextPingToken()
			r.emit(CmdSchedulePing{Token: s.PingToken, Delay: s.Options.ResumePingDelay})
		}

	case PingDue:
		if ev.Token == 0 || ev.Token != s.PingToken {
			return
		}
		s.PingToken = 0
		if r.variantReady() {
			s.Variant.Ping()
			r.dirty = true
		}

	case RingerChanged:
		r.observeRinger(ev.Mode)
		r.observeSilent(ev.Mode.Silent())

	case RingerModeApplied:
		r.observeRinger(ev.Mode)

	case LaunchSucceeded:
		r.emit(CmdGoToUnlock{})

	case LaunchFailed:
		// Unresolvable launches are swallowed; the surface stays locked.

	case MenuKeyPressed:
		if s.Options.MenuKeyUnlock {
			r.emit(CmdGoToUnlock{})
		}

	case KeyboardChanged:
		opened := ev.Open && !s.KeyboardOpen
		s.KeyboardOpen = ev.Open
		if opened && s.Options.KeyguardBypass {
			r.emit(CmdGoToUnlock{})
		}

	case RequestStateSnapshot:
		if ev.Reply != nil {
			r.emit(CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.snapshot()})
		}

	case CommandFailed:
		if c, ok := ev.Command.(CmdSetRingerMode); ok && s.PendingRinger != nil && *s.PendingRinger == c.Mode {
			// Keep the optimistic silent flag; the next notification corrects it.
			s.PendingRinger = nil
		}

	default:
		// Unknown event type: no-op.
	}
}

// variantReady reports whether triggers may be routed to the active variant.
func (r *reduction) variantReady() bool {
	return r.s.Variant != nil && r.s.Variant.Attached() && r.s.Phase != PhaseTransitioning
}

func (r *reduction) apply(action Action) {
	s := r.s

	switch a := action.(type) {
	case Unlock:
		r.emit(CmdGoToUnlock{})

	case ToggleRingerMode:
		r.toggleRinger()

	case LaunchConfigured:
		ref, ok := s.Slots.Slot(a.Slot).Target()
		if !ok {
			return
		}
		r.emit(CmdLaunch{Ref: ref, Slot: a.Slot})

	case LaunchCamera:
		r.emit(CmdLaunch{Ref: s.Options.Builtins.Camera, Slot: cameraSlot})
	}
}

func (r *reduction) toggleRinger() {
	s := r.s

	silent := !s.Interaction.SilentMode
	s.Interaction.SilentMode = silent

	mode, text := RingerNormal, toastSoundOn
	if silent {
		mode, text = silencedMode(s.Live.VibrateInSilent), toastSoundOff
	}
	s.PendingRinger = &mode

	r.emit(
		CmdSetRingerMode{Mode: mode},
		CmdShowToast{Text: text},
		CmdPokeWakelock{},
	)

	s.Variant.UpdateResources(s.resourceEnv())
	r.dirty = true
}

func (r *reduction) observeRinger(mode RingerMode) {
	s := r.s
	s.Ringer = mode
	s.RingerKnown = true
	if s.PendingRinger != nil && *s.PendingRinger == mode {
		s.PendingRinger = nil
	}
}

// observeSilent applies a silent state reported by the ringer service.
func (r *reduction) observeSilent(silent bool) {
	s := r.s
	if silent == s.Interaction.SilentMode {
		return
	}
	s.Interaction.SilentMode = silent
	if s.Variant != nil {
		s.Variant.UpdateResources(s.resourceEnv())
		r.dirty = true
	}
}

// release ends a gesture and enters Idle.
func (r *reduction) release() {
	s := r.s
	if s.Phase == PhaseGrabbed {
		s.Phase = PhaseIdle
		s.GrabHandle = HandleNone
		s.Interaction.Grabbed = false
		if s.Variant != nil {
			s.Variant.GrabStateChange(HandleNone)
		}
		r.dirty = true
	}
	r.reconcile()
}

func (r *reduction) cancelPing() {
	s := r.s
	if s.PingToken == 0 {
		return
	}
	r.emit(CmdCancelPing{Token: s.PingToken})
	s.PingToken = 0
}

// reconcile rebuilds the variant when the live configuration or the
// orientation no longer match the active one. Changes seen while Grabbed
// wait for the next Idle entry.
func (r *reduction) reconcile() {
	s := r.s
	if s.Phase != PhaseIdle {
		return
	}
	want := selectVariant(s.Live, s.Options.TabVariant)
	if s.Variant != nil && s.Variant.Identity() == want && s.Orientation == s.WantOrientation {
		return
	}
	r.rebuild(want)
}

// rebuild swaps in a new variant. It runs to completion inside one Reduce
// call, so no trigger can be routed to a half-built surface.
func (r *reduction) rebuild(id VariantIdentity) {
	s := r.s
	s.Phase = PhaseTransitioning

	prev := s.Variant
	if prev != nil {
		prev.Detach()
	}
	r.cancelPing()

	orientationChanged := prev != nil && s.Orientation != s.WantOrientation
	s.Orientation = s.WantOrientation

	s.Built = s.Live.clone()
	s.Slots = slotsFor(id, s.Built, s.Options.Builtins)
	s.Interaction.CameraDisabled = s.Built.DevicePolicyCameraDisabled || s.Built.ForceSoundIcon
	s.Interaction.CustomModeEnabled = s.Built.ExtraIcons
	s.Interaction.Grabbed = false

	factory := s.Factory
	if factory == nil {
		factory = newWidgetVariant
	}
	s.Variant = factory(id, VariantParams{
		Orientation: s.Orientation,
		Config:      s.Built,
		Slots:       s.Slots,
		Tab:         usesTabLayout(s.Built),
	})
	s.Variant.UpdateResources(s.resourceEnv())
	s.Generation++
	s.Phase = PhaseIdle

	if orientationChanged {
		r.emit(CmdRecreateSurface{Orientation: s.Orientation})
	}
	r.broadcast(BroadcastVariantChanged{
		Variant:     id,
		Orientation: s.Orientation,
		Generation:  s.Generation,
		At:          r.at,
	})
	r.dirty = true
}
