package main

import (
	"log/slog"
	"time"
)

// Effects bundles the collaborators commands are executed against.
type Effects struct {
	Ringer   RingerService
	Launcher Launcher
	Host     Host
	Pings    *pingTimer
	Metrics  *Metrics
}

// runEffect executes a single reducer-emitted Command against the
// collaborators and emits an observation Event via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
// - The daemon loop is responsible for sequencing: Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	fx *Effects,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}
	if fx == nil {
		fx = &Effects{}
	}

	now := time.Now()
	fail := func(err error) {
		fx.Metrics.commandFailed(cmd)
		onEvent(CommandFailed{Command: cmd, Err: err, At: now})
	}

	switch c := cmd.(type) {
	case CmdGoToUnlock:
		if fx.Host == nil {
			fail(errNoCollaborator{name: "host"})
			return
		}
		if err := fx.Host.GoToUnlockScreen(); err != nil {
			logger.Error("host unlock failed", "error", err)
			fail(err)
		}

	case CmdPokeWakelock:
		if fx.Host == nil {
			fail(errNoCollaborator{name: "host"})
			return
		}
		if err := fx.Host.PokeWakelock(c.Timeout); err != nil {
			logger.Warn("host poke wakelock failed", "error", err)
			fail(err)
		}

	case CmdRecreateSurface:
		if fx.Host == nil {
			fail(errNoCollaborator{name: "host"})
			return
		}
		if err := fx.Host.RecreateSurface(c.Orientation); err != nil {
			logger.Error("host recreate surface failed", "error", err, "orientation", c.Orientation)
			fail(err)
		}

	case CmdShowToast:
		if fx.Host == nil {
			fail(errNoCollaborator{name: "host"})
			return
		}
		if err := fx.Host.ShowToast(c.Text); err != nil {
			logger.Warn("host toast failed", "error", err)
			fail(err)
		}

	case CmdSetRingerMode:
		if fx.Ringer == nil {
			fail(errNoCollaborator{name: "ringer"})
			return
		}
		if err := fx.Ringer.SetRingerMode(c.Mode); err != nil {
			logger.Error("set ringer mode failed", "error", err, "mode", c.Mode)
			fail(err)
			return
		}
		onEvent(RingerModeApplied{Mode: c.Mode})

	case CmdReadRingerMode:
		if fx.Ringer == nil {
			fail(errNoCollaborator{name: "ringer"})
			return
		}
		mode, err := fx.Ringer.RingerMode()
		if err != nil {
			logger.Debug("read ringer mode failed", "error", err)
			fail(err)
			return
		}
		onEvent(RingerChanged{Mode: mode})

	case CmdLaunch:
		if fx.Launcher == nil {
			fail(errNoCollaborator{name: "launcher"})
			return
		}
		failed := func(err error) {
			// Launch failures leave the surface locked and are otherwise silent.
			logger.Debug("launch failed", "error", err, "ref", c.Ref, "slot", c.Slot)
			fx.Metrics.launchFailed()
			onEvent(LaunchFailed{Ref: c.Ref, Slot: c.Slot, Err: err})
		}
		action, err := fx.Launcher.Resolve(c.Ref)
		if err != nil {
			failed(err)
			return
		}
		if err := fx.Launcher.Run(action); err != nil {
			failed(err)
			return
		}
		logger.Info("launched", "ref", c.Ref, "slot", c.Slot, "id", action.ID)
		onEvent(LaunchSucceeded{Ref: c.Ref, Slot: c.Slot})

	case CmdSchedulePing:
		if fx.Pings == nil {
			fail(errNoCollaborator{name: "ping timer"})
			return
		}
		fx.Pings.Schedule(c.Token, c.Delay)

	case CmdCancelPing:
		if fx.Pings != nil {
			fx.Pings.Cancel(c.Token)
		}

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the daemon loop.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		fail(errUnknownCommand{cmd: cmd})
	}
}

// errNoCollaborator indicates a command arrived for a collaborator that is not configured.
type errNoCollaborator struct {
	name string
}

func (e errNoCollaborator) Error() string { return "no " + e.name + " configured" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }

// pingTimer holds at most one armed resume ping. It is only used from the
// daemon goroutine.
type pingTimer struct {
	timer *time.Timer
	token uint64
}

func newPingTimer() *pingTimer { return &pingTimer{} }

// Schedule replaces any armed ping.
func (p *pingTimer) Schedule(token uint64, delay time.Duration) {
	p.stop()
	p.token = token
	p.timer = time.NewTimer(delay)
}

// Cancel disarms the ping if it still holds token.
func (p *pingTimer) Cancel(token uint64) {
	if p.token == token {
		p.stop()
	}
}

func (p *pingTimer) stop() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = nil
	p.token = 0
}

// C is nil while nothing is armed, which blocks forever in a select.
func (p *pingTimer) C() <-chan time.Time {
	if p == nil || p.timer == nil {
		return nil
	}
	return p.timer.C
}

// fired returns the token of the ping that just fired and disarms.
func (p *pingTimer) fired() uint64 {
	t := p.token
	p.timer = nil
	p.token = 0
	return t
}
