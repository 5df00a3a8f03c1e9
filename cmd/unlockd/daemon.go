package main

import (
	"context"
	"log/slog"
	"time"
)

// runDaemon owns state for its whole lifetime. Each incoming event is
// reduced, the resulting commands are executed in order, and whatever the
// collaborators report back is reduced before the next command runs. The
// resume ping timer feeds the same loop as PingDue.
//
// It returns when ctx is done or events is closed, detaching the active
// variant on the way out.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	state *LockState,
	fx *Effects,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if fx == nil {
		fx = &Effects{}
	}
	if fx.Pings == nil {
		fx.Pings = newPingTimer()
	}

	d := &daemon{state: state, fx: fx, broadcasts: broadcasts, logger: logger}
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping", "reason", "context canceled")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping", "reason", "events closed")
				return
			}
			d.step(TimedEvent{Event: ev, At: time.Now()})

		case now := <-fx.Pings.C():
			d.step(TimedEvent{Event: PingDue{Token: fx.Pings.fired()}, At: now})
		}
	}
}

type daemon struct {
	state      *LockState
	fx         *Effects
	broadcasts chan<- StateBroadcast
	logger     *slog.Logger

	// Pending work. Commands never run re-entrantly; their results are
	// queued here and reduced before the next command.
	events   []Event
	commands []Command
}

func (d *daemon) step(ev Event) {
	d.events = append(d.events, ev)
	d.reduceAll()

	for len(d.commands) > 0 {
		cmd := d.commands[0]
		d.commands = d.commands[1:]

		d.logger.Debug("executing command", "command", cmd.String())
		runEffect(d.fx, cmd, d.logger, func(result Event) {
			d.events = append(d.events, result)
		})
		d.reduceAll()
	}
}

func (d *daemon) reduceAll() {
	for len(d.events) > 0 {
		ev := d.events[0]
		d.events = d.events[1:]

		rr := Reduce(d.state, ev)
		if rr.State != nil {
			d.state = rr.State
		}
		d.commands = append(d.commands, rr.Commands...)
		d.publish(rr.Broadcasts)
	}
}

// publish never blocks the loop; a full channel drops the broadcast.
func (d *daemon) publish(bcs []StateBroadcast) {
	for _, b := range bcs {
		d.fx.Metrics.observe(b)
		if d.broadcasts == nil {
			continue
		}
		select {
		case d.broadcasts <- b:
		default:
			d.logger.Warn("broadcast dropped, queue full", "broadcast", b)
		}
	}
}

func (d *daemon) shutdown() {
	d.fx.Pings.stop()
	if d.state.Variant != nil {
		d.state.Variant.Detach()
	}
}
