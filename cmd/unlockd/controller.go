package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Controller connects the lock surface to its collaborators: it observes
// the ConfigStore and RingerService and feeds their changes into the
// daemon loop that owns the LockState.
type Controller struct {
	store  ConfigStore
	ringer RingerService
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	unsubs []func()

	// Notifications that found the queue full, oldest first. One
	// forwarder goroutine drains it while it is non-empty.
	overflowMu sync.Mutex
	overflow   []Event
	forwarding bool

	closeOnce sync.Once
}

func NewController(store ConfigStore, ringer RingerService, queueSize int, logger *slog.Logger) *Controller {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Controller{
		store:  store,
		ringer: ringer,
		logger: logger,
		events: make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Events is the queue the daemon loop consumes. Input readers and the IPC
// server send to it directly.
func (c *Controller) Events() chan<- Event { return c.events }

// Post enqueues ev without blocking. It reports false when the queue is
// full or the controller is closed.
func (c *Controller) Post(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// notify is used by collaborator callbacks. Those may run on the daemon
// goroutine itself (a local ringer notifying from SetRingerMode), so it
// never blocks. Once the queue is full, notifications wait in overflow and
// a single forwarder delivers them in arrival order; later notifications
// queue behind them rather than overtaking.
func (c *Controller) notify(ev Event) {
	c.overflowMu.Lock()
	defer c.overflowMu.Unlock()

	if len(c.overflow) == 0 && c.Post(ev) {
		return
	}
	c.overflow = append(c.overflow, ev)
	if !c.forwarding {
		c.forwarding = true
		go c.forward()
	}
}

func (c *Controller) forward() {
	for {
		c.overflowMu.Lock()
		if len(c.overflow) == 0 {
			c.forwarding = false
			c.overflowMu.Unlock()
			return
		}
		ev := c.overflow[0]
		c.overflowMu.Unlock()

		select {
		case c.events <- ev:
		case <-c.done:
			c.overflowMu.Lock()
			c.overflow = nil
			c.forwarding = false
			c.overflowMu.Unlock()
			return
		}

		c.overflowMu.Lock()
		c.overflow = c.overflow[1:]
		c.overflowMu.Unlock()
	}
}

// Attach subscribes to the store and the ringer, then queues the current
// configuration and ringer mode. Subscribing first means no change between
// the initial read and the subscription is lost.
func (c *Controller) Attach() error {
	if c.store == nil {
		return errors.New("controller: no config store")
	}
	c.mu.Lock()
	c.unsubs = append(c.unsubs,
		c.store.Subscribe(func(s ConfigSnapshot) { c.notify(ConfigChanged{Snapshot: s}) }),
	)
	if c.ringer != nil {
		c.unsubs = append(c.unsubs,
			c.ringer.Subscribe(func(m RingerMode) { c.notify(RingerChanged{Mode: m}) }),
		)
	}
	c.mu.Unlock()

	snap, err := c.store.Snapshot()
	if err != nil {
		c.logger.Warn("config snapshot unavailable, using defaults", "error", err)
		snap = DefaultSnapshot()
	}
	c.notify(ConfigChanged{Snapshot: snap})

	if c.ringer != nil {
		mode, err := c.ringer.RingerMode()
		switch {
		case err == nil:
			c.notify(RingerChanged{Mode: mode})
		case errors.Is(err, ErrRingerUnknown):
			c.logger.Debug("ringer mode not yet known")
		default:
			c.logger.Warn("read ringer mode failed", "error", err)
		}
	}
	return nil
}

// Run attaches and drives the daemon loop until ctx is done.
func (c *Controller) Run(ctx context.Context, state *LockState, fx *Effects, broadcasts chan<- StateBroadcast) error {
	defer c.Close()
	if err := c.Attach(); err != nil {
		return err
	}
	runDaemon(ctx, c.events, state, fx, broadcasts, c.logger)
	return nil
}

// Close drops every subscription. It is safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		unsubs := c.unsubs
		c.unsubs = nil
		c.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
	})
}
