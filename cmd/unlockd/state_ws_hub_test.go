package main

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hub tests use clients without a connection; nothing here writes to one.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

// runHub starts h and stops it when the test ends.
func runHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop")
		}
	})
}

func attachRenderer(h *Hub, name string, buf int) *Client {
	c := &Client{
		hub:        h,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
	h.add(c)
	return c
}

func recvFrame(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "%s: queue closed", c.remoteAddr)
		return string(msg)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("%s: no frame", c.remoteAddr)
		return ""
	}
}

func closed(c *Client) bool {
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestHub_FansOutToEveryRenderer(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	runHub(t, hub)

	a := attachRenderer(hub, "a", 4)
	b := attachRenderer(hub, "b", 4)
	require.Equal(t, 2, hub.Clients())

	frame := `{"type":"surface_changed","data":{"variant":"slider"}}`
	hub.broadcast <- []byte(frame)

	assert.Equal(t, frame, recvFrame(t, a))
	assert.Equal(t, frame, recvFrame(t, b))
}

func TestHub_DropsRendererWithFullQueue(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	runHub(t, hub)

	stuck := attachRenderer(hub, "stuck", 1)
	live := attachRenderer(hub, "live", 8)
	stuck.send <- []byte(`"backlog"`)

	frame := `{"type":"host_toast","data":{"text":"Sound is off"}}`
	hub.broadcast <- []byte(frame)

	assert.Equal(t, frame, recvFrame(t, live))
	waitUntil(t, 750*time.Millisecond, func() bool { return closed(stuck) }, "stuck renderer not dropped")
	assert.Equal(t, 1, hub.Clients())
}

func TestHub_QueueSkipsDroppedRenderer(t *testing.T) {
	hub := newTestHub(t, 2, 8)
	c := attachRenderer(hub, "gone", 2)

	require.True(t, hub.queue(c, []byte(`"state_init"`)))
	hub.drop(c, "gone")

	// Sending on the closed queue would panic.
	assert.False(t, hub.queue(c, []byte(`"late"`)))
}

func TestHub_ReportsClientCount(t *testing.T) {
	var (
		mu     sync.Mutex
		counts []int
	)
	hub := NewHub(slog.Default(), HubConfig{OnClients: func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	a := attachRenderer(hub, "a", 1)
	attachRenderer(hub, "b", 1)
	hub.unregister <- a
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Clients() == 1 }, "unregister not processed")

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 1, 0}, counts)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
