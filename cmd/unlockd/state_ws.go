package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// The render state websocket. Every message is a JSON text frame
// {type, ts, data}. A client first receives "state_init" with the current
// StateSnapshot, which is requested through the daemon loop like any other
// event; after that it receives reducer broadcasts and host requests. The
// connected renderer is the one that performs unlock, toast, wakelock and
// recreate requests.

// wsSurfaceChangedData is the JSON `data` payload for "surface_changed".
type wsSurfaceChangedData struct {
	View        View             `json:"view"`
	Interaction InteractionState `json:"interaction"`
	Ringer      RingerMode       `json:"ringer"`
}

// wsVariantChangedData is the JSON `data` payload for "variant_changed".
type wsVariantChangedData struct {
	Variant     VariantIdentity `json:"variant"`
	Orientation Orientation     `json:"orientation"`
	Generation  uint64          `json:"generation"`
}

// wsActionRoutedData is the JSON `data` payload for "action_routed".
type wsActionRoutedData struct {
	Variant VariantIdentity `json:"variant"`
	Trigger RawTrigger      `json:"trigger"`
	Action  string          `json:"action"`
	Slot    *int            `json:"slot,omitempty"`
}

type wsHostWakelockData struct {
	TimeoutMS int64 `json:"timeout_ms"`
}

type wsHostRecreateData struct {
	Orientation Orientation `json:"orientation"`
}

type wsHostToastData struct {
	Text string `json:"text"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // optional timestamp; zero means "omit" or use now
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string      `json:"type"`
	Ts   *time.Time  `json:"ts,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans serialized frames out to renderer clients. A client whose queue
// is full is disconnected rather than allowed to stall the others.
type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf   int
	onClients func(n int)
}

type HubConfig struct {
	// SendBuf is the per-client queue size. Zero means 32.
	SendBuf int
	// BroadcastBuf is the hub inbound queue size. Zero means 128.
	BroadcastBuf int
	// OnClients, if set, is called with the client count after every change.
	OnClients func(n int)
}

// NewHub returns a hub. Run must be started for it to do anything.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = 32
	}
	if cfg.BroadcastBuf <= 0 {
		cfg.BroadcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, cfg.BroadcastBuf),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    cfg.SendBuf,
		onClients:  cfg.OnClients,
	}
}

// Run serves broadcasts and departures until ctx is done, then drops every
// client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("render hub running")
	defer h.dropAll()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.unregister:
			h.drop(c, "gone")
		case msg := <-h.broadcast:
			for _, c := range h.fanout(msg) {
				h.drop(c, "slow")
			}
		}
	}
}

// Clients returns the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// add registers c. Registration is synchronous so the caller can queue
// frames for c right away.
func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("renderer connected", "remote_addr", c.remoteAddr, "clients", n)
	h.countChanged(n)
}

// fanout queues msg on every client and returns those that had no room.
func (h *Hub) fanout(msg []byte) (full []*Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			full = append(full, c)
		}
	}
	return full
}

// queue puts msg on c's send queue if c is still registered and has room.
func (h *Hub) queue(c *Client, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) drop(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.shut()
	h.logger.Info("renderer disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	h.countChanged(n)
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shut()
	}
	h.countChanged(0)
}

func (h *Hub) countChanged(n int) {
	if h.onClients != nil {
		h.onClients(n)
	}
}

// BroadcastBytes queues a serialized frame without blocking. It drops the
// frame when the hub is backed up.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("render hub queue full, frame dropped", "bytes", len(msg))
	}
}

// Client is one connected renderer.
type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger

	closeOnce sync.Once
}

// NewClient returns a client whose queue size follows the hub's.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	size := 32
	if hub != nil {
		size = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, size),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

// shut closes the connection and the send queue. Safe to call repeatedly.
func (c *Client) shut() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.send)
	})
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsSurfaceCoalesceWindow bounds how often surface_changed frames go out.
// Within a window only the latest surface is sent.
const wsSurfaceCoalesceWindow = 50 * time.Millisecond

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Debug("renderer closed", "pump", pump, "remote_addr", c.remoteAddr, "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Info("renderer connection error", "pump", pump, "remote_addr", c.remoteAddr, "error", err)
}

// writePump drains the send queue into the connection and keeps it alive
// with pings. It returns once the queue is closed or a write fails.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var (
			kind int
			msg  []byte
		)
		select {
		case <-ctx.Done():
			return
		case m, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind, msg = websocket.TextMessage, m
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, msg); err != nil {
			c.logExit("write", err)
			return
		}
	}
}

// readPump only exists to process control frames and notice the peer
// going away. Renderers never send data frames.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		if c.hub != nil {
			c.hub.unregister <- c
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("read", err)
			return
		}
	}
}

// Server upgrades renderer connections and attaches them to the hub.
type Server struct {
	logger *slog.Logger
	hub    *Hub

	// events carries the state_init snapshot request to the daemon loop.
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer returns a server with its own hub. The caller runs Hub().Run
// and RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register mounts the websocket handler on mux at path.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

// Renderers run on the device; origin checks belong to whoever exposes the port.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("renderer upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.add(client)

	// The pumps outlive this handler, so they must not use r.Context().
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	frame, ok := s.initialState(r.Context())
	if !ok {
		return
	}
	if !s.hub.queue(client, frame) {
		s.hub.unregister <- client
	}
}

// initialState asks the daemon loop for a snapshot and wraps it as
// state_init. It gives up after a second or when ctx ends.
func (s *Server) initialState(ctx context.Context) ([]byte, bool) {
	if s.events == nil {
		return nil, false
	}
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}

	reply := make(chan StateSnapshot, 1)
	select {
	case s.events <- RequestStateSnapshot{Reply: reply}:
	case <-ctx.Done():
		return nil, false
	}

	select {
	case snap := <-reply:
		now := time.Now().UTC()
		msg, err := json.Marshal(envelope{Type: "state_init", Ts: &now, Data: snap})
		if err != nil {
			s.logger.Error("encode state_init", "error", err)
			return nil, false
		}
		return msg, true
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.Canceled) {
			s.logger.Warn("state_init snapshot timed out", "error", ctx.Err())
		}
		return nil, false
	}
}

// RunBroadcaster publishes reducer broadcasts to the hub until ctx is done
// or src is closed. surface_changed frames are rate limited: at most one per
// wsSurfaceCoalesceWindow, carrying the latest surface. Any other frame
// first flushes a pending surface so ordering is kept.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}
	bc := &broadcaster{hub: hub, logger: logger}
	defer bc.disarm()

	for {
		select {
		case <-ctx.Done():
			bc.flush()
			return

		case <-bc.tick():
			bc.timer = nil
			if bc.flush() {
				// Keep the window running while surfaces keep coming.
				bc.arm()
			}

		case b, ok := <-src:
			if !ok {
				bc.flush()
				logger.Debug("broadcast source closed")
				return
			}
			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}
			if ev.Type == "surface_changed" {
				bc.pending = &ev
				bc.arm()
				continue
			}
			bc.flush()
			bc.disarm()
			bc.send(ev)
		}
	}
}

type broadcaster struct {
	hub    *Hub
	logger *slog.Logger

	pending *wsOutboundEvent
	timer   *time.Timer
}

// tick is nil while no window is open.
func (bc *broadcaster) tick() <-chan time.Time {
	if bc.timer == nil {
		return nil
	}
	return bc.timer.C
}

func (bc *broadcaster) arm() {
	if bc.timer == nil {
		bc.timer = time.NewTimer(wsSurfaceCoalesceWindow)
	}
}

func (bc *broadcaster) disarm() {
	if bc.timer != nil {
		bc.timer.Stop()
		bc.timer = nil
	}
}

// flush sends the pending surface, if any, and reports whether it did.
func (bc *broadcaster) flush() bool {
	if bc.pending == nil {
		return false
	}
	ev := *bc.pending
	bc.pending = nil
	bc.send(ev)
	return true
}

func (bc *broadcaster) send(ev wsOutboundEvent) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	msg, err := json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
	if err != nil {
		bc.logger.Warn("encode broadcast", "type", ev.Type, "error", err)
		return
	}
	bc.hub.BroadcastBytes(msg)
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastSurfaceChanged:
		return wsOutboundEvent{
			Type: "surface_changed",
			Data: wsSurfaceChangedData{View: ev.View, Interaction: ev.Interaction, Ringer: ev.Ringer},
			At:   ev.At,
		}, true

	case BroadcastVariantChanged:
		return wsOutboundEvent{
			Type: "variant_changed",
			Data: wsVariantChangedData{Variant: ev.Variant, Orientation: ev.Orientation, Generation: ev.Generation},
			At:   ev.At,
		}, true

	case BroadcastActionRouted:
		data := wsActionRoutedData{Variant: ev.Variant, Trigger: ev.Raw, Action: actionKind(ev.Action)}
		if lc, ok := ev.Action.(LaunchConfigured); ok {
			slot := lc.Slot
			data.Slot = &slot
		}
		return wsOutboundEvent{Type: "action_routed", Data: data, At: ev.At}, true

	case BroadcastHostUnlock:
		return wsOutboundEvent{Type: "host_unlock", At: ev.At}, true

	case BroadcastHostPokeWakelock:
		return wsOutboundEvent{
			Type: "host_poke_wakelock",
			Data: wsHostWakelockData{TimeoutMS: ev.Timeout.Milliseconds()},
			At:   ev.At,
		}, true

	case BroadcastHostRecreateSurface:
		return wsOutboundEvent{
			Type: "host_recreate_surface",
			Data: wsHostRecreateData{Orientation: ev.Orientation},
			At:   ev.At,
		}, true

	case BroadcastHostToast:
		return wsOutboundEvent{
			Type: "host_toast",
			Data: wsHostToastData{Text: ev.Text},
			At:   ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
