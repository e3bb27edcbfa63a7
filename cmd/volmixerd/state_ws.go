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

	"volmixer/mixer"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// This file implements:
//   - A Hub that tracks connected WebSocket clients
//   - Per-client write pumps so one slow client doesn't block others
//   - A broadcaster loop that reads daemon-emitted channel changes and fans out
//
// Notes:
//   - The registry stays owned by the daemon loop; state_init is fetched with
//     a ListChannels request like any other client.
//   - Slow clients are disconnected when their send buffer fills.
//   - Messages are JSON text frames with an envelope: {type, ts, data}.
//   - The initial message on connect is "state_init" with every channel.
//
// ============================================================================

// wsStateInitData is the JSON `data` payload for the WS "state_init" event.
type wsStateInitData struct {
	Channels []mixer.Snapshot `json:"channels"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // optional timestamp; zero means "omit" or use now
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	// Configuration
	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	// If zero, a conservative default is used.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size.
	// If zero, a conservative default is used.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Avoid mutating the clients map while ranging over it.
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

// close drops the connection and closes send, which makes writePump exit.
// Safe to call more than once.
func (c *Client) close() {
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

// wsChangeCoalesceWindow is the maximum time window during which bursty
// channel updates are coalesced (latest-wins per channel) before broadcasting.
const wsChangeCoalesceWindow = 50 * time.Millisecond

// logExit reports why a pump stopped. Close frames are logged with their
// code; ErrCloseSent means we hung up first and is not logged.
func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// writePump writes queued frames and pings. It exits on write error or when
// send is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err = c.conn.WriteMessage(websocket.TextMessage, msg)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			c.logExit("writePump", err)
			return
		}
	}
}

// readPump reads and discards incoming messages to detect disconnects and
// handle control frames. It exits on read error, then unregisters the client.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ============================================================================
// HTTP Handler + server wiring helpers
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub *Hub

	// Required for the state_init request on connect.
	events chan<- Event
}

type ServerConfig struct {
	Hub HubConfig
}

// NewServer constructs the WS state server components. Call Register on a mux,
// start Hub().Run(ctx), and start RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	hub := NewHub(logger, cfg.Hub)
	return &Server{
		logger: logger,
		hub:    hub,
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// The API is meant for LAN control panels served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades the connection, queues state_init and only then
// registers the client, so the hub is the sole closer of its send channel.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)

	if s.events != nil {
		reply, err := submit(r.Context(), s.events, ListChannels{})
		if err != nil {
			s.logger.Warn("ws state_init request failed", "remote_addr", r.RemoteAddr, "error", err)
			_ = conn.Close()
			return
		}

		now := time.Now().UTC()
		initMsg, err := json.Marshal(envelope{
			Type: "state_init",
			Ts:   &now,
			Data: wsStateInitData{Channels: reply.Channels},
		})
		if err != nil {
			s.logger.Warn("ws state_init marshal failed", "error", err)
			_ = conn.Close()
			return
		}
		client.send <- initMsg // fresh buffer, cannot block
	}

	s.hub.register <- client

	// The pumps outlive this handler; net/http cancels r.Context() when it
	// returns. The hub and socket errors end them.
	go client.writePump()
	go client.readPump()
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads daemon-emitted StateBroadcast events, marshals them,
// and broadcasts them to all hub clients. Intended to run as a single
// goroutine.
//
// Changes are rate-limited per channel: the latest pending change of every
// channel is flushed at most once every wsChangeCoalesceWindow, even if
// updates keep arriving (no debounce-on-silence).
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	pending := make(map[channelKey]wsOutboundEvent)
	var order []channelKey
	var timer *time.Timer
	var timerCh <-chan time.Time

	emit := func(ev wsOutboundEvent) {
		ts := ev.At
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		msg, err := json.Marshal(envelope{
			Type: ev.Type,
			Ts:   &ts,
			Data: ev.Data,
		})
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPending := func() {
		for _, k := range order {
			emit(pending[k])
			delete(pending, k)
		}
		order = order[:0]
	}

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerCh = nil
	}

	for {
		select {
		case <-ctx.Done():
			// Best-effort: flush pending changes before exit.
			flushPending()
			stopTimer()
			return

		case <-timerCh:
			if len(order) == 0 {
				// Quiet for a whole window; stop ticking.
				stopTimer()
				continue
			}
			flushPending()
			timer.Reset(wsChangeCoalesceWindow)

		case b, ok := <-src:
			if !ok {
				flushPending()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, key, ok := convertBroadcast(b)
			if !ok {
				// Unknown broadcasts are dropped.
				continue
			}

			// Latest-wins per channel; do NOT reset the timer on each update.
			if _, seen := pending[key]; !seen {
				order = append(order, key)
			}
			pending[key] = ev
			if timer == nil {
				timer = time.NewTimer(wsChangeCoalesceWindow)
				timerCh = timer.C
			}
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, channelKey, bool) {
	switch ev := b.(type) {
	case BroadcastChannelChanged:
		return wsOutboundEvent{
			Type: "channel_changed",
			Data: ev.Channel,
			At:   ev.At,
		}, keyOf(ev.Channel), true

	default:
		return wsOutboundEvent{}, channelKey{}, false
	}
}
