package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
	sendBufferSize = 256
)

// Message types on the wire.
const (
	TypeEvent       = "event"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

// WSMessage is the websocket envelope in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Channels  []string        `json:"channels,omitempty"`
}

type outgoing struct {
	Type      string   `json:"type"`
	Channel   string   `json:"channel,omitempty"`
	Data      any      `json:"data,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Channels  []string `json:"channels,omitempty"`
}

// subscriber is one websocket connection.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subMu         sync.RWMutex
	subscriptions map[string]bool
}

func (s *subscriber) subscribe(channels ...string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range channels {
		s.subscriptions[ch] = true
	}
}

func (s *subscriber) unsubscribe(channels ...string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range channels {
		delete(s.subscriptions, ch)
	}
}

func (s *subscriber) subscribed(channel string) bool {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return s.subscriptions[channel]
}

func (s *subscriber) channels() []string {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	out := make([]string, 0, len(s.subscriptions))
	for ch := range s.subscriptions {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// readPump reads client messages until the connection fails.
func (s *subscriber) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *subscriber) handleMessage(message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.reply(outgoing{Type: TypeError, Data: ErrorBody{Code: "invalid_json", Message: "Failed to parse message"}})
		return
	}

	switch msg.Type {
	case TypeSubscribe, TypeUnsubscribe:
		valid := s.hub.validChannels(msg.Channels)
		if len(valid) == 0 {
			s.reply(outgoing{Type: TypeError, Data: ErrorBody{Code: "invalid_channels", Message: "No known channels specified"}})
			return
		}
		if msg.Type == TypeSubscribe {
			s.subscribe(valid...)
		} else {
			s.unsubscribe(valid...)
		}
		s.reply(outgoing{Type: msg.Type, Channels: s.channels()})
	case TypePing:
		s.reply(outgoing{Type: TypePong})
	default:
		s.reply(outgoing{Type: TypeError, Data: ErrorBody{Code: "unknown_type", Message: "Unknown message type " + msg.Type}})
	}
}

// reply queues msg for this subscriber only, dropping it when the buffer is full.
func (s *subscriber) reply(msg outgoing) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	if !s.hub.clients[s] {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// writePump writes queued messages and pings until send is closed.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans engine events out to websocket subscribers. New connections are
// subscribed to every channel.
type Hub struct {
	logger   *zap.Logger
	known    map[string]bool
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*subscriber]bool

	register   chan *subscriber
	unregister chan *subscriber
	done       chan struct{}
	stopOnce   sync.Once

	published atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a hub serving the given channels.
func NewHub(channels []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]bool, len(channels))
	for _, ch := range channels {
		known[ch] = true
	}
	return &Hub{
		logger:  logger,
		known:   known,
		clients: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		done:       make(chan struct{}),
	}
}

// SetCheckOrigin sets the origin check used at upgrade.
func (h *Hub) SetCheckOrigin(fn func(*http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

func (h *Hub) validChannels(channels []string) []string {
	var out []string
	for _, ch := range channels {
		if h.known[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Channels lists the channels the hub serves.
func (h *Hub) Channels() []string {
	out := make([]string, 0, len(h.known))
	for ch := range h.known {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Run manages registrations until ctx is done or Stop is called, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return
		case s := <-h.register:
			h.mu.Lock()
			h.clients[s] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("clients", n))
		case s := <-h.unregister:
			h.mu.Lock()
			if h.clients[s] {
				delete(h.clients, s)
				close(s.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.Int("clients", n))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		close(s.send)
		delete(h.clients, s)
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends data to every client subscribed to channel. It never blocks;
// clients with a full buffer miss the event.
func (h *Hub) Publish(channel string, data any) {
	msg, err := json.Marshal(outgoing{
		Type:      TypeEvent,
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Warn("encoding websocket event failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		if !s.subscribed(channel) {
			continue
		}
		select {
		case s.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Stats reports published events and per-client drops.
func (h *Hub) Stats() (published, dropped int64) {
	return h.published.Load(), h.dropped.Load()
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool, len(h.known)),
	}
	for ch := range h.known {
		s.subscriptions[ch] = true
	}

	select {
	case h.register <- s:
	case <-h.done:
		conn.Close()
		return
	}
	go s.writePump()
	go s.readPump()
}
