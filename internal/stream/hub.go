// Package stream pushes committed tracker events to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/observability"
)

// Config configures hub connections.
type Config struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client queue; a client that falls this far
	// behind is disconnected.
	SendBuffer int
}

// DefaultConfig returns default hub configuration.
func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

// ErrHubClosed is returned by ServeHTTP after Close.
var ErrHubClosed = errors.New("stream hub closed")

// Hub fans events out to every connected client.
type Hub struct {
	cfg      Config
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a Hub. A nil cfg uses DefaultConfig.
func NewHub(cfg *Config, log *zap.Logger) *Hub {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		cfg: c,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify broadcasts e. Clients whose queue is full are disconnected.
func (h *Hub) Notify(_ context.Context, e domain.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error("marshal stream event", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("stream client too slow, disconnecting", zap.String("remote", c.remote))
			c.stop()
		}
	}
	observability.RecordStreamBroadcast()
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan []byte, h.cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	if err := h.register(c); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	h.wg.Add(1)
	go h.readLoop(c)
	h.writeLoop(c)

	h.unregister(c)
	h.wg.Done()
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	observability.SetStreamClients(len(h.clients))
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	observability.SetStreamClients(len(h.clients))
	h.mu.Unlock()
	c.conn.Close()
}

// readLoop discards client frames and keeps the read deadline alive on pong.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer c.stop()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Close disconnects every client and waits for their loops to finish.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		c.stop()
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}
