// internal/api/live.go
package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soya0924/shoe0522/internal/hub"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second

	// Inbound messages are discarded; anything larger closes the connection.
	readLimit = 512
)

// Subscriber attaches live clients to the broadcast.
type Subscriber interface {
	Subscribe(c hub.Client) (string, error)
	Unsubscribe(c hub.Client)
}

// LiveConfig tunes the websocket endpoint.
type LiveConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// LiveHandler upgrades requests to websocket connections and subscribes
// each one. Inbound client messages are read and discarded.
type LiveHandler struct {
	sub      Subscriber
	cfg      LiveConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewLiveHandler(sub Subscriber, cfg LiveConfig, logger *slog.Logger) *LiveHandler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		sub: sub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			// no client authentication; any dashboard origin may connect
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With("component", "live"),
	}
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newWSClient(conn, h.cfg.WriteTimeout)
	if _, err := h.sub.Subscribe(c); err != nil {
		h.logger.Warn("subscribe failed", "client", c.ID(), "err", err)
		_ = c.Close()
		return
	}
	h.logger.Info("websocket connected", "client", c.ID(), "remote", r.RemoteAddr)

	go c.pingLoop(h.cfg.PingInterval)

	c.readLoop()
	h.sub.Unsubscribe(c)
	_ = c.Close()
	h.logger.Info("websocket closed", "client", c.ID())
}

// wsClient adapts a websocket connection to hub.Client.
type wsClient struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(conn *websocket.Conn, writeTimeout time.Duration) *wsClient {
	return &wsClient{
		id:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *wsClient) ID() string { return c.id }

// Send is only called from the hub's writer goroutine for this client.
func (c *wsClient) Send(msg []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *wsClient) readLoop() {
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pingLoop uses WriteControl, which is safe alongside Send.
func (c *wsClient) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
