// internal/hub/hub.go
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/metrics"
	"github.com/soya0924/shoe0522/internal/status"
)

var (
	// ErrClientDropped wraps the reason a client was removed by the hub.
	ErrClientDropped = errors.New("hub: client dropped")

	// ErrClosed is returned by Subscribe after Close.
	ErrClosed = errors.New("hub: closed")
)

const (
	DefaultQueueSize = 64

	// the snapshot alone needs two slots
	minQueueSize = 2
)

// Drop reasons, also used as metric labels.
const (
	reasonQueueFull  = "queue_full"
	reasonSendFailed = "send_failed"
)

// Client is one live consumer. Send is only ever called from a single
// goroutine per client. Close must be idempotent and unblock a Send in
// progress.
type Client interface {
	ID() string
	Send(msg []byte) error
	Close() error
}

// Hub fans messages out to subscribed clients. Each client has its own
// bounded queue and writer goroutine, so a slow client never blocks the
// caller or its peers.
type Hub struct {
	mu     sync.Mutex
	subs   map[Client]*subscription
	closed bool
	wg     sync.WaitGroup

	queueSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type subscription struct {
	id     string
	client Client
	queue  chan []byte
	stop   chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// New creates a hub with queueSize messages of buffering per client.
func New(queueSize int, opts ...Option) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if queueSize < minQueueSize {
		queueSize = minQueueSize
	}

	h := &Hub{
		subs:      make(map[Client]*subscription),
		queueSize: queueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub")
	return h
}

// Subscribe registers c and queues the snapshot (status, then the full
// record list) ahead of any live message. Returns the subscription ID.
func (h *Hub) Subscribe(c Client, st status.ConnectionStatus, records []frame.Record) (string, error) {
	statusMsg, err := EncodeStatus(st)
	if err != nil {
		return "", fmt.Errorf("hub: encode status: %w", err)
	}
	initialMsg, err := EncodeInitialData(records)
	if err != nil {
		return "", fmt.Errorf("hub: encode initial data: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", ErrClosed
	}
	if _, ok := h.subs[c]; ok {
		return "", fmt.Errorf("hub: client %s already subscribed", c.ID())
	}

	sub := &subscription{
		id:     uuid.NewString(),
		client: c,
		queue:  make(chan []byte, h.queueSize),
		stop:   make(chan struct{}),
	}
	sub.queue <- statusMsg
	sub.queue <- initialMsg

	h.subs[c] = sub
	h.metrics.SetClients(len(h.subs))

	h.wg.Add(1)
	go h.write(sub)

	h.logger.Info("client subscribed",
		"client", c.ID(),
		"subscription", sub.id,
		"records", len(records),
		"clients", len(h.subs),
	)
	return sub.id, nil
}

// Unsubscribe removes c. Calling it for an unknown client is a no-op.
func (h *Hub) Unsubscribe(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[c]
	if !ok {
		return
	}
	h.removeLocked(sub)
	h.logger.Info("client unsubscribed", "client", c.ID(), "clients", len(h.subs))
}

// BroadcastStatus pushes a status envelope to every client.
func (h *Hub) BroadcastStatus(st status.ConnectionStatus) {
	msg, err := EncodeStatus(st)
	if err != nil {
		h.logger.Error("encode status failed", "err", err)
		return
	}
	h.broadcast(msg)
}

// BroadcastRecord pushes a step_data envelope to every client.
func (h *Hub) BroadcastRecord(rec frame.Record) {
	msg, err := EncodeRecord(rec)
	if err != nil {
		h.logger.Error("encode record failed", "err", err)
		return
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.queue <- msg:
		default:
			h.dropLocked(sub, reasonQueueFull, nil)
		}
	}
}

// Len returns the number of subscribed clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every client and waits for their writers to exit.
// Subsequent Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		for _, sub := range h.subs {
			h.removeLocked(sub)
		}
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// write delivers queued messages in order until the subscription stops.
func (h *Hub) write(sub *subscription) {
	defer h.wg.Done()

	for {
		select {
		case <-sub.stop:
			return
		case msg := <-sub.queue:
			if err := sub.client.Send(msg); err != nil {
				h.drop(sub, reasonSendFailed, err)
				return
			}
		}
	}
}

func (h *Hub) drop(sub *subscription, reason string, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sub.client] != sub {
		return
	}
	h.dropLocked(sub, reason, cause)
}

func (h *Hub) dropLocked(sub *subscription, reason string, cause error) {
	h.removeLocked(sub)
	h.metrics.ClientDropped(reason)

	err := fmt.Errorf("%w: %s", ErrClientDropped, reason)
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	h.logger.Warn("client dropped",
		"client", sub.client.ID(),
		"subscription", sub.id,
		"err", err,
	)
}

func (h *Hub) removeLocked(sub *subscription) {
	delete(h.subs, sub.client)
	close(sub.stop)
	_ = sub.client.Close()
	h.metrics.SetClients(len(h.subs))
}
