// internal/link/manager.go
package link

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soya0924/shoe0522/internal/clock"
	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/metrics"
	"github.com/soya0924/shoe0522/internal/status"
)

// ErrBudgetExhausted marks the terminal GivenUp state.
// Only a process restart resumes reconnecting.
var ErrBudgetExhausted = errors.New("link: reconnect budget exhausted")

const (
	DefaultMaxAttempts  = 5
	DefaultMaxLineBytes = 4096
	eventBuffer         = 64
)

// Config is the minimal runtime config the manager needs.
type Config struct {
	MaxAttempts  int
	Backoff      Backoff
	MaxLineBytes int
}

// Manager owns the physical link: one goroutine, one link, one pending
// reconnect at most. All status mutation goes through the Registry.
type Manager struct {
	cfg      Config
	discover Discoverer
	open     Opener
	registry *status.Registry
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	events   chan Event
}

// Option configures a Manager.
type Option func(*Manager)

func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// New creates a manager. The registry's budget must match cfg.MaxAttempts.
func New(cfg Config, d Discoverer, open Opener, reg *status.Registry, opts ...Option) (*Manager, error) {
	if d == nil {
		return nil, errors.New("link: discoverer required")
	}
	if open == nil {
		return nil, errors.New("link: opener required")
	}
	if reg == nil {
		return nil, errors.New("link: status registry required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff.Base <= 0 || cfg.Backoff.Max <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}

	m := &Manager{
		cfg:      cfg,
		discover: d,
		open:     open,
		registry: reg,
		clock:    clock.Real(),
		logger:   slog.Default(),
		events:   make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "link")

	return m, nil
}

// Events delivers status and record events in generation order.
// The channel is closed when Run returns.
func (m *Manager) Events() <-chan Event { return m.events }

// Run drives the state machine until ctx is cancelled.
// Reaching GivenUp does not return: the process keeps serving clients.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if m.registry.Current().ReconnectAttempts >= m.cfg.MaxAttempts {
			m.giveUp(ctx)
			<-ctx.Done()
			return nil
		}

		err := m.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		delay, exhausted := m.fail(ctx, err)
		if exhausted {
			continue
		}

		if !m.wait(ctx, delay) {
			return nil
		}
	}
}

// session runs Opening -> Connected -> read loop, and returns why it ended.
func (m *Manager) session(ctx context.Context) error {
	m.transition(ctx, func(s *status.ConnectionStatus) {
		s.IsConnected = false
		s.State = status.StateOpening
	})

	endpoint, err := m.discover.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	m.logger.Info("opening link", "endpoint", endpoint)

	port, err := m.open(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("open %s: %w", endpoint, err)
	}
	defer port.Close()

	m.transition(ctx, func(s *status.ConnectionStatus) {
		s.IsConnected = true
		s.LastError = ""
	})
	m.logger.Info("link connected", "endpoint", endpoint)

	return m.read(ctx, port, frame.NewCodec(endpoint, m.clock))
}

// read forwards lines to the codec until the link fails or ctx ends.
func (m *Manager) read(ctx context.Context, port io.ReadCloser, codec *frame.Codec) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(port)
		sc.Buffer(make([]byte, 0, min(4096, m.cfg.MaxLineBytes)), m.cfg.MaxLineBytes)
		sc.Split(splitFrames(m.cfg.MaxLineBytes))

		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}

		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		errc <- err
	}()

	for {
		select {
		case <-ctx.Done():
			_ = port.Close()
			return ctx.Err()
		case line := <-lines:
			m.handleLine(ctx, codec, line)
		case err := <-errc:
			return err
		}
	}
}

func (m *Manager) handleLine(ctx context.Context, codec *frame.Codec, line string) {
	if len(bytes.TrimSpace([]byte(line))) == 0 {
		return
	}

	rec, err := codec.Decode(line)
	if err != nil {
		m.metrics.FrameRejected()
		m.logger.Warn("frame discarded", "endpoint", codec.Endpoint(), "err", err)
		return
	}

	m.metrics.FrameAccepted()
	m.emit(ctx, Event{Kind: RecordEvent, Record: rec})
}

// fail records a session failure and reports the delay before the next
// attempt. The delay is computed from the attempt count before increment.
func (m *Manager) fail(ctx context.Context, cause error) (time.Duration, bool) {
	prev := m.registry.Current().ReconnectAttempts
	delay := m.cfg.Backoff.Delay(prev)

	st := m.transition(ctx, func(s *status.ConnectionStatus) {
		s.IsConnected = false
		s.LastError = errorText(cause)
		s.ReconnectAttempts++
		s.State = status.StateDisconnected
	})

	exhausted := st.ReconnectAttempts >= m.cfg.MaxAttempts
	if exhausted {
		m.logger.Warn("link down",
			"err", cause,
			"attempts", st.ReconnectAttempts,
			"max_attempts", st.MaxReconnectAttempts,
		)
		return 0, true
	}

	m.logger.Warn("link down, reconnect scheduled",
		"err", cause,
		"attempts", st.ReconnectAttempts,
		"max_attempts", st.MaxReconnectAttempts,
		"delay", delay,
	)
	return delay, false
}

func (m *Manager) giveUp(ctx context.Context) {
	st := m.transition(ctx, func(s *status.ConnectionStatus) {
		s.IsConnected = false
		s.State = status.StateGivenUp
	})
	m.logger.Error("link given up; operator action required (restart the process)",
		"err", ErrBudgetExhausted,
		"attempts", st.ReconnectAttempts,
		"last_error", st.LastError,
		"operator_action", "required",
	)
}

// wait blocks for delay on a cancellable timer. Returns false if ctx ended first.
func (m *Manager) wait(ctx context.Context, delay time.Duration) bool {
	fire := make(chan struct{})
	timer := m.clock.AfterFunc(delay, func() { close(fire) })

	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-fire:
		return true
	}
}

func (m *Manager) transition(ctx context.Context, fn func(s *status.ConnectionStatus)) status.ConnectionStatus {
	st := m.registry.Update(fn)
	m.metrics.Transition(st)
	m.emit(ctx, Event{Kind: StatusEvent, Status: st})
	return st
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, io.EOF):
		return "link closed"
	}
	return err.Error()
}

// splitFrames splits on '\n', trimming a trailing '\r'. A run of limit bytes
// without a newline is emitted as-is so the codec can reject it.
func splitFrames(limit int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, bytes.TrimRight(data[:i], "\r"), nil
		}
		if len(data) >= limit {
			return len(data), data, nil
		}
		if atEOF && len(data) > 0 {
			return len(data), bytes.TrimRight(data, "\r"), nil
		}
		return 0, nil, nil
	}
}
