// internal/mirror/mirror.go
package mirror

import (
	"context"
	"log/slog"
	"sync"

	"github.com/soya0924/shoe0522/internal/metrics"
	"github.com/soya0924/shoe0522/internal/status"
)

// Writer is what the Mirror drives.
type Writer interface {
	WriteStatus(s status.ConnectionStatus) error
}

// Mirror copies the latest link status into status memory on its own
// goroutine. Notify never blocks; intermediate statuses may be coalesced.
type Mirror struct {
	w       Writer
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending *status.ConnectionStatus
	wake    chan struct{}
}

func New(w Writer, logger *slog.Logger, m *metrics.Metrics) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		w:       w,
		logger:  logger.With("component", "mirror"),
		metrics: m,
		wake:    make(chan struct{}, 1),
	}
}

// Notify records s as the latest status to mirror.
func (m *Mirror) Notify(s status.ConnectionStatus) {
	m.mu.Lock()
	m.pending = &s
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run writes pending statuses until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.wake:
		}

		m.mu.Lock()
		s := m.pending
		m.pending = nil
		m.mu.Unlock()

		if s == nil {
			continue
		}
		if err := m.w.WriteStatus(*s); err != nil {
			m.metrics.MirrorFailed()
			m.logger.Warn("status mirror write failed", "err", err, "state", s.State)
		}
	}
}
