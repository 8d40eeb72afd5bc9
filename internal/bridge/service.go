// internal/bridge/service.go
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/hub"
	"github.com/soya0924/shoe0522/internal/link"
	"github.com/soya0924/shoe0522/internal/metrics"
	"github.com/soya0924/shoe0522/internal/status"
)

// Link is the event source owning the physical connection.
type Link interface {
	Run(ctx context.Context) error
	Events() <-chan link.Event
}

// Store is the durable record log.
type Store interface {
	Append(rec frame.Record) error
	All() ([]frame.Record, error)
	Today() ([]frame.Record, error)
}

// StatusSink receives every dispatched status. Notify must not block.
type StatusSink interface {
	Notify(s status.ConnectionStatus)
	Run(ctx context.Context) error
}

// Deps are the components a Service wires together.
type Deps struct {
	Registry *status.Registry
	Link     Link
	Store    Store
	Hub      *hub.Hub
	Mirror   StatusSink // optional

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Service dispatches link events to the store and the hub, and answers
// snapshot queries.
type Service struct {
	registry *status.Registry
	link     Link
	store    Store
	hub      *hub.Hub
	mirror   StatusSink
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// seq orders (append, broadcast) pairs against Subscribe.
	seq        sync.Mutex
	lastStatus status.ConnectionStatus
}

func New(d Deps) (*Service, error) {
	switch {
	case d.Registry == nil:
		return nil, errors.New("bridge: registry required")
	case d.Link == nil:
		return nil, errors.New("bridge: link required")
	case d.Store == nil:
		return nil, errors.New("bridge: store required")
	case d.Hub == nil:
		return nil, errors.New("bridge: hub required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Service{
		registry:   d.Registry,
		link:       d.Link,
		store:      d.Store,
		hub:        d.Hub,
		mirror:     d.Mirror,
		logger:     d.Logger.With("component", "bridge"),
		metrics:    d.Metrics,
		lastStatus: d.Registry.Current(),
	}, nil
}

// Run starts the link and the dispatcher and blocks until ctx is cancelled.
// On return every live client has been disconnected.
func (s *Service) Run(ctx context.Context) error {
	defer s.hub.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.link.Run(gctx) })
	g.Go(func() error { return s.dispatch(gctx) })
	if s.mirror != nil {
		s.mirror.Notify(s.lastStatusSnapshot())
		g.Go(func() error { return s.mirror.Run(gctx) })
	}

	err := g.Wait()
	s.logger.Info("bridge stopped")
	return err
}

func (s *Service) dispatch(ctx context.Context) error {
	events := s.link.Events()
	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.handle(ev)
		}
	}
}

func (s *Service) handle(ev link.Event) {
	switch ev.Kind {
	case link.StatusEvent:
		s.publishStatus(ev.Status)
	case link.RecordEvent:
		s.publishRecord(ev.Record)
	default:
		s.logger.Warn("unknown link event", "kind", ev.Kind)
	}
}

func (s *Service) publishStatus(st status.ConnectionStatus) {
	s.seq.Lock()
	s.lastStatus = st
	s.hub.BroadcastStatus(st)
	s.seq.Unlock()

	if s.mirror != nil {
		s.mirror.Notify(st)
	}
}

// publishRecord persists then broadcasts the same record value.
// A persistence failure does not stop the broadcast.
func (s *Service) publishRecord(rec frame.Record) {
	s.seq.Lock()
	defer s.seq.Unlock()

	if err := s.store.Append(rec); err != nil {
		s.metrics.PersistFailed()
		s.logger.Error("record not persisted",
			"err", err,
			"steps", rec.Steps,
			"device", rec.DeviceID,
		)
	}
	s.hub.BroadcastRecord(rec)
}

// Subscribe attaches a live client. The client first receives the status
// and record list as of the last dispatched event, then every later event.
func (s *Service) Subscribe(c hub.Client) (string, error) {
	s.seq.Lock()
	defer s.seq.Unlock()

	recs, err := s.store.All()
	if err != nil {
		s.logger.Error("history unavailable for new client", "client", c.ID(), "err", err)
		recs = nil
	}
	id, err := s.hub.Subscribe(c, s.lastStatus, recs)
	if err != nil {
		return "", err
	}
	s.logger.Info("client subscribed", "client", id, "records", len(recs), "clients", s.hub.Len())
	return id, nil
}

// Unsubscribe detaches a client; unknown clients are ignored.
func (s *Service) Unsubscribe(c hub.Client) {
	s.hub.Unsubscribe(c)
}

// Status returns the current link status.
func (s *Service) Status() status.ConnectionStatus {
	return s.registry.Current()
}

// AllRecords returns every retained record in storage order.
func (s *Service) AllRecords() ([]frame.Record, error) {
	return s.store.All()
}

// TodayRecords returns the records stamped on the current calendar day.
func (s *Service) TodayRecords() ([]frame.Record, error) {
	return s.store.Today()
}

func (s *Service) lastStatusSnapshot() status.ConnectionStatus {
	s.seq.Lock()
	defer s.seq.Unlock()
	return s.lastStatus
}
