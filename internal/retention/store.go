// internal/retention/store.go
package retention

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/soya0924/shoe0522/internal/clock"
	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/metrics"
)

// DefaultWindow is the rolling retention span.
const DefaultWindow = 30 * 24 * time.Hour

// ErrPersist marks a failed read-modify-write of the durable log.
// The prior durable state is untouched when it is returned.
var ErrPersist = errors.New("retention: persist failed")

// Config is the store's runtime config.
type Config struct {
	Path     string
	Window   time.Duration
	Location *time.Location // calendar used by Today; defaults to time.Local
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Store is a whole-file JSON log of records trimmed to a rolling window.
// Every Append rewrites the full file; reads load it from disk.
type Store struct {
	mu      sync.Mutex
	path    string
	window  time.Duration
	loc     *time.Location
	clock   clock.Clock
	metrics *metrics.Metrics
}

// Open prepares the log directory and creates an empty log if none exists.
// An existing log that cannot be decoded is logged and left in place: the
// store still opens, reads fail and appends return ErrPersist until the
// file is repaired.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("retention: path required")
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("retention: create dir: %w", err)
	}

	s := &Store{
		path:    cfg.Path,
		window:  cfg.Window,
		loc:     cfg.Location,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
	}

	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		if err := s.rewrite(nil); err != nil {
			return nil, fmt.Errorf("retention: init log: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("retention: stat log: %w", err)
	}

	recs, err := s.load()
	if err != nil {
		cfg.Logger.Error("retention log unreadable; history unavailable and writes refused",
			"component", "retention",
			"path", cfg.Path,
			"err", err,
		)
		return s, nil
	}
	s.metrics.SetRetained(len(recs))

	return s, nil
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// Append adds rec and trims everything older than the window.
// The whole read-modify-write runs under one lock.
func (s *Store) Append(rec frame.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		// A log we cannot read must not be replaced by a truncated one.
		return fmt.Errorf("%w: load: %w", ErrPersist, err)
	}

	recs = append(recs, rec)
	recs = trim(recs, s.clock.Now().Add(-s.window))

	if err := s.rewrite(recs); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.metrics.SetRetained(len(recs))
	return nil
}

// All returns every retained record in storage order.
func (s *Store) All() ([]frame.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("retention: load: %w", err)
	}
	if recs == nil {
		recs = []frame.Record{}
	}
	return recs, nil
}

// Today returns the records stamped on the current calendar day.
func (s *Store) Today() ([]frame.Record, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	y, m, d := s.clock.Now().In(s.loc).Date()

	out := make([]frame.Record, 0, len(all))
	for _, r := range all {
		ry, rm, rd := r.Timestamp.In(s.loc).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out, nil
}

// trim keeps records whose age is at most the window (cutoff inclusive).
func trim(recs []frame.Record, cutoff time.Time) []frame.Record {
	out := recs[:0]
	for _, r := range recs {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) load() ([]frame.Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var recs []frame.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return recs, nil
}

// rewrite replaces the log atomically: temp file, fsync, rename.
func (s *Store) rewrite(recs []frame.Record) error {
	if recs == nil {
		recs = []frame.Record{}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".retention-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fail(fmt.Errorf("encode: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
