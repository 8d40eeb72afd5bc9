// internal/link/discover.go
package link

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// ErrNoDeviceFound is returned when no candidate endpoint matches.
var ErrNoDeviceFound = errors.New("link: no matching device found")

// Discoverer picks the endpoint to open.
type Discoverer interface {
	Discover(ctx context.Context) (string, error)
}

// PatternDiscoverer enumerates static endpoints and glob matches, and
// selects the first whose identifier contains one of the Match substrings.
// An empty Match list accepts the first candidate.
type PatternDiscoverer struct {
	Static []string
	Globs  []string
	Match  []string

	// glob is filepath.Glob unless replaced in tests.
	glob func(pattern string) ([]string, error)
}

// Candidates lists every endpoint in discovery order, without duplicates.
func (d *PatternDiscoverer) Candidates() ([]string, error) {
	glob := d.glob
	if glob == nil {
		glob = filepath.Glob
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(ep string) {
		if ep == "" {
			return
		}
		if _, ok := seen[ep]; ok {
			return
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}

	for _, ep := range d.Static {
		add(ep)
	}
	for _, pattern := range d.Globs {
		matches, err := glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, ep := range matches {
			add(ep)
		}
	}
	return out, nil
}

func (d *PatternDiscoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	candidates, err := d.Candidates()
	if err != nil {
		return "", err
	}

	for _, ep := range candidates {
		if d.matches(ep) {
			return ep, nil
		}
	}
	return "", ErrNoDeviceFound
}

func (d *PatternDiscoverer) matches(ep string) bool {
	if len(d.Match) == 0 {
		return true
	}
	for _, m := range d.Match {
		if m != "" && strings.Contains(ep, m) {
			return true
		}
	}
	return false
}
