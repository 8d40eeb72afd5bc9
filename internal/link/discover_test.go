// internal/link/discover_test.go
package link

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedGlob(m map[string][]string) func(string) ([]string, error) {
	return func(pattern string) ([]string, error) {
		if pattern == "[" {
			return nil, errors.New("syntax error in pattern")
		}
		return m[pattern], nil
	}
}

func TestPatternDiscoverer_Candidates(t *testing.T) {
	d := &PatternDiscoverer{
		Static: []string{"COM4", ""},
		Globs:  []string{"/dev/tty.*", "/dev/cu.*"},
		glob: fixedGlob(map[string][]string{
			"/dev/tty.*": {"/dev/tty.Bluetooth-Incoming-Port", "/dev/tty.HC-05-DevB"},
			"/dev/cu.*":  {"/dev/cu.HC-05-DevB", "COM4"},
		}),
	}

	got, err := d.Candidates()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"COM4",
		"/dev/tty.Bluetooth-Incoming-Port",
		"/dev/tty.HC-05-DevB",
		"/dev/cu.HC-05-DevB",
	}, got)
}

func TestPatternDiscoverer_FirstMatchWins(t *testing.T) {
	d := &PatternDiscoverer{
		Globs: []string{"/dev/tty.*"},
		Match: []string{"HC-05"},
		glob: fixedGlob(map[string][]string{
			"/dev/tty.*": {"/dev/tty.usbserial", "/dev/tty.HC-05-DevB", "/dev/tty.HC-05-Other"},
		}),
	}

	ep, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/tty.HC-05-DevB", ep)
}

func TestPatternDiscoverer_NoMatch(t *testing.T) {
	d := &PatternDiscoverer{
		Static: []string{"/dev/ttyUSB0"},
		Match:  []string{"HC-05", "COM"},
		glob:   fixedGlob(nil),
	}

	_, err := d.Discover(context.Background())
	assert.ErrorIs(t, err, ErrNoDeviceFound)
}

func TestPatternDiscoverer_RfcommMatchIsCaseSensitive(t *testing.T) {
	globs := fixedGlob(map[string][]string{"/dev/rfcomm*": {"/dev/rfcomm0"}})

	d := &PatternDiscoverer{
		Globs: []string{"/dev/rfcomm*"},
		Match: []string{"HC-05", "tty.Bluetooth", "COM"},
		glob:  globs,
	}
	_, err := d.Discover(context.Background())
	assert.ErrorIs(t, err, ErrNoDeviceFound)

	d.Match = append(d.Match, "rfcomm")
	ep, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/rfcomm0", ep)
}

func TestPatternDiscoverer_EmptyMatchAcceptsAny(t *testing.T) {
	d := &PatternDiscoverer{Static: []string{"/dev/ttyUSB0"}, glob: fixedGlob(nil)}

	ep, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", ep)
}

func TestPatternDiscoverer_Errors(t *testing.T) {
	d := &PatternDiscoverer{Globs: []string{"["}, glob: fixedGlob(nil)}
	_, err := d.Discover(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&PatternDiscoverer{Static: []string{"COM3"}}).Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitFrames(t *testing.T) {
	in := "{\"steps\":1}\r\n\n" + strings.Repeat("x", 20) + "\n{\"steps\":2}"

	sc := bufio.NewScanner(strings.NewReader(in))
	sc.Buffer(make([]byte, 0, 8), 8)
	sc.Split(splitFrames(8))

	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	require.NoError(t, sc.Err())

	// The oversized run is cut into limit-sized chunks rather than failing the scan.
	assert.Equal(t, []string{"{\"steps\"", ":1}", "", "xxxxxxxx", "xxxxxxxx", "xxxx", "{\"steps\"", ":2}"}, got)
}
