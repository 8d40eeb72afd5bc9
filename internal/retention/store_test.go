// internal/retention/store_test.go
package retention

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soya0924/shoe0522/internal/clock"
	"github.com/soya0924/shoe0522/internal/frame"
)

var t0 = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "data", "steps_data.json"),
		Location: time.UTC,
		Clock:    clk,
	})
	require.NoError(t, err)
	return s
}

func rec(steps int64, ts time.Time) frame.Record {
	return frame.Record{Steps: steps, Timestamp: ts, DeviceID: "/dev/rfcomm0"}
}

func TestOpen_CreatesEmptyLog(t *testing.T) {
	s := openTestStore(t, clock.Fake(t0))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	all, err := s.All()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestAppend_KeepsInsertionOrder(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.Append(rec(i*100, clk.Now())))
		clk.Advance(time.Minute)
	}

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, r := range all {
		assert.Equal(t, int64(i+1)*100, r.Steps)
	}
}

func TestAppend_TrimsToWindow(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	edge := t0.Add(-DefaultWindow)
	tooOld := edge.Add(-time.Second)

	require.NoError(t, s.Append(rec(1, tooOld)))
	require.NoError(t, s.Append(rec(2, edge)))
	require.NoError(t, s.Append(rec(3, t0)))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].Steps)
	assert.Equal(t, int64(3), all[1].Steps)

	for _, r := range all {
		assert.LessOrEqual(t, clk.Now().Sub(r.Timestamp), DefaultWindow)
	}
}

func TestAppend_TrimsOnLaterWrite(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	require.NoError(t, s.Append(rec(1, clk.Now())))

	clk.Advance(DefaultWindow + time.Second)
	require.NoError(t, s.Append(rec(2, clk.Now())))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].Steps)
}

func TestToday_UsesCalendarDay(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	require.NoError(t, s.Append(rec(1, time.Date(2026, 5, 9, 23, 59, 59, 0, time.UTC))))
	require.NoError(t, s.Append(rec(2, time.Date(2026, 5, 10, 0, 0, 1, 0, time.UTC))))
	require.NoError(t, s.Append(rec(3, t0)))

	today, err := s.Today()
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, int64(2), today[0].Steps)
	assert.Equal(t, int64(3), today[1].Steps)
}

func TestToday_HonorsLocation(t *testing.T) {
	clk := clock.Fake(t0) // 12:00 UTC = 21:00 in UTC+9
	tokyo := time.FixedZone("UTC+9", 9*60*60)

	s, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "steps.json"),
		Location: tokyo,
		Clock:    clk,
	})
	require.NoError(t, err)

	// 16:00 UTC on May 9 is 01:00 May 10 in UTC+9.
	require.NoError(t, s.Append(rec(1, time.Date(2026, 5, 9, 16, 0, 0, 0, time.UTC))))
	require.NoError(t, s.Append(rec(2, time.Date(2026, 5, 9, 14, 0, 0, 0, time.UTC))))

	today, err := s.Today()
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, int64(1), today[0].Steps)
}

func TestAppend_CorruptLogLeftUntouched(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	garbage := []byte(`[{"steps": 1,`)
	require.NoError(t, os.WriteFile(s.Path(), garbage, 0o644))

	err := s.Append(rec(2, t0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, garbage, raw)
}

func TestOpen_CorruptLogStillOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps_data.json")
	garbage := []byte(`[{"steps":1,`)
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	s, err := Open(Config{
		Path:   path,
		Clock:  clock.Fake(t0),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = s.All()
	assert.Error(t, err)
	_, err = s.Today()
	assert.Error(t, err)

	err = s.Append(rec(5, t0))
	assert.True(t, errors.Is(err, ErrPersist))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, garbage, raw)
}

func TestAppend_RoundTripsPassthroughFields(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	in := rec(1200, t0)
	in.Extra = map[string]json.RawMessage{"valid": json.RawMessage(`true`), "hr": json.RawMessage(`72`)}
	require.NoError(t, s.Append(in))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, in.Steps, got.Steps)
	assert.Equal(t, in.DeviceID, got.DeviceID)
	assert.True(t, in.Timestamp.Equal(got.Timestamp))
	assert.JSONEq(t, `true`, string(got.Extra["valid"]))
	assert.JSONEq(t, `72`, string(got.Extra["hr"]))
}

func TestAppend_NoTempFilesLeft(t *testing.T) {
	clk := clock.Fake(t0)
	s := openTestStore(t, clk)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(rec(int64(i), t0)))
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "steps_data.json", entries[0].Name())
}
