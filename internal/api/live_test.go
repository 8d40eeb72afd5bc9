// internal/api/live_test.go
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/hub"
	"github.com/soya0924/shoe0522/internal/status"
)

type hubSubscriber struct {
	h    *hub.Hub
	st   status.ConnectionStatus
	recs []frame.Record
}

func (s hubSubscriber) Subscribe(c hub.Client) (string, error) { return s.h.Subscribe(c, s.st, s.recs) }
func (s hubSubscriber) Unsubscribe(c hub.Client)               { s.h.Unsubscribe(c) }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func envType(t *testing.T, env map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(env["type"], &typ))
	return typ
}

func TestLiveHandler_SnapshotThenLive(t *testing.T) {
	h := hub.New(8, hub.WithLogger(discard()))
	defer h.Close()

	ts := time.Date(2026, 5, 22, 10, 0, 0, 0, time.UTC)
	sub := hubSubscriber{
		h:    h,
		st:   status.ConnectionStatus{IsConnected: true, MaxReconnectAttempts: 5, State: status.StateConnected},
		recs: []frame.Record{{Steps: 1, Timestamp: ts, DeviceID: "COM5"}},
	}

	srv := httptest.NewServer(NewLiveHandler(sub, LiveConfig{}, discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	env := readEnvelope(t, conn)
	assert.Equal(t, hub.TypeStatus, envType(t, env))
	assert.JSONEq(t, `true`, string(env["isConnected"]))
	assert.JSONEq(t, `null`, string(env["lastError"]))

	env = readEnvelope(t, conn)
	assert.Equal(t, hub.TypeInitialData, envType(t, env))
	assert.JSONEq(t, `[{"steps":1,"timestamp":"2026-05-22T10:00:00.000Z","deviceId":"COM5"}]`, string(env["data"]))

	h.BroadcastRecord(frame.Record{Steps: 1200, Timestamp: ts, DeviceID: "COM5"})

	env = readEnvelope(t, conn)
	assert.Equal(t, hub.TypeStepData, envType(t, env))
	assert.JSONEq(t, `{"steps":1200,"timestamp":"2026-05-22T10:00:00.000Z","deviceId":"COM5"}`, string(env["data"]))
}

func TestLiveHandler_ClientCloseUnsubscribes(t *testing.T) {
	h := hub.New(8, hub.WithLogger(discard()))
	defer h.Close()

	srv := httptest.NewServer(NewLiveHandler(hubSubscriber{h: h}, LiveConfig{}, discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	readEnvelope(t, conn)
	readEnvelope(t, conn)
	require.Equal(t, 1, h.Len())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveHandler_HubClosedRejects(t *testing.T) {
	h := hub.New(8)
	h.Close()

	srv := httptest.NewServer(NewLiveHandler(hubSubscriber{h: h}, LiveConfig{}, discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestLiveHandler_OversizedInboundDisconnects(t *testing.T) {
	h := hub.New(8, hub.WithLogger(discard()))
	defer h.Close()

	srv := httptest.NewServer(NewLiveHandler(hubSubscriber{h: h}, LiveConfig{}, discard()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEnvelope(t, conn)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"ignored"}`)))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, h.Len())

	big := strings.Repeat("x", readLimit*4)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
