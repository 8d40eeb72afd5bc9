// internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/soya0924/shoe0522/internal/status"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FrameAccepted()
	m.FrameAccepted()
	m.FrameRejected()
	m.PersistFailed()
	m.SetRetained(12)
	m.SetClients(3)
	m.ClientDropped("queue_full")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.retainedRecords))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.clientsConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clientsDropped.WithLabelValues("queue_full")))
}

func TestMetrics_Transition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Transition(status.ConnectionStatus{State: status.StateDisconnected, ReconnectAttempts: 2})
	m.Transition(status.ConnectionStatus{State: status.StateGivenUp, ReconnectAttempts: 5})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.reconnectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linkState.WithLabelValues("given_up")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.linkState.WithLabelValues("disconnected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("disconnected")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.Nil(t, New(nil))

	m.FrameAccepted()
	m.FrameRejected()
	m.PersistFailed()
	m.SetRetained(1)
	m.SetClients(1)
	m.ClientDropped("x")
	m.MirrorFailed()
	m.Transition(status.ConnectionStatus{})
}
