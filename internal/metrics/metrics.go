// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/soya0924/shoe0522/internal/status"
)

const namespace = "stepbridge"

// Metrics holds the bridge's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	framesAccepted    prometheus.Counter
	framesRejected    prometheus.Counter
	persistFailures   prometheus.Counter
	retainedRecords   prometheus.Gauge
	clientsConnected  prometheus.Gauge
	clientsDropped    *prometheus.CounterVec
	reconnectAttempts prometheus.Gauge
	transitions       *prometheus.CounterVec
	linkState         *prometheus.GaugeVec
	mirrorFailures    prometheus.Counter
}

// NewRegistry returns a private registry with Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates and registers the bridge collectors on reg.
// Returns nil if reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		framesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_accepted_total",
			Help:      "Frames decoded into records",
		}),
		framesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_rejected_total",
			Help:      "Frames discarded by the codec",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "write_failures_total",
			Help:      "Retention log rewrites that failed",
		}),
		retainedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "records",
			Help:      "Records in the retention window after the last write",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "clients_connected",
			Help:      "Currently subscribed live clients",
		}),
		clientsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "clients_dropped_total",
			Help:      "Clients removed because delivery failed",
		}, []string{"reason"}),
		reconnectAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "reconnect_attempts",
			Help:      "Current reconnect attempt counter",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "transitions_total",
			Help:      "Link state transitions by target state",
		}, []string{"state"}),
		linkState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "1 for the current link state, 0 otherwise",
		}, []string{"state"}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "write_failures_total",
			Help:      "Status block writes that failed",
		}),
	}

	reg.MustRegister(
		m.framesAccepted,
		m.framesRejected,
		m.persistFailures,
		m.retainedRecords,
		m.clientsConnected,
		m.clientsDropped,
		m.reconnectAttempts,
		m.transitions,
		m.linkState,
		m.mirrorFailures,
	)

	return m
}

func (m *Metrics) FrameAccepted() {
	if m != nil {
		m.framesAccepted.Inc()
	}
}

func (m *Metrics) FrameRejected() {
	if m != nil {
		m.framesRejected.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) SetRetained(n int) {
	if m != nil {
		m.retainedRecords.Set(float64(n))
	}
}

func (m *Metrics) SetClients(n int) {
	if m != nil {
		m.clientsConnected.Set(float64(n))
	}
}

func (m *Metrics) ClientDropped(reason string) {
	if m != nil {
		m.clientsDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) MirrorFailed() {
	if m != nil {
		m.mirrorFailures.Inc()
	}
}

var allStates = []status.State{
	status.StateDisconnected,
	status.StateOpening,
	status.StateConnected,
	status.StateGivenUp,
}

// Transition records a status change.
func (m *Metrics) Transition(s status.ConnectionStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(s.State)).Inc()
	m.reconnectAttempts.Set(float64(s.ReconnectAttempts))
	for _, st := range allStates {
		v := 0.0
		if st == s.State {
			v = 1
		}
		m.linkState.WithLabelValues(string(st)).Set(v)
	}
}
