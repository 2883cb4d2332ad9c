package signaling

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "warpmeet"

// Metrics holds the relay's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	receivedTotal  *prometheus.CounterVec
	relayedTotal   *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	evictionsTotal prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, h *Hub) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "messages_received_total",
			Help:      "inbound envelopes by kind",
		}, []string{"type"}),
		relayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "messages_relayed_total",
			Help:      "envelopes forwarded to a target peer",
		}, []string{"type"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "messages_dropped_total",
			Help:      "frames dropped by reason",
		}, []string{"reason"}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "liveness_evictions_total",
			Help:      "connections closed for missing liveness probes",
		}),
	}
	reg.MustRegister(
		m.receivedTotal,
		m.relayedTotal,
		m.droppedTotal,
		m.evictionsTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "connections",
			Help:      "registered connections",
		}, func() float64 {
			return float64(h.registry.Len())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "signaling",
			Name:      "rooms",
			Help:      "rooms with at least one member",
		}, func() float64 {
			return float64(h.rooms.Len())
		}),
	)
	return m
}

// kindLabel keeps client-chosen type strings out of label values.
func kindLabel(kind string) string {
	switch kind {
	case TypeJoinRoom, TypeLeaveRoom, TypeOffer, TypeAnswer, TypeICECandidate, TypeHeartbeat:
		return kind
	}
	return "unknown"
}

func (m *Metrics) received(kind string) {
	if m == nil {
		return
	}
	m.receivedTotal.WithLabelValues(kindLabel(kind)).Inc()
}

func (m *Metrics) relayed(kind string) {
	if m == nil {
		return
	}
	m.relayedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) evicted() {
	if m == nil {
		return
	}
	m.evictionsTotal.Inc()
}
