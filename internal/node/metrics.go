package node

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the node's inbound-side counters (spec §11 domain stack).
// Delivery-tier counters and the outbox gauge live in internal/router,
// which is where the delivery attempts and the outbox itself actually are.
// Grounded on the teacher's own use of prometheus.DefaultRegisterer in
// internal/waku/gowaku_enabled.go.
type metrics struct {
	received prometheus.Counter
	rejected *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentmail_received_total",
			Help: "Inbound envelopes accepted via POST /v0/receive.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmail_receive_rejected_total",
			Help: "Inbound envelopes refused, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.received, m.rejected)
	}
	return m
}
