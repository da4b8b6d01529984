package relay

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the relay's held-message gauge and deposit/pickup counters
// (spec §11 domain stack), grounded on the teacher's own use of
// prometheus.DefaultRegisterer in internal/waku/gowaku_enabled.go.
type metrics struct {
	held      prometheus.Gauge
	deposited prometheus.Counter
	dropped   prometheus.Counter
	rejected  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		held: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentmail_relay_messages_held",
			Help: "Envelopes currently held across all recipient queues.",
		}),
		deposited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentmail_relay_deposited_total",
			Help: "Envelopes accepted via POST /v0/deposit.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentmail_relay_dropped_total",
			Help: "Envelopes evicted from a recipient queue on cap overflow.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmail_relay_deposit_rejected_total",
			Help: "Deposits refused, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.held, m.deposited, m.dropped, m.rejected)
	}
	return m
}
