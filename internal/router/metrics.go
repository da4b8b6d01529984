package router

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the router's delivery-tier counters and the live outbox
// depth gauge (spec §11 domain stack), grounded on the teacher's own use of
// prometheus.DefaultRegisterer in internal/waku/gowaku_enabled.go.
type metrics struct {
	delivered   *prometheus.CounterVec
	failed      prometheus.Counter
	outboxGauge prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmail_delivered_total",
			Help: "Messages successfully routed out, by delivery tier.",
		}, []string{"tier"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentmail_delivery_failed_total",
			Help: "Outbox entries that exhausted their retry ceiling.",
		}),
		outboxGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentmail_outbox_depth",
			Help: "Current number of messages queued in the outbox.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.delivered, m.failed, m.outboxGauge)
	}
	return m
}
