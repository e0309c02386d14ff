// Package metrics holds the prometheus collectors for control-plane calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"one-rpc/protocol"
)

const namespace = "one_rpc"

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeProtocol  = "protocol_error"
	OutcomeTransport = "transport_error"
	OutcomeMalformed = "malformed_response"
	OutcomeOther     = "error"
)

// Collector holds the call metrics. Build one per registerer.
type Collector struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	InFlight     *prometheus.GaugeVec
}

// NewCollector registers the call metrics with reg. A nil reg falls back to
// a private registry, which keeps tests from colliding on the default one.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		CallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Control-plane calls by method and outcome",
		}, []string{"method", "outcome"}),
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Control-plane call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		InFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_in_flight",
			Help:      "Control-plane calls currently running",
		}, []string{"method"}),
	}
}

// Start marks a call as in flight. The returned func records its end.
func (c *Collector) Start(method string) func(d time.Duration, err error) {
	c.InFlight.WithLabelValues(method).Inc()
	return func(d time.Duration, err error) {
		c.InFlight.WithLabelValues(method).Dec()
		c.CallsTotal.WithLabelValues(method, Outcome(err)).Inc()
		c.CallDuration.WithLabelValues(method).Observe(d.Seconds())
	}
}

// Outcome maps an error onto its label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case protocol.IsProtocol(err):
		return OutcomeProtocol
	case protocol.IsTransport(err):
		return OutcomeTransport
	case protocol.IsMalformed(err):
		return OutcomeMalformed
	default:
		return OutcomeOther
	}
}
