// Package metrics defines the Prometheus collectors exported by the chat hub.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blahchat"

// Reasons an inbound frame is dropped before broadcast.
const (
	DropBinary      = "binary"
	DropInvalidText = "invalid_text"
	DropRateLimited = "rate_limited"
	DropEncodeError = "encode_error"
)

// Metrics contains the hub's collectors. All Record methods are safe to call
// on a nil *Metrics, which records nothing.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	FramesReceived    prometheus.Counter
	FramesDropped     *prometheus.CounterVec
	Broadcasts        prometheus.Counter
	Deliveries        prometheus.Counter
	DeliveryFailures  prometheus.Counter
	WriteErrors       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Number of currently registered connections",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "total",
			Help:      "Total number of connections registered since start",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Total number of inbound frames read from connections",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "dropped_total",
			Help:      "Inbound frames not broadcast, by reason",
		}, []string{"reason"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "broadcast_total",
			Help:      "Total number of messages broadcast",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "delivered_total",
			Help:      "Total number of messages queued for a recipient",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "delivery_failures_total",
			Help:      "Total number of messages a recipient queue rejected",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "write_errors_total",
			Help:      "Total number of failed transport writes",
		}),
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.FramesReceived,
		m.FramesDropped,
		m.Broadcasts,
		m.Deliveries,
		m.DeliveryFailures,
		m.WriteErrors,
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordConnected marks a newly registered connection.
func (m *Metrics) RecordConnected() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// RecordDisconnected marks a deregistered connection.
func (m *Metrics) RecordDisconnected() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

// RecordFrame counts one inbound frame.
func (m *Metrics) RecordFrame() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// RecordDropped counts an inbound frame that was not broadcast.
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordBroadcast counts one broadcast and its per-recipient outcome.
func (m *Metrics) RecordBroadcast(delivered, failed int) {
	if m == nil {
		return
	}
	m.Broadcasts.Inc()
	m.Deliveries.Add(float64(delivered))
	m.DeliveryFailures.Add(float64(failed))
}

// RecordWriteError counts a failed transport write.
func (m *Metrics) RecordWriteError() {
	if m == nil {
		return
	}
	m.WriteErrors.Inc()
}

// Handler returns the exposition handler for the collectors in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
