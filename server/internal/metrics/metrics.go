package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "objectstream"

// Operation result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
)

// Metrics groups the server's collectors.
type Metrics struct {
	objectsStored  prometheus.Gauge
	objectOps      *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	samplesSent    prometheus.Counter
	authRejections *prometheus.CounterVec
	gatherer       prometheus.Gatherer
}

// New creates the collectors and registers them on reg. reg must also
// implement prometheus.Gatherer for Handler to serve anything; a
// *prometheus.Registry does.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		objectsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objects_stored",
			Help:      "Number of objects currently held in the store.",
		}),
		objectOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_operations_total",
			Help:      "Object API operations by operation and result.",
		}, []string{"op", "result"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_active",
			Help:      "Number of open random-value stream sessions.",
		}),
		samplesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "samples_sent_total",
			Help:      "Total samples written to stream clients.",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rejections_total",
			Help:      "Requests rejected by the authorization gate, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.objectsStored, m.objectOps, m.sessionsActive, m.samplesSent, m.authRejections)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SetObjects records the current store size.
func (m *Metrics) SetObjects(n int) {
	if m == nil {
		return
	}
	m.objectsStored.Set(float64(n))
}

// ObjectOp counts one Object API operation.
func (m *Metrics) ObjectOp(op, result string) {
	if m == nil {
		return
	}
	m.objectOps.WithLabelValues(op, result).Inc()
}

// SessionOpened and SessionClosed track open stream sessions.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// SampleSent counts one sample delivered to a stream client.
func (m *Metrics) SampleSent() {
	if m == nil {
		return
	}
	m.samplesSent.Inc()
}

// AuthRejected counts a request turned away by the authorization gate.
func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(reason).Inc()
}
