// Package metrics exposes the replication engine's side observations —
// inserts, deletes, sends, receives, conflicts, log size and
// truncations — as Prometheus instruments. Recording is always a side
// effect; nothing in core/ branches on a metrics value.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the replication engine records observations
// through, so tests can substitute a no-op or a spy without touching a
// real Prometheus registry.
type Recorder interface {
	InsertAccepted()
	InsertRejected()
	DeleteApplied()
	MessageSent()
	MessageReceived()
	ConflictDetected()
	LogTruncated()
	LogSize(size int)
}

// NoOp discards every observation. It is the Recorder used by tests and
// by core.NewNode when Config.Metrics is nil.
type NoOp struct{}

func (NoOp) InsertAccepted()    {}
func (NoOp) InsertRejected()    {}
func (NoOp) DeleteApplied()     {}
func (NoOp) MessageSent()       {}
func (NoOp) MessageReceived()   {}
func (NoOp) ConflictDetected()  {}
func (NoOp) LogTruncated()      {}
func (NoOp) LogSize(size int)   {}

// Prometheus is the production Recorder, registering the instruments
// under a private registry so multiple nodes in the same process (as
// in tests) don't collide on the default global registry.
type Prometheus struct {
	registry *prometheus.Registry

	inserts     *prometheus.CounterVec
	deletes     prometheus.Counter
	sent        prometheus.Counter
	received    prometheus.Counter
	conflicts   prometheus.Counter
	truncations prometheus.Counter
	logSize     prometheus.Gauge
}

// NewPrometheus builds a Recorder with its own registry, scoped by the
// given node name so metrics from several nodes in one process don't
// collide when each registers its own /metrics handler.
func NewPrometheus(node string) *Prometheus {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"node": node}

	return &Prometheus{
		registry: registry,
		inserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "distcal_inserts_total",
			Help:        "Local insert attempts, partitioned by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		deletes: factory.NewCounter(prometheus.CounterOpts{
			Name:        "distcal_deletes_total",
			Help:        "Deletes this node issued against its calendar; merged tombstones are not counted.",
			ConstLabels: labels,
		}),
		sent: factory.NewCounter(prometheus.CounterOpts{
			Name:        "distcal_messages_sent_total",
			Help:        "Anti-entropy messages sent to peers.",
			ConstLabels: labels,
		}),
		received: factory.NewCounter(prometheus.CounterOpts{
			Name:        "distcal_messages_received_total",
			Help:        "Anti-entropy messages received from peers.",
			ConstLabels: labels,
		}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name:        "distcal_conflicts_total",
			Help:        "Appointment conflicts detected, locally or on merge.",
			ConstLabels: labels,
		}),
		truncations: factory.NewCounter(prometheus.CounterOpts{
			Name:        "distcal_log_truncations_total",
			Help:        "Times the event log was truncated on receive.",
			ConstLabels: labels,
		}),
		logSize: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "distcal_log_size",
			Help:        "Current number of retained event-log entries.",
			ConstLabels: labels,
		}),
	}
}

func (p *Prometheus) InsertAccepted()   { p.inserts.WithLabelValues("accepted").Inc() }
func (p *Prometheus) InsertRejected()   { p.inserts.WithLabelValues("rejected").Inc() }
func (p *Prometheus) DeleteApplied()    { p.deletes.Inc() }
func (p *Prometheus) MessageSent()      { p.sent.Inc() }
func (p *Prometheus) MessageReceived()  { p.received.Inc() }
func (p *Prometheus) ConflictDetected() { p.conflicts.Inc() }
func (p *Prometheus) LogTruncated()     { p.truncations.Inc() }
func (p *Prometheus) LogSize(size int)  { p.logSize.Set(float64(size)) }

// Handler returns the http.Handler to serve on NodeConfig.MetricsAddr.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
