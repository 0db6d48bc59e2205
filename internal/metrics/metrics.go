// Package metrics exports writer slot activity and room counts to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/room"
)

const namespace = "turn"

// Recorder counts turn transitions. It implements room.Observer; every method
// only bumps an in-memory counter.
type Recorder struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	releases    *prometheus.CounterVec
	denials     *prometheus.CounterVec
	roomsOpened prometheus.Counter
	roomsClosed prometheus.Counter
}

// New registers the recorder's collectors, plus the Go and process
// collectors, on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_transitions_total",
			Help:      "Writer slot transitions by kind.",
		}, []string{"kind"}),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_releases_total",
			Help:      "Writer slot releases by reason.",
		}, []string{"reason"}),
		denials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denied_operations_total",
			Help:      "Operations refused because the caller did not hold the required role.",
		}, []string{"operation"}),
		roomsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_opened_total",
			Help:      "Rooms created.",
		}),
		roomsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_evicted_total",
			Help:      "Rooms evicted.",
		}),
	}
}

// RegisterGauges exposes live counts read at scrape time.
func (r *Recorder) RegisterGauges(stats func() room.Stats, connections func() int) {
	factory := promauto.With(r.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms",
		Help:      "Rooms currently held in memory.",
	}, func() float64 { return float64(stats().Rooms) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "participants",
		Help:      "Participants across all rooms.",
	}, func() float64 { return float64(stats().Participants) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_writers",
		Help:      "Rooms with a writer.",
	}, func() float64 { return float64(stats().ActiveWriters) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open websocket connections.",
	}, func() float64 { return float64(connections()) })
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) RoomOpened(string) {
	r.roomsOpened.Inc()
}

func (r *Recorder) RoomClosed(string) {
	r.roomsClosed.Inc()
}

func (r *Recorder) TurnChanged(change room.TurnChange) {
	r.transitions.WithLabelValues(string(change.Kind)).Inc()
	switch change.Kind {
	case room.TurnReleased, room.TurnHandedOff:
		r.releases.WithLabelValues(string(change.Reason)).Inc()
	}
}

func (r *Recorder) Denied(_ string, op domain.Operation) {
	r.denials.WithLabelValues(string(op)).Inc()
}
