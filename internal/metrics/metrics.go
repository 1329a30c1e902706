// Package metrics exposes simulation progress as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aoc2022.dev/internal/persistence/indexdb"
	"aoc2022.dev/internal/persistence/s3mirror"
	"aoc2022.dev/internal/sim/keepaway"
)

// Sim is fed one round log entry per round.
type Sim struct {
	reg *prometheus.Registry

	rounds      *prometheus.CounterVec
	inspections *prometheus.CounterVec
	holding     *prometheus.GaugeVec
	round       prometheus.Gauge
}

var _ keepaway.RoundLogger = (*Sim)(nil)

func New() *Sim {
	reg := prometheus.NewRegistry()
	s := &Sim{
		reg: reg,
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aoc",
			Subsystem: "keepaway",
			Name:      "rounds_total",
			Help:      "Completed simulation rounds by bounding mode.",
		}, []string{"mode"}),
		inspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aoc",
			Subsystem: "keepaway",
			Name:      "inspections_total",
			Help:      "Item inspections by actor.",
		}, []string{"actor"}),
		holding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aoc",
			Subsystem: "keepaway",
			Name:      "items_held",
			Help:      "Items queued at each actor after the last round.",
		}, []string{"actor"}),
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aoc",
			Subsystem: "keepaway",
			Name:      "round",
			Help:      "Last completed round.",
		}),
	}
	reg.MustRegister(
		s.rounds, s.inspections, s.holding, s.round,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

func (s *Sim) Registry() *prometheus.Registry { return s.reg }

func (s *Sim) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})
}

func (s *Sim) WriteRound(e keepaway.RoundLogEntry) error {
	s.rounds.WithLabelValues(e.Mode).Inc()
	for i, n := range e.Inspected {
		if n > 0 {
			s.inspections.WithLabelValues(strconv.Itoa(i)).Add(float64(n))
		}
	}
	for i, n := range e.Holding {
		s.holding.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
	}
	s.round.Set(float64(e.Round))
	return nil
}

// RegisterIndex exports the index writer's queue and drop counters.
func (s *Sim) RegisterIndex(idx *indexdb.Index) {
	if idx == nil {
		return
	}
	s.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "aoc", Subsystem: "index", Name: "queue_depth",
			Help: "Pending index writes.",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "index", Name: "dropped_rounds_total",
			Help: "Round rows dropped because the index writer fell behind.",
		}, func() float64 { return float64(idx.Stats().DropRoundTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "index", Name: "write_errors_total",
			Help: "Failed index writes.",
		}, func() float64 { return float64(idx.Stats().WriteErrorTotal) }),
	)
}

// RegisterMirror exports the object storage mirror's upload counters.
func (s *Sim) RegisterMirror(m *s3mirror.Mirror) {
	if m == nil {
		return
	}
	s.reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "mirror", Name: "uploads_total",
			Help: "Artifacts uploaded to object storage.",
		}, func() float64 { return float64(m.Stats().UploadSuccessTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "mirror", Name: "upload_failures_total",
			Help: "Artifacts that failed every upload attempt.",
		}, func() float64 { return float64(m.Stats().UploadFailTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "mirror", Name: "dropped_total",
			Help: "Artifacts dropped because the upload queue was full.",
		}, func() float64 { return float64(m.Stats().DroppedTotal) }),
	)
}

// ObserverStats is implemented by the websocket observer server.
type ObserverStats interface {
	Subscribers() int
	Dropped() uint64
}

func (s *Sim) RegisterObserver(o ObserverStats) {
	if o == nil {
		return
	}
	s.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "aoc", Subsystem: "observer", Name: "subscribers",
			Help: "Connected observers.",
		}, func() float64 { return float64(o.Subscribers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "aoc", Subsystem: "observer", Name: "dropped_rounds_total",
			Help: "Round messages discarded because an observer fell behind.",
		}, func() float64 { return float64(o.Dropped()) }),
	)
}
