package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avs"

// Metrics regroupe les compteurs de synchro. Un *Metrics nil est accepté partout.
type Metrics struct {
	Probes          *prometheus.CounterVec
	ProbeDuration   prometheus.Histogram
	EpisodesAdded   *prometheus.CounterVec
	SeasonsFinished prometheus.Counter
	Passes          *prometheus.CounterVec
	PassDuration    prometheus.Histogram
	CatalogSaves    *prometheus.CounterVec
	CDNDegraded     prometheus.Gauge
	Workers         prometheus.Gauge
	RunsPruned      prometheus.Counter
}

// New crée et enregistre les métriques sur reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "requests_total",
			Help:      "CDN existence checks by outcome (found, absent, server-error, unreachable).",
		}, []string{"outcome"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of CDN existence checks.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		EpisodesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "episodes_added_total",
			Help:      "Episodes folded into the catalog, by audio kind.",
		}, []string{"audio"}),
		SeasonsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "seasons_finished_total",
			Help:      "Seasons transitioned to finished by the engine.",
		}),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Sync passes by mode (live, dry) and result (changed, unchanged, failed, canceled).",
		}, []string{"mode", "result"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a full sync pass.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		CatalogSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "saves_total",
			Help:      "Catalog persist attempts by result.",
		}, []string{"result"}),
		CDNDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "cdn_degraded",
			Help:      "1 when consecutive failing probes (network or 5xx) crossed the health threshold.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_count",
			Help:      "Workers currently draining the sync run queue.",
		}),
		RunsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "pruned_total",
			Help:      "Finished sync runs deleted by the retention sweep.",
		}),
	}

	reg.MustRegister(
		m.Probes,
		m.ProbeDuration,
		m.EpisodesAdded,
		m.SeasonsFinished,
		m.Passes,
		m.PassDuration,
		m.CatalogSaves,
		m.CDNDegraded,
		m.Workers,
		m.RunsPruned,
	)
	return m
}

func (m *Metrics) ObserveProbe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Probes.WithLabelValues(outcome).Inc()
	m.ProbeDuration.Observe(d.Seconds())
}

func (m *Metrics) EpisodeAdded(audio string) {
	if m == nil {
		return
	}
	m.EpisodesAdded.WithLabelValues(audio).Inc()
}

func (m *Metrics) SeasonFinished() {
	if m == nil {
		return
	}
	m.SeasonsFinished.Inc()
}

func (m *Metrics) ObservePass(mode, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(mode, result).Inc()
	m.PassDuration.Observe(d.Seconds())
}

func (m *Metrics) CatalogSaved(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CatalogSaves.WithLabelValues("error").Inc()
		return
	}
	m.CatalogSaves.WithLabelValues("ok").Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.CDNDegraded.Set(1)
		return
	}
	m.CDNDegraded.Set(0)
}

func (m *Metrics) SetWorkers(n int) {
	if m == nil {
		return
	}
	m.Workers.Set(float64(n))
}

func (m *Metrics) RunsPrunedAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RunsPruned.Add(float64(n))
}
