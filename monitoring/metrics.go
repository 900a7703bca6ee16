package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sarchlab/masim/simulation"
)

// Metrics holds the Prometheus collectors of a monitored simulation. Each
// Metrics has its own registry so that several monitors can coexist.
type Metrics struct {
	registry *prometheus.Registry

	accesses      *prometheus.CounterVec
	phaseDuration *prometheus.GaugeVec
	threads       *prometheus.GaugeVec
	currentPhase  prometheus.Gauge
	phasesDone    prometheus.Counter
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		accesses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masim",
			Name:      "accesses_total",
			Help:      "Number of memory accesses made in finished phases.",
		}, []string{"phase"}),
		phaseDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "masim",
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock time a finished phase took.",
		}, []string{"phase"}),
		threads: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "masim",
			Name:      "phase_threads",
			Help:      "Number of worker threads of a finished phase.",
		}, []string{"phase"}),
		currentPhase: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "masim",
			Name:      "current_phase_index",
			Help:      "Index of the running phase, -1 when idle.",
		}),
		phasesDone: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "masim",
			Name:      "phases_finished_total",
			Help:      "Number of phases that have finished.",
		}),
	}

	m.currentPhase.Set(-1)

	return m
}

// Registry returns the registry that holds the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeLiveAccesses(s *simulation.Simulation) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "masim",
		Name:      "running_phase_accesses",
		Help:      "Number of memory accesses made so far in the running phase.",
	}, func() float64 {
		for _, st := range s.Status() {
			if st.State == simulation.PhaseRunning {
				return float64(st.Accesses)
			}
		}

		return 0
	})
}

func (m *Metrics) phaseStarted(index int) {
	m.currentPhase.Set(float64(index))
}

func (m *Metrics) phaseFinished(r simulation.PhaseReport) {
	label := strconv.Itoa(r.Index) + ":" + r.Name

	m.accesses.WithLabelValues(label).Add(float64(r.TotalAccesses()))
	m.phaseDuration.WithLabelValues(label).Set(r.Elapsed.Seconds())
	m.threads.WithLabelValues(label).Set(float64(r.Threads))
	m.currentPhase.Set(-1)
	m.phasesDone.Inc()
}
