package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by RunFinished.
const (
	OutcomeDone       = "done"
	OutcomeStopped    = "stopped"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// Metrics collects session counters on a private registry.
//
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// RunsStarted counts runs kicked off by the controller.
	RunsStarted prometheus.Counter

	// RunsFinished counts runs by how they ended.
	// Labels: outcome (done|stopped|failed|superseded)
	RunsFinished *prometheus.CounterVec

	// ActiveRuns is 1 while a transport is attached.
	ActiveRuns prometheus.Gauge

	// Frames counts frames decoded by the transport.
	Frames prometheus.Counter

	// DroppedFrames counts stream lines that were not valid events.
	DroppedFrames prometheus.Counter

	// DiscoveryFailures counts failed discovery requests.
	// Labels: endpoint (providers|models|status)
	DiscoveryFailures *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentstudio_runs_started_total",
			Help: "Total number of pipeline runs started",
		}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentstudio_runs_finished_total",
			Help: "Total number of pipeline runs finished by outcome",
		}, []string{"outcome"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentstudio_active_runs",
			Help: "Number of runs with an attached transport",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentstudio_frames_total",
			Help: "Total number of stream frames decoded",
		}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentstudio_dropped_frames_total",
			Help: "Total number of stream lines dropped as malformed, unknown or oversized",
		}),
		DiscoveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentstudio_discovery_failures_total",
			Help: "Total number of failed discovery requests by endpoint",
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(
		m.RunsStarted,
		m.RunsFinished,
		m.ActiveRuns,
		m.Frames,
		m.DroppedFrames,
		m.DiscoveryFailures,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted records a run attaching its transport.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsStarted.Inc()
	m.ActiveRuns.Set(1)
}

// RunFinished records a run detaching with the given outcome.
func (m *Metrics) RunFinished(outcome string, frames, dropped int) {
	if m == nil {
		return
	}
	m.RunsFinished.WithLabelValues(outcome).Inc()
	m.Frames.Add(float64(frames))
	m.DroppedFrames.Add(float64(dropped))
}

// Detached marks that no transport is attached.
func (m *Metrics) Detached() {
	if m == nil {
		return
	}
	m.ActiveRuns.Set(0)
}

// DiscoveryFailed records a failed discovery request.
func (m *Metrics) DiscoveryFailed(endpoint string) {
	if m == nil {
		return
	}
	m.DiscoveryFailures.WithLabelValues(endpoint).Inc()
}
