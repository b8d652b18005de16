// Package metrics records pipeline outcomes, stage latency and adapter
// fallbacks.
//
// Components depend on the Recorder interface; Nop is used when metrics are
// disabled and Prometheus exports to a dedicated registry served at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claimcheck"

// Recorder receives observability events from the pipeline and its adapters
type Recorder interface {
	// PipelineRun counts one finished run by outcome (ok, input_failure, unexpected_failure)
	PipelineRun(outcome string)

	// StageDuration observes how long one pipeline state took
	StageDuration(stage string, d time.Duration)

	// AdapterFallback counts an adapter response that was replaced by its default
	AdapterFallback(adapter, reason string)

	// EvidenceFiltered counts evidence items removed by the deny-list
	EvidenceFiltered(n int)
}

// Nop discards everything
type Nop struct{}

func (Nop) PipelineRun(string)                  {}
func (Nop) StageDuration(string, time.Duration) {}
func (Nop) AdapterFallback(string, string)      {}
func (Nop) EvidenceFiltered(int)                {}

// OrNop returns r, or Nop when r is nil
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Prometheus implements Recorder with client_golang collectors
type Prometheus struct {
	registry *prometheus.Registry

	// RunsTotal counts pipeline runs. Labels: outcome
	RunsTotal *prometheus.CounterVec

	// StageSeconds measures pipeline state latency. Labels: stage
	StageSeconds *prometheus.HistogramVec

	// FallbacksTotal counts adapter fallbacks. Labels: adapter, reason
	FallbacksTotal *prometheus.CounterVec

	// EvidenceFilteredTotal counts deny-listed evidence items
	EvidenceFilteredTotal prometheus.Counter
}

// NewPrometheus registers all collectors on a fresh registry
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		StageSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_seconds",
			Help:      "Time spent in each pipeline state",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_fallbacks_total",
			Help:      "Adapter responses replaced by their documented default",
		}, []string{"adapter", "reason"}),
		EvidenceFilteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_filtered_total",
			Help:      "Evidence items removed by the source deny-list",
		}),
	}
}

func (p *Prometheus) PipelineRun(outcome string) {
	p.RunsTotal.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) StageDuration(stage string, d time.Duration) {
	p.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prometheus) AdapterFallback(adapter, reason string) {
	p.FallbacksTotal.WithLabelValues(adapter, reason).Inc()
}

func (p *Prometheus) EvidenceFiltered(n int) {
	if n > 0 {
		p.EvidenceFilteredTotal.Add(float64(n))
	}
}

// Registry exposes the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
