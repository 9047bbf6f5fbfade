package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	coverageRatio *prom.GaugeVec
	brokenRefs    prom.Counter
	docFiles      prom.Gauge
	watchEvents   prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docforge",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docforge",
			Name:      "build_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "build_outcomes_total",
			Help:      "Pipeline run outcomes by final status",
		}, []string{"outcome"})
		pr.coverageRatio = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "docforge",
			Name:      "api_coverage_ratio",
			Help:      "Fraction of public API entities that carry documentation",
		}, []string{"ecosystem"})
		pr.brokenRefs = prom.NewCounter(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "broken_refs_total",
			Help:      "Cross-references that could not be resolved or repaired",
		})
		pr.docFiles = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docforge",
			Name:      "doc_files",
			Help:      "Documentation files discovered in the last run",
		})
		pr.watchEvents = prom.NewCounter(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "watch_events_total",
			Help:      "Filesystem change events that triggered a rebuild",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults,
			pr.buildOutcome, pr.coverageRatio, pr.brokenRefs, pr.docFiles, pr.watchEvents)
	})
	return pr
}

// Handler returns an http.Handler serving the recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetCoverageRatio(ecosystem string, ratio float64) {
	if p == nil || p.coverageRatio == nil {
		return
	}
	p.coverageRatio.WithLabelValues(ecosystem).Set(ratio)
}

func (p *PrometheusRecorder) AddBrokenRefs(n int) {
	if p == nil || p.brokenRefs == nil || n <= 0 {
		return
	}
	p.brokenRefs.Add(float64(n))
}

func (p *PrometheusRecorder) SetDocFiles(n int) {
	if p == nil || p.docFiles == nil {
		return
	}
	p.docFiles.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchEvent() {
	if p == nil || p.watchEvents == nil {
		return
	}
	p.watchEvents.Inc()
}
