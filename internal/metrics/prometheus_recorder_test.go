package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("discover", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("discover", ResultSuccess)
	pr.IncBuildOutcome("success")
	pr.SetCoverageRatio("go", 0.8)
	pr.AddBrokenRefs(2)
	pr.SetDocFiles(14)
	pr.IncWatchEvent()

	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("discover", time.Second)
	pr.ObserveBuildDuration(time.Second)
	pr.IncStageResult("discover", ResultFatal)
	pr.IncBuildOutcome("failed")
	pr.SetCoverageRatio("go", 0)
	pr.AddBrokenRefs(1)
	pr.SetDocFiles(0)
	pr.IncWatchEvent()
}

func TestPrometheusRecorder_AddBrokenRefsIgnoresNonPositive(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.AddBrokenRefs(0)
	pr.AddBrokenRefs(-5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "docforge_broken_refs_total" {
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 0 {
				t.Fatalf("expected counter 0, got %v", got)
			}
		}
	}
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("toc", time.Millisecond)
	r.IncBuildOutcome("success")
}
