package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := NewRecorder(WithRegisterer(registry))

	r.CacheLookup(LookupHit)
	r.CacheLookup(LookupHit)
	r.CacheLookup(LookupMiss)
	r.CacheStoreError()
	r.Analysis("scored")

	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues(LookupHit)); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues(LookupMiss)); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheStoreErrors); got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}
	if got := testutil.ToFloat64(r.analyses.WithLabelValues("scored")); got != 1 {
		t.Fatalf("expected 1 analysis, got %v", got)
	}
}

func TestRecorderHistograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := NewRecorder(WithRegisterer(registry), WithNamespace("test"), WithDurationBuckets([]float64{1, 2}))

	r.StageDuration(StageExtraction, 1500*time.Millisecond)
	r.CategoryScore("format", 75)

	expected := `
# HELP test_stage_duration_seconds Duration of analysis stages in seconds.
# TYPE test_stage_duration_seconds histogram
test_stage_duration_seconds_bucket{stage="extraction",le="1"} 0
test_stage_duration_seconds_bucket{stage="extraction",le="2"} 1
test_stage_duration_seconds_bucket{stage="extraction",le="+Inf"} 1
test_stage_duration_seconds_sum{stage="extraction"} 1.5
test_stage_duration_seconds_count{stage="extraction"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_stage_duration_seconds"); err != nil {
		t.Fatalf("unexpected stage histogram: %v", err)
	}

	if n := testutil.CollectAndCount(r.categoryScore); n != 1 {
		t.Fatalf("expected one category series, got %d", n)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.CacheLookup(LookupError)
	r.CacheStoreError()
	r.Analysis("failed")
	r.StageDuration(StageScoring, time.Second)
	r.CategoryScore("content", 10)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewRecorder(WithRegisterer(registry))

	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	NewRecorder(WithRegisterer(registry))
}
