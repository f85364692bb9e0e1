// Package telemetry exposes Prometheus metrics for analyses and the result
// cache. A nil *Recorder is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Analysis stages timed by the recorder.
const (
	StageExtraction = "extraction"
	StageScoring    = "scoring"
	StageFeedback   = "feedback"
)

// Recorder holds the analysis metrics.
type Recorder struct {
	namespace       string
	durationBuckets []float64
	registerer      prometheus.Registerer

	cacheLookups     *prometheus.CounterVec
	cacheStoreErrors prometheus.Counter
	analyses         *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	categoryScore    *prometheus.HistogramVec
}

// NewRecorder creates and registers the metrics. Without WithRegisterer the
// default Prometheus registerer is used.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace:       "cv_booster",
		durationBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		registerer:      prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registerer)

	r.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	r.cacheStoreErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "cache_store_errors_total",
		Help:      "Analyses whose result could not be stored in the cache.",
	})

	r.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "analyses_total",
		Help:      "Completed analyses by outcome.",
	}, []string{"outcome"})

	r.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of analysis stages in seconds.",
		Buckets:   r.durationBuckets,
	}, []string{"stage"})

	r.categoryScore = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "category_score",
		Help:      "Distribution of computed category scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	}, []string{"category"})

	return r
}

func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) CacheStoreError() {
	if r == nil {
		return
	}
	r.cacheStoreErrors.Inc()
}

// Analysis counts one finished analysis. Outcome is a short label such as
// "scored", "cached" or an error class.
func (r *Recorder) Analysis(outcome string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(outcome).Inc()
}

func (r *Recorder) StageDuration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) CategoryScore(category string, score int) {
	if r == nil {
		return
	}
	r.categoryScore.WithLabelValues(category).Observe(float64(score))
}
