// Package analysis runs the CV pipeline: digest, cache lookup, extraction,
// scoring, feedback and store.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cv"
	logutil "github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/logger"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxDocumentBytes is the upload limit applied when none is configured.
const DefaultMaxDocumentBytes = 5 << 20

var (
	// ErrInvalidDocument reports an empty or oversized document.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrDocumentTooLarge is wrapped together with ErrInvalidDocument.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrExtraction reports a failure of the metric extractor.
	ErrExtraction = errors.New("metric extraction failed")
	// ErrFeedback reports a failure of the feedback writer.
	ErrFeedback = errors.New("feedback generation failed")
	// ErrScoring reports an unexpected failure of the scoring engine.
	ErrScoring = errors.New("scoring failed")
)

// Result is the complete cached analysis of one document.
type Result struct {
	scoring.Result
	ai.Feedback
	Hash string `json:"hash"`
}

// Options configures an Analyzer.
type Options struct {
	Logger           *zap.Logger
	Recorder         *telemetry.Recorder
	MaxDocumentBytes int
	// Timeout bounds one shared analysis regardless of its callers. Zero
	// means no limit.
	Timeout          time.Duration
}

// Analyzer wires the extractor, the scoring engine and the feedback writer
// around a content-addressed cache.
type Analyzer struct {
	extractor ai.Extractor
	feedback  ai.FeedbackWriter
	cache     *cache.Cache[Result]
	logger    *zap.Logger
	recorder  *telemetry.Recorder
	maxBytes  int
	timeout   time.Duration

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
	seq     uint64
}

// flight is one shared analysis of a digest. It runs detached from the
// callers' contexts and is cancelled once every caller has gone away.
type flight struct {
	hash    string
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters []context.Context
	done    bool
}

func New(extractor ai.Extractor, feedback ai.FeedbackWriter, results *cache.Cache[Result], opts Options) (*Analyzer, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if feedback == nil {
		return nil, errors.New("feedback writer is required")
	}
	if results == nil {
		return nil, errors.New("result cache is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := opts.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}

	return &Analyzer{
		extractor: extractor,
		feedback:  feedback,
		cache:     results,
		logger:    logger,
		recorder:  opts.Recorder,
		maxBytes:  maxBytes,
		timeout:   opts.Timeout,
		flights:   make(map[string]*flight),
	}, nil
}

// Analyze returns the analysis of doc, from the cache when the same bytes were
// analysed before.
func (a *Analyzer) Analyze(ctx context.Context, doc ai.Document) (*Result, error) {
	if err := a.validate(doc); err != nil {
		a.recorder.Analysis(Outcome(err))
		return nil, err
	}

	hash := cache.Digest(doc.Data)
	logger := logutil.WithFields(a.logger, logutil.DocumentFields(hash, doc.Name, doc.MIMEType)...)

	if cached, ok := a.lookup(ctx, hash, logger); ok {
		logger.Info("Analysis served from cache")
		a.recorder.Analysis("cached")
		return cached, nil
	}

	f, ch := a.join(ctx, doc, hash, logger)

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		a.abandon(f)
		logger.Info("Caller went away before the analysis finished", zap.Error(ctx.Err()))
		a.recorder.Analysis(Outcome(ctx.Err()))
		return nil, ctx.Err()
	}
	if res.Err != nil {
		a.recorder.Analysis(Outcome(res.Err))
		return nil, res.Err
	}
	if res.Shared {
		logger.Debug("Analysis shared with a concurrent request")
	}

	a.recorder.Analysis("scored")
	return res.Val.(*Result), nil
}

// join attaches ctx to the running flight for hash, starting one if needed.
func (a *Analyzer) join(ctx context.Context, doc ai.Document, hash string, logger *zap.Logger) (*flight, <-chan singleflight.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.flights[hash]
	if !ok {
		a.seq++
		base := context.WithoutCancel(ctx)
		f = &flight{hash: hash, key: hash + "/" + strconv.FormatUint(a.seq, 10)}
		if a.timeout > 0 {
			f.ctx, f.cancel = context.WithTimeout(base, a.timeout)
		} else {
			f.ctx, f.cancel = context.WithCancel(base)
		}
		a.flights[hash] = f
	}
	f.waiters = append(f.waiters, ctx)

	// DoChan runs under a.mu so a joiner can never start a second call for a
	// flight that finish has already retired.
	ch := a.group.DoChan(f.key, func() (any, error) {
		defer a.finish(f)
		return a.analyze(f, doc, hash, logger)
	})
	return f, ch
}

// abandon cancels f when none of its callers is still waiting.
func (a *Analyzer) abandon(f *flight) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if f.done || a.liveLocked(f) {
		return
	}
	f.cancel()
	if a.flights[f.hash] == f {
		delete(a.flights, f.hash)
	}
}

func (a *Analyzer) finish(f *flight) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f.done = true
	f.cancel()
	if a.flights[f.hash] == f {
		delete(a.flights, f.hash)
	}
}

// live reports whether any caller of f still wants its result.
func (a *Analyzer) live(f *flight) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveLocked(f)
}

func (a *Analyzer) liveLocked(f *flight) bool {
	for _, ctx := range f.waiters {
		if ctx.Err() == nil {
			return true
		}
	}
	return false
}

// Lookup returns the cached analysis for hash.
func (a *Analyzer) Lookup(ctx context.Context, hash string) (*Result, bool, error) {
	return a.cache.Lookup(ctx, hash)
}

// LookupRaw returns the cached analysis for hash exactly as stored.
func (a *Analyzer) LookupRaw(ctx context.Context, hash string) ([]byte, bool, error) {
	return a.cache.LookupRaw(ctx, hash)
}

func (a *Analyzer) validate(doc ai.Document) error {
	if len(doc.Data) == 0 {
		return fmt.Errorf("%w: document is empty", ErrInvalidDocument)
	}
	if len(doc.Data) > a.maxBytes {
		return fmt.Errorf("%w: %w: %d bytes exceeds the %d byte limit", ErrInvalidDocument, ErrDocumentTooLarge, len(doc.Data), a.maxBytes)
	}
	return nil
}

func (a *Analyzer) lookup(ctx context.Context, hash string, logger *zap.Logger) (*Result, bool) {
	cached, ok, err := a.cache.Lookup(ctx, hash)
	switch {
	case err != nil:
		logger.Warn("Cache lookup failed, analysing anyway", zap.Error(err))
		a.recorder.CacheLookup(telemetry.LookupError)
		return nil, false
	case ok:
		a.recorder.CacheLookup(telemetry.LookupHit)
		return cached, true
	default:
		a.recorder.CacheLookup(telemetry.LookupMiss)
		return nil, false
	}
}

func (a *Analyzer) analyze(f *flight, doc ai.Document, hash string, logger *zap.Logger) (*Result, error) {
	ctx := f.ctx
	// A flight for the same digest may have finished between our lookup and
	// joining the group.
	if cached, ok, err := a.cache.Lookup(ctx, hash); err == nil && ok {
		return cached, nil
	}

	start := time.Now()
	raw, err := a.extractor.Extract(ctx, doc)
	a.recorder.StageDuration(telemetry.StageExtraction, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	metrics, err := cv.Decode(raw)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	scores, err := scoring.Score(metrics)
	a.recorder.StageDuration(telemetry.StageScoring, time.Since(start))
	if err != nil {
		if errors.Is(err, cv.ErrMalformedMetrics) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}
	for _, c := range scoring.Categories {
		a.recorder.CategoryScore(string(c), scores.Categories.Get(c))
	}

	logger.Info("CV scored",
		zap.Int("score", scores.Overall),
		zap.Int("format", scores.Categories.Format),
		zap.Int("content", scores.Categories.Content),
		zap.Int("keywords", scores.Categories.Keywords),
		zap.Int("structure", scores.Categories.Structure),
		zap.Int("education", scores.Categories.Education),
		zap.Int("redaccion", scores.Categories.Redaccion),
	)

	start = time.Now()
	feedback, err := a.feedback.Write(ctx, doc, *scores)
	a.recorder.StageDuration(telemetry.StageFeedback, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrFeedback, err)
	}
	if feedback == nil {
		return nil, fmt.Errorf("%w: empty feedback", ErrFeedback)
	}

	result := &Result{Result: *scores, Feedback: *feedback, Hash: hash}

	if err := ctx.Err(); err != nil {
		logger.Warn("Analysis cancelled before store", zap.Error(err))
		return nil, err
	}
	if !a.live(f) {
		logger.Warn("Every caller went away, analysis not stored")
		return nil, context.Canceled
	}

	return a.store(ctx, hash, result, logger), nil
}

// store saves result and returns the value that ends up cached. Failures are
// logged and never surface to the caller.
func (a *Analyzer) store(ctx context.Context, hash string, result *Result, logger *zap.Logger) *Result {
	err := a.cache.Store(ctx, hash, result)
	if err == nil {
		return result
	}

	if errors.Is(err, cache.ErrConflict) {
		stored, ok, lookupErr := a.cache.Lookup(ctx, hash)
		if lookupErr == nil && ok {
			logger.Info("Returning previously stored analysis")
			return stored
		}
	}

	logger.Error("Failed to store analysis", zap.Error(err))
	a.recorder.CacheStoreError()
	return result
}

// Outcome classifies err for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "scored"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, cv.ErrMalformedMetrics):
		return "malformed_metrics"
	case errors.Is(err, ErrScoring):
		return "scoring_error"
	case errors.Is(err, ErrFeedback):
		return "feedback_error"
	default:
		return "error"
	}
}
