package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai/gemini"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/logger"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/secrets"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/telemetry"

	"go.uber.org/zap"
)

// newBackend opens the configured cache backend. The returned close function
// is never nil.
func newBackend(ctx context.Context, cfg *StorageConfig, log *zap.Logger) (cache.Backend, func(), error) {
	noop := func() {}
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))

	switch backend {
	case "memory":
		log.Warn("using in-memory cache, results are lost on exit")
		return cache.NewMemory(), noop, nil
	case "", "file":
		b, err := cache.NewFile(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("using file cache", zap.String("dir", cfg.Dir))
		return b, noop, nil
	case "s3":
		b, err := cache.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("using s3 cache", zap.String("bucket", cfg.S3.Bucket), zap.String("prefix", cfg.S3.Prefix))
		return b, noop, nil
	case "gcs":
		b, err := cache.NewGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("using gcs cache", zap.String("bucket", cfg.GCS.Bucket), zap.String("prefix", cfg.GCS.Prefix))
		return b, func() {
			if err := b.Close(); err != nil {
				log.Warn("closing gcs client", zap.Error(err))
			}
		}, nil
	case "postgres":
		url, err := secrets.Load(secrets.Source{
			Name:  "database url",
			Value: cfg.Postgres.URL,
			File:  cfg.Postgres.URLFile,
			Env:   "CV_BOOSTER_DATABASE_URL",
		})
		if err != nil {
			return nil, noop, fmt.Errorf("%w (set storage.postgres.url-file or CV_BOOSTER_DATABASE_URL_FILE)", err)
		}
		b, err := cache.NewPostgres(ctx, url)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("using postgres cache")
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func newResultCache(ctx context.Context, cfg *Config, log *zap.Logger) (*cache.Cache[analysis.Result], func(), error) {
	backend, closeFn, err := newBackend(ctx, cfg.Storage, log)
	if err != nil {
		return nil, closeFn, fmt.Errorf("opening %s cache: %w", cfg.Storage.Backend, err)
	}
	return cache.New[analysis.Result](backend, log), closeFn, nil
}

// newAnalyzer builds the Gemini collaborators and the analyzer around the
// configured cache.
func newAnalyzer(ctx context.Context, cfg *Config, log *zap.Logger, recorder *telemetry.Recorder) (*analysis.Analyzer, func(), error) {
	results, closeFn, err := newResultCache(ctx, cfg, log)
	if err != nil {
		return nil, closeFn, err
	}

	gcfg := cfg.AI.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, closeFn, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithFields(log, logger.AIFields("gemini", gcfg.Model, gcfg.MaxRetries)...)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, closeFn, err
	}

	analyzer, err := analysis.New(
		gemini.NewExtractor(generator, gcfg.MaxLogLength, genLogger),
		gemini.NewFeedbackWriter(generator, gcfg.MaxLogLength, genLogger),
		results,
		analysis.Options{
			Logger:           log,
			Recorder:         recorder,
			MaxDocumentBytes: cfg.Analysis.MaxDocumentBytes,
			Timeout:          cfg.Analysis.Timeout,
		},
	)
	if err != nil {
		return nil, closeFn, err
	}

	return analyzer, closeFn, nil
}
