// Package server exposes analyses over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HeaderFileName carries the original file name of an uploaded document.
const HeaderFileName = "X-File-Name"

// Analyzer is the subset of *analysis.Analyzer used by the handlers.
type Analyzer interface {
	Analyze(ctx context.Context, doc ai.Document) (*analysis.Result, error)
	LookupRaw(ctx context.Context, hash string) ([]byte, bool, error)
}

// Server wires the HTTP routes.
type Server struct {
	analyzer Analyzer
	gatherer prometheus.Gatherer
	maxBytes int
	logger   *zap.Logger
}

func New(analyzer Analyzer, gatherer prometheus.Gatherer, maxBytes int, logger *zap.Logger) *Server {
	if maxBytes <= 0 {
		maxBytes = analysis.DefaultMaxDocumentBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{analyzer: analyzer, gatherer: gatherer, maxBytes: maxBytes, logger: logger}
}

// Handler returns the router with every route attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/analyses", s.handleAnalyze)
	mux.HandleFunc("GET /v1/analyses/{hash}", s.handleGet)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.maxBytes)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document_too_large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	doc := ai.Document{
		Data:     data,
		MIMEType: mediaType(r.Header.Get("Content-Type")),
		Name:     strings.TrimSpace(r.Header.Get(HeaderFileName)),
	}

	res, err := s.analyzer.Analyze(r.Context(), doc)
	if err != nil {
		status, code := classify(err)
		s.logger.Warn("Analysis request failed",
			zap.String("code", code),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, code, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	raw, ok, err := s.analyzer.LookupRaw(r.Context(), hash)
	switch {
	case errors.Is(err, cache.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "invalid_hash", err)
		return
	case err != nil:
		s.logger.Error("Cache lookup failed", zap.String("hash", hash), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache_error", err)
		return
	case !ok:
		writeError(w, http.StatusNotFound, "not_found", cache.ErrNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned; the response is never read.
const statusClientClosedRequest = 499

// classify maps analysis errors to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "cancelled"
	case errors.Is(err, analysis.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge, "document_too_large"
	case errors.Is(err, analysis.ErrInvalidDocument):
		return http.StatusBadRequest, "invalid_document"
	case errors.Is(err, cv.ErrMalformedMetrics):
		return http.StatusUnprocessableEntity, "malformed_metrics"
	case errors.Is(err, analysis.ErrExtraction), errors.Is(err, analysis.ErrFeedback):
		return http.StatusBadGateway, "ai_unavailable"
	case errors.Is(err, analysis.ErrScoring):
		return http.StatusInternalServerError, "scoring_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(contentType)
	}
	return mt
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
