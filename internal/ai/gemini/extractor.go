package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	_ "embed"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/utils"
	"go.uber.org/zap"
)

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

const (
	defaultMaxLogLength = 200

	extractionTemperature = 0
	feedbackTemperature   = 0.3
)

//go:embed extract_prompt.md
var extractPrompt string

//go:embed feedback_prompt.md
var feedbackPromptTemplate string

// Extractor asks Gemini for the objective metrics of a CV.
type Extractor struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator jsonGenerator, maxLogLength int, logger *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, doc ai.Document) (map[string]any, error) {
	e.logger.Debug("gemini extraction request",
		zap.String("file", doc.Name),
		zap.String("mime_type", doc.MIMEType),
		zap.Int("document_bytes", len(doc.Data)),
	)

	raw, err := e.generator.GenerateJSON(ctx, Request{
		Data:        doc.Data,
		MIMEType:    doc.MIMEType,
		Prompt:      extractPrompt,
		Schema:      metricsSchema(),
		Temperature: extractionTemperature,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini extraction response",
		zap.String("file", doc.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	var metrics map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &metrics); err != nil {
		return nil, fmt.Errorf("parse gemini extraction response: %w", err)
	}
	if metrics == nil {
		return nil, fmt.Errorf("parse gemini extraction response: expected a JSON object")
	}

	return metrics, nil
}
