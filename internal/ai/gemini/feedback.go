package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/utils"
	"go.uber.org/zap"
)

// FeedbackWriter asks Gemini for narrative feedback on a scored CV.
type FeedbackWriter struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewFeedbackWriter(generator jsonGenerator, maxLogLength int, logger *zap.Logger) *FeedbackWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FeedbackWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (w *FeedbackWriter) Write(ctx context.Context, doc ai.Document, scores scoring.Result) (*ai.Feedback, error) {
	prompt := buildFeedbackPrompt(scores)

	w.logger.Debug("gemini feedback request",
		zap.String("file", doc.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	raw, err := w.generator.GenerateJSON(ctx, Request{
		Data:        doc.Data,
		MIMEType:    doc.MIMEType,
		Prompt:      prompt,
		Schema:      feedbackSchema(),
		Temperature: feedbackTemperature,
	})
	if err != nil {
		return nil, err
	}

	w.logger.Debug("gemini feedback response",
		zap.String("file", doc.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, w.maxLogLen)),
	)

	return parseFeedback(raw)
}

func buildFeedbackPrompt(scores scoring.Result) string {
	template := feedbackPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Formato {{FORMAT}}, Exp {{CONTENT}}, Skills {{KEYWORDS}}, Edu {{EDUCATION}}, ATS {{STRUCTURE}}, Redac {{REDACCION}}, General {{OVERALL}}."
	}

	c := scores.Categories
	return strings.NewReplacer(
		"{{FORMAT}}", strconv.Itoa(c.Format),
		"{{CONTENT}}", strconv.Itoa(c.Content),
		"{{KEYWORDS}}", strconv.Itoa(c.Keywords),
		"{{EDUCATION}}", strconv.Itoa(c.Education),
		"{{STRUCTURE}}", strconv.Itoa(c.Structure),
		"{{REDACCION}}", strconv.Itoa(c.Redaccion),
		"{{OVERALL}}", strconv.Itoa(scores.Overall),
	).Replace(template)
}

func parseFeedback(raw string) (*ai.Feedback, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini feedback response: %w", err)
	}

	feedback := &ai.Feedback{
		Summary:         coerceString(data["summary"]),
		CareerPathNote:  coerceString(data["careerPathNote"]),
		Strengths:       coerceStrings(data["strengths"]),
		Weaknesses:      coerceStrings(data["weaknesses"]),
		Recommendations: []ai.Recommendation{},
	}
	if feedback.Summary == "" {
		return nil, fmt.Errorf("parse gemini feedback response: summary is missing")
	}

	items, _ := data["recommendations"].([]any)
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := ai.Recommendation{
			Section:    coerceString(rec["section"]),
			Issue:      coerceString(rec["issue"]),
			Suggestion: coerceString(rec["suggestion"]),
			Example:    coerceString(rec["example"]),
		}
		if r.Suggestion == "" {
			continue
		}
		feedback.Recommendations = append(feedback.Recommendations, r)
	}

	return feedback, nil
}
