// Package ai defines the external collaborators of an analysis: metric
// extraction and narrative feedback. Implementations live in subpackages.
package ai

import (
	"context"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
)

// Document is an uploaded CV as raw bytes.
type Document struct {
	Data     []byte
	MIMEType string
	Name     string
}

// Recommendation is a concrete suggestion tied to a CV section.
type Recommendation struct {
	Section    string `json:"section"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
	Example    string `json:"example,omitempty"`
}

// Feedback is the narrative part of an analysis. Its content is opaque to the
// scoring engine.
type Feedback struct {
	Summary         string           `json:"summary"`
	CareerPathNote  string           `json:"careerPathNote,omitempty"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Extractor reads a document and returns the raw metrics record keyed by the
// metric JSON names.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (map[string]any, error)
}

// FeedbackWriter produces narrative feedback for a document and its scores.
type FeedbackWriter interface {
	Write(ctx context.Context, doc Document, scores scoring.Result) (*Feedback, error)
}
