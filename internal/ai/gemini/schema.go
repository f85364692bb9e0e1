package gemini

import (
	"reflect"
	"strings"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cv"
	"google.golang.org/genai"
)

// metricsSchema mirrors cv.RawMetrics: every field is required, numbers are
// NUMBER and flags are BOOLEAN.
func metricsSchema() *genai.Schema {
	t := reflect.TypeOf(cv.RawMetrics{})
	props := make(map[string]*genai.Schema, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch f.Type.Kind() {
		case reflect.Bool:
			props[key] = &genai.Schema{Type: genai.TypeBoolean}
		default:
			props[key] = &genai.Schema{Type: genai.TypeNumber}
		}
	}

	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         cv.Keys(),
		PropertyOrdering: cv.Keys(),
	}
}

func feedbackSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	strList := &genai.Schema{Type: genai.TypeArray, Items: str}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":        str,
			"careerPathNote": str,
			"strengths":      strList,
			"weaknesses":     strList,
			"recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"section":    str,
						"issue":      str,
						"suggestion": str,
						"example":    str,
					},
					Required: []string{"section", "issue", "suggestion"},
				},
			},
		},
		Required: []string{"summary", "strengths", "weaknesses", "recommendations"},
	}
}
