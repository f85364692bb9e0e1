package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider    = "ai_provider"
	FieldModel       = "ai_model"
	FieldMaxAttempts = "ai_max_attempts"

	FieldHash     = "hash"
	FieldFile     = "file"
	FieldMIMEType = "mime_type"
)

// StringField is a key/value pair that is dropped when either side is blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the pairs into zap fields, trimming whitespace and
// omitting blank entries.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// AIFields describes the model behind extraction and feedback calls.
func AIFields(provider, model string, maxAttempts int) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
	if maxAttempts > 0 {
		fields = append(fields, zap.Int(FieldMaxAttempts, maxAttempts))
	}
	return fields
}

// DocumentFields describes an analysed document.
func DocumentFields(hash, fileName, mimeType string) []zap.Field {
	return StringFields(
		StringField{Key: FieldHash, Value: hash},
		StringField{Key: FieldFile, Value: fileName},
		StringField{Key: FieldMIMEType, Value: mimeType},
	)
}
