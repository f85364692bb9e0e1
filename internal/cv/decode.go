package cv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Decode converts the opaque extractor output into RawMetrics. Every field is
// required: absent or null keys, values of the wrong type and out-of-range
// numbers all fail with ErrMalformedMetrics. Unknown keys are ignored.
func Decode(raw map[string]any) (RawMetrics, error) {
	var m RawMetrics

	if raw == nil {
		return m, fmt.Errorf("%w: no metrics provided", ErrMalformedMetrics)
	}

	var missing []string
	for _, key := range Keys() {
		if v, ok := raw[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return m, fmt.Errorf("%w: missing fields %s", ErrMalformedMetrics, strings.Join(missing, ", "))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &m,
		TagName: "mapstructure",
	})
	if err != nil {
		return m, fmt.Errorf("create metrics decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return RawMetrics{}, fmt.Errorf("%w: %v", ErrMalformedMetrics, err)
	}

	if err := m.Validate(); err != nil {
		return RawMetrics{}, err
	}

	return m, nil
}

// DecodeJSON parses a JSON object and decodes it with Decode.
func DecodeJSON(data []byte) (RawMetrics, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawMetrics{}, fmt.Errorf("%w: parse json: %v", ErrMalformedMetrics, err)
	}
	return Decode(raw)
}
