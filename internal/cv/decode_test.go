package cv

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func completeRaw() map[string]any {
	return map[string]any{
		"pageCount":                 2.0,
		"hasSections":               true,
		"usesBullets":               true,
		"yearsExperience":           4.5,
		"jobCount":                  3.0,
		"skillsCount":               8.0,
		"hasLogrosCuantificables":   2.0,
		"hasEducacionUniversitaria": true,
		"hasEducacionTerciaria":     false,
		"hasCertificaciones":        1.0,
		"hasDatosContacto":          true,
		"hasResumen":                true,
		"hasFechas":                 true,
		"errorOrtograficoCount":     0.0,
		"wordCount":                 520.0,
		"usesProfessionalLanguage":  true,
		"isAtsFriendly":             false,
		"industryKeywordsCount":     7.0,
	}
}

func TestDecodeComplete(t *testing.T) {
	m, err := Decode(completeRaw())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.YearsExperience != 4.5 {
		t.Fatalf("expected fractional years to be kept, got %v", m.YearsExperience)
	}
	if !m.HasUniversityDegree || m.HasTertiaryDegree {
		t.Fatalf("unexpected education flags: %+v", m)
	}
	if m.IndustryKeywords != 7 {
		t.Fatalf("unexpected keywords count: %v", m.IndustryKeywords)
	}
}

func TestDecodeAcceptsIntegers(t *testing.T) {
	raw := completeRaw()
	raw["pageCount"] = 1
	raw["wordCount"] = int64(640)

	m, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PageCount != 1 || m.WordCount != 640 {
		t.Fatalf("unexpected numeric decoding: %+v", m)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		contain string
	}{
		{
			name:    "missing field",
			mutate:  func(raw map[string]any) { delete(raw, "wordCount") },
			contain: "wordCount",
		},
		{
			name:    "null field",
			mutate:  func(raw map[string]any) { raw["hasFechas"] = nil },
			contain: "hasFechas",
		},
		{
			name:    "string instead of number",
			mutate:  func(raw map[string]any) { raw["jobCount"] = "three" },
			contain: "jobCount",
		},
		{
			name:    "number instead of bool",
			mutate:  func(raw map[string]any) { raw["usesBullets"] = 1.0 },
			contain: "usesBullets",
		},
		{
			name:    "negative count",
			mutate:  func(raw map[string]any) { raw["errorOrtograficoCount"] = -2.0 },
			contain: "errorOrtograficoCount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := completeRaw()
			tt.mutate(raw)

			_, err := Decode(raw)
			if !errors.Is(err, ErrMalformedMetrics) {
				t.Fatalf("expected ErrMalformedMetrics, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Fatalf("expected error to mention %q, got %q", tt.contain, err.Error())
			}
		})
	}
}

func TestDecodeNil(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrMalformedMetrics) {
		t.Fatalf("expected ErrMalformedMetrics, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"pageCount": 1`)); !errors.Is(err, ErrMalformedMetrics) {
		t.Fatalf("expected ErrMalformedMetrics for broken json, got %v", err)
	}

	data := []byte(`{"pageCount":1,"hasSections":false,"usesBullets":false,"yearsExperience":0,"jobCount":0,
"skillsCount":0,"hasLogrosCuantificables":0,"hasEducacionUniversitaria":false,"hasEducacionTerciaria":false,
"hasCertificaciones":0,"hasDatosContacto":false,"hasResumen":false,"hasFechas":false,"errorOrtograficoCount":0,
"wordCount":0,"usesProfessionalLanguage":false,"isAtsFriendly":false,"industryKeywordsCount":0,"extra":"ignored"}`)
	m, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PageCount != 1 {
		t.Fatalf("unexpected page count: %v", m.PageCount)
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	m := RawMetrics{YearsExperience: math.Inf(1)}
	err := m.Validate()
	if !errors.Is(err, ErrMalformedMetrics) {
		t.Fatalf("expected ErrMalformedMetrics, got %v", err)
	}
	if !strings.Contains(err.Error(), "yearsExperience") {
		t.Fatalf("expected field name in error, got %q", err.Error())
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 18 {
		t.Fatalf("expected 18 metric keys, got %d", len(keys))
	}
	if keys[0] != "pageCount" || keys[len(keys)-1] != "industryKeywordsCount" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}
