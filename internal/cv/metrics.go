// Package cv holds the fixed-schema metrics extracted from a CV document.
package cv

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedMetrics reports metrics with a missing field or a value outside
// of its declared type or range.
var ErrMalformedMetrics = errors.New("malformed metrics")

// RawMetrics is the objectively extractable set of CV facts. It is produced
// once by an extractor and never mutated afterwards.
type RawMetrics struct {
	PageCount                float64 `json:"pageCount" mapstructure:"pageCount" validate:"gte=0"`
	HasSections              bool    `json:"hasSections" mapstructure:"hasSections"`
	UsesBullets              bool    `json:"usesBullets" mapstructure:"usesBullets"`
	YearsExperience          float64 `json:"yearsExperience" mapstructure:"yearsExperience" validate:"gte=0"`
	JobCount                 float64 `json:"jobCount" mapstructure:"jobCount" validate:"gte=0"`
	SkillsCount              float64 `json:"skillsCount" mapstructure:"skillsCount" validate:"gte=0"`
	QuantifiableAchievements float64 `json:"hasLogrosCuantificables" mapstructure:"hasLogrosCuantificables" validate:"gte=0"`
	HasUniversityDegree      bool    `json:"hasEducacionUniversitaria" mapstructure:"hasEducacionUniversitaria"`
	HasTertiaryDegree        bool    `json:"hasEducacionTerciaria" mapstructure:"hasEducacionTerciaria"`
	Certifications           float64 `json:"hasCertificaciones" mapstructure:"hasCertificaciones" validate:"gte=0"`
	HasContactData           bool    `json:"hasDatosContacto" mapstructure:"hasDatosContacto"`
	HasSummary               bool    `json:"hasResumen" mapstructure:"hasResumen"`
	HasDates                 bool    `json:"hasFechas" mapstructure:"hasFechas"`
	SpellingErrors           float64 `json:"errorOrtograficoCount" mapstructure:"errorOrtograficoCount" validate:"gte=0"`
	WordCount                float64 `json:"wordCount" mapstructure:"wordCount" validate:"gte=0"`
	UsesProfessionalLanguage bool    `json:"usesProfessionalLanguage" mapstructure:"usesProfessionalLanguage"`
	IsATSFriendly            bool    `json:"isAtsFriendly" mapstructure:"isAtsFriendly"`
	IndustryKeywords         float64 `json:"industryKeywordsCount" mapstructure:"industryKeywordsCount" validate:"gte=0"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func metricsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		})
	})
	return validate
}

// Validate checks that every numeric field is finite and non-negative.
func (m RawMetrics) Validate() error {
	var problems []string

	v := reflect.ValueOf(m)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Type.Kind() != reflect.Float64 {
			continue
		}
		f := v.Field(i).Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			problems = append(problems, fmt.Sprintf("%s must be a finite number", fieldKey(t.Field(i))))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedMetrics, strings.Join(problems, "; "))
	}

	if err := metricsValidator().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrMalformedMetrics, strings.Join(problems, "; "))
		}
		return fmt.Errorf("%w: %v", ErrMalformedMetrics, err)
	}

	return nil
}

// Keys returns the extractor key of every RawMetrics field in declaration order.
func Keys() []string {
	t := reflect.TypeOf(RawMetrics{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, fieldKey(t.Field(i)))
	}
	return keys
}

func fieldKey(f reflect.StructField) string {
	return f.Tag.Get("mapstructure")
}
