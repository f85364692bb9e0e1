package scoring

import (
	"fmt"
	"math"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cv"
)

// Score computes the six category scores, their breakdown and the overall
// score. It has no side effects and is safe for concurrent use; the same
// metrics always produce the same Result.
func Score(m cv.RawMetrics) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var (
		res Result
		s   = &res.Categories
		b   = &res.Breakdown
	)

	s.Format, b.Format = scoreFormat(m)
	s.Content, b.Content = scoreContent(m)
	s.Keywords, b.Keywords = scoreKeywords(m)
	s.Structure, b.Structure = scoreStructure(m)
	s.Education, b.Education = scoreEducation(m)
	s.Redaccion, b.Redaccion = scoreRedaccion(m)

	res.Overall = overall(res.Categories)

	return &res, nil
}

func overall(s Scores) int {
	sum := 0
	for _, c := range Categories {
		sum += s.Get(c)
	}
	return roundHalfUp(float64(sum) / float64(len(Categories)))
}

func scoreFormat(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Formato y Estructura", 60)
	if m.UsesBullets {
		c.add(10, "Uso de viñetas")
	}
	switch {
	case m.PageCount >= 1 && m.PageCount <= 2:
		c.add(15, "Extensión ideal (1-2 pág)")
	case m.PageCount > 2:
		c.add(-10, "Exceso de páginas")
	}
	if m.HasSections {
		c.add(15, "Secciones claras")
	}
	return c.finish()
}

func scoreContent(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Contenido y Experiencia", 50)
	c.add(math.Min(30, m.YearsExperience*3), fmt.Sprintf("Años de experiencia (%s)", formatCount(m.YearsExperience)))
	c.add(math.Min(15, m.JobCount*5), "Trayectoria laboral")
	c.add(math.Min(20, m.QuantifiableAchievements*5), "Logros cuantificables")
	if m.UsesProfessionalLanguage {
		c.add(10, "Lenguaje profesional")
	}
	return c.finish()
}

func scoreKeywords(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Habilidades Técnicas", 60)
	switch {
	case m.SkillsCount >= 11:
		c.add(25, "Amplio set de habilidades (11+)")
	case m.SkillsCount >= 6:
		c.add(20, "Buen set de habilidades (6-10)")
	case m.SkillsCount >= 3:
		c.add(10, "Habilidades básicas (3-5)")
	}
	c.add(math.Min(15, m.IndustryKeywords*2), "Palabras clave del sector")
	return c.finish()
}

func scoreEducation(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Educación", 70)
	switch {
	case m.HasUniversityDegree:
		c.add(15, "Título universitario")
	case m.HasTertiaryDegree:
		c.add(10, "Título terciario")
	}
	c.add(math.Min(15, m.Certifications*3), "Certificaciones extra")
	return c.finish()
}

func scoreStructure(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Optimización ATS", 65)
	if m.IsATSFriendly {
		c.add(15, "Formato simple (ATS Friendly)")
	}
	c.add(math.Min(15, (m.IndustryKeywords/5)*2), "Optimización de keywords")
	if m.HasDates && m.HasContactData {
		c.add(5, "Datos críticos presentes")
	}
	return c.finish()
}

func scoreRedaccion(m cv.RawMetrics) (int, CategoryBreakdown) {
	c := newChain("Redacción y Claridad", 80)
	penalty := m.SpellingErrors * 3
	c.addLine(-penalty, fmt.Sprintf("Penalización por ortografía (-%s)", formatPoints(penalty)))
	if m.WordCount >= 400 && m.WordCount <= 800 {
		c.add(10, "Extensión de texto ideal")
	}
	if m.UsesProfessionalLanguage {
		c.add(10, "Tono profesional")
	}
	return c.finish()
}
