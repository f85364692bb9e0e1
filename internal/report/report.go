// Package report renders analyses for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/history"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
)

// Scores writes the overall score and one line per category.
func Scores(w io.Writer, res scoring.Result) error {
	if _, err := fmt.Fprintf(w, "Puntaje general: %d/100\n\n", res.Overall); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range scoring.Categories {
		b := res.Breakdown.Get(c)
		fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Label, res.Categories.Get(c), bar(res.Categories.Get(c)))
	}
	return tw.Flush()
}

// Breakdown writes every rule that contributed to each category.
func Breakdown(w io.Writer, res scoring.Result) error {
	for _, c := range scoring.Categories {
		b := res.Breakdown.Get(c)
		if _, err := fmt.Fprintf(w, "%s (%s): %d pts\n", b.Label, c, b.Points); err != nil {
			return err
		}
		for _, d := range b.Details {
			if _, err := fmt.Fprintf(w, "  - %s\n", d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Feedback writes the narrative part of an analysis.
func Feedback(w io.Writer, f ai.Feedback) error {
	var sb strings.Builder

	if f.Summary != "" {
		fmt.Fprintf(&sb, "Resumen\n  %s\n", f.Summary)
	}
	if f.CareerPathNote != "" {
		fmt.Fprintf(&sb, "\nTrayectoria\n  %s\n", f.CareerPathNote)
	}
	list(&sb, "Fortalezas", f.Strengths)
	list(&sb, "Debilidades", f.Weaknesses)

	if len(f.Recommendations) > 0 {
		sb.WriteString("\nRecomendaciones\n")
		for i, r := range f.Recommendations {
			fmt.Fprintf(&sb, "  %d. [%s] %s\n", i+1, r.Section, r.Issue)
			fmt.Fprintf(&sb, "     %s\n", r.Suggestion)
			if r.Example != "" {
				fmt.Fprintf(&sb, "     Ejemplo: %s\n", r.Example)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// History writes one line per entry with its score and trend markers.
func History(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := io.WriteString(w, "Sin análisis registrados.\n")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FECHA\tARCHIVO\tPUNTAJE\tTENDENCIA\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04"),
			e.FileName,
			e.Result.Overall,
			trendMarker(e.Trends[history.OverallKey]),
			e.ID,
		)
	}
	return tw.Flush()
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func list(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "  - %s\n", item)
	}
}

func bar(score int) string {
	n := score / 10
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("#", n) + strings.Repeat(".", 10-n)
}

func trendMarker(t history.Trend) string {
	switch t {
	case history.TrendUp:
		return "↑"
	case history.TrendDown:
		return "↓"
	case history.TrendStable:
		return "="
	default:
		return "-"
	}
}
