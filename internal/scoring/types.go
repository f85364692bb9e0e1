// Package scoring implements the deterministic CV scoring engine. It turns a
// RawMetrics record into six category scores and an auditable breakdown of
// every rule that added or removed points.
package scoring

// Category identifies one of the six fixed scoring dimensions.
type Category string

const (
	CategoryFormat    Category = "format"
	CategoryContent   Category = "content"
	CategoryKeywords  Category = "keywords"
	CategoryStructure Category = "structure"
	CategoryEducation Category = "education"
	CategoryRedaccion Category = "redaccion"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryFormat,
	CategoryContent,
	CategoryKeywords,
	CategoryStructure,
	CategoryEducation,
	CategoryRedaccion,
}

// Scores holds the clamped 0-100 score of each category.
type Scores struct {
	Format    int `json:"format"`
	Content   int `json:"content"`
	Keywords  int `json:"keywords"`
	Structure int `json:"structure"`
	Education int `json:"education"`
	Redaccion int `json:"redaccion"`
}

// Get returns the score of a single category, or 0 for an unknown one.
func (s Scores) Get(c Category) int {
	switch c {
	case CategoryFormat:
		return s.Format
	case CategoryContent:
		return s.Content
	case CategoryKeywords:
		return s.Keywords
	case CategoryStructure:
		return s.Structure
	case CategoryEducation:
		return s.Education
	case CategoryRedaccion:
		return s.Redaccion
	default:
		return 0
	}
}

// CategoryBreakdown is the audit trail of one category: the rules that fired,
// in evaluation order, and the resulting points.
type CategoryBreakdown struct {
	Label   string   `json:"label"`
	Points  int      `json:"points"`
	Details []string `json:"details"`
}

// Breakdown has one audit trail per category.
type Breakdown struct {
	Format    CategoryBreakdown `json:"format"`
	Content   CategoryBreakdown `json:"content"`
	Keywords  CategoryBreakdown `json:"keywords"`
	Structure CategoryBreakdown `json:"structure"`
	Education CategoryBreakdown `json:"education"`
	Redaccion CategoryBreakdown `json:"redaccion"`
}

// Get returns the breakdown of a single category.
func (b Breakdown) Get(c Category) CategoryBreakdown {
	switch c {
	case CategoryFormat:
		return b.Format
	case CategoryContent:
		return b.Content
	case CategoryKeywords:
		return b.Keywords
	case CategoryStructure:
		return b.Structure
	case CategoryEducation:
		return b.Education
	case CategoryRedaccion:
		return b.Redaccion
	default:
		return CategoryBreakdown{}
	}
}

// Result is the complete, immutable output of scoring one metrics record.
type Result struct {
	Overall    int       `json:"score"`
	Categories Scores    `json:"categories"`
	Breakdown  Breakdown `json:"breakdown"`
}
