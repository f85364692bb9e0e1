package scoring

import (
	"fmt"
	"math"
	"strconv"
)

const (
	minScore = 0
	maxScore = 100
)

// chain accumulates the adjustments of one category. Points are kept as
// float64 until finish so fractional rules are rounded exactly once.
type chain struct {
	label   string
	total   float64
	details []string
}

func newChain(label string, base float64) *chain {
	return &chain{
		label:   label,
		total:   base,
		details: []string{fmt.Sprintf("Base: %s pts", formatPoints(base))},
	}
}

// add applies points and records "<reason>: <signed points>". Zero-valued
// adjustments change nothing and leave no line.
func (c *chain) add(points float64, reason string) {
	if points == 0 {
		return
	}
	c.total += points
	c.details = append(c.details, fmt.Sprintf("%s: %s", reason, signed(points)))
}

// addLine applies points with a fully formatted detail line.
func (c *chain) addLine(points float64, line string) {
	if points == 0 {
		return
	}
	c.total += points
	c.details = append(c.details, line)
}

func (c *chain) finish() (int, CategoryBreakdown) {
	score := clamp(c.total)
	return score, CategoryBreakdown{
		Label:   c.label,
		Points:  score,
		Details: c.details,
	}
}

// clamp bounds v to [0,100] and rounds half up. It never fails; NaN maps to 0.
func clamp(v float64) int {
	if math.IsNaN(v) {
		return minScore
	}
	v = math.Max(minScore, math.Min(maxScore, v))
	return roundHalfUp(v)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func signed(v float64) string {
	if v > 0 {
		return "+" + formatPoints(v)
	}
	return formatPoints(v)
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatCount prints an extracted count with at most six significant digits.
func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
