// Package progress renders elapsed-time progress bars.
package progress

import (
	"math"
	"strings"
)

// Style names a filled/empty glyph pair
type Style string

const (
	StyleClean   Style = "clean"
	StyleBracket Style = "bracket"
	StyleEmoji   Style = "emoji"
	StyleSmooth  Style = "smooth"
	StyleMinimal Style = "minimal"
)

type glyphs struct {
	filled string
	empty  string
}

var styles = map[Style]glyphs{
	StyleClean:   {filled: "█", empty: "░"},
	StyleBracket: {filled: "■", empty: "□"},
	StyleEmoji:   {filled: "🟩", empty: "⬜"},
	StyleSmooth:  {filled: "▓", empty: "░"},
	StyleMinimal: {filled: "▰", empty: "▱"},
}

// ParseStyle returns the style with the given name, falling back to StyleClean
func ParseStyle(name string) Style {
	s := Style(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := styles[s]; !ok {
		return StyleClean
	}
	return s
}

// Styles lists every recognized style
func Styles() []Style {
	return []Style{StyleClean, StyleBracket, StyleEmoji, StyleSmooth, StyleMinimal}
}

// Fraction returns elapsed/total clamped to [0, 1].
// A non-positive total counts as a completed span.
func Fraction(elapsed, total float64) float64 {
	if total <= 0 || math.IsNaN(elapsed) {
		return 1
	}
	return math.Max(0, math.Min(elapsed/total, 1))
}

// Render returns a bar of width cells in the given style and the completed percentage.
// Unknown styles render with StyleClean glyphs.
func Render(elapsed, total float64, width int, style Style) (string, float64) {
	g, ok := styles[style]
	if !ok {
		g = styles[StyleClean]
	}

	fraction := Fraction(elapsed, total)
	if width < 0 {
		width = 0
	}

	filled := int(math.Floor(float64(width) * fraction))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var b strings.Builder
	b.Grow(width * len(g.filled))
	b.WriteString(strings.Repeat(g.filled, filled))
	b.WriteString(strings.Repeat(g.empty, width-filled))

	return b.String(), fraction * 100
}
