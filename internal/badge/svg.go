package badge

import (
	"fmt"
	"strings"
)

// Style controls the badge corner rendering.
type Style string

const (
	StyleFlat       Style = "flat"
	StyleFlatSquare Style = "flat-square"
)

// ParseStyle parses a style string, defaulting to flat.
func ParseStyle(s string) Style {
	if s == "flat-square" {
		return StyleFlatSquare
	}
	return StyleFlat
}

const (
	badgeHeight    = 20
	labelCharWidth = 6.5
	gradeCharWidth = 7.5
	textPadding    = 10
	fallbackHex    = "#9f9f9f"
)

// colorHex maps shields color names to the hex values baked into the SVG.
var colorHex = map[string]string{
	"brightgreen": "#4c1",
	"green":       "#97ca00",
	"yellowgreen": "#a4a61d",
	"yellow":      "#dfb317",
	"orange":      "#fe7d37",
	"red":         "#e05d44",
}

// geometry holds the computed widths for the two badge halves.
type geometry struct {
	labelW float64
	gradeW float64
	totalW float64
	radius int
}

func geometryFor(label, grade string, style Style) geometry {
	g := geometry{
		labelW: float64(len(label))*labelCharWidth + textPadding,
		gradeW: float64(len(grade))*gradeCharWidth + textPadding,
		radius: 3,
	}
	g.totalW = g.labelW + g.gradeW
	if style == StyleFlatSquare {
		g.radius = 0
	}
	return g
}

// RenderSVG generates a self-contained SVG badge string. The left half shows
// the label on the standard dark background, the right half the grade on its
// severity color.
func RenderSVG(label, grade, color string, style Style) string {
	if label == "" {
		label = DefaultLabel
	}
	hex, ok := colorHex[color]
	if !ok {
		hex = fallbackHex
	}
	g := geometryFor(label, grade, style)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%d">`+"\n", g.totalW, badgeHeight)
	fmt.Fprintf(&b, `  <linearGradient id="b" x2="0" y2="100%%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
`)
	fmt.Fprintf(&b, `  <clipPath id="a">
    <rect width="%.0f" height="%d" rx="%d" fill="#fff"/>
  </clipPath>
`, g.totalW, badgeHeight, g.radius)
	fmt.Fprintf(&b, `  <g clip-path="url(#a)">
    <path fill="#555" d="M0 0h%.0fv%dH0z"/>
    <path fill="%s" d="M%.0f 0h%.0fv%dH%.0fz"/>
    <path fill="url(#b)" d="M0 0h%.0fv%dH0z"/>
  </g>
`, g.labelW, badgeHeight, hex, g.labelW, g.gradeW, badgeHeight, g.labelW, g.totalW, badgeHeight)
	b.WriteString(`  <g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">` + "\n")
	writeText(&b, g.labelW/2, label)
	writeText(&b, g.labelW+g.gradeW/2, grade)
	b.WriteString("  </g>\n</svg>")
	return b.String()
}

// writeText emits a badge text element with its shadow line.
func writeText(b *strings.Builder, x float64, text string) {
	fmt.Fprintf(b, `    <text x="%.1f" y="15" fill="#010101" fill-opacity=".3">%s</text>`+"\n", x, text)
	fmt.Fprintf(b, `    <text x="%.1f" y="14">%s</text>`+"\n", x, text)
}
