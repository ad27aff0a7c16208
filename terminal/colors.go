package terminal

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	selectColor = colorful.Color{R: 1, G: 0.8, B: 0}
	hoverColor  = colorful.Color{R: 1, G: 1, B: 1}
	baseFill    = colorful.Color{R: 0.15, G: 0.17, B: 0.22}
)

// parseFill reads a node fill. Accepts #rgb and #rrggbb; anything else
// (named colors, rgba()) falls back to the base fill.
func parseFill(fill string) colorful.Color {
	fill = strings.TrimSpace(fill)
	if len(fill) == 4 && fill[0] == '#' {
		fill = "#" + strings.Repeat(fill[1:2], 2) + strings.Repeat(fill[2:3], 2) + strings.Repeat(fill[3:4], 2)
	}
	c, err := colorful.Hex(fill)
	if err != nil {
		return baseFill
	}
	return c
}

// nodeBackground is the cell background of a node in the given highlight.
func nodeBackground(fill string, selected, hovered bool) colorful.Color {
	c := parseFill(fill)
	switch {
	case selected:
		return c.BlendLab(selectColor, 0.5).Clamped()
	case hovered:
		return c.BlendLab(hoverColor, 0.25).Clamped()
	}
	return c
}

// foregroundFor picks black or white text, whichever reads better on bg.
func foregroundFor(bg colorful.Color) colorful.Color {
	l, _, _ := bg.Lab()
	if l > 0.6 {
		return colorful.Color{}
	}
	return colorful.Color{R: 1, G: 1, B: 1}
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
