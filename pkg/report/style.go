package report

import (
	"hash/fnv"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/vg/draw"
)

// Style is the colour and marker used for one table variant in every chart.
type Style struct {
	Color colorful.Color
	Shape draw.GlyphDrawer
}

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.SquareGlyph{},
	draw.TriangleGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
	draw.RingGlyph{},
	draw.BoxGlyph{},
	draw.PyramidGlyph{},
}

// StyleFor derives a stable style from a variant identifier, so a table keeps
// its colour across charts and runs regardless of which other tables are swept.
func StyleFor(id string) Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum32()

	hue := float64(sum % 360)
	c := colorful.Hcl(hue, 0.7, 0.55).Clamped()
	return Style{
		Color: c,
		Shape: glyphs[(sum/360)%uint32(len(glyphs))],
	}
}

// RGBA returns the style colour as a standard library colour.
func (s Style) RGBA() color.RGBA {
	r, g, b := s.Color.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
