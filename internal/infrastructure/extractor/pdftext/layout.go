package pdftext

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	defaultBandTolerance = 2.0
	defaultCharWidth     = 5.0
	maxGapSpaces         = 12
)

// Glyph is one positioned run of text on a page. Y grows upwards.
type Glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

// LayoutExtractor rebuilds visual lines from glyph positions so that
// columnar invoices keep labels and amounts on the same line.
type LayoutExtractor struct {
	bandTolerance float64
}

func NewLayoutExtractor(bandTolerance float64) *LayoutExtractor {
	if bandTolerance <= 0 {
		bandTolerance = defaultBandTolerance
	}
	return &LayoutExtractor{bandTolerance: bandTolerance}
}

func (e *LayoutExtractor) ExtractLayout(ctx context.Context, raw []byte) (string, error) {
	var pages []string
	err := eachPage(ctx, raw, func(_ int, page pdf.Page) error {
		content := page.Content()
		glyphs := make([]Glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		if text := strings.TrimSpace(LayoutLines(glyphs, e.bandTolerance)); text != "" {
			pages = append(pages, text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\f\n"), nil
}

type band struct {
	key    float64
	glyphs []Glyph
}

// LayoutLines groups glyphs into lines by rounding Y to the tolerance band,
// orders lines top to bottom and glyphs left to right, and pads horizontal
// gaps with spaces in proportion to their width.
func LayoutLines(glyphs []Glyph, tolerance float64) string {
	if tolerance <= 0 {
		tolerance = defaultBandTolerance
	}

	byKey := make(map[float64]*band)
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		key := math.Round(g.Y/tolerance) * tolerance
		b, ok := byKey[key]
		if !ok {
			b = &band{key: key}
			byKey[key] = b
		}
		b.glyphs = append(b.glyphs, g)
	}

	bands := make([]*band, 0, len(byKey))
	for _, b := range byKey {
		bands = append(bands, b)
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].key > bands[j].key })

	lines := make([]string, 0, len(bands))
	for _, b := range bands {
		if line := strings.TrimRight(renderBand(b.glyphs), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderBand(glyphs []Glyph) string {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var sb strings.Builder
	end := math.Inf(-1)
	for _, g := range glyphs {
		if sb.Len() > 0 {
			sb.WriteString(strings.Repeat(" ", gapSpaces(g.X-end, charWidth(g))))
		}
		sb.WriteString(g.S)
		end = math.Max(end, g.X+g.W)
	}
	return sb.String()
}

func charWidth(g Glyph) float64 {
	if n := len([]rune(g.S)); n > 0 && g.W > 0 {
		return g.W / float64(n)
	}
	if g.FontSize > 0 {
		return g.FontSize / 2
	}
	return defaultCharWidth
}

// gapSpaces converts a horizontal gap into a space count. Runs closer than
// a third of a character are glued, wider gaps get at least one space.
func gapSpaces(gap, width float64) int {
	if width <= 0 {
		width = defaultCharWidth
	}
	if gap < width/3 {
		return 0
	}
	n := int(math.Round(gap / width))
	if n < 1 {
		n = 1
	}
	if n > maxGapSpaces {
		n = maxGapSpaces
	}
	return n
}
