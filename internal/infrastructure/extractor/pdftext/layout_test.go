package pdftext

import (
	"context"
	"testing"
)

func TestLayoutLinesOrdersBandsAndColumns(t *testing.T) {
	glyphs := []Glyph{
		{X: 400, Y: 100.4, W: 30, S: "107.00"},
		{X: 10, Y: 99.8, W: 50, S: "TOTAL"},
		{X: 10, Y: 700, W: 40, S: "INVOICE"},
		{X: 400, Y: 120, W: 30, S: "7.00"},
		{X: 10, Y: 120.6, W: 15, S: "TAX"},
	}

	got := LayoutLines(glyphs, 2)
	want := "INVOICE\nTAX" + spaces(12) + "7.00\nTOTAL" + spaces(12) + "107.00"
	if got != want {
		t.Fatalf("LayoutLines() = %q, want %q", got, want)
	}
}

func TestLayoutLinesGluesAdjacentRuns(t *testing.T) {
	glyphs := []Glyph{
		{X: 10, Y: 50, W: 5, S: "1"},
		{X: 15, Y: 50, W: 5, S: "2"},
		{X: 20, Y: 50, W: 5, S: "."},
		{X: 25, Y: 50, W: 10, S: "00"},
	}
	if got := LayoutLines(glyphs, 2); got != "12.00" {
		t.Fatalf("LayoutLines() = %q, want %q", got, "12.00")
	}
}

func TestLayoutLinesProportionalSpacing(t *testing.T) {
	glyphs := []Glyph{
		{X: 0, Y: 10, W: 20, S: "AB"},
		{X: 40, Y: 10, W: 20, S: "CD"},
	}
	if got := LayoutLines(glyphs, 2); got != "AB  CD" {
		t.Fatalf("LayoutLines() = %q", got)
	}
}

func TestGapSpaces(t *testing.T) {
	cases := []struct {
		gap, width float64
		want       int
	}{
		{gap: 0, width: 5, want: 0},
		{gap: 1, width: 5, want: 0},
		{gap: 2, width: 5, want: 1},
		{gap: 15, width: 5, want: 3},
		{gap: 1000, width: 5, want: maxGapSpaces},
		{gap: 10, width: 0, want: 2},
	}
	for _, tc := range cases {
		if got := gapSpaces(tc.gap, tc.width); got != tc.want {
			t.Fatalf("gapSpaces(%v, %v) = %d, want %d", tc.gap, tc.width, got, tc.want)
		}
	}
}

func TestExtractorsRejectMalformedPDF(t *testing.T) {
	raw := []byte("%PDF-1.4 not really a pdf")
	if _, err := NewDirectExtractor().ExtractDirect(context.Background(), raw); err == nil {
		t.Fatalf("ExtractDirect() expected error")
	}
	if _, err := NewLayoutExtractor(0).ExtractLayout(context.Background(), raw); err == nil {
		t.Fatalf("ExtractLayout() expected error")
	}
	if _, err := PageCount(context.Background(), raw); err == nil {
		t.Fatalf("PageCount() expected error")
	}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
