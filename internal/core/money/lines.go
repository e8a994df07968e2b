package money

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

var dashReplacer = strings.NewReplacer(
	"‐", "-",
	"‑", "-",
	"‒", "-",
	"–", "-",
	"—", "-",
	"−", "-",
)

// NormalizeLine folds compatibility characters, unifies dashes and collapses
// runs of whitespace.
func NormalizeLine(line string) string {
	if line == "" {
		return ""
	}
	line = norm.NFKC.String(line)
	line = dashReplacer.Replace(line)
	return strings.Join(strings.Fields(line), " ")
}

// SplitLines produces the normalized, non-empty lines of text. Index keeps
// the 1-based position of the line in the original text.
func SplitLines(text string) []domain.NormalizedLine {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]domain.NormalizedLine, 0, len(raw))
	for i, line := range raw {
		normalized := NormalizeLine(line)
		if normalized == "" {
			continue
		}
		lines = append(lines, domain.NormalizedLine{Text: normalized, Index: i + 1})
	}
	return lines
}
