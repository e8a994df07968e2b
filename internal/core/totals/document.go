package totals

import (
	"strings"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/money"
)

const maxLabelLineLen = 48

type line struct {
	domain.NormalizedLine
	amounts []money.Amount
	class   LineClass
}

// document is the per-call scan state: normalized lines with their money
// tokens parsed once.
type document struct {
	raw   string
	lines []line
}

func newDocument(text string) *document {
	repaired := money.RepairSplitNumbers(text)
	normalized := money.SplitLines(repaired)
	doc := &document{raw: repaired, lines: make([]line, 0, len(normalized))}
	for _, nl := range normalized {
		doc.lines = append(doc.lines, line{
			NormalizedLine: nl,
			amounts:        money.FindAmounts(nl.Text),
			class:          ClassifyLine(nl.Text),
		})
	}
	// A value printed under a rejected label belongs to that label.
	for i := 1; i < len(doc.lines); i++ {
		prev := doc.lines[i-1]
		if prev.class != LineRejected || !prev.labelOnly() || doc.lines[i].class == LineWhitelisted {
			continue
		}
		if _, ok := doc.lines[i].bareValue(); ok {
			doc.lines[i].class = LineRejected
		}
	}
	return doc
}

func (d *document) at(i int) (line, bool) {
	if i < 0 || i >= len(d.lines) {
		return line{}, false
	}
	return d.lines[i], true
}

func (l line) labelOnly() bool {
	return len(l.amounts) == 0 && len(l.Text) <= maxLabelLineLen
}

// bareValue reports whether the line holds a single amount and nothing else.
func (l line) bareValue() (domain.Cents, bool) {
	if len(l.amounts) != 1 {
		return 0, false
	}
	return money.BareAmount(l.Text)
}

// valueAfter returns the last amount printed after byte offset pos.
func (l line) valueAfter(pos int) (domain.Cents, bool) {
	for i := len(l.amounts) - 1; i >= 0; i-- {
		if l.amounts[i].Start >= pos {
			return l.amounts[i].Cents, true
		}
	}
	return 0, false
}

// inlineValues reports whether the line consists of amounts only.
func (l line) inlineValues() ([]domain.Cents, bool) {
	if len(l.amounts) == 0 {
		return nil, false
	}
	rest := l.Text
	values := make([]domain.Cents, 0, len(l.amounts))
	for i := len(l.amounts) - 1; i >= 0; i-- {
		a := l.amounts[i]
		rest = rest[:a.Start] + rest[a.End:]
		values = append(values, a.Cents)
	}
	if strings.Trim(rest, " $-") != "" {
		return nil, false
	}
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	return values, true
}

func (l line) isSubtotalLabel() bool {
	return l.labelOnly() && subtotalRuleFor(l.Text) != nil
}

func (l line) isTaxLabel() bool {
	return l.labelOnly() && taxRuleFor(l.Text) != nil
}

func (l line) isTotalLabel() bool {
	return l.labelOnly() && totalRuleFor(l.Text) != nil
}

func evidenceOf(ruleLabel string, priority int, lines ...line) *domain.Evidence {
	ev := &domain.Evidence{Rule: ruleLabel, Priority: priority, Lines: make([]string, 0, len(lines))}
	for _, l := range lines {
		ev.Lines = append(ev.Lines, l.Text)
	}
	if len(lines) > 0 {
		ev.LineIndex = lines[0].Index
	}
	return ev
}
