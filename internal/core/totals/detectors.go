package totals

import (
	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const maxHeaderLen = 60

const (
	FormatStacked3x3        = "stacked_3x3"
	FormatStacked2x2        = "stacked_2x2"
	FormatHeaderStacked     = "header_3_stacked_values"
	FormatHeaderInline      = "header_3_inline_values"
	FormatAlternating3      = "alternating_3"
	FormatAlternating2      = "alternating_2"
	FormatLabelNextValue    = "label_next_value"
	FormatSplitInvoiceTotal = "split_invoice_total"
	FormatNuclearFallback   = "nuclear_fallback"
	FormatLastResort        = "last_resort"
)

type detector struct {
	name   string
	detect func(d *document, i int) (domain.Totals, bool)
}

// stackedDetectors run most specific first; each is tried over every window
// before the next one is attempted.
var stackedDetectors = []detector{
	{name: FormatStacked3x3, detect: detectStacked3x3},
	{name: FormatStacked2x2, detect: detectStacked2x2},
	{name: FormatHeaderStacked, detect: detectHeaderStacked},
	{name: FormatHeaderInline, detect: detectHeaderInline},
	{name: FormatAlternating3, detect: detectAlternating3},
	{name: FormatAlternating2, detect: detectAlternating2},
	{name: FormatLabelNextValue, detect: detectLabelNextValue},
}

func detectStacked(d *document) (domain.Totals, bool) {
	for _, det := range stackedDetectors {
		for i := range d.lines {
			if totals, ok := det.detect(d, i); ok {
				return totals, true
			}
		}
	}
	return domain.Totals{}, false
}

func window(d *document, i, n int) ([]line, bool) {
	if i < 0 || i+n > len(d.lines) {
		return nil, false
	}
	return d.lines[i : i+n], true
}

func bareValues(lines []line) ([]domain.Cents, bool) {
	out := make([]domain.Cents, 0, len(lines))
	for _, l := range lines {
		v, ok := l.bareValue()
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// SUBTOTAL / TAX / TOTAL followed by three value lines.
func detectStacked3x3(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 6)
	if !ok || !w[0].isSubtotalLabel() || !w[1].isTaxLabel() || !w[2].isTotalLabel() {
		return domain.Totals{}, false
	}
	values, ok := bareValues(w[3:6])
	if !ok {
		return domain.Totals{}, false
	}
	return threeFieldTotals(FormatStacked3x3, values, w, w[0], w[1], w[2]), true
}

// TAX / TOTAL followed by two value lines.
func detectStacked2x2(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 4)
	if !ok || !w[0].isTaxLabel() || !w[1].isTotalLabel() {
		return domain.Totals{}, false
	}
	values, ok := bareValues(w[2:4])
	if !ok {
		return domain.Totals{}, false
	}
	ev := evidenceOf(FormatStacked2x2, 0, w...)
	ev.LineIndex = w[1].Index
	taxEv := evidenceOf(FormatStacked2x2, 0, w[0], w[2])
	return domain.Totals{
		TaxCents:   values[0],
		TotalCents: values[1],
		Evidence:   domain.TotalsEvidence{Total: ev, Tax: taxEv},
	}, true
}

// One header naming subtotal, tax and total, then three value lines.
func detectHeaderStacked(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 4)
	if !ok || !isCombinedHeader(w[0]) {
		return domain.Totals{}, false
	}
	values, ok := bareValues(w[1:4])
	if !ok {
		return domain.Totals{}, false
	}
	return threeFieldTotals(FormatHeaderStacked, values, w, w[0], w[0], w[0]), true
}

// The combined header with all three values on the following line. Vendor
// category headers and line-item rows produce the same shape, so long
// headers, category markers and item-shaped follow-up lines are refused.
func detectHeaderInline(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 2)
	if !ok || !isCombinedHeader(w[0]) {
		return domain.Totals{}, false
	}
	header, next := w[0], w[1]
	if len(header.Text) > maxHeaderLen || reCategoryMarker.MatchString(header.Text) || reLineItemShape.MatchString(next.Text) {
		return domain.Totals{}, false
	}
	values, ok := next.inlineValues()
	if !ok || len(values) != 3 {
		return domain.Totals{}, false
	}
	return threeFieldTotals(FormatHeaderInline, values, w, header, header, header), true
}

// SUBTOTAL / v / TAX / v / TOTAL / v.
func detectAlternating3(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 6)
	if !ok || !w[0].isSubtotalLabel() || !w[2].isTaxLabel() || !w[4].isTotalLabel() {
		return domain.Totals{}, false
	}
	values, ok := bareValues([]line{w[1], w[3], w[5]})
	if !ok {
		return domain.Totals{}, false
	}
	return threeFieldTotals(FormatAlternating3, values, w, w[0], w[2], w[4]), true
}

// (SUBTOTAL | TAX) / v / TOTAL / v.
func detectAlternating2(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 4)
	if !ok || !w[2].isTotalLabel() {
		return domain.Totals{}, false
	}
	first := w[0]
	isSub, isTax := first.isSubtotalLabel(), first.isTaxLabel()
	if !isSub && !isTax {
		return domain.Totals{}, false
	}
	values, ok := bareValues([]line{w[1], w[3]})
	if !ok {
		return domain.Totals{}, false
	}

	ev := evidenceOf(FormatAlternating2, 0, w...)
	ev.LineIndex = w[2].Index
	out := domain.Totals{TotalCents: values[1], Evidence: domain.TotalsEvidence{Total: ev}}
	fieldEv := evidenceOf(FormatAlternating2, 0, w[0], w[1])
	if isSub {
		out.SubtotalCents = values[0]
		out.Evidence.Subtotal = fieldEv
	} else {
		out.TaxCents = values[0]
		out.Evidence.Tax = fieldEv
	}
	return out, true
}

// TOTAL / v. When the two lines above are themselves subtotal or tax labels
// the value below belongs to the first of them, not to the total.
func detectLabelNextValue(d *document, i int) (domain.Totals, bool) {
	w, ok := window(d, i, 2)
	if !ok || !w[0].isTotalLabel() {
		return domain.Totals{}, false
	}
	if precededByStackedLabels(d, i) {
		return domain.Totals{}, false
	}
	value, ok := w[1].bareValue()
	if !ok {
		return domain.Totals{}, false
	}
	r := totalRuleFor(w[0].Text)
	ev := evidenceOf(FormatLabelNextValue, r.Priority, w...)
	return domain.Totals{TotalCents: value, Evidence: domain.TotalsEvidence{Total: ev}}, true
}

func precededByStackedLabels(d *document, i int) bool {
	p1, ok1 := d.at(i - 1)
	p2, ok2 := d.at(i - 2)
	if !ok1 || !ok2 {
		return false
	}
	isFieldLabel := func(l line) bool { return l.isSubtotalLabel() || l.isTaxLabel() }
	return isFieldLabel(p1) && isFieldLabel(p2)
}

// isCombinedHeader matches a label-only line naming subtotal, tax and total
// in that order, e.g. "SUBTOTAL TAX TOTAL".
func isCombinedHeader(l line) bool {
	if len(l.amounts) != 0 || l.class == LineRejected {
		return false
	}
	sub := firstMatch(subtotalRules, l.Text)
	if sub == nil {
		return false
	}
	rest := l.Text[sub.Pattern.FindStringIndex(l.Text)[1]:]
	taxLoc := reTaxWord.FindStringIndex(rest)
	if taxLoc == nil {
		return false
	}
	return firstMatch(totalRules, rest[taxLoc[1]:]) != nil
}

func threeFieldTotals(format string, values []domain.Cents, w []line, subLabel, taxLabel, totalLabel line) domain.Totals {
	ev := evidenceOf(format, 0, w...)
	ev.LineIndex = totalLabel.Index
	subEv := evidenceOf(format, 0, w...)
	subEv.LineIndex = subLabel.Index
	taxEv := evidenceOf(format, 0, w...)
	taxEv.LineIndex = taxLabel.Index
	return domain.Totals{
		SubtotalCents: values[0],
		TaxCents:      values[1],
		TotalCents:    values[2],
		Evidence: domain.TotalsEvidence{
			Total:    ev,
			Subtotal: subEv,
			Tax:      taxEv,
		},
	}
}
