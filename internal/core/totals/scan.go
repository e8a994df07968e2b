package totals

import (
	"sort"
	"strings"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const maxRunnersUp = 2

// scanTotals collects every same-line and split-line candidate and then
// picks the total, subtotal, tax, fees and discounts from them.
func scanTotals(d *document) (domain.Totals, []domain.Candidate) {
	var out domain.Totals

	if winner, runnersUp, ok := selectTotal(collectTotalCandidates(d)); ok {
		out.TotalCents = winner.Cents
		ev := candidateEvidence(winner)
		ev.RunnersUp = runnersUp
		out.Evidence.Total = ev
	}

	subtotals := collectSubtotalCandidates(d)
	applySubtotal(&out, subtotals)
	applyTax(&out, d)
	applyFees(&out, d)
	applyDiscounts(&out, d)
	return out, subtotals
}

// collectTotalCandidates sweeps bottom to top, looking one line ahead for
// split labels. Ties on priority therefore favour the lowest occurrence.
func collectTotalCandidates(d *document) []domain.Candidate {
	var out []domain.Candidate
	for i := len(d.lines) - 1; i >= 0; i-- {
		if c, ok := splitInvoiceTotalCandidate(d, i); ok {
			out = append(out, c)
		}
		if c, ok := fieldCandidate(d, i, totalRuleFor); ok {
			out = append(out, c)
		}
	}
	return out
}

// splitInvoiceTotalCandidate recognises "INVOICE" alone on a line followed by
// "TOTAL <value>", a two-word label broken apart by text extraction.
func splitInvoiceTotalCandidate(d *document, i int) (domain.Candidate, bool) {
	l, _ := d.at(i)
	next, ok := d.at(i + 1)
	if !ok || !reInvoiceAlone.MatchString(l.Text) || !reTotalLineStart.MatchString(next.Text) {
		return domain.Candidate{}, false
	}
	if totalRuleFor(next.Text) == nil || len(next.amounts) == 0 {
		return domain.Candidate{}, false
	}
	value := next.amounts[len(next.amounts)-1].Cents
	return domain.Candidate{
		Cents:        value,
		Priority:     PrioritySplitInvoiceTotal,
		RuleLabel:    FormatSplitInvoiceTotal,
		EvidenceLine: l.Text + "\n" + next.Text,
		LineIndex:    l.Index,
	}, true
}

// fieldCandidate reads the value printed after the label on the same line or,
// when the label stands alone, the bare value on the next line.
func fieldCandidate(d *document, i int, ruleFor func(string) *domain.PatternRule) (domain.Candidate, bool) {
	l, ok := d.at(i)
	if !ok {
		return domain.Candidate{}, false
	}
	r := ruleFor(l.Text)
	if r == nil {
		return domain.Candidate{}, false
	}

	labelEnd := r.Pattern.FindStringIndex(l.Text)[1]
	if value, ok := l.valueAfter(labelEnd); ok {
		return domain.Candidate{
			Cents:        value,
			Priority:     r.Priority,
			RuleLabel:    r.Label,
			EvidenceLine: l.Text,
			LineIndex:    l.Index,
		}, true
	}

	if len(l.amounts) != 0 || precededByStackedLabels(d, i) {
		return domain.Candidate{}, false
	}
	next, ok := d.at(i + 1)
	if !ok {
		return domain.Candidate{}, false
	}
	value, ok := next.bareValue()
	if !ok {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		Cents:        value,
		Priority:     r.Priority,
		RuleLabel:    r.Label + "_split",
		EvidenceLine: l.Text + "\n" + next.Text,
		LineIndex:    l.Index,
	}, true
}

// candidateRejected re-applies the line classification to the evidence as a
// final safety net. Split evidence is joined so that "INVOICE" + "TOTAL"
// reads as the whitelisted label it is.
func candidateRejected(c domain.Candidate) bool {
	return ClassifyLine(strings.ReplaceAll(c.EvidenceLine, "\n", " ")) == LineRejected
}

func selectTotal(candidates []domain.Candidate) (domain.Candidate, []domain.Candidate, bool) {
	survivors := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !candidateRejected(c) {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return domain.Candidate{}, nil, false
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Priority < survivors[j].Priority
	})

	winner := survivors[0]
	runnersUp := make([]domain.Candidate, 0, maxRunnersUp)
	for _, c := range survivors[1:] {
		if len(runnersUp) == maxRunnersUp {
			break
		}
		runnersUp = append(runnersUp, c)
	}
	return winner, runnersUp, true
}

func collectSubtotalCandidates(d *document) []domain.Candidate {
	var out []domain.Candidate
	for i := range d.lines {
		if c, ok := fieldCandidate(d, i, subtotalRuleFor); ok && !candidateRejected(c) {
			out = append(out, c)
		}
	}
	return out
}

// applySubtotal prefers the largest subtotal not exceeding the total, and
// falls back to the largest one found.
func applySubtotal(out *domain.Totals, candidates []domain.Candidate) {
	if len(candidates) == 0 {
		return
	}
	var best, largest *domain.Candidate
	for i := range candidates {
		c := &candidates[i]
		if largest == nil || c.Cents > largest.Cents {
			largest = c
		}
		if out.TotalCents != 0 && c.Cents <= out.TotalCents && (best == nil || c.Cents > best.Cents) {
			best = c
		}
	}
	if best == nil {
		best = largest
	}
	out.SubtotalCents = best.Cents
	out.Evidence.Subtotal = candidateEvidence(*best)
}

// applyTax takes the first tax line found scanning bottom to top.
func applyTax(out *domain.Totals, d *document) {
	for i := len(d.lines) - 1; i >= 0; i-- {
		if c, ok := fieldCandidate(d, i, taxRuleFor); ok {
			out.TaxCents = c.Cents
			out.Evidence.Tax = candidateEvidence(c)
			return
		}
	}
}

// applyFees sums every distinct fee line. Identical lines are counted once
// because acquisition may carry the same page from several sources.
func applyFees(out *domain.Totals, d *document) {
	for _, c := range distinctLineCandidates(d, feeRuleFor) {
		out.FeesCents += c.Cents.Abs()
		out.Evidence.Fees = append(out.Evidence.Fees, *candidateEvidence(c))
	}
}

// applyDiscounts sums every distinct discount line as a negative adjustment.
func applyDiscounts(out *domain.Totals, d *document) {
	for _, c := range distinctLineCandidates(d, discountRuleFor) {
		out.DiscountCents -= c.Cents.Abs()
		out.Evidence.Discounts = append(out.Evidence.Discounts, *candidateEvidence(c))
	}
}

func distinctLineCandidates(d *document, ruleFor func(string) *domain.PatternRule) []domain.Candidate {
	seen := make(map[string]struct{})
	var out []domain.Candidate
	for _, l := range d.lines {
		r := ruleFor(l.Text)
		if r == nil {
			continue
		}
		value, ok := l.valueAfter(r.Pattern.FindStringIndex(l.Text)[1])
		if !ok {
			continue
		}
		key := strings.ToUpper(l.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.Candidate{
			Cents:        value,
			Priority:     r.Priority,
			RuleLabel:    r.Label,
			EvidenceLine: l.Text,
			LineIndex:    l.Index,
		})
	}
	return out
}

func candidateEvidence(c domain.Candidate) *domain.Evidence {
	return &domain.Evidence{
		Rule:      c.RuleLabel,
		Lines:     strings.Split(c.EvidenceLine, "\n"),
		LineIndex: c.LineIndex,
		Priority:  c.Priority,
	}
}
