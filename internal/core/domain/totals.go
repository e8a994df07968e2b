package domain

import "regexp"

// PatternRule is one ordered entry of a rule set. Lower priority wins.
type PatternRule struct {
	Label    string
	Pattern  *regexp.Regexp
	Priority int
}

func (r PatternRule) Match(line string) bool {
	return r.Pattern != nil && r.Pattern.MatchString(line)
}

type Candidate struct {
	Cents        Cents  `json:"cents"`
	Priority     int    `json:"priority"`
	RuleLabel    string `json:"rule"`
	EvidenceLine string `json:"line"`
	LineIndex    int    `json:"line_index"`
}

// Evidence backs a single accepted field. A nil *Evidence means the field was
// not found, whatever its value.
type Evidence struct {
	Rule          string      `json:"rule"`
	Lines         []string    `json:"lines"`
	LineIndex     int         `json:"line_index,omitempty"`
	Priority      int         `json:"priority,omitempty"`
	RunnersUp     []Candidate `json:"runners_up,omitempty"`
	Score         int         `json:"score,omitempty"`
	LowConfidence bool        `json:"low_confidence,omitempty"`
}

type TotalsEvidence struct {
	Total     *Evidence  `json:"total,omitempty"`
	Subtotal  *Evidence  `json:"subtotal,omitempty"`
	Tax       *Evidence  `json:"tax,omitempty"`
	Fees      []Evidence `json:"fees,omitempty"`
	Discounts []Evidence `json:"discounts,omitempty"`
}

// Totals carries the amounts printed on an invoice. FeesCents is never
// negative and DiscountCents is never positive.
type Totals struct {
	TotalCents    Cents          `json:"total_cents"`
	SubtotalCents Cents          `json:"subtotal_cents"`
	TaxCents      Cents          `json:"tax_cents"`
	FeesCents     Cents          `json:"fees_cents"`
	DiscountCents Cents          `json:"discount_cents"`
	Evidence      TotalsEvidence `json:"evidence"`
	Warnings      []string       `json:"warnings,omitempty"`
}

func (t Totals) HasTotal() bool {
	return t.Evidence.Total != nil
}

// HasAdjustments reports whether tax, fees or discounts were actually found.
func (t Totals) HasAdjustments() bool {
	return t.Evidence.Tax != nil || len(t.Evidence.Fees) > 0 || len(t.Evidence.Discounts) > 0
}
