package reconcile

import (
	"fmt"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const (
	ConfidenceExtracted    = 0.95
	ConfidenceVendorParser = 0.85
	ConfidenceComputed     = 0.75
	ConfidenceSumItems     = 0.6
)

// SumItems adds up line-item totals. ok is false when there are no items.
func SumItems(items []domain.LineItem) (sum domain.Cents, ok bool) {
	for _, item := range items {
		sum += item.TotalCents
	}
	return sum, len(items) > 0
}

// ComputedTotal is the line-item sum plus tax, fees and discounts.
func ComputedTotal(t domain.Totals, items []domain.LineItem) (domain.Cents, bool) {
	sum, ok := SumItems(items)
	if !ok {
		return 0, false
	}
	return sum + t.TaxCents + t.FeesCents + t.DiscountCents, true
}

// SelectBestTotal picks the authoritative total in strict order: the printed
// total, the vendor parser's total, the computed total and finally the bare
// line-item sum. The computed total is only preferred over the bare sum when
// the engine actually found a tax, fee or discount to add.
func SelectBestTotal(t domain.Totals, items []domain.LineItem, vendorTotal domain.Cents) domain.Selection {
	if t.HasTotal() && t.TotalCents != 0 {
		return domain.Selection{
			TotalCents: t.TotalCents,
			Source:     domain.TotalSourceExtracted,
			Reason:     fmt.Sprintf("printed total matched by %s", t.Evidence.Total.Rule),
			Confidence: ConfidenceExtracted,
		}
	}
	if vendorTotal != 0 {
		return domain.Selection{
			TotalCents: vendorTotal,
			Source:     domain.TotalSourceVendorParser,
			Reason:     "no printed total; using vendor parser total",
			Confidence: ConfidenceVendorParser,
		}
	}
	if computed, ok := ComputedTotal(t, items); ok && t.HasAdjustments() {
		return domain.Selection{
			TotalCents: computed,
			Source:     domain.TotalSourceComputed,
			Reason:     fmt.Sprintf("sum of %d line items plus tax, fees and discounts", len(items)),
			Confidence: ConfidenceComputed,
		}
	}
	if sum, ok := SumItems(items); ok {
		return domain.Selection{
			TotalCents: sum,
			Source:     domain.TotalSourceSumItems,
			Reason:     fmt.Sprintf("sum of %d line items", len(items)),
			Confidence: ConfidenceSumItems,
		}
	}
	return domain.Selection{
		Source: domain.TotalSourceNone,
		Reason: "no total found",
	}
}

// Reconcile compares the printed total with the computed one. The result is
// diagnostic only and never changes the selection.
func Reconcile(t domain.Totals, items []domain.LineItem, tolerance domain.Cents) domain.Reconciliation {
	if tolerance < 0 {
		tolerance = domain.DefaultReconcileTolerance
	}
	out := domain.Reconciliation{ToleranceCents: tolerance}

	computed, hasComputed := ComputedTotal(t, items)
	out.ComputedCents = computed
	if t.HasTotal() {
		out.ExtractedCents = t.TotalCents
	}

	switch {
	case !t.HasTotal():
		out.Reason = domain.ReconcileNoExtractedTotal
	case !hasComputed:
		out.Reason = domain.ReconcileNoComputedTotal
	default:
		out.DeltaCents = out.ExtractedCents - computed
		switch abs := out.DeltaCents.Abs(); {
		case abs == 0:
			out.Reason = domain.ReconcileExactMatch
			out.Passed = true
		case abs <= tolerance:
			out.Reason = domain.ReconcileWithinTolerance
			out.Passed = true
		default:
			out.Reason = domain.ReconcileMismatch
		}
	}
	return out
}
