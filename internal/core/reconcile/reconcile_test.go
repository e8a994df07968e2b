package reconcile

import (
	"testing"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/totals"
)

func items(cents ...domain.Cents) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(cents))
	for _, c := range cents {
		out = append(out, domain.LineItem{TotalCents: c})
	}
	return out
}

func printed(total domain.Cents) domain.Totals {
	return domain.Totals{
		TotalCents: total,
		Evidence:   domain.TotalsEvidence{Total: &domain.Evidence{Rule: "invoice_total", Lines: []string{"INVOICE TOTAL"}}},
	}
}

func TestSelectBestTotal(t *testing.T) {
	withTax := domain.Totals{
		TaxCents: 350,
		Evidence: domain.TotalsEvidence{Tax: &domain.Evidence{Rule: "tax", Lines: []string{"TAX 3.50"}}},
	}

	tests := []struct {
		name        string
		totals      domain.Totals
		items       []domain.LineItem
		vendorTotal domain.Cents
		wantCents   domain.Cents
		wantSource  domain.TotalSource
		wantConf    float64
	}{
		{
			name:        "printed total wins",
			totals:      printed(10700),
			items:       items(5000),
			vendorTotal: 9999,
			wantCents:   10700,
			wantSource:  domain.TotalSourceExtracted,
			wantConf:    0.95,
		},
		{
			name:        "vendor parser when nothing printed",
			items:       items(5000),
			vendorTotal: 5350,
			wantCents:   5350,
			wantSource:  domain.TotalSourceVendorParser,
			wantConf:    0.85,
		},
		{
			name:       "computed with tax",
			totals:     withTax,
			items:      items(2000, 3000),
			wantCents:  5350,
			wantSource: domain.TotalSourceComputed,
			wantConf:   0.75,
		},
		{
			name:       "line items only",
			items:      items(1250, 1250, 2500),
			wantCents:  5000,
			wantSource: domain.TotalSourceSumItems,
			wantConf:   0.6,
		},
		{
			name:       "nothing",
			wantSource: domain.TotalSourceNone,
		},
		{
			name:       "zero printed total falls through",
			totals:     printed(0),
			items:      items(100),
			wantCents:  100,
			wantSource: domain.TotalSourceSumItems,
			wantConf:   0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBestTotal(tt.totals, tt.items, tt.vendorTotal)
			if got.TotalCents != tt.wantCents || got.Source != tt.wantSource || got.Confidence != tt.wantConf {
				t.Fatalf("SelectBestTotal() = %+v, want %d %s %v", got, tt.wantCents, tt.wantSource, tt.wantConf)
			}
			if got.Reason == "" {
				t.Fatalf("SelectBestTotal() returned empty reason")
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		totals     domain.Totals
		items      []domain.LineItem
		wantReason domain.ReconcileReason
		wantPassed bool
		wantDelta  domain.Cents
	}{
		{name: "exact", totals: printed(5000), items: items(2000, 3000), wantReason: domain.ReconcileExactMatch, wantPassed: true},
		{name: "within tolerance", totals: printed(5004), items: items(5000), wantReason: domain.ReconcileWithinTolerance, wantPassed: true, wantDelta: 4},
		{name: "at tolerance", totals: printed(4995), items: items(5000), wantReason: domain.ReconcileWithinTolerance, wantPassed: true, wantDelta: -5},
		{name: "mismatch", totals: printed(5006), items: items(5000), wantReason: domain.ReconcileMismatch, wantDelta: 6},
		{name: "no items", totals: printed(5000), wantReason: domain.ReconcileNoComputedTotal},
		{name: "no printed total", items: items(5000), wantReason: domain.ReconcileNoExtractedTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.totals, tt.items, domain.DefaultReconcileTolerance)
			if got.Reason != tt.wantReason || got.Passed != tt.wantPassed || got.DeltaCents != tt.wantDelta {
				t.Fatalf("Reconcile() = %+v, want reason %s passed %v delta %d", got, tt.wantReason, tt.wantPassed, tt.wantDelta)
			}
			if got.ToleranceCents != domain.DefaultReconcileTolerance {
				t.Fatalf("ToleranceCents = %d", got.ToleranceCents)
			}
		})
	}
}

func TestReconcileIncludesAdjustments(t *testing.T) {
	totals := printed(5550)
	totals.TaxCents = 350
	totals.FeesCents = 400
	totals.DiscountCents = -200
	got := Reconcile(totals, items(5000), domain.DefaultReconcileTolerance)
	if got.ComputedCents != 5550 || got.Reason != domain.ReconcileExactMatch {
		t.Fatalf("Reconcile() = %+v", got)
	}
}

func TestEmptyInputs(t *testing.T) {
	sel := SelectBestTotal(domain.Totals{}, nil, 0)
	if sel.TotalCents != 0 || sel.Confidence != 0 || sel.Source != domain.TotalSourceNone {
		t.Fatalf("SelectBestTotal() = %+v", sel)
	}
	rec := Reconcile(domain.Totals{}, nil, -1)
	if rec.Passed || rec.Reason != domain.ReconcileNoExtractedTotal || rec.ToleranceCents != domain.DefaultReconcileTolerance {
		t.Fatalf("Reconcile() = %+v", rec)
	}
}

func TestSelectBestTotalLineItemsWithoutPrintedTotal(t *testing.T) {
	extracted := totals.ExtractTotals("1234567 1 CS NAPKINS 25.00\n7654321 1 CS CUPS 25.00")
	if extracted.HasTotal() {
		t.Fatalf("ExtractTotals() found total %+v", extracted.Evidence.Total)
	}
	got := SelectBestTotal(extracted, items(2500, 2500), 0)
	if got.Source != domain.TotalSourceSumItems || got.TotalCents != 5000 || got.Confidence != ConfidenceSumItems {
		t.Fatalf("SelectBestTotal() = %+v, want sum_items 5000 at 0.6", got)
	}
}
