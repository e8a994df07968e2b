package domain

type TotalSource string

const (
	TotalSourceExtracted    TotalSource = "extracted"
	TotalSourceVendorParser TotalSource = "vendor_parser"
	TotalSourceComputed     TotalSource = "computed"
	TotalSourceSumItems     TotalSource = "sum_items"
	TotalSourceNone         TotalSource = "none"
)

// LineItem is supplied by vendor-specific line-item parsers.
type LineItem struct {
	Description string `json:"description,omitempty"`
	TotalCents  Cents  `json:"total_cents"`
}

type Selection struct {
	TotalCents Cents       `json:"total_cents"`
	Source     TotalSource `json:"source"`
	Reason     string      `json:"reason"`
	Confidence float64     `json:"confidence"`
}

type ReconcileReason string

const (
	ReconcileExactMatch       ReconcileReason = "exact_match"
	ReconcileWithinTolerance  ReconcileReason = "within_tolerance"
	ReconcileNoComputedTotal  ReconcileReason = "no_computed_total"
	ReconcileNoExtractedTotal ReconcileReason = "no_extracted_total"
	ReconcileMismatch         ReconcileReason = "mismatch"
)

const DefaultReconcileTolerance Cents = 5

type Reconciliation struct {
	ExtractedCents Cents           `json:"extracted_cents"`
	ComputedCents  Cents           `json:"computed_cents"`
	DeltaCents     Cents           `json:"delta_cents"`
	ToleranceCents Cents           `json:"tolerance_cents"`
	Passed         bool            `json:"passed"`
	Reason         ReconcileReason `json:"reason"`
}
