package domain

import "time"

type AnalysisInput struct {
	Raw              []byte
	MimeType         string
	Text             string
	LineItems        []LineItem
	VendorTotalCents Cents
}

type Analysis struct {
	ID             string            `json:"id"`
	Acquisition    AcquisitionResult `json:"acquisition"`
	Vendor         VendorResult      `json:"vendor"`
	Totals         Totals            `json:"totals"`
	Selection      Selection         `json:"selection"`
	Reconciliation Reconciliation    `json:"reconciliation"`
	DurationMS     float64           `json:"duration_ms"`
	CreatedAt      time.Time         `json:"created_at"`
}
