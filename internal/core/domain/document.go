package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	VendorKey   string         `json:"vendor_key,omitempty"`
	TotalCents  Cents          `json:"total_cents"`
	TotalSource TotalSource    `json:"total_source,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Analysis    *Analysis      `json:"analysis,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (d *Document) ApplyAnalysis(a *Analysis) {
	if a == nil {
		return
	}
	d.Analysis = a
	d.VendorKey = a.Vendor.VendorKey
	d.TotalCents = a.Selection.TotalCents
	d.TotalSource = a.Selection.Source
	d.Confidence = a.Selection.Confidence
}
