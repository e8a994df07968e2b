package domain

type TextSource string

const (
	SourceDirect TextSource = "direct"
	SourceLayout TextSource = "layout"
	SourceOCR    TextSource = "ocr"
	SourceText   TextSource = "text"
)

type SourcesUsed struct {
	DirectLayerChars int `json:"direct_layer_chars"`
	LayoutAwareChars int `json:"layout_aware_chars"`
	OCRChars         int `json:"ocr_chars"`
}

type Coverage struct {
	HasTotalAnchor         bool `json:"has_total_anchor"`
	HasInvoiceWord         bool `json:"has_invoice_word"`
	HasMoneyValues         bool `json:"has_money_values"`
	MissingCriticalAnchors bool `json:"missing_critical_anchors"`
}

func (c Coverage) Sufficient() bool {
	return !c.MissingCriticalAnchors
}

type AcquisitionResult struct {
	Text        string      `json:"text"`
	SourcesUsed SourcesUsed `json:"sources_used"`
	Coverage    Coverage    `json:"coverage"`
	OCRPages    []int       `json:"ocr_pages,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
}

func EmptyAcquisition() AcquisitionResult {
	return AcquisitionResult{Coverage: Coverage{MissingCriticalAnchors: true}}
}
