package domain

const GenericVendorKey = "generic"

type VendorResult struct {
	VendorKey           string `json:"vendor_key"`
	VendorName          string `json:"vendor_name"`
	ConfidencePercent   int    `json:"confidence_percent"`
	MatchedPatternCount int    `json:"matched_pattern_count"`
}

func GenericVendor() VendorResult {
	return VendorResult{VendorKey: GenericVendorKey, VendorName: "Generic"}
}
