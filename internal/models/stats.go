package models

// Stats summarises a correlated incident set for SOC reporting.
type Stats struct {
	Total        int          `json:"total"`
	BySeverity   []LabelCount `json:"by_severity"`
	ByStatus     []LabelCount `json:"by_status"`
	ByRiskBand   []LabelCount `json:"by_risk_band"`
	ByTechnique  []LabelCount `json:"by_technique"`
	UserExposure []LabelCount `json:"user_exposure"`
}

// LabelCount is an ordered histogram bucket.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
