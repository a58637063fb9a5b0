package models

import "encoding/json"

// Document is a parsed report whose top-level keys are decoded lazily. Producers
// are independent tools, so nothing below the top level is trusted to be well shaped.
type Document map[string]json.RawMessage

// SourceDocuments bundles the four report documents consumed by a correlation run.
type SourceDocuments struct {
	Detection Document
	Assets    Document
	Intel     Document
	Forensic  Document
}

// Entities names the subjects a detection refers to. Empty means absent.
type Entities struct {
	User string `json:"user,omitempty"`
	IP   string `json:"ip,omitempty"`
}

// RawIncident is a detection produced by the endpoint-detection source.
type RawIncident struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Severity  string   `json:"severity"`
	RiskScore float64  `json:"risk_score"`
	Entities  Entities `json:"entities"`
}

// Alert is a raw detection alert; it only feeds the entity timeline.
type Alert struct {
	ThreatID     string   `json:"threat_id"`
	Severity     string   `json:"severity"`
	User         string   `json:"user,omitempty"`
	IP           string   `json:"ip,omitempty"`
	Asset        string   `json:"asset,omitempty"`
	TsFirst      string   `json:"ts_first,omitempty"`
	TsLast       string   `json:"ts_last,omitempty"`
	EventSamples []string `json:"event_samples,omitempty"`
}

// AssetRecord is one asset from the attack-surface audit, keyed by IP.
type AssetRecord struct {
	IP                 string  `json:"ip"`
	AttackSurfaceScore float64 `json:"attack_surface_score"`
}

// IndicatorRecord is a threat-intel indicator keyed by its value.
type IndicatorRecord struct {
	Value string  `json:"value"`
	Risk  string  `json:"risk"`
	Score float64 `json:"score"`
}

// Finding is a single host forensic observation.
type Finding struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Ts       string `json:"ts"`
	Evidence string `json:"evidence"`
	Details  string `json:"details,omitempty"`
}

// ForensicUserRecord aggregates forensic findings for one user.
type ForensicUserRecord struct {
	User      string    `json:"user"`
	RiskScore float64   `json:"risk_score"`
	Findings  []Finding `json:"findings"`
}

// Categories returns the set of non-empty finding categories. Safe on nil receivers.
func (r *ForensicUserRecord) Categories() map[Category]struct{} {
	set := make(map[Category]struct{})
	if r == nil {
		return set
	}
	for _, f := range r.Findings {
		if f.Category != "" {
			set[Category(f.Category)] = struct{}{}
		}
	}
	return set
}
