package models

import (
	"strings"
	"time"
)

// CorrelationResult summarises one correlation run.
type CorrelationResult struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Incidents   []UnifiedIncident `json:"incidents"`
}

// UnifiedIncident is a detection enriched with asset, intel and forensic context
// plus the blended final risk. Built fresh per run and never mutated afterwards.
type UnifiedIncident struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Severity  string              `json:"severity"`
	Risk      float64             `json:"risk"`
	User      string              `json:"user"`
	IP        string              `json:"ip"`
	Asset     *AssetRecord        `json:"nexus"`
	Intel     *IndicatorRecord    `json:"intel"`
	Forensic  *ForensicUserRecord `json:"forensic"`
	Technique *TechniqueMapping   `json:"mitre"`
	FinalRisk int                 `json:"final_risk"`
}

// Categories returns the finding categories of the joined forensic record.
func (u UnifiedIncident) Categories() map[Category]struct{} {
	return u.Forensic.Categories()
}

// HasCategory reports whether the joined forensic record carries category c.
func (u UnifiedIncident) HasCategory(c Category) bool {
	_, ok := u.Categories()[c]
	return ok
}

// TechniqueID returns the assigned technique id or "" when none was assigned.
func (u UnifiedIncident) TechniqueID() string {
	if u.Technique == nil {
		return ""
	}
	return u.Technique.MitreID
}

// TechniqueMapping is an ATT&CK technique descriptor resolved from a finding category.
type TechniqueMapping struct {
	MitreID     string `json:"mitre_id" yaml:"mitre_id"`
	Tactic      string `json:"tactic" yaml:"tactic"`
	Description string `json:"description" yaml:"description"`
}

// Category tags a forensic finding.
type Category string

const (
	CategoryCredentialAbuse  Category = "CREDENTIAL_ABUSE"
	CategoryAdminMisuse      Category = "ADMIN_MISUSE"
	CategoryMaliciousPattern Category = "MALICIOUS_PATTERN"
	CategoryTimeAnomaly      Category = "TIME_ANOMALY"
)

// CategoryOrder lists the known finding categories in their fixed enumeration order.
var CategoryOrder = []Category{
	CategoryCredentialAbuse,
	CategoryAdminMisuse,
	CategoryMaliciousPattern,
	CategoryTimeAnomaly,
}

// Severity captures detection impact levels.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// NormalizeSeverity upper-cases a producer supplied severity label.
func NormalizeSeverity(s string) Severity {
	return Severity(strings.ToUpper(strings.TrimSpace(s)))
}

// TimelineEvent is one dated observation about an entity.
type TimelineEvent struct {
	Time     time.Time `json:"ts"`
	Entity   string    `json:"entity"`
	Source   string    `json:"source"`
	Severity string    `json:"severity"`
	Category string    `json:"category"`
	Evidence string    `json:"evidence"`
}
