package models

// PhaseName identifies a remediation phase.
type PhaseName string

const (
	PhaseContainment PhaseName = "CONTAINMENT"
	PhaseEradication PhaseName = "ERADICATION"
	PhaseRecovery    PhaseName = "RECOVERY"
	PhaseForensic    PhaseName = "FORENSIC"
)

// Playbook is the four-phase remediation guide derived from an incident.
type Playbook struct {
	Context PlaybookContext `json:"incident"`
	Phases  []Phase         `json:"phases"`
}

// PlaybookContext is the incident summary a playbook was built for.
type PlaybookContext struct {
	ID        string            `json:"id"`
	User      string            `json:"user"`
	IP        string            `json:"ip"`
	Severity  string            `json:"severity"`
	FinalRisk int               `json:"final_risk"`
	Technique *TechniqueMapping `json:"mitre"`
	Status    Status            `json:"status,omitempty"`
	Owner     string            `json:"owner,omitempty"`
}

// Phase is an ordered group of steps. NoSpecificSteps is set when no rule fired.
type Phase struct {
	Name            PhaseName `json:"name"`
	Steps           []Step    `json:"steps"`
	NoSpecificSteps bool      `json:"no_specific_steps,omitempty"`
}

// Step documents a remediation action; commands are illustrative and never executed.
type Step struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Commands    []string `json:"commands"`
}

// IncidentView joins a correlated incident with its lifecycle state and suggested actions.
type IncidentView struct {
	Incident  UnifiedIncident  `json:"incident"`
	Lifecycle *LifecycleRecord `json:"lifecycle"`
	Actions   []string         `json:"actions"`
}

// Status returns the lifecycle status, NEW when no state was recorded.
func (v IncidentView) Status() Status {
	if v.Lifecycle == nil || v.Lifecycle.Status == "" {
		return StatusNew
	}
	return v.Lifecycle.Status
}
