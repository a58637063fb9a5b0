package engine

import (
	"strings"

	"github.com/socops/sochub/internal/models"
)

const (
	tierCritical = 90
	tierHigh     = 70
	tierMedium   = 40
)

var categoryActions = map[models.Category][]string{
	models.CategoryCredentialAbuse: {
		"Force password reset for the user and invalidate active sessions.",
		"Enforce or verify MFA on this account.",
	},
	models.CategoryAdminMisuse: {
		"Audit recent privileged commands and changes (cron/services/users).",
		"Review admin group membership and remove unnecessary privileges.",
	},
	models.CategoryMaliciousPattern: {
		"Block outbound connections to suspicious destinations at firewall.",
		"Collect and preserve forensic artifacts (shell history, logs).",
	},
	models.CategoryTimeAnomaly: {
		"Verify whether off-hours activity was authorized.",
		"Enable alerts for future off-hours actions for this user.",
	},
}

var techniqueActions = map[string]string{
	"T1059": "Harden script execution policies and restrict unnecessary interpreters.",
	"T1078": "Review all recent successful logins for this user from unusual IPs.",
	"T1547": "Inspect persistence mechanisms (cron, system services) for backdoors.",
	"T1087": "Reduce user visibility and tighten enumeration paths.",
}

// SuggestActions returns the prioritized response actions for an incident:
// risk-tier actions, then category bundles in CategoryOrder, then the technique
// hardening action. Duplicates collapse to their first occurrence.
func SuggestActions(inc models.UnifiedIncident) []string {
	actions := newOrderedSet()

	severity := models.NormalizeSeverity(inc.Severity)
	switch {
	case inc.FinalRisk >= tierCritical || severity == models.SeverityCritical:
		actions.add(
			"Immediately isolate affected host or account.",
			"Escalate to incident response team.",
		)
	case inc.FinalRisk >= tierHigh:
		actions.add(
			"Prioritize investigation within this shift.",
			"Increase monitoring for related accounts and IPs.",
		)
	case inc.FinalRisk >= tierMedium:
		actions.add("Schedule follow-up review and increase logging for this entity.")
	}

	categories := inc.Categories()
	for _, category := range models.CategoryOrder {
		if _, ok := categories[category]; ok {
			actions.add(categoryActions[category]...)
		}
	}

	if action, ok := techniqueActions[strings.TrimSpace(inc.TechniqueID())]; ok {
		actions.add(action)
	}
	return actions.items()
}

// orderedSet keeps insertion order and drops repeats.
type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *orderedSet) items() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
