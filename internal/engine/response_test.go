package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socops/sochub/internal/models"
)

func incidentWith(finalRisk int, severity string, technique string, categories ...models.Category) models.UnifiedIncident {
	inc := models.UnifiedIncident{ID: "INC_0001", Severity: severity, FinalRisk: finalRisk}
	if technique != "" {
		inc.Technique = &models.TechniqueMapping{MitreID: technique}
	}
	if len(categories) > 0 {
		rec := &models.ForensicUserRecord{User: "alice"}
		for _, c := range categories {
			rec.Findings = append(rec.Findings, models.Finding{Category: string(c)})
		}
		inc.Forensic = rec
	}
	return inc
}

func TestSuggestActionsRiskTiers(t *testing.T) {
	cases := []struct {
		name     string
		inc      models.UnifiedIncident
		expected []string
	}{
		{"critical by risk", incidentWith(90, "LOW", ""), []string{
			"Immediately isolate affected host or account.",
			"Escalate to incident response team.",
		}},
		{"critical by severity", incidentWith(10, "critical", ""), []string{
			"Immediately isolate affected host or account.",
			"Escalate to incident response team.",
		}},
		{"high", incidentWith(70, "HIGH", ""), []string{
			"Prioritize investigation within this shift.",
			"Increase monitoring for related accounts and IPs.",
		}},
		{"medium", incidentWith(40, "", ""), []string{
			"Schedule follow-up review and increase logging for this entity.",
		}},
		{"low", incidentWith(39, "", ""), []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SuggestActions(tc.inc))
		})
	}
}

func TestSuggestActionsCategoryOrderIsFixed(t *testing.T) {
	inc := incidentWith(0, "", "",
		models.CategoryTimeAnomaly,
		models.CategoryCredentialAbuse,
		models.CategoryTimeAnomaly,
	)
	assert.Equal(t, []string{
		"Force password reset for the user and invalidate active sessions.",
		"Enforce or verify MFA on this account.",
		"Verify whether off-hours activity was authorized.",
		"Enable alerts for future off-hours actions for this user.",
	}, SuggestActions(inc))
}

func TestSuggestActionsTechniqueAndOrdering(t *testing.T) {
	inc := incidentWith(95, "HIGH", "T1059", models.CategoryMaliciousPattern)
	actions := SuggestActions(inc)
	require.Len(t, actions, 5)
	assert.Equal(t, "Immediately isolate affected host or account.", actions[0])
	assert.Equal(t, "Block outbound connections to suspicious destinations at firewall.", actions[2])
	assert.Equal(t, "Harden script execution policies and restrict unnecessary interpreters.", actions[4])

	unknown := incidentWith(0, "", "T9999")
	assert.Empty(t, SuggestActions(unknown))
}

func TestSuggestActionsDeterministicAndUnique(t *testing.T) {
	inc := incidentWith(80, "CRITICAL", "T1547",
		models.CategoryAdminMisuse, models.CategoryMaliciousPattern, models.CategoryCredentialAbuse)
	first := SuggestActions(inc)
	assert.Equal(t, first, SuggestActions(inc))

	seen := map[string]bool{}
	for _, a := range first {
		assert.False(t, seen[a], "duplicate action %q", a)
		seen[a] = true
	}
}

func TestSuggestActionsTotalOverEmptyRecord(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Empty(t, SuggestActions(models.UnifiedIncident{}))
	})
}

func TestOrderedSetKeepsFirstOccurrence(t *testing.T) {
	s := newOrderedSet()
	s.add("b", "a", "b")
	s.add("a", "c")
	assert.Equal(t, []string{"b", "a", "c"}, s.items())
}
