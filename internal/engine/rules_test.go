package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLoadRuleTableFlatLayout(t *testing.T) {
	path := writeRules(t, `
CREDENTIAL_ABUSE:
  mitre_id: T1078
  tactic: Defense Evasion
  description: Valid Accounts
TIME_ANOMALY:
  mitre_id: T1087
  tactic: Discovery
  description: Account Discovery
BROKEN: "not a mapping"
`)
	table, err := LoadRuleTable(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", table.Len())
	}
	mapping, ok := table.Lookup(models.CategoryTimeAnomaly)
	if !ok || mapping.MitreID != "T1087" || mapping.Tactic != "Discovery" {
		t.Fatalf("unexpected mapping %+v", mapping)
	}
}

func TestLoadRuleTableNestedLayoutWithPriority(t *testing.T) {
	path := writeRules(t, `
priority: [TIME_ANOMALY, CREDENTIAL_ABUSE]
techniques:
  CREDENTIAL_ABUSE: {mitre_id: T1078}
  TIME_ANOMALY: {mitre_id: T1087}
`)
	table, err := LoadRuleTable(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	got := table.Assign(map[models.Category]struct{}{
		models.CategoryCredentialAbuse: {},
		models.CategoryTimeAnomaly:     {},
	})
	if got == nil || got.MitreID != "T1087" {
		t.Fatalf("expected priority override to pick T1087, got %+v", got)
	}
}

func TestLoadRuleTableMissingFile(t *testing.T) {
	table, err := LoadRuleTable(filepath.Join(t.TempDir(), "absent.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestLoadRuleTableUnparseable(t *testing.T) {
	path := writeRules(t, "- just\n- a list\n")
	table, err := LoadRuleTable(path, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if table == nil || table.Len() != 0 {
		t.Fatalf("expected empty fallback table")
	}
}

func TestLoadRuleTableWarnsOnUnmappedPriority(t *testing.T) {
	path := writeRules(t, `
techniques:
  CREDENTIAL_ABUSE: {mitre_id: T1078}
priority: [CREDENTIAL_ABUSE, LATERAL_MOVEMENT]
`)
	var logs bytes.Buffer
	if _, err := LoadRuleTable(path, zerolog.New(&logs)); err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if !strings.Contains(logs.String(), `"category":"LATERAL_MOVEMENT"`) {
		t.Fatalf("expected warning for unmapped priority category, got %q", logs.String())
	}
	if strings.Contains(logs.String(), `"category":"CREDENTIAL_ABUSE"`) {
		t.Fatalf("mapped category must not be reported: %q", logs.String())
	}
}

func TestRuleTableNilSafety(t *testing.T) {
	var table *RuleTable
	if table.Assign(map[models.Category]struct{}{models.CategoryAdminMisuse: {}}) != nil {
		t.Fatalf("nil table must not assign")
	}
	if len(table.Priority()) != len(DefaultCategoryPriority) {
		t.Fatalf("nil table should report default priority")
	}
}

func TestNewRuleTableCopiesInput(t *testing.T) {
	techniques := map[models.Category]models.TechniqueMapping{
		models.CategoryAdminMisuse: {MitreID: "T1547"},
	}
	table := NewRuleTable(techniques, nil)
	techniques[models.CategoryAdminMisuse] = models.TechniqueMapping{MitreID: "changed"}

	mapping, _ := table.Lookup(models.CategoryAdminMisuse)
	if mapping.MitreID != "T1547" {
		t.Fatalf("table shares caller map: %+v", mapping)
	}
}
