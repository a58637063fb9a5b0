package stats

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
)

func TestSummarizeDistributions(t *testing.T) {
	incidents := []models.UnifiedIncident{
		{ID: "a", Severity: "high", User: "alice", FinalRisk: 95, Technique: &models.TechniqueMapping{MitreID: "T1059"}},
		{ID: "b", Severity: "LOW", User: "bob", FinalRisk: 30},
		{ID: "c", Severity: "", User: "alice", FinalRisk: 72, Technique: &models.TechniqueMapping{MitreID: "T1078"}},
		{ID: "d", Severity: "HIGH", FinalRisk: 45, Technique: &models.TechniqueMapping{MitreID: "T1059"}},
	}
	lookup := StatusMap{"a": models.StatusContained, "c": "ESCALATED"}

	summary := NewSummarizer(zerolog.Nop(), lookup).Summarize(incidents)

	if summary.Total != 4 {
		t.Fatalf("expected total 4, got %d", summary.Total)
	}
	assertCounts(t, "severity", summary.BySeverity, []models.LabelCount{
		{Label: "HIGH", Count: 2}, {Label: "LOW", Count: 1}, {Label: "UNKNOWN", Count: 1},
	})
	assertCounts(t, "status", summary.ByStatus, []models.LabelCount{
		{Label: "CONTAINED", Count: 1}, {Label: "NEW", Count: 2}, {Label: "ESCALATED", Count: 1},
	})
	assertCounts(t, "bands", summary.ByRiskBand, []models.LabelCount{
		{Label: BandCritical, Count: 1}, {Label: BandHigh, Count: 1}, {Label: BandMedium, Count: 1}, {Label: BandLow, Count: 1},
	})
	assertCounts(t, "techniques", summary.ByTechnique, []models.LabelCount{
		{Label: "T1059", Count: 2}, {Label: "T1078", Count: 1},
	})
	assertCounts(t, "users", summary.UserExposure, []models.LabelCount{
		{Label: "alice", Count: 167}, {Label: "<unknown>", Count: 45}, {Label: "bob", Count: 30},
	})
}

type countingLookup struct{ calls int }

func (c *countingLookup) Status(string) models.Status {
	c.calls++
	return ""
}

func TestSummarizeWithoutLookupDefaultsToNew(t *testing.T) {
	summary := NewSummarizer(zerolog.Nop(), nil).Summarize([]models.UnifiedIncident{{ID: "x"}, {ID: "y"}})
	assertCounts(t, "status", summary.ByStatus, []models.LabelCount{{Label: "NEW", Count: 2}})

	lookup := &countingLookup{}
	summary = NewSummarizer(zerolog.Nop(), lookup).Summarize([]models.UnifiedIncident{{ID: "x"}})
	if calls := lookup.calls; calls != 1 || summary.ByStatus[0].Label != "NEW" {
		t.Fatalf("unexpected lookup behaviour: calls=%d status=%v", calls, summary.ByStatus)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := NewSummarizer(zerolog.Nop(), nil).Summarize(nil)
	if summary.Total != 0 || len(summary.ByTechnique) != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if len(summary.ByRiskBand) != 4 {
		t.Fatalf("risk bands must always be reported")
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := map[int]string{100: BandCritical, 90: BandCritical, 89: BandHigh, 70: BandHigh, 69: BandMedium, 40: BandMedium, 39: BandLow, 0: BandLow}
	for risk, want := range cases {
		if got := Band(risk); got != want {
			t.Fatalf("Band(%d) = %s, want %s", risk, got, want)
		}
	}
}

func assertCounts(t *testing.T, name string, got, want []models.LabelCount) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", name, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s[%d]: expected %v, got %v", name, i, want[i], got[i])
		}
	}
}
