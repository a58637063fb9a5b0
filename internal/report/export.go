package report

import (
	"time"

	"github.com/socops/sochub/internal/models"
)

// ExportData is the input to the HTML and PDF exporters.
type ExportData struct {
	Title       string
	RunID       string
	GeneratedAt time.Time
	Incidents   []models.IncidentView
	Stats       models.Stats
}

type exportRow struct {
	ID        string
	Title     string
	Severity  string
	SevClass  string
	FinalRisk int
	User      string
	IP        string
	Technique string
	Status    string
	Owner     string
}

func exportRows(views []models.IncidentView) []exportRow {
	rows := make([]exportRow, 0, len(views))
	for _, v := range views {
		inc := v.Incident
		owner := ""
		if v.Lifecycle != nil {
			owner = v.Lifecycle.OwnerName()
		}
		rows = append(rows, exportRow{
			ID:        inc.ID,
			Title:     inc.Title,
			Severity:  inc.Severity,
			SevClass:  severityClass(inc.FinalRisk),
			FinalRisk: inc.FinalRisk,
			User:      inc.User,
			IP:        inc.IP,
			Technique: techniqueLabel(inc.Technique),
			Status:    string(v.Status()),
			Owner:     owner,
		})
	}
	return rows
}

func severityClass(risk int) string {
	switch {
	case risk >= 90:
		return "critical"
	case risk >= 70:
		return "high"
	case risk >= 40:
		return "medium"
	default:
		return "low"
	}
}
