package extractors

import "github.com/socops/sochub/internal/models"

// DetectionExtractor reads incidents and alerts from the endpoint-detection report.
type DetectionExtractor struct{}

// NewDetectionExtractor constructs a detection report extractor.
func NewDetectionExtractor() *DetectionExtractor {
	return &DetectionExtractor{}
}

// Incidents returns the report's incidents in document order. Elements that are
// not objects are skipped; missing fields read as zero values.
func (e *DetectionExtractor) Incidents(doc models.Document) []models.RawIncident {
	items := objects(doc, "incidents")
	incidents := make([]models.RawIncident, 0, len(items))
	for _, item := range items {
		entities := item.obj("entities")
		incidents = append(incidents, models.RawIncident{
			ID:        item.str("id"),
			Title:     item.str("title"),
			Severity:  item.str("severity"),
			RiskScore: item.num("risk_score"),
			Entities: models.Entities{
				User: entities.str("user"),
				IP:   entities.str("ip"),
			},
		})
	}
	return incidents
}

// Alerts returns the raw alerts of the report in document order.
func (e *DetectionExtractor) Alerts(doc models.Document) []models.Alert {
	items := objects(doc, "alerts")
	alerts := make([]models.Alert, 0, len(items))
	for _, item := range items {
		alerts = append(alerts, models.Alert{
			ThreatID:     item.str("threat_id"),
			Severity:     item.str("severity"),
			User:         item.str("user"),
			IP:           item.str("ip"),
			Asset:        item.str("asset"),
			TsFirst:      item.str("ts_first"),
			TsLast:       item.str("ts_last"),
			EventSamples: item.strs("event_samples"),
		})
	}
	return alerts
}
