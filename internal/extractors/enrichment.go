package extractors

import "github.com/socops/sochub/internal/models"

// AssetExtractor reads the attack-surface audit report.
type AssetExtractor struct{}

// NewAssetExtractor constructs an asset report extractor.
func NewAssetExtractor() *AssetExtractor {
	return &AssetExtractor{}
}

// Assets returns the audited assets in document order.
func (e *AssetExtractor) Assets(doc models.Document) []models.AssetRecord {
	items := objects(doc, "assets")
	assets := make([]models.AssetRecord, 0, len(items))
	for _, item := range items {
		assets = append(assets, models.AssetRecord{
			IP:                 item.str("ip"),
			AttackSurfaceScore: item.num("attack_surface_score"),
		})
	}
	return assets
}

// IntelExtractor reads the threat-intel indicator report.
type IntelExtractor struct{}

// NewIntelExtractor constructs an intel report extractor.
func NewIntelExtractor() *IntelExtractor {
	return &IntelExtractor{}
}

// Indicators returns the indicators in document order.
func (e *IntelExtractor) Indicators(doc models.Document) []models.IndicatorRecord {
	items := objects(doc, "indicators")
	indicators := make([]models.IndicatorRecord, 0, len(items))
	for _, item := range items {
		indicators = append(indicators, models.IndicatorRecord{
			Value: item.str("value"),
			Risk:  item.str("risk"),
			Score: item.num("score"),
		})
	}
	return indicators
}

// ForensicExtractor reads the host forensic report.
type ForensicExtractor struct{}

// NewForensicExtractor constructs a forensic report extractor.
func NewForensicExtractor() *ForensicExtractor {
	return &ForensicExtractor{}
}

// Users returns the per-user forensic records in document order, each with its
// findings in their original order.
func (e *ForensicExtractor) Users(doc models.Document) []models.ForensicUserRecord {
	items := objects(doc, "users")
	users := make([]models.ForensicUserRecord, 0, len(items))
	for _, item := range items {
		rawFindings := item.list("findings")
		findings := make([]models.Finding, 0, len(rawFindings))
		for _, f := range rawFindings {
			findings = append(findings, models.Finding{
				Category: f.str("category"),
				Severity: f.str("severity"),
				Ts:       f.str("ts"),
				Evidence: f.str("evidence"),
				Details:  f.str("details"),
			})
		}
		users = append(users, models.ForensicUserRecord{
			User:      item.str("user"),
			RiskScore: item.num("risk_score"),
			Findings:  findings,
		})
	}
	return users
}
