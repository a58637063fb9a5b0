package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/extractors"
	"github.com/socops/sochub/internal/models"
)

// Correlator joins the four source reports into unified, risk-ranked incidents.
type Correlator struct {
	logger    zerolog.Logger
	rules     *RuleTable
	detection *extractors.DetectionExtractor
	assets    *extractors.AssetExtractor
	intel     *extractors.IntelExtractor
	forensic  *extractors.ForensicExtractor
	now       func() time.Time
}

// NewCorrelator constructs a correlator. Nil dependencies fall back to defaults;
// a nil rule table disables technique assignment.
func NewCorrelator(
	logger zerolog.Logger,
	rules *RuleTable,
	detection *extractors.DetectionExtractor,
	assets *extractors.AssetExtractor,
	intel *extractors.IntelExtractor,
	forensic *extractors.ForensicExtractor,
) *Correlator {
	if rules == nil {
		rules = EmptyRuleTable()
	}
	if detection == nil {
		detection = extractors.NewDetectionExtractor()
	}
	if assets == nil {
		assets = extractors.NewAssetExtractor()
	}
	if intel == nil {
		intel = extractors.NewIntelExtractor()
	}
	if forensic == nil {
		forensic = extractors.NewForensicExtractor()
	}
	return &Correlator{
		logger:    logger.With().Str("component", "correlator").Logger(),
		rules:     rules,
		detection: detection,
		assets:    assets,
		intel:     intel,
		forensic:  forensic,
		now:       time.Now,
	}
}

// Rules exposes the rule table the correlator assigns techniques from.
func (c *Correlator) Rules() *RuleTable {
	return c.rules
}

// Correlate extracts typed records from the documents and unifies them.
func (c *Correlator) Correlate(docs models.SourceDocuments) models.CorrelationResult {
	runID := uuid.NewString()
	incidents := c.Unify(
		c.detection.Incidents(docs.Detection),
		c.assets.Assets(docs.Assets),
		c.intel.Indicators(docs.Intel),
		c.forensic.Users(docs.Forensic),
	)
	c.logger.Debug().
		Str("run_id", runID).
		Int("incidents", len(incidents)).
		Msg("correlation complete")
	return models.CorrelationResult{
		RunID:       runID,
		GeneratedAt: c.now().UTC(),
		Incidents:   incidents,
	}
}

// Unify joins every raw incident with asset, intel and forensic context by its
// IP and user, scores it, and returns the list ordered by final risk descending.
// Ties keep input order. Joins are best effort: a missing key or record yields nil.
func (c *Correlator) Unify(
	incidents []models.RawIncident,
	assets []models.AssetRecord,
	indicators []models.IndicatorRecord,
	users []models.ForensicUserRecord,
) []models.UnifiedIncident {
	assetsByIP := indexAssets(assets)
	intelByValue := indexIndicators(indicators)
	forensicByUser := indexForensic(users)

	unified := make([]models.UnifiedIncident, 0, len(incidents))
	for _, inc := range incidents {
		user := inc.Entities.User
		ip := inc.Entities.IP

		var asset *models.AssetRecord
		if rec, ok := assetsByIP[ip]; ok && ip != "" {
			asset = &rec
		}
		var intel *models.IndicatorRecord
		if rec, ok := intelByValue[ip]; ok && ip != "" {
			intel = &rec
		}
		var forensic *models.ForensicUserRecord
		if rec, ok := forensicByUser[user]; ok && user != "" {
			forensic = &rec
		}

		unified = append(unified, models.UnifiedIncident{
			ID:        inc.ID,
			Title:     inc.Title,
			Severity:  inc.Severity,
			Risk:      inc.RiskScore,
			User:      user,
			IP:        ip,
			Asset:     asset,
			Intel:     intel,
			Forensic:  forensic,
			Technique: c.rules.Assign(forensic.Categories()),
			FinalRisk: ComputeFinalRisk(riskInputs(inc, asset, intel, forensic)),
		})
	}

	sort.SliceStable(unified, func(i, j int) bool {
		return unified[i].FinalRisk > unified[j].FinalRisk
	})
	return unified
}

// Timeline builds the chronological event list from detection alerts and
// forensic findings.
func (c *Correlator) Timeline(docs models.SourceDocuments) []models.TimelineEvent {
	return BuildTimeline(c.detection.Alerts(docs.Detection), c.forensic.Users(docs.Forensic))
}

func indexAssets(assets []models.AssetRecord) map[string]models.AssetRecord {
	out := make(map[string]models.AssetRecord, len(assets))
	for _, asset := range assets {
		if asset.IP == "" {
			continue
		}
		out[asset.IP] = asset
	}
	return out
}

func indexIndicators(indicators []models.IndicatorRecord) map[string]models.IndicatorRecord {
	out := make(map[string]models.IndicatorRecord, len(indicators))
	for _, rec := range indicators {
		if rec.Value == "" {
			continue
		}
		out[rec.Value] = rec
	}
	return out
}

func indexForensic(users []models.ForensicUserRecord) map[string]models.ForensicUserRecord {
	out := make(map[string]models.ForensicUserRecord, len(users))
	for _, rec := range users {
		if rec.User == "" {
			continue
		}
		out[rec.User] = rec
	}
	return out
}
