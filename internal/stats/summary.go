package stats

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
)

const (
	BandCritical = "CRITICAL(>=90)"
	BandHigh     = "HIGH(70-89)"
	BandMedium   = "MEDIUM(40-69)"
	BandLow      = "LOW(<40)"

	unknownSeverity = "UNKNOWN"
	unknownUser     = "<unknown>"
)

// StatusLookup resolves the lifecycle status of an incident without creating state.
type StatusLookup interface {
	Status(id string) models.Status
}

// Summarizer aggregates correlated incidents into SOC metrics.
type Summarizer struct {
	statuses StatusLookup
	logger   zerolog.Logger
}

// NewSummarizer constructs a Summarizer; statuses may be nil, in which case every
// incident counts as NEW.
func NewSummarizer(logger zerolog.Logger, statuses StatusLookup) *Summarizer {
	return &Summarizer{statuses: statuses, logger: logger.With().Str("component", "stats").Logger()}
}

// Summarize computes the distribution tables for incidents. Severity and status
// buckets keep first-seen order, risk bands a fixed order, technique and user
// tables descend by count with ties broken by label.
func (s *Summarizer) Summarize(incidents []models.UnifiedIncident) models.Stats {
	severities := newCounter()
	statuses := newCounter()
	techniques := newCounter()
	users := newCounter()
	bands := map[string]int{}

	for _, inc := range incidents {
		severity := strings.ToUpper(strings.TrimSpace(inc.Severity))
		if severity == "" {
			severity = unknownSeverity
		}
		severities.add(severity, 1)

		statuses.add(string(s.status(inc.ID)), 1)
		bands[Band(inc.FinalRisk)]++

		if id := inc.TechniqueID(); id != "" {
			techniques.add(id, 1)
		}

		user := inc.User
		if user == "" {
			user = unknownUser
		}
		users.add(user, inc.FinalRisk)
	}

	summary := models.Stats{
		Total:        len(incidents),
		BySeverity:   severities.inOrder(),
		ByStatus:     statuses.inOrder(),
		ByRiskBand:   make([]models.LabelCount, 0, 4),
		ByTechnique:  techniques.ranked(),
		UserExposure: users.ranked(),
	}
	for _, band := range []string{BandCritical, BandHigh, BandMedium, BandLow} {
		summary.ByRiskBand = append(summary.ByRiskBand, models.LabelCount{Label: band, Count: bands[band]})
	}
	s.logger.Debug().Int("incidents", summary.Total).Int("techniques", len(summary.ByTechnique)).Msg("stats computed")
	return summary
}

func (s *Summarizer) status(id string) models.Status {
	if s.statuses == nil {
		return models.StatusNew
	}
	st := s.statuses.Status(id)
	if st == "" {
		return models.StatusNew
	}
	return st
}

// Band returns the final-risk band label for risk.
func Band(risk int) string {
	switch {
	case risk >= 90:
		return BandCritical
	case risk >= 70:
		return BandHigh
	case risk >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string, n int) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label] += n
}

func (c *counter) inOrder() []models.LabelCount {
	out := make([]models.LabelCount, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, models.LabelCount{Label: label, Count: c.counts[label]})
	}
	return out
}

func (c *counter) ranked() []models.LabelCount {
	out := c.inOrder()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
