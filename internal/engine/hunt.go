package engine

import (
	"strings"

	"github.com/socops/sochub/internal/models"
)

// HuntCriteria narrows a correlated incident list. Zero-valued fields are ignored.
type HuntCriteria struct {
	User      string
	IP        string
	Technique string
	Category  string
	MinRisk   int
}

// Empty reports whether no criterion is set.
func (c HuntCriteria) Empty() bool {
	return c.User == "" && c.IP == "" && c.Technique == "" && c.Category == "" && c.MinRisk <= 0
}

// Matches reports whether inc satisfies every set criterion. Technique and
// category comparisons ignore case.
func (c HuntCriteria) Matches(inc models.UnifiedIncident) bool {
	if c.User != "" && inc.User != c.User {
		return false
	}
	if c.IP != "" && inc.IP != c.IP {
		return false
	}
	if c.Technique != "" && !strings.EqualFold(inc.TechniqueID(), strings.TrimSpace(c.Technique)) {
		return false
	}
	if c.Category != "" && !inc.HasCategory(models.Category(strings.ToUpper(strings.TrimSpace(c.Category)))) {
		return false
	}
	if c.MinRisk > 0 && inc.FinalRisk < c.MinRisk {
		return false
	}
	return true
}

// Hunt returns the incidents matching criteria, preserving input order.
func Hunt(incidents []models.UnifiedIncident, criteria HuntCriteria) []models.UnifiedIncident {
	out := make([]models.UnifiedIncident, 0, len(incidents))
	for _, inc := range incidents {
		if criteria.Matches(inc) {
			out = append(out, inc)
		}
	}
	return out
}
