package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/socops/sochub/internal/models"
)

// DefaultCategoryPriority decides which technique wins when one forensic record
// carries several categories: credential abuse first, then privileged misuse,
// then malicious patterns, then time anomalies.
var DefaultCategoryPriority = []models.Category{
	models.CategoryCredentialAbuse,
	models.CategoryAdminMisuse,
	models.CategoryMaliciousPattern,
	models.CategoryTimeAnomaly,
}

// RuleTable maps finding categories to ATT&CK techniques. It is immutable once built.
type RuleTable struct {
	techniques map[models.Category]models.TechniqueMapping
	priority   []models.Category
}

// NewRuleTable copies the supplied mapping. A nil priority selects DefaultCategoryPriority.
func NewRuleTable(techniques map[models.Category]models.TechniqueMapping, priority []models.Category) *RuleTable {
	t := &RuleTable{
		techniques: make(map[models.Category]models.TechniqueMapping, len(techniques)),
		priority:   append([]models.Category(nil), priority...),
	}
	for category, mapping := range techniques {
		t.techniques[category] = mapping
	}
	if len(t.priority) == 0 {
		t.priority = append([]models.Category(nil), DefaultCategoryPriority...)
	}
	return t
}

// EmptyRuleTable returns a table that resolves no category.
func EmptyRuleTable() *RuleTable {
	return NewRuleTable(nil, nil)
}

// LoadRuleTable reads a YAML rule table. Two layouts are accepted: a flat
// mapping of category to technique, or a document with "techniques" and an
// optional "priority" list. A missing file yields an empty table without error;
// an unreadable or unparseable file yields an empty table and the error, so
// technique assignment degrades instead of failing the run.
func LoadRuleTable(path string, logger zerolog.Logger) (*RuleTable, error) {
	if path == "" {
		return EmptyRuleTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("rule table not found, technique mapping disabled")
			return EmptyRuleTable(), nil
		}
		return EmptyRuleTable(), fmt.Errorf("read rule table: %w", err)
	}

	var root map[string]yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return EmptyRuleTable(), fmt.Errorf("parse rule table: %w", err)
	}

	techniques := make(map[models.Category]models.TechniqueMapping)
	var priority []models.Category
	for key, node := range root {
		switch key {
		case "priority":
			var order []string
			if err := node.Decode(&order); err != nil {
				logger.Warn().Err(err).Msg("ignoring malformed rule priority list")
				continue
			}
			for _, c := range order {
				priority = append(priority, models.Category(c))
			}
		case "techniques":
			var nested map[string]models.TechniqueMapping
			if err := node.Decode(&nested); err != nil {
				logger.Warn().Err(err).Msg("ignoring malformed techniques section")
				continue
			}
			for category, mapping := range nested {
				techniques[models.Category(category)] = mapping
			}
		default:
			var mapping models.TechniqueMapping
			if err := node.Decode(&mapping); err != nil {
				logger.Warn().Err(err).Str("category", key).Msg("ignoring malformed rule")
				continue
			}
			techniques[models.Category(key)] = mapping
		}
	}

	table := NewRuleTable(techniques, priority)
	for _, category := range table.Priority() {
		if _, ok := table.Lookup(category); !ok {
			logger.Warn().Str("category", string(category)).Msg("priority category has no technique mapping")
		}
	}
	logger.Debug().Str("path", path).Int("rules", table.Len()).Msg("rule table loaded")
	return table, nil
}

// Lookup returns the technique mapped to category.
func (t *RuleTable) Lookup(category models.Category) (models.TechniqueMapping, bool) {
	if t == nil {
		return models.TechniqueMapping{}, false
	}
	mapping, ok := t.techniques[category]
	return mapping, ok
}

// Priority returns a copy of the category priority list.
func (t *RuleTable) Priority() []models.Category {
	if t == nil {
		return append([]models.Category(nil), DefaultCategoryPriority...)
	}
	return append([]models.Category(nil), t.priority...)
}

// Len returns the number of mapped categories.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.techniques)
}

// Assign walks the priority list and returns the technique of the first category
// that is both present in categories and mapped by the table. The result depends
// only on the category set, never on finding order.
func (t *RuleTable) Assign(categories map[models.Category]struct{}) *models.TechniqueMapping {
	if t == nil || len(categories) == 0 {
		return nil
	}
	for _, category := range t.priority {
		if _, present := categories[category]; !present {
			continue
		}
		if mapping, ok := t.techniques[category]; ok {
			return &mapping
		}
	}
	return nil
}
