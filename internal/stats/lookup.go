package stats

import "github.com/socops/sochub/internal/models"

// StatusMap serves statuses from a snapshot keyed by incident id.
type StatusMap map[string]models.Status

// Status implements StatusLookup.
func (m StatusMap) Status(id string) models.Status {
	return m[id]
}
