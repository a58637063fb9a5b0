package engine

import (
	"fmt"
	"sort"

	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/utils"
)

const (
	SourceDetection = "detection"
	SourceForensic  = "forensic"
)

// BuildTimeline merges detection alerts and forensic findings into one list
// ordered by time. Entries without a parseable timestamp are dropped; events
// sharing a timestamp keep alert-then-finding input order.
func BuildTimeline(alerts []models.Alert, users []models.ForensicUserRecord) []models.TimelineEvent {
	events := make([]models.TimelineEvent, 0, len(alerts))

	for _, alert := range alerts {
		raw := alert.TsFirst
		if raw == "" {
			raw = alert.TsLast
		}
		ts, err := utils.ParseTimestamp(raw)
		if err != nil {
			continue
		}
		entity := alert.User
		if entity == "" {
			entity = alert.IP
		}
		if entity == "" {
			entity = alert.Asset
		}
		evidence := ""
		if len(alert.EventSamples) > 0 {
			evidence = alert.EventSamples[0]
		}
		events = append(events, models.TimelineEvent{
			Time:     ts.UTC(),
			Entity:   entity,
			Source:   SourceDetection,
			Severity: alert.Severity,
			Category: fmt.Sprintf("DETECTION:%s", alert.ThreatID),
			Evidence: evidence,
		})
	}

	for _, user := range users {
		for _, finding := range user.Findings {
			ts, err := utils.ParseTimestamp(finding.Ts)
			if err != nil {
				continue
			}
			evidence := finding.Evidence
			if evidence == "" {
				evidence = finding.Details
			}
			events = append(events, models.TimelineEvent{
				Time:     ts.UTC(),
				Entity:   user.User,
				Source:   SourceForensic,
				Severity: finding.Severity,
				Category: finding.Category,
				Evidence: evidence,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events
}

// FilterTimeline keeps the events recorded for entity.
func FilterTimeline(events []models.TimelineEvent, entity string) []models.TimelineEvent {
	out := make([]models.TimelineEvent, 0)
	for _, ev := range events {
		if ev.Entity == entity {
			out = append(out, ev)
		}
	}
	return out
}
