package models

import (
	"strings"
	"time"
)

// Status is an operator-assigned lifecycle label. Any label is accepted; the
// constants below are the ones the tooling knows about.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusTriaged    Status = "TRIAGED"
	StatusContained  Status = "CONTAINED"
	StatusEradicated Status = "ERADICATED"
	StatusClosed     Status = "CLOSED"
)

// KnownStatuses lists the documented lifecycle progression.
var KnownStatuses = []Status{StatusNew, StatusTriaged, StatusContained, StatusEradicated, StatusClosed}

// NormalizeStatus upper-cases a caller supplied label without validating it.
func NormalizeStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether s is one of KnownStatuses.
func (s Status) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// Note is an append-only operator comment.
type Note struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// LifecycleRecord is the durable operator state of an incident.
type LifecycleRecord struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Owner     *string   `json:"owner"`
	Notes     []Note    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLifecycleRecord returns a NEW record with no owner and no notes.
func NewLifecycleRecord(id string, now time.Time) LifecycleRecord {
	return LifecycleRecord{
		ID:        id,
		Status:    StatusNew,
		Notes:     []Note{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnerName returns the owner or "" when unassigned.
func (r LifecycleRecord) OwnerName() string {
	if r.Owner == nil {
		return ""
	}
	return *r.Owner
}

// LifecycleUpdate describes a partial lifecycle mutation. Empty Status and Note
// mean "not given"; a nil Owner leaves the owner untouched while a pointer to ""
// clears it.
type LifecycleUpdate struct {
	Status string
	Owner  *string
	Note   string
}
