// Package models defines administrative day-status overrides.
package models

import (
	"time"

	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
)

// Status categorizes an absent day. Overrides take precedence over
// ledger-derived presence for that single day during monthly aggregation.
type Status string

const (
	StatusLeave         Status = "LEAVE"
	StatusBusinessTrip  Status = "BUSINESS_TRIP"
	StatusWorkFromHome  Status = "WORK_FROM_HOME"
	StatusHalfDay       Status = "HALF_DAY"
	StatusSupplierVisit Status = "SUPPLIER_VISIT"
)

var validStatuses = map[Status]struct{}{
	StatusLeave:         {},
	StatusBusinessTrip:  {},
	StatusWorkFromHome:  {},
	StatusHalfDay:       {},
	StatusSupplierVisit: {},
}

// PresenceWeight is how much of a working day the override contributes:
// 1.0 for full-presence statuses, 0.5 for a half day.
func (s Status) PresenceWeight() float64 {
	if s == StatusHalfDay {
		return 0.5
	}
	return 1.0
}

// Validate rejects unknown statuses.
func (s Status) Validate() error {
	if _, ok := validStatuses[s]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown override status")
	}
	return nil
}

// Override marks one subject-day with an administrative status. Unique per
// (subject, day); setting again replaces the previous status.
type Override struct {
	SubjectID id.SubjectID `json:"subject_id"`
	Day       string       `json:"day"` // YYYY-MM-DD, local calendar day
	Status    Status       `json:"status"`
	Notes     string       `json:"notes,omitempty"`
	CreatedBy id.UserID    `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
}
