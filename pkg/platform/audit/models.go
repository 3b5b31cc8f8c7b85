// Package audit defines the audit trail emitted by domain services.
//
// Events are transport-agnostic so sinks (Kafka, memory, log) can fan out
// without the services knowing where the trail lands.
package audit

import (
	"time"

	id "taptrail/pkg/domain"
)

// Action names a domain fact worth keeping in the audit trail.
type Action string

const (
	// Scan ingestion
	ActionScanRecorded    Action = "scan_recorded"
	ActionScanSuppressed  Action = "scan_suppressed"
	ActionSubjectAutoReg  Action = "subject_auto_registered"

	// Subject directory administration
	ActionSubjectCreated     Action = "subject_created"
	ActionSubjectUpdated     Action = "subject_updated"
	ActionSubjectDeactivated Action = "subject_deactivated"
	ActionSubjectReassigned  Action = "subject_uid_reassigned"

	// Schedule configuration
	ActionScheduleUpdated Action = "schedule_updated"

	// Day overrides
	ActionOverrideSet     Action = "day_override_set"
	ActionOverrideRemoved Action = "day_override_removed"
)

// Event is one immutable audit record. SourceUID carries the literal scanned
// string for scan events; ActorID identifies the administrator for admin
// actions.
type Event struct {
	Action    Action       `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	SubjectID id.SubjectID `json:"subject_id,omitempty"`
	SourceUID string       `json:"source_uid,omitempty"`
	EventKind string       `json:"event_kind,omitempty"`
	ActorID   string       `json:"actor_id,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}
