// Package models defines the subject directory's records.
package models

import (
	"regexp"
	"time"

	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
)

// uidPattern matches what keyboard-emulating card readers emit: alphanumeric
// plus colon, underscore, hyphen, 2-64 characters.
var uidPattern = regexp.MustCompile(`^[A-Za-z0-9:_-]{2,64}$`)

// ValidateUID rejects malformed card UIDs before any store lookup happens.
func ValidateUID(uid string) error {
	if !uidPattern.MatchString(uid) {
		return dErrors.New(dErrors.CodeInvalidInput,
			"uid must be 2-64 characters of letters, digits, colon, underscore or hyphen")
	}
	return nil
}

// Subject is the identity behind a card.
//
// Invariants:
//   - ExternalUID is unique among current holders; administrative
//     reassignment may move a UID to a different subject but never lets two
//     subjects hold it concurrently.
//   - Active is a soft-delete flag; a deactivated subject keeps its ledger
//     history and rejects new scans.
type Subject struct {
	ID          id.SubjectID `json:"id"`
	ExternalUID string       `json:"external_uid"`
	DisplayName string       `json:"display_name"`
	Department  string       `json:"department"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

// New constructs an active subject after validating the UID.
func New(uid, displayName, department string, now time.Time) (*Subject, error) {
	if err := ValidateUID(uid); err != nil {
		return nil, err
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}
	if len(displayName) > 200 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "display name must not exceed 200 characters")
	}
	if department == "" {
		department = "Unassigned"
	}
	return &Subject{
		ID:          id.NewSubjectID(),
		ExternalUID: uid,
		DisplayName: displayName,
		Department:  department,
		Active:      true,
		CreatedAt:   now,
	}, nil
}

// NewAutoRegistered builds the placeholder subject created on the first scan
// of an unknown UID.
func NewAutoRegistered(uid string, now time.Time) (*Subject, error) {
	name := uid
	if len(name) > 8 {
		name = name[:8]
	}
	return New(uid, "Subject-"+name, "Unassigned", now)
}
