package handler

import (
	"strings"

	dErrors "taptrail/pkg/domain-errors"
)

// CreateSubjectRequest is the HTTP request body for POST /subjects.
type CreateSubjectRequest struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// Validate checks required fields. UID format is enforced by the service.
func (r *CreateSubjectRequest) Validate() error {
	r.UID = strings.TrimSpace(r.UID)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.UID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "uid is required")
	}
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}
	return nil
}

// UpdateSubjectRequest is the HTTP request body for PUT /subjects/{subjectID}.
type UpdateSubjectRequest struct {
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// Validate checks required fields.
func (r *UpdateSubjectRequest) Validate() error {
	if strings.TrimSpace(r.DisplayName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}
	return nil
}

// ReassignUIDRequest is the HTTP request body for PUT /subjects/{subjectID}/uid.
type ReassignUIDRequest struct {
	UID string `json:"uid"`
}

// Validate checks required fields.
func (r *ReassignUIDRequest) Validate() error {
	r.UID = strings.TrimSpace(r.UID)
	if r.UID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "uid is required")
	}
	return nil
}
