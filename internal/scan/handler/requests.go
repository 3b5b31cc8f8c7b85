package handler

import (
	"strings"

	dErrors "taptrail/pkg/domain-errors"
)

// ScanRequest is the HTTP request body for POST /scan and POST /scan/break.
type ScanRequest struct {
	UID string `json:"uid"`
}

// Validate trims and checks the UID field. Deeper UID shape validation lives
// in the subject model where the sequencer applies it.
func (r *ScanRequest) Validate() error {
	r.UID = strings.TrimSpace(r.UID)
	if r.UID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "uid is required")
	}
	return nil
}
