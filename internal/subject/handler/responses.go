package handler

import (
	"time"

	"taptrail/internal/subject/models"
)

// SubjectResponse is the HTTP representation of a directory entry.
type SubjectResponse struct {
	ID          string    `json:"id"`
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	Department  string    `json:"department"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromSubject maps a subject record to its HTTP representation.
func FromSubject(s *models.Subject) SubjectResponse {
	return SubjectResponse{
		ID:          s.ID.String(),
		UID:         s.ExternalUID,
		DisplayName: s.DisplayName,
		Department:  s.Department,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
	}
}

// ListSubjectsResponse is the HTTP response for GET /subjects.
type ListSubjectsResponse struct {
	Subjects []SubjectResponse `json:"subjects"`
}

// FromSubjects maps a directory page to its HTTP representation.
func FromSubjects(subjects []*models.Subject) ListSubjectsResponse {
	out := ListSubjectsResponse{Subjects: make([]SubjectResponse, 0, len(subjects))}
	for _, s := range subjects {
		out.Subjects = append(out.Subjects, FromSubject(s))
	}
	return out
}
