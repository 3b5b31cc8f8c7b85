package handler

import (
	"time"

	"taptrail/internal/scan/service"
)

// ScanResponse is the HTTP response for a handled scan. A suppressed
// duplicate returns the same body as the original accepted scan plus the
// suppressed marker.
type ScanResponse struct {
	SubjectID              string     `json:"subject_id"`
	DisplayName            string     `json:"display_name"`
	EventKind              string     `json:"event_kind"`
	Timestamp              time.Time  `json:"timestamp"`
	IsLate                 bool       `json:"is_late"`
	TodayWorkedMinutes     int        `json:"today_worked_minutes"`
	Suppressed             bool       `json:"suppressed"`
	PreviousEventKind      *string    `json:"previous_event_kind,omitempty"`
	PreviousEventTimestamp *time.Time `json:"previous_event_timestamp,omitempty"`
}

// FromResult converts a sequencer result to an HTTP response.
func FromResult(result *service.Result) *ScanResponse {
	resp := &ScanResponse{
		SubjectID:          result.Subject.ID.String(),
		DisplayName:        result.Subject.DisplayName,
		EventKind:          string(result.Event.Kind),
		Timestamp:          result.Event.Timestamp,
		IsLate:             result.IsLate,
		TodayWorkedMinutes: result.TodayWorkedMinutes,
		Suppressed:         result.Suppressed,
	}
	if result.PreviousKind != nil {
		kind := string(*result.PreviousKind)
		resp.PreviousEventKind = &kind
		resp.PreviousEventTimestamp = result.PreviousTimestamp
	}
	return resp
}
