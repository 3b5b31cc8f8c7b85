// Package models defines the versioned schedule configuration snapshot.
package models

import (
	"fmt"
	"time"

	dErrors "taptrail/pkg/domain-errors"
)

// Schedule is the admin-editable attendance policy. It is read as a single
// immutable snapshot per computation: updates replace the whole record and
// bump Version, so a report never observes a torn mix of old and new fields.
type Schedule struct {
	WorkStart           string    `json:"work_start"` // HH:MM, local time
	WorkEnd             string    `json:"work_end"`   // HH:MM, local time
	GraceMinutes        int       `json:"grace_minutes"`
	TimezoneOffsetHours int       `json:"timezone_offset_hours"`
	Version             int64     `json:"version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Default is the bootstrap configuration created on first run.
func Default() Schedule {
	return Schedule{
		WorkStart:    "09:00",
		WorkEnd:      "17:00",
		GraceMinutes: 15,
		Version:      1,
	}
}

// Validate checks field-level invariants before a snapshot replace.
func (s Schedule) Validate() error {
	startMin, err := parseClock(s.WorkStart)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "work_start must be HH:MM")
	}
	endMin, err := parseClock(s.WorkEnd)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "work_end must be HH:MM")
	}
	if endMin <= startMin {
		return dErrors.New(dErrors.CodeInvalidInput, "work_end must be after work_start")
	}
	if s.GraceMinutes < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "grace_minutes must not be negative")
	}
	if s.TimezoneOffsetHours < -12 || s.TimezoneOffsetHours > 14 {
		return dErrors.New(dErrors.CodeInvalidInput, "timezone_offset_hours must be between -12 and 14")
	}
	return nil
}

// Location returns the fixed-offset zone all local-day arithmetic uses.
func (s Schedule) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", s.TimezoneOffsetHours), s.TimezoneOffsetHours*3600)
}

// WorkStartMinutes returns the scheduled start as minutes after local
// midnight. Call Validate first; malformed snapshots never reach here.
func (s Schedule) WorkStartMinutes() int {
	m, _ := parseClock(s.WorkStart)
	return m
}

// WorkEndMinutes returns the scheduled end as minutes after local midnight.
func (s Schedule) WorkEndMinutes() int {
	m, _ := parseClock(s.WorkEnd)
	return m
}

func parseClock(v string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range: %s", v)
	}
	return h*60 + m, nil
}
