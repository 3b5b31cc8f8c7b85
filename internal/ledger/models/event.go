// Package models defines the attendance ledger's event vocabulary.
package models

import (
	"time"

	id "taptrail/pkg/domain"
)

// Kind is the type of a ledger event.
//
// IN/OUT form one toggle; BREAK_START/BREAK_END form an independent toggle.
// A break never interrupts the clock toggle: a subject who clocks IN, starts
// a break, and taps again clocks OUT.
type Kind string

const (
	KindIn         Kind = "IN"
	KindOut        Kind = "OUT"
	KindBreakStart Kind = "BREAK_START"
	KindBreakEnd   Kind = "BREAK_END"
)

// ClockKinds and BreakKinds name the two toggle groups for store queries.
var (
	ClockKinds = []Kind{KindIn, KindOut}
	BreakKinds = []Kind{KindBreakStart, KindBreakEnd}
)

// IsClock reports whether the kind belongs to the IN/OUT toggle.
func (k Kind) IsClock() bool { return k == KindIn || k == KindOut }

// IsBreak reports whether the kind belongs to the break toggle.
func (k Kind) IsBreak() bool { return k == KindBreakStart || k == KindBreakEnd }

// Next returns the kind that follows prev within the clock toggle. With no
// prior clock event the sequence starts at IN.
func NextClock(prev *Kind) Kind {
	if prev != nil && *prev == KindIn {
		return KindOut
	}
	return KindIn
}

// NextBreak returns the kind that follows prev within the break toggle. With
// no prior break event the sequence starts at BREAK_START.
func NextBreak(prev *Kind) Kind {
	if prev != nil && *prev == KindBreakStart {
		return KindBreakEnd
	}
	return KindBreakStart
}

// Event is one immutable ledger fact. Events are never edited or deleted;
// deactivating a subject leaves its history untouched.
type Event struct {
	ID        id.EventID   `json:"id"`
	SubjectID id.SubjectID `json:"subject_id"`
	Kind      Kind         `json:"kind"`
	// Timestamp is server-assigned UTC. Kiosk-supplied times are never
	// trusted for ordering.
	Timestamp time.Time `json:"timestamp"`
	// SourceUID is the literal scanned string, kept for audit.
	SourceUID string `json:"source_uid"`
}
