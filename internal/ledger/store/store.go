// Package store persists the append-only attendance ledger.
//
// Both implementations honor the same contract: events are immutable once
// appended, and "most recent event for subject X" is cheap: the Postgres
// store leans on the (subject_id, ts DESC) index, the memory store on a
// per-subject tail pointer.
package store

import (
	"context"
	"time"

	"taptrail/internal/ledger/models"
	id "taptrail/pkg/domain"
)

// EventStore is the ledger contract the sequencer and aggregation depend on.
// Implementations return sentinel.ErrNotFound from LastByKinds when the
// subject has no event of the requested kinds.
type EventStore interface {
	// Append inserts the event and assigns its ID. Events are never
	// updated or deleted afterwards.
	Append(ctx context.Context, event *models.Event) error

	// LastByKinds returns the subject's most recent event whose kind is in
	// kinds. This is the sequencer's hot path.
	LastByKinds(ctx context.Context, subjectID id.SubjectID, kinds []models.Kind) (*models.Event, error)

	// LastByKindsBefore is LastByKinds restricted to events with ID < before.
	// The sequencer uses it to rebuild the response a suppressed duplicate
	// must replay.
	LastByKindsBefore(ctx context.Context, subjectID id.SubjectID, kinds []models.Kind, before id.EventID) (*models.Event, error)

	// ListSubjectRange returns the subject's events with from <= ts < to,
	// ascending by timestamp.
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, from, to time.Time) ([]models.Event, error)

	// ListRange returns all events with from <= ts < to, ascending by
	// (subject, timestamp). Reports fetch a whole day or month in one call.
	ListRange(ctx context.Context, from, to time.Time) ([]models.Event, error)

	// CountRange counts events with from <= ts < to.
	CountRange(ctx context.Context, from, to time.Time) (int, error)
}
