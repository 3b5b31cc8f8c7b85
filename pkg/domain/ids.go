// Package domain defines strongly typed identifiers shared across layers.
//
// IDs are distinct types over uuid.UUID so the compiler rejects accidental
// cross-assignment (e.g. passing a UserID where a SubjectID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "taptrail/pkg/domain-errors"
)

// SubjectID identifies the person behind a card.
type SubjectID uuid.UUID

// UserID identifies an administrative login account.
type UserID uuid.UUID

// EventID identifies one ledger event. It is a store-assigned sequence number
// so events remain orderable even when two share a timestamp.
type EventID int64

func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }

// MarshalText renders the ID in canonical UUID form. Without it, encoders
// would fall back to the underlying byte array, so JSON payloads carrying
// these IDs depend on it.
func (id SubjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

// UnmarshalText parses the canonical UUID form.
func (id *SubjectID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

func (id *UserID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

// IsNil reports whether the ID is the zero UUID.
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewSubjectID returns a fresh random subject ID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// ParseSubjectID parses and validates a subject ID from its string form.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
