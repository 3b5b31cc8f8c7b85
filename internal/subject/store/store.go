// Package store persists the subject directory.
package store

import (
	"context"

	"taptrail/internal/subject/models"
	id "taptrail/pkg/domain"
)

// ListFilter narrows List results. Only active subjects are listed.
type ListFilter struct {
	Search string
	Offset int
	Limit  int
}

// SubjectStore maps card UIDs to subject records. Create returns
// sentinel.ErrConflict when the UID is already held; lookups return
// sentinel.ErrNotFound.
type SubjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	FindByUID(ctx context.Context, uid string) (*models.Subject, error)
	FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Subject, error)
	Update(ctx context.Context, subject *models.Subject) error
	Deactivate(ctx context.Context, subjectID id.SubjectID) error
	// ReassignUID moves a UID to the given subject. The UID must not be
	// held by any other subject at commit time.
	ReassignUID(ctx context.Context, subjectID id.SubjectID, newUID string) error
	CountActive(ctx context.Context) (int, error)
}
