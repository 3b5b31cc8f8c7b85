// Package store persists day-status overrides.
package store

import (
	"context"

	"taptrail/internal/override/models"
	id "taptrail/pkg/domain"
)

// OverrideStore keys overrides by (subject, local day). Days are YYYY-MM-DD
// strings, which sort lexicographically in calendar order, so range queries
// are half-open string comparisons.
type OverrideStore interface {
	// Set inserts or replaces the override for the subject-day.
	Set(ctx context.Context, override *models.Override) error
	// Remove deletes the override; sentinel.ErrNotFound when absent.
	Remove(ctx context.Context, subjectID id.SubjectID, day string) error
	Get(ctx context.Context, subjectID id.SubjectID, day string) (*models.Override, error)
	// ListSubjectRange returns overrides with fromDay <= day < toDay in
	// ascending day order.
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, fromDay, toDay string) ([]models.Override, error)
}
