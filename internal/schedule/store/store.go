// Package store persists the singleton schedule configuration.
package store

import (
	"context"

	"taptrail/internal/schedule/models"
)

// ScheduleStore reads and atomically replaces the schedule snapshot. Get
// always succeeds once the row is seeded; Replace swaps every field in one
// statement so readers never observe a torn snapshot.
type ScheduleStore interface {
	Get(ctx context.Context) (models.Schedule, error)
	// Replace overwrites the snapshot and bumps Version. The returned
	// schedule carries the new version and update time.
	Replace(ctx context.Context, next models.Schedule) (models.Schedule, error)
}
