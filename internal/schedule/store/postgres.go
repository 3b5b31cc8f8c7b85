package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"taptrail/internal/schedule/models"
)

// Postgres stores the snapshot in the single-row schedule_config table. The
// row is seeded by migrations, so Get never sees an empty table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed schedule store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Get(ctx context.Context) (models.Schedule, error) {
	var sched models.Schedule
	err := s.pool.QueryRow(ctx,
		`SELECT work_start, work_end, grace_minutes, timezone_offset_hours, version, updated_at
		 FROM schedule_config WHERE id = 1`,
	).Scan(&sched.WorkStart, &sched.WorkEnd, &sched.GraceMinutes,
		&sched.TimezoneOffsetHours, &sched.Version, &sched.UpdatedAt)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	sched.UpdatedAt = sched.UpdatedAt.UTC()
	return sched, nil
}

func (s *Postgres) Replace(ctx context.Context, next models.Schedule) (models.Schedule, error) {
	err := s.pool.QueryRow(ctx,
		`UPDATE schedule_config
		 SET work_start = $1, work_end = $2, grace_minutes = $3,
		     timezone_offset_hours = $4, version = version + 1, updated_at = now()
		 WHERE id = 1
		 RETURNING version, updated_at`,
		next.WorkStart, next.WorkEnd, next.GraceMinutes, next.TimezoneOffsetHours,
	).Scan(&next.Version, &next.UpdatedAt)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("replace schedule: %w", err)
	}
	next.UpdatedAt = next.UpdatedAt.UTC()
	return next, nil
}
