package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taptrail/internal/override/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

// Postgres stores overrides in the day_overrides table. The unique
// (subject_id, day) constraint makes Set a plain upsert.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed override store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Set(ctx context.Context, override *models.Override) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO day_overrides (subject_id, day, status, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT uq_override_subject_day
		 DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
		               created_by = EXCLUDED.created_by, created_at = EXCLUDED.created_at`,
		uuid.UUID(override.SubjectID), override.Day, string(override.Status),
		override.Notes, uuid.UUID(override.CreatedBy), override.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

func (s *Postgres) Remove(ctx context.Context, subjectID id.SubjectID, day string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM day_overrides WHERE subject_id = $1 AND day = $2`,
		uuid.UUID(subjectID), day,
	)
	if err != nil {
		return fmt.Errorf("remove override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, subjectID id.SubjectID, day string) (*models.Override, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT subject_id, to_char(day, 'YYYY-MM-DD'), status, coalesce(notes, ''), created_by, created_at
		 FROM day_overrides
		 WHERE subject_id = $1 AND day = $2`,
		uuid.UUID(subjectID), day,
	)
	override, err := scanOverride(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get override: %w", err)
	}
	return override, nil
}

func (s *Postgres) ListSubjectRange(ctx context.Context, subjectID id.SubjectID, fromDay, toDay string) ([]models.Override, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subject_id, to_char(day, 'YYYY-MM-DD'), status, coalesce(notes, ''), created_by, created_at
		 FROM day_overrides
		 WHERE subject_id = $1 AND day >= $2 AND day < $3
		 ORDER BY day ASC`,
		uuid.UUID(subjectID), fromDay, toDay,
	)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var out []models.Override
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out = append(out, *override)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOverride(row rowScanner) (*models.Override, error) {
	var override models.Override
	var subjectID, createdBy uuid.UUID
	var status string
	if err := row.Scan(&subjectID, &override.Day, &status, &override.Notes,
		&createdBy, &override.CreatedAt); err != nil {
		return nil, err
	}
	override.SubjectID = id.SubjectID(subjectID)
	override.CreatedBy = id.UserID(createdBy)
	override.Status = models.Status(status)
	override.CreatedAt = override.CreatedAt.UTC()
	return &override, nil
}
