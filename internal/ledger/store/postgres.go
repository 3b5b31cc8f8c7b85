package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taptrail/internal/ledger/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

// Postgres persists the ledger in the events table. Serialization of the
// read-modify-append sequence happens in the sequencer's keyed lock, so the
// store itself only needs plain reads and inserts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed ledger store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Append(ctx context.Context, event *models.Event) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (subject_id, kind, ts, source_uid)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		uuid.UUID(event.SubjectID), string(event.Kind), event.Timestamp, event.SourceUID,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("append event: %w", errors.Join(err, sentinel.ErrUnavailable))
	}
	return nil
}

func (s *Postgres) LastByKinds(ctx context.Context, subjectID id.SubjectID, kinds []models.Kind) (*models.Event, error) {
	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, subject_id, kind, ts, source_uid
		 FROM events
		 WHERE subject_id = $1 AND kind = ANY($2)
		 ORDER BY ts DESC, id DESC
		 LIMIT 1`,
		uuid.UUID(subjectID), kindStrs,
	)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("last event by kinds: %w", err)
	}
	return ev, nil
}

func (s *Postgres) LastByKindsBefore(ctx context.Context, subjectID id.SubjectID, kinds []models.Kind, before id.EventID) (*models.Event, error) {
	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id, subject_id, kind, ts, source_uid
		 FROM events
		 WHERE subject_id = $1 AND kind = ANY($2) AND id < $3
		 ORDER BY ts DESC, id DESC
		 LIMIT 1`,
		uuid.UUID(subjectID), kindStrs, int64(before),
	)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("last event before: %w", err)
	}
	return ev, nil
}

func (s *Postgres) ListSubjectRange(ctx context.Context, subjectID id.SubjectID, from, to time.Time) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, kind, ts, source_uid
		 FROM events
		 WHERE subject_id = $1 AND ts >= $2 AND ts < $3
		 ORDER BY ts ASC, id ASC`,
		uuid.UUID(subjectID), from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list subject range: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *Postgres) ListRange(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, kind, ts, source_uid
		 FROM events
		 WHERE ts >= $1 AND ts < $2
		 ORDER BY subject_id, ts ASC, id ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list range: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *Postgres) CountRange(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM events WHERE ts >= $1 AND ts < $2`, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count range: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var ev models.Event
	var subjectID uuid.UUID
	var kind string
	if err := row.Scan(&ev.ID, &subjectID, &kind, &ev.Timestamp, &ev.SourceUID); err != nil {
		return nil, err
	}
	ev.SubjectID = id.SubjectID(subjectID)
	ev.Kind = models.Kind(kind)
	ev.Timestamp = ev.Timestamp.UTC()
	return &ev, nil
}

func collectEvents(rows pgx.Rows) ([]models.Event, error) {
	var out []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
