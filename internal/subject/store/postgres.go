package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taptrail/internal/subject/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// Postgres persists subjects in the subjects table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed subject directory.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, subject *models.Subject) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subjects (id, external_uid, display_name, department, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(subject.ID), subject.ExternalUID, subject.DisplayName,
		subject.Department, subject.Active, subject.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUID(ctx context.Context, uid string) (*models.Subject, error) {
	return s.findWhere(ctx, `external_uid = $1`, uid)
}

func (s *Postgres) FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	return s.findWhere(ctx, `id = $1`, uuid.UUID(subjectID))
}

func (s *Postgres) findWhere(ctx context.Context, clause string, arg any) (*models.Subject, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, external_uid, display_name, department, active, created_at
		 FROM subjects WHERE `+clause, arg)
	subject, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return subject, nil
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*models.Subject, error) {
	query := `SELECT id, external_uid, display_name, department, active, created_at
	          FROM subjects WHERE active`
	args := []any{}
	if filter.Search != "" {
		// Escape LIKE metacharacters so a search term cannot widen the match.
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(filter.Search)
		args = append(args, "%"+escaped+"%")
		query += fmt.Sprintf(` AND display_name ILIKE $%d ESCAPE '\'`, len(args))
	}
	query += ` ORDER BY display_name`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	args = append(args, filter.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []*models.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func (s *Postgres) Update(ctx context.Context, subject *models.Subject) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subjects SET display_name = $2, department = $3 WHERE id = $1`,
		uuid.UUID(subject.ID), subject.DisplayName, subject.Department,
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Deactivate(ctx context.Context, subjectID id.SubjectID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subjects SET active = FALSE WHERE id = $1`, uuid.UUID(subjectID))
	if err != nil {
		return fmt.Errorf("deactivate subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ReassignUID(ctx context.Context, subjectID id.SubjectID, newUID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subjects SET external_uid = $2 WHERE id = $1`,
		uuid.UUID(subjectID), newUID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("reassign uid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM subjects WHERE active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active subjects: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var subject models.Subject
	var subjectID uuid.UUID
	if err := row.Scan(&subjectID, &subject.ExternalUID, &subject.DisplayName,
		&subject.Department, &subject.Active, &subject.CreatedAt); err != nil {
		return nil, err
	}
	subject.ID = id.SubjectID(subjectID)
	subject.CreatedAt = subject.CreatedAt.UTC()
	return &subject, nil
}
