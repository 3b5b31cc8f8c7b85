//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"taptrail/internal/ledger/models"
	"taptrail/internal/ledger/store"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
	"taptrail/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresLedgerSuite) TearDownSuite() {
	s.postgres.Pool.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresLedgerSuite) seedSubject(ctx context.Context, subjectID id.SubjectID) {
	_, err := s.postgres.Pool.Exec(ctx,
		`INSERT INTO subjects (id, external_uid, display_name, department, active, created_at)
		 VALUES ($1, $2, 'Test Subject', 'Engineering', TRUE, now())`,
		uuid.UUID(subjectID), "CARD-"+subjectID.String()[:8])
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) append(ctx context.Context, subjectID id.SubjectID, kind models.Kind, ts time.Time) models.Event {
	ev := models.Event{SubjectID: subjectID, Kind: kind, Timestamp: ts, SourceUID: "CARD0001"}
	s.Require().NoError(s.store.Append(ctx, &ev))
	return ev
}

func (s *PostgresLedgerSuite) TestAppendAndLastByKinds() {
	ctx := context.Background()
	subject := id.NewSubjectID()
	s.seedSubject(ctx, subject)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := s.store.LastByKinds(ctx, subject, models.ClockKinds)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	first := s.append(ctx, subject, models.KindIn, base)
	s.append(ctx, subject, models.KindBreakStart, base.Add(3*time.Hour))
	second := s.append(ctx, subject, models.KindOut, base.Add(8*time.Hour))
	s.Less(int64(first.ID), int64(second.ID))

	last, err := s.store.LastByKinds(ctx, subject, models.ClockKinds)
	s.Require().NoError(err)
	s.Equal(models.KindOut, last.Kind)
	s.Equal(base.Add(8*time.Hour), last.Timestamp)

	lastBreak, err := s.store.LastByKinds(ctx, subject, models.BreakKinds)
	s.Require().NoError(err)
	s.Equal(models.KindBreakStart, lastBreak.Kind)
}

func (s *PostgresLedgerSuite) TestEqualTimestampsOrderByID() {
	ctx := context.Background()
	subject := id.NewSubjectID()
	s.seedSubject(ctx, subject)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	s.append(ctx, subject, models.KindIn, ts)
	s.append(ctx, subject, models.KindOut, ts)

	last, err := s.store.LastByKinds(ctx, subject, models.ClockKinds)
	s.Require().NoError(err)
	s.Equal(models.KindOut, last.Kind, "equal timestamps fall back to insertion order")
}

func (s *PostgresLedgerSuite) TestRangeQueriesAreHalfOpen() {
	ctx := context.Background()
	subject := id.NewSubjectID()
	other := id.NewSubjectID()
	s.seedSubject(ctx, subject)
	s.seedSubject(ctx, other)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	s.append(ctx, subject, models.KindIn, day.Add(9*time.Hour))
	s.append(ctx, subject, models.KindOut, day.Add(17*time.Hour))
	s.append(ctx, other, models.KindIn, day.Add(10*time.Hour))
	s.append(ctx, subject, models.KindIn, day.Add(24*time.Hour))

	events, err := s.store.ListSubjectRange(ctx, subject, day, day.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(models.KindIn, events[0].Kind)
	s.Equal(models.KindOut, events[1].Kind)

	all, err := s.store.ListRange(ctx, day, day.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Len(all, 3)

	count, err := s.store.CountRange(ctx, day.Add(24*time.Hour), day.Add(48*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, count, "midnight boundary belongs to the next day")
}

func (s *PostgresLedgerSuite) TestConcurrentAppendsAllLand() {
	ctx := context.Background()
	subject := id.NewSubjectID()
	s.seedSubject(ctx, subject)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	const goroutines = 40
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := models.Event{
				SubjectID: subject,
				Kind:      models.KindIn,
				Timestamp: day.Add(time.Duration(i) * time.Minute),
				SourceUID: "CARD0001",
			}
			s.NoError(s.store.Append(ctx, &ev))
		}(i)
	}
	wg.Wait()

	count, err := s.store.CountRange(ctx, day, day.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Equal(goroutines, count)
}
