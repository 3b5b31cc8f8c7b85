package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taptrail/internal/ledger/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *LedgerStoreSuite) append(subjectID id.SubjectID, kind models.Kind, ts time.Time) models.Event {
	ev := models.Event{SubjectID: subjectID, Kind: kind, Timestamp: ts, SourceUID: "CARD0001"}
	s.Require().NoError(s.store.Append(s.ctx, &ev))
	return ev
}

func (s *LedgerStoreSuite) TestAppendAssignsIncreasingIDs() {
	subject := id.NewSubjectID()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := s.append(subject, models.KindIn, base)
	second := s.append(subject, models.KindOut, base.Add(8*time.Hour))

	s.Less(int64(first.ID), int64(second.ID))
}

func (s *LedgerStoreSuite) TestLastByKinds() {
	subject := id.NewSubjectID()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	s.Run("empty ledger returns not found", func() {
		_, err := s.store.LastByKinds(s.ctx, subject, models.ClockKinds)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.append(subject, models.KindIn, base)
	s.append(subject, models.KindBreakStart, base.Add(3*time.Hour))
	s.append(subject, models.KindBreakEnd, base.Add(3*time.Hour+30*time.Minute))
	s.append(subject, models.KindOut, base.Add(8*time.Hour))

	s.Run("clock query skips break events", func() {
		last, err := s.store.LastByKinds(s.ctx, subject, models.ClockKinds)
		s.Require().NoError(err)
		s.Equal(models.KindOut, last.Kind)
	})

	s.Run("break query skips clock events", func() {
		last, err := s.store.LastByKinds(s.ctx, subject, models.BreakKinds)
		s.Require().NoError(err)
		s.Equal(models.KindBreakEnd, last.Kind)
	})

	s.Run("other subjects are invisible", func() {
		_, err := s.store.LastByKinds(s.ctx, id.NewSubjectID(), models.ClockKinds)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *LedgerStoreSuite) TestLastByKindsBefore() {
	subject := id.NewSubjectID()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	in := s.append(subject, models.KindIn, base)
	s.append(subject, models.KindBreakStart, base.Add(3*time.Hour))
	out := s.append(subject, models.KindOut, base.Add(8*time.Hour))

	s.Run("skips the event itself and later ones", func() {
		prev, err := s.store.LastByKindsBefore(s.ctx, subject, models.ClockKinds, out.ID)
		s.Require().NoError(err)
		s.Equal(models.KindIn, prev.Kind)
	})

	s.Run("nothing before the first event", func() {
		_, err := s.store.LastByKindsBefore(s.ctx, subject, models.ClockKinds, in.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *LedgerStoreSuite) TestRangeQueries() {
	subject := id.NewSubjectID()
	other := id.NewSubjectID()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	s.append(subject, models.KindIn, day.Add(9*time.Hour))
	s.append(subject, models.KindOut, day.Add(17*time.Hour))
	s.append(other, models.KindIn, day.Add(10*time.Hour))
	s.append(subject, models.KindIn, day.Add(33*time.Hour)) // next day

	s.Run("subject range is half-open and ascending", func() {
		events, err := s.store.ListSubjectRange(s.ctx, subject, day, day.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(models.KindIn, events[0].Kind)
		s.Equal(models.KindOut, events[1].Kind)
	})

	s.Run("list range spans subjects", func() {
		events, err := s.store.ListRange(s.ctx, day, day.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Len(events, 3)
	})

	s.Run("count range", func() {
		count, err := s.store.CountRange(s.ctx, day, day.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Equal(3, count)
	})

	s.Run("boundary timestamp belongs to the next window", func() {
		count, err := s.store.CountRange(s.ctx, day.Add(24*time.Hour), day.Add(48*time.Hour))
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}
