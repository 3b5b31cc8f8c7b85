package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taptrail/internal/override/models"
	"taptrail/internal/override/store"
	subjectmodels "taptrail/internal/subject/models"
	subjectstore "taptrail/internal/subject/store"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/audit"
	"taptrail/pkg/requestcontext"
)

type recordingEmitter struct {
	events []audit.Event
}

func (e *recordingEmitter) Emit(_ context.Context, event audit.Event) {
	e.events = append(e.events, event)
}

type OverrideSuite struct {
	suite.Suite
	subjects *subjectstore.InMemory
	audit    *recordingEmitter
	svc      *Service
	ctx      context.Context
	ada      id.SubjectID
}

func TestOverrideSuite(t *testing.T) {
	suite.Run(t, new(OverrideSuite))
}

func (s *OverrideSuite) SetupTest() {
	s.subjects = subjectstore.NewInMemory()
	s.audit = &recordingEmitter{}
	s.svc = New(store.NewInMemory(), s.subjects, WithAuditEmitter(s.audit))
	s.ctx = context.Background()

	ada, err := subjectmodels.New("CARD-0001", "Ada Lovelace", "Engineering", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.subjects.Create(s.ctx, ada))
	s.ada = ada.ID
}

func (s *OverrideSuite) TestSetAndGet() {
	set, err := s.svc.Set(s.ctx, s.ada, "2026-03-10", models.StatusLeave, "annual leave")
	s.Require().NoError(err)
	s.Equal(models.StatusLeave, set.Status)

	got, err := s.svc.Get(s.ctx, s.ada, "2026-03-10")
	s.Require().NoError(err)
	s.Equal("annual leave", got.Notes)
	s.Len(s.audit.events, 1)
	s.Equal(audit.ActionOverrideSet, s.audit.events[0].Action)
}

func (s *OverrideSuite) TestSetReplacesSameDay() {
	_, err := s.svc.Set(s.ctx, s.ada, "2026-03-10", models.StatusLeave, "")
	s.Require().NoError(err)
	_, err = s.svc.Set(s.ctx, s.ada, "2026-03-10", models.StatusHalfDay, "afternoon off")
	s.Require().NoError(err)

	got, err := s.svc.Get(s.ctx, s.ada, "2026-03-10")
	s.Require().NoError(err)
	s.Equal(models.StatusHalfDay, got.Status)

	overrides, err := s.svc.ListMonth(s.ctx, s.ada, "2026-03")
	s.Require().NoError(err)
	s.Len(overrides, 1)
}

func (s *OverrideSuite) TestSetRejections() {
	s.Run("unknown status", func() {
		_, err := s.svc.Set(s.ctx, s.ada, "2026-03-10", models.Status("VACATION"), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed day", func() {
		_, err := s.svc.Set(s.ctx, s.ada, "10.03.2026", models.StatusLeave, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown subject", func() {
		_, err := s.svc.Set(s.ctx, id.NewSubjectID(), "2026-03-10", models.StatusLeave, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Empty(s.audit.events)
}

func (s *OverrideSuite) TestRemove() {
	_, err := s.svc.Set(s.ctx, s.ada, "2026-03-10", models.StatusLeave, "")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Remove(s.ctx, s.ada, "2026-03-10"))
	_, err = s.svc.Get(s.ctx, s.ada, "2026-03-10")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Run("removing again is not found", func() {
		err := s.svc.Remove(s.ctx, s.ada, "2026-03-10")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *OverrideSuite) TestListMonthBounds() {
	for _, day := range []string{"2026-02-28", "2026-03-01", "2026-03-31", "2026-04-01"} {
		_, err := s.svc.Set(s.ctx, s.ada, day, models.StatusWorkFromHome, "")
		s.Require().NoError(err)
	}

	overrides, err := s.svc.ListMonth(s.ctx, s.ada, "2026-03")
	s.Require().NoError(err)
	s.Require().Len(overrides, 2)
	s.Equal("2026-03-01", overrides[0].Day)
	s.Equal("2026-03-31", overrides[1].Day)

	_, err = s.svc.ListMonth(s.ctx, s.ada, "March")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *OverrideSuite) TestCreatedByFromContext() {
	admin := id.NewUserID()
	ctx := requestcontext.WithUserID(s.ctx, admin.String())

	set, err := s.svc.Set(ctx, s.ada, "2026-03-10", models.StatusBusinessTrip, "")
	s.Require().NoError(err)
	s.Equal(admin, set.CreatedBy)
	s.Equal(admin.String(), s.audit.events[0].ActorID)
}
