package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"taptrail/internal/subject/store"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/audit"
)

type recordingEmitter struct {
	events []audit.Event
}

func (e *recordingEmitter) Emit(_ context.Context, event audit.Event) {
	e.events = append(e.events, event)
}

func (e *recordingEmitter) actions() []audit.Action {
	out := make([]audit.Action, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Action)
	}
	return out
}

type DirectorySuite struct {
	suite.Suite
	store *store.InMemory
	audit *recordingEmitter
	svc   *Service
	ctx   context.Context
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.store = store.NewInMemory()
	s.audit = &recordingEmitter{}
	s.svc = New(s.store, WithAuditEmitter(s.audit))
	s.ctx = context.Background()
}

func (s *DirectorySuite) TestCreateAndGet() {
	created, err := s.svc.Create(s.ctx, "CARD-0001", "Ada Lovelace", "Engineering")
	s.Require().NoError(err)
	s.True(created.Active)
	s.Equal("Engineering", created.Department)

	got, err := s.svc.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal([]audit.Action{audit.ActionSubjectCreated}, s.audit.actions())
}

func (s *DirectorySuite) TestCreateDuplicateUID() {
	_, err := s.svc.Create(s.ctx, "CARD-0001", "Ada Lovelace", "")
	s.Require().NoError(err)

	_, err = s.svc.Create(s.ctx, "CARD-0001", "Grace Hopper", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Len(s.audit.events, 1)
}

func (s *DirectorySuite) TestCreateRejectsMalformedUID() {
	_, err := s.svc.Create(s.ctx, "has spaces", "Ada Lovelace", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Empty(s.audit.events)
}

func (s *DirectorySuite) TestUpdate() {
	created, err := s.svc.Create(s.ctx, "CARD-0001", "Ada Lovelace", "Engineering")
	s.Require().NoError(err)

	updated, err := s.svc.Update(s.ctx, created.ID, "Ada L.", "Research")
	s.Require().NoError(err)
	s.Equal("Ada L.", updated.DisplayName)
	s.Equal("Research", updated.Department)

	s.Run("blank department keeps the old one", func() {
		updated, err := s.svc.Update(s.ctx, created.ID, "Ada L.", "")
		s.Require().NoError(err)
		s.Equal("Research", updated.Department)
	})

	s.Run("blank display name rejected", func() {
		_, err := s.svc.Update(s.ctx, created.ID, "   ", "Research")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *DirectorySuite) TestDeactivate() {
	created, err := s.svc.Create(s.ctx, "CARD-0001", "Ada Lovelace", "")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Deactivate(s.ctx, created.ID))
	got, err := s.svc.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(got.Active)

	s.Contains(s.audit.actions(), audit.ActionSubjectDeactivated)
}

func (s *DirectorySuite) TestDeactivateUnknown() {
	err := s.svc.Deactivate(s.ctx, id.NewSubjectID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DirectorySuite) TestReassignUID() {
	created, err := s.svc.Create(s.ctx, "CARD-0001", "Ada Lovelace", "")
	s.Require().NoError(err)

	s.Run("moves to a free uid", func() {
		updated, err := s.svc.ReassignUID(s.ctx, created.ID, "CARD-0002")
		s.Require().NoError(err)
		s.Equal("CARD-0002", updated.ExternalUID)
	})

	s.Run("rejects a held uid", func() {
		other, err := s.svc.Create(s.ctx, "CARD-0003", "Grace Hopper", "")
		s.Require().NoError(err)
		_, err = s.svc.ReassignUID(s.ctx, other.ID, "CARD-0002")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects a malformed uid", func() {
		_, err := s.svc.ReassignUID(s.ctx, created.ID, "no good")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *DirectorySuite) TestListClampsPagination() {
	for _, uid := range []string{"CARD-0001", "CARD-0002", "CARD-0003"} {
		_, err := s.svc.Create(s.ctx, uid, "Subject "+uid, "")
		s.Require().NoError(err)
	}

	subjects, err := s.svc.List(s.ctx, store.ListFilter{Limit: -5, Offset: -1})
	s.Require().NoError(err)
	s.Len(subjects, 3)
}
