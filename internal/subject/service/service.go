// Package service implements subject directory administration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"taptrail/internal/subject/models"
	"taptrail/internal/subject/store"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/audit"
	"taptrail/pkg/platform/sentinel"
	"taptrail/pkg/requestcontext"
)

type SubjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	FindByUID(ctx context.Context, uid string) (*models.Subject, error)
	FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Subject, error)
	Update(ctx context.Context, subject *models.Subject) error
	Deactivate(ctx context.Context, subjectID id.SubjectID) error
	ReassignUID(ctx context.Context, subjectID id.SubjectID, newUID string) error
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service guards directory invariants around the subject store.
type Service struct {
	subjects SubjectStore
	logger   *slog.Logger
	audit    AuditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditEmitter(e AuditEmitter) Option {
	return func(s *Service) { s.audit = e }
}

// New constructs a Service.
func New(subjects SubjectStore, opts ...Option) *Service {
	s := &Service{subjects: subjects, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a subject explicitly. The UID must not be held by anyone.
func (s *Service) Create(ctx context.Context, uid, displayName, department string) (*models.Subject, error) {
	subject, err := models.New(strings.TrimSpace(uid), strings.TrimSpace(displayName), strings.TrimSpace(department), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "card uid is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject creation failed")
	}
	s.emit(ctx, audit.ActionSubjectCreated, subject.ID, subject.ExternalUID, "")
	s.logger.InfoContext(ctx, "subject registered",
		"subject_id", subject.ID.String(),
		"department", subject.Department,
	)
	return subject, nil
}

// Get fetches one subject by ID.
func (s *Service) Get(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject lookup failed")
	}
	return subject, nil
}

// List returns active subjects matching the filter.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.Subject, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	subjects, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject listing failed")
	}
	return subjects, nil
}

// Update changes display name and department.
func (s *Service) Update(ctx context.Context, subjectID id.SubjectID, displayName, department string) (*models.Subject, error) {
	subject, err := s.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}
	if len(displayName) > 200 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "display name must not exceed 200 characters")
	}
	subject.DisplayName = displayName
	if department = strings.TrimSpace(department); department != "" {
		subject.Department = department
	}
	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject update failed")
	}
	s.emit(ctx, audit.ActionSubjectUpdated, subject.ID, subject.ExternalUID, "")
	return subject, nil
}

// Deactivate soft-deletes the subject. Its ledger history stays intact and
// future scans of its card are rejected.
func (s *Service) Deactivate(ctx context.Context, subjectID id.SubjectID) error {
	if err := s.subjects.Deactivate(ctx, subjectID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "subject deactivation failed")
	}
	s.emit(ctx, audit.ActionSubjectDeactivated, subjectID, "", "")
	s.logger.InfoContext(ctx, "subject deactivated", "subject_id", subjectID.String())
	return nil
}

// ReassignUID moves a card to the subject, e.g. after a card replacement.
// The sequencer resolves UIDs on every scan, so the change takes effect on
// the next tap.
func (s *Service) ReassignUID(ctx context.Context, subjectID id.SubjectID, newUID string) (*models.Subject, error) {
	newUID = strings.TrimSpace(newUID)
	if err := models.ValidateUID(newUID); err != nil {
		return nil, err
	}
	if err := s.subjects.ReassignUID(ctx, subjectID, newUID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "card uid is already registered")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "uid reassignment failed")
		}
	}
	s.emit(ctx, audit.ActionSubjectReassigned, subjectID, newUID, "")
	return s.Get(ctx, subjectID)
}

func (s *Service) emit(ctx context.Context, action audit.Action, subjectID id.SubjectID, sourceUID, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		Action:    action,
		Timestamp: requestcontext.Now(ctx),
		SubjectID: subjectID,
		SourceUID: sourceUID,
		ActorID:   requestcontext.UserID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	})
}
