// Package service manages administrative day-status overrides.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"taptrail/internal/override/models"
	subjectmodels "taptrail/internal/subject/models"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/audit"
	"taptrail/pkg/platform/sentinel"
	"taptrail/pkg/requestcontext"
)

const maxNotesLength = 500

type OverrideStore interface {
	Set(ctx context.Context, override *models.Override) error
	Remove(ctx context.Context, subjectID id.SubjectID, day string) error
	Get(ctx context.Context, subjectID id.SubjectID, day string) (*models.Override, error)
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, fromDay, toDay string) ([]models.Override, error)
}

type SubjectStore interface {
	FindByID(ctx context.Context, subjectID id.SubjectID) (*subjectmodels.Subject, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service validates and records day-status overrides.
type Service struct {
	overrides OverrideStore
	subjects  SubjectStore
	logger    *slog.Logger
	audit     AuditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditEmitter(e AuditEmitter) Option {
	return func(s *Service) { s.audit = e }
}

// New constructs a Service.
func New(overrides OverrideStore, subjects SubjectStore, opts ...Option) *Service {
	s := &Service{overrides: overrides, subjects: subjects, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set records or replaces the override for one subject-day. The subject must
// exist; deactivated subjects may still receive overrides so past months can
// be corrected.
func (s *Service) Set(ctx context.Context, subjectID id.SubjectID, day string, status models.Status, notes string) (*models.Override, error) {
	if err := validateDay(day); err != nil {
		return nil, err
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "notes must not exceed 500 characters")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject lookup failed")
	}

	override := &models.Override{
		SubjectID: subjectID,
		Day:       day,
		Status:    status,
		Notes:     notes,
		CreatedBy: actorID(ctx),
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.overrides.Set(ctx, override); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "override write failed")
	}
	s.emit(ctx, audit.ActionOverrideSet, subjectID, day+" "+string(status))
	return override, nil
}

// Remove deletes the override for one subject-day.
func (s *Service) Remove(ctx context.Context, subjectID id.SubjectID, day string) error {
	if err := validateDay(day); err != nil {
		return err
	}
	if err := s.overrides.Remove(ctx, subjectID, day); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "override not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "override removal failed")
	}
	s.emit(ctx, audit.ActionOverrideRemoved, subjectID, day)
	return nil
}

// Get returns the override for one subject-day.
func (s *Service) Get(ctx context.Context, subjectID id.SubjectID, day string) (*models.Override, error) {
	if err := validateDay(day); err != nil {
		return nil, err
	}
	override, err := s.overrides.Get(ctx, subjectID, day)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "override not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "override lookup failed")
	}
	return override, nil
}

// ListMonth returns the subject's overrides within one calendar month.
// month is YYYY-MM.
func (s *Service) ListMonth(ctx context.Context, subjectID id.SubjectID, month string) ([]models.Override, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "month must be YYYY-MM")
	}
	fromDay := start.Format("2006-01-02")
	toDay := start.AddDate(0, 1, 0).Format("2006-01-02")
	overrides, err := s.overrides.ListSubjectRange(ctx, subjectID, fromDay, toDay)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "override listing failed")
	}
	return overrides, nil
}

func validateDay(day string) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "day must be YYYY-MM-DD")
	}
	return nil
}

func actorID(ctx context.Context) id.UserID {
	userID, err := id.ParseUserID(requestcontext.UserID(ctx))
	if err != nil {
		return id.UserID{}
	}
	return userID
}

func (s *Service) emit(ctx context.Context, action audit.Action, subjectID id.SubjectID, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		Action:    action,
		Timestamp: requestcontext.Now(ctx),
		SubjectID: subjectID,
		ActorID:   requestcontext.UserID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	})
}
