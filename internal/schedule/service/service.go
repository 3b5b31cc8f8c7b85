// Package service manages the singleton attendance schedule.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"taptrail/internal/schedule/models"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/audit"
	"taptrail/pkg/requestcontext"
)

type ScheduleStore interface {
	Get(ctx context.Context) (models.Schedule, error)
	Replace(ctx context.Context, next models.Schedule) (models.Schedule, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service validates and replaces the schedule snapshot.
type Service struct {
	schedules ScheduleStore
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
func New(schedules ScheduleStore, opts ...Option) *Service {
	s := &Service{schedules: schedules, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current schedule snapshot.
func (s *Service) Get(ctx context.Context) (models.Schedule, error) {
	sched, err := s.schedules.Get(ctx)
	if err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "schedule lookup failed")
	}
	return sched, nil
}

// Replace swaps the whole snapshot after validation. Version and UpdatedAt
// are store-assigned; values sent by the caller are ignored.
func (s *Service) Replace(ctx context.Context, next models.Schedule) (models.Schedule, error) {
	if err := next.Validate(); err != nil {
		return models.Schedule{}, err
	}
	updated, err := s.schedules.Replace(ctx, next)
	if err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "schedule update failed")
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionScheduleUpdated,
			Timestamp: updated.UpdatedAt,
			ActorID:   requestcontext.UserID(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Detail: fmt.Sprintf("work %s-%s grace %dm offset %+dh version %d",
				updated.WorkStart, updated.WorkEnd, updated.GraceMinutes,
				updated.TimezoneOffsetHours, updated.Version),
		})
	}
	s.logger.InfoContext(ctx, "schedule replaced",
		"version", updated.Version,
		"work_start", updated.WorkStart,
		"work_end", updated.WorkEnd,
	)
	return updated, nil
}
