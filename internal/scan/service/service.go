// Package service implements the event sequencer: one raw card scan in, at
// most one new ledger event out.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ledger "taptrail/internal/ledger/models"
	"taptrail/internal/reports/aggregate"
	"taptrail/internal/scan/metrics"
	schedule "taptrail/internal/schedule/models"
	subject "taptrail/internal/subject/models"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/keyedlock"
	"taptrail/pkg/platform/audit"
	"taptrail/pkg/platform/sentinel"
	"taptrail/pkg/requestcontext"
)

// DefaultBounceWindow is the minimum gap between two scans of the same card
// before the second one counts as a new event.
const DefaultBounceWindow = 2 * time.Second

type EventStore interface {
	Append(ctx context.Context, event *ledger.Event) error
	LastByKinds(ctx context.Context, subjectID id.SubjectID, kinds []ledger.Kind) (*ledger.Event, error)
	LastByKindsBefore(ctx context.Context, subjectID id.SubjectID, kinds []ledger.Kind, before id.EventID) (*ledger.Event, error)
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, from, to time.Time) ([]ledger.Event, error)
}

type SubjectStore interface {
	FindByUID(ctx context.Context, uid string) (*subject.Subject, error)
	Create(ctx context.Context, s *subject.Subject) error
}

type ScheduleSource interface {
	Get(ctx context.Context) (schedule.Schedule, error)
}

// StatsInvalidator drops cached aggregates for a local day after its ledger
// changes. Implementations must be cheap and must never fail the scan.
type StatsInvalidator interface {
	InvalidateDay(ctx context.Context, day string)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Result is the sequencer's answer to one scan. A suppressed duplicate
// carries Suppressed=true and otherwise replays the original accepted
// response field for field.
type Result struct {
	Subject            *subject.Subject
	Event              ledger.Event
	IsLate             bool
	TodayWorkedMinutes int
	Suppressed         bool
	PreviousKind       *ledger.Kind
	PreviousTimestamp  *time.Time
}

// Service serializes scans per subject and appends ledger events.
type Service struct {
	subjects  SubjectStore
	events    EventStore
	schedules ScheduleSource

	locks        *keyedlock.Locker
	bounceWindow time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   StatsInvalidator
	audit   AuditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStatsInvalidator(c StatsInvalidator) Option {
	return func(s *Service) { s.cache = c }
}

func WithAuditEmitter(e AuditEmitter) Option {
	return func(s *Service) { s.audit = e }
}

func WithBounceWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.bounceWindow = d
		}
	}
}

func WithLockWait(d time.Duration) Option {
	return func(s *Service) { s.locks = keyedlock.New(keyedlock.WithWait(d)) }
}

// New constructs a Service.
func New(subjects SubjectStore, events EventStore, schedules ScheduleSource, opts ...Option) *Service {
	s := &Service{
		subjects:     subjects,
		events:       events,
		schedules:    schedules,
		locks:        keyedlock.New(),
		bounceWindow: DefaultBounceWindow,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitScan handles an attendance tap: it toggles IN/OUT.
func (s *Service) SubmitScan(ctx context.Context, rawUID string) (*Result, error) {
	return s.submit(ctx, rawUID, ledger.ClockKinds, ledger.NextClock)
}

// SubmitBreak handles a break tap: it toggles BREAK_START/BREAK_END without
// touching the clock toggle.
func (s *Service) SubmitBreak(ctx context.Context, rawUID string) (*Result, error) {
	return s.submit(ctx, rawUID, ledger.BreakKinds, ledger.NextBreak)
}

func (s *Service) submit(ctx context.Context, rawUID string, kinds []ledger.Kind, next func(*ledger.Kind) ledger.Kind) (*Result, error) {
	start := time.Now()
	defer s.observeSubmit(start)

	// Malformed UIDs are rejected before any lookup and never consume a lock.
	if err := subject.ValidateUID(rawUID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	sched, err := s.schedules.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "schedule configuration unavailable")
	}

	subj, autoRegistered, err := s.resolve(ctx, rawUID, now)
	if err != nil {
		return nil, err
	}
	if !subj.Active {
		return nil, dErrors.New(dErrors.CodeForbidden, "subject is inactive")
	}

	release, err := s.locks.Acquire(ctx, subj.ID.String())
	if err != nil {
		s.countLockTimeout()
		return nil, err
	}
	defer release()

	// Once inside the critical section the append must complete even if the
	// kiosk gives up on the request; an acked tap is never silently lost,
	// and a lost tap is never acked.
	ctx = context.WithoutCancel(ctx)

	last, err := s.events.LastByKinds(ctx, subj.ID, kinds)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}

	if last != nil && now.Sub(last.Timestamp) < s.bounceWindow {
		return s.replay(ctx, subj, sched, last, kinds, rawUID)
	}

	var prevKind *ledger.Kind
	if last != nil {
		prevKind = &last.Kind
	}
	event := ledger.Event{
		SubjectID: subj.ID,
		Kind:      next(prevKind),
		Timestamp: now,
		SourceUID: rawUID,
	}
	if err := s.events.Append(ctx, &event); err != nil {
		// Fail closed: better to reject the scan than to ack a tap that
		// was not durably recorded.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan was not recorded, please retry")
	}

	result, err := s.buildResult(ctx, subj, sched, &event, last, false)
	if err != nil {
		return nil, err
	}

	s.recordEvent(string(event.Kind))
	s.invalidateDay(ctx, sched, event.Timestamp)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionScanRecorded,
		Timestamp: event.Timestamp,
		SubjectID: subj.ID,
		SourceUID: rawUID,
		EventKind: string(event.Kind),
		RequestID: requestcontext.RequestID(ctx),
	})
	if autoRegistered {
		s.countAutoRegistered()
		s.emit(ctx, audit.Event{
			Action:    audit.ActionSubjectAutoReg,
			Timestamp: event.Timestamp,
			SubjectID: subj.ID,
			SourceUID: rawUID,
			RequestID: requestcontext.RequestID(ctx),
		})
	}

	s.logger.InfoContext(ctx, "scan recorded",
		"subject_id", subj.ID.String(),
		"kind", event.Kind,
		"is_late", result.IsLate,
		"auto_registered", autoRegistered)
	return result, nil
}

// replay rebuilds the response the original accepted scan produced. All
// inputs are deterministic functions of the ledger, so the duplicate's
// response equals the original without caching anything.
func (s *Service) replay(ctx context.Context, subj *subject.Subject, sched schedule.Schedule, last *ledger.Event, kinds []ledger.Kind, rawUID string) (*Result, error) {
	prev, err := s.events.LastByKindsBefore(ctx, subj.ID, kinds, last.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}

	result, err := s.buildResult(ctx, subj, sched, last, prev, true)
	if err != nil {
		return nil, err
	}

	s.countSuppressed()
	s.emit(ctx, audit.Event{
		Action:    audit.ActionScanSuppressed,
		Timestamp: requestcontext.Now(ctx),
		SubjectID: subj.ID,
		SourceUID: rawUID,
		EventKind: string(last.Kind),
		RequestID: requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "duplicate scan suppressed",
		"subject_id", subj.ID.String(),
		"kind", last.Kind)
	return result, nil
}

// buildResult derives the response fields for event, whose predecessor within
// the toggle is prev. Worked minutes count closed intervals only, which keeps
// fresh and replayed responses identical.
func (s *Service) buildResult(ctx context.Context, subj *subject.Subject, sched schedule.Schedule, event *ledger.Event, prev *ledger.Event, suppressed bool) (*Result, error) {
	from, to, _ := aggregate.DayBounds(sched, event.Timestamp)
	dayEvents, err := s.events.ListSubjectRange(ctx, subj.ID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	daily := aggregate.Daily(subj.ID, dayEvents, sched, event.Timestamp, nil)

	result := &Result{
		Subject:            subj,
		Event:              *event,
		TodayWorkedMinutes: daily.WorkedMinutes,
		Suppressed:         suppressed,
	}
	if event.Kind == ledger.KindIn {
		result.IsLate = aggregate.LateAt(sched, event.Timestamp)
	}
	if prev != nil {
		result.PreviousKind = &prev.Kind
		ts := prev.Timestamp
		result.PreviousTimestamp = &ts
	}
	return result, nil
}

// resolve maps the UID to a subject, creating a placeholder on first sight.
// Resolution happens on every scan so an administrative UID reassignment
// takes effect immediately; the mapping is never cached.
func (s *Service) resolve(ctx context.Context, rawUID string, now time.Time) (*subject.Subject, bool, error) {
	subj, err := s.subjects.FindByUID(ctx, rawUID)
	if err == nil {
		return subj, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject lookup failed")
	}

	created, err := subject.NewAutoRegistered(rawUID, now)
	if err != nil {
		return nil, false, err
	}
	switch err := s.subjects.Create(ctx, created); {
	case err == nil:
		return created, true, nil
	case errors.Is(err, sentinel.ErrConflict):
		// A concurrent scan registered the card first; use its record.
		subj, err := s.subjects.FindByUID(ctx, rawUID)
		if err != nil {
			return nil, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject lookup failed")
		}
		return subj, false, nil
	default:
		return nil, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject registration failed")
	}
}

func (s *Service) invalidateDay(ctx context.Context, sched schedule.Schedule, ts time.Time) {
	if s.cache == nil {
		return
	}
	_, _, day := aggregate.DayBounds(sched, ts)
	s.cache.InvalidateDay(ctx, day)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Emit(ctx, event)
	}
}

func (s *Service) observeSubmit(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmit(start)
	}
}

func (s *Service) recordEvent(kind string) {
	if s.metrics != nil {
		s.metrics.RecordEvent(kind)
	}
}

func (s *Service) countSuppressed() {
	if s.metrics != nil {
		s.metrics.ScansSuppressed.Inc()
	}
}

func (s *Service) countLockTimeout() {
	if s.metrics != nil {
		s.metrics.LockTimeouts.Inc()
	}
}

func (s *Service) countAutoRegistered() {
	if s.metrics != nil {
		s.metrics.AutoRegistered.Inc()
	}
}
