// Package service orchestrates report computation over the ledger.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ledger "taptrail/internal/ledger/models"
	override "taptrail/internal/override/models"
	"taptrail/internal/reports/aggregate"
	"taptrail/internal/reports/metrics"
	schedule "taptrail/internal/schedule/models"
	subject "taptrail/internal/subject/models"
	subjectstore "taptrail/internal/subject/store"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/requestcontext"
)

// monthlyFanOut bounds concurrent per-subject monthly aggregations.
const monthlyFanOut = 8

type EventStore interface {
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, from, to time.Time) ([]ledger.Event, error)
	ListRange(ctx context.Context, from, to time.Time) ([]ledger.Event, error)
	CountRange(ctx context.Context, from, to time.Time) (int, error)
}

type SubjectStore interface {
	FindByID(ctx context.Context, subjectID id.SubjectID) (*subject.Subject, error)
	List(ctx context.Context, filter subjectstore.ListFilter) ([]*subject.Subject, error)
	CountActive(ctx context.Context) (int, error)
}

type ScheduleSource interface {
	Get(ctx context.Context) (schedule.Schedule, error)
}

type OverrideStore interface {
	ListSubjectRange(ctx context.Context, subjectID id.SubjectID, fromDay, toDay string) ([]override.Override, error)
}

// StatsCache is the read-through cache for live stats. Implementations are
// nil-safe and degrade to a permanent miss.
type StatsCache interface {
	Get(ctx context.Context, day string, dst any) bool
	Set(ctx context.Context, day string, v any)
}

// SubjectDay pairs a derived day summary with directory fields for display.
type SubjectDay struct {
	aggregate.DaySummary
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// DailyReport is the whole-team view of one local day.
type DailyReport struct {
	Date          string       `json:"date"`
	TotalSubjects int          `json:"total_subjects"`
	Present       int          `json:"present"`
	Absent        int          `json:"absent"`
	Late          int          `json:"late"`
	OnTime        int          `json:"on_time"`
	PerSubject    []SubjectDay `json:"per_subject"`
}

// SubjectMonth pairs a derived month summary with directory fields.
type SubjectMonth struct {
	aggregate.MonthSummary
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// MonthlyReport is the whole-team view of one calendar month.
type MonthlyReport struct {
	Month               string         `json:"month"`
	WorkingDaysExpected int            `json:"working_days_expected"`
	PerSubject          []SubjectMonth `json:"per_subject"`
}

// LiveStats is the kiosk dashboard snapshot for today.
type LiveStats struct {
	Date           string `json:"date"`
	ActiveSubjects int    `json:"active_subjects"`
	ScansToday     int    `json:"scans_today"`
	CurrentlyIn    int    `json:"currently_in"`
	OnBreak        int    `json:"on_break"`
}

// FeedEntry is one line of today's scan feed.
type FeedEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SubjectID   string    `json:"subject_id"`
	DisplayName string    `json:"display_name"`
	EventKind   string    `json:"event_kind"`
}

// Service computes reports. All figures derive from the ledger on demand;
// the only state the service holds is the optional stats cache.
type Service struct {
	events    EventStore
	subjects  SubjectStore
	schedules ScheduleSource
	overrides OverrideStore

	cache   StatsCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStatsCache(c StatsCache) Option {
	return func(s *Service) { s.cache = c }
}

// New constructs a Service.
func New(events EventStore, subjects SubjectStore, schedules ScheduleSource, overrides OverrideStore, opts ...Option) *Service {
	s := &Service{
		events:    events,
		subjects:  subjects,
		schedules: schedules,
		overrides: overrides,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) schedule(ctx context.Context) (schedule.Schedule, error) {
	sched, err := s.schedules.Get(ctx)
	if err != nil {
		// Reports fail rather than silently falling back to defaults.
		return schedule.Schedule{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "schedule configuration unavailable")
	}
	return sched, nil
}

// parseDay resolves a YYYY-MM-DD string against the schedule's zone. An
// empty string means today.
func (s *Service) parseDay(ctx context.Context, sched schedule.Schedule, day string) (time.Time, error) {
	if day == "" {
		return requestcontext.Now(ctx), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", day, sched.Location())
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "date must be YYYY-MM-DD")
	}
	return parsed, nil
}

// Daily computes the team report for the given local day (YYYY-MM-DD, empty
// for today). live extends each subject's open interval up to now, for the
// today view; closed-day reports pass live=false.
func (s *Service) Daily(ctx context.Context, dayStr string, live bool) (*DailyReport, error) {
	start := time.Now()
	defer s.observeAggregate(start)

	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(ctx, sched, dayStr)
	if err != nil {
		return nil, err
	}
	from, to, label := aggregate.DayBounds(sched, day)

	subjects, err := s.subjects.List(ctx, subjectstore.ListFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject directory unavailable")
	}
	events, err := s.events.ListRange(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	bySubject := groupBySubject(events)

	var liveAt *time.Time
	if live {
		now := requestcontext.Now(ctx)
		liveAt = &now
	}

	report := &DailyReport{
		Date:          label,
		TotalSubjects: len(subjects),
		PerSubject:    make([]SubjectDay, 0, len(subjects)),
	}
	for _, subj := range subjects {
		daily := aggregate.Daily(subj.ID, bySubject[subj.ID], sched, day, liveAt)
		report.PerSubject = append(report.PerSubject, SubjectDay{
			DaySummary:  daily,
			DisplayName: subj.DisplayName,
			Department:  subj.Department,
		})
		if daily.FirstIn == nil {
			continue
		}
		report.Present++
		if daily.IsLate {
			report.Late++
		} else {
			report.OnTime++
		}
	}
	report.Absent = report.TotalSubjects - report.Present
	return report, nil
}

// SubjectDaily computes one subject's summary for one local day.
func (s *Service) SubjectDaily(ctx context.Context, subjectID id.SubjectID, dayStr string, live bool) (*SubjectDay, error) {
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(ctx, sched, dayStr)
	if err != nil {
		return nil, err
	}
	subj, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
	}
	from, to, _ := aggregate.DayBounds(sched, day)
	events, err := s.events.ListSubjectRange(ctx, subjectID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	var liveAt *time.Time
	if live {
		now := requestcontext.Now(ctx)
		liveAt = &now
	}
	daily := aggregate.Daily(subjectID, events, sched, day, liveAt)
	return &SubjectDay{DaySummary: daily, DisplayName: subj.DisplayName, Department: subj.Department}, nil
}

// Monthly computes the team report for one calendar month, fanning out the
// per-subject aggregation across a bounded worker group.
func (s *Service) Monthly(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	start := time.Now()
	defer s.observeAggregate(start)

	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	from, to, label := aggregate.MonthBounds(sched, year, month)
	fromDay := from.In(sched.Location()).Format("2006-01-02")
	toDay := to.In(sched.Location()).Format("2006-01-02")

	subjects, err := s.subjects.List(ctx, subjectstore.ListFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject directory unavailable")
	}

	report := &MonthlyReport{
		Month:      label,
		PerSubject: make([]SubjectMonth, len(subjects)),
	}
	// Expected days are subject-independent.
	report.WorkingDaysExpected = aggregate.Monthly(id.SubjectID{}, nil, nil, sched, year, month).WorkingDaysExpected

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthlyFanOut)
	for i, subj := range subjects {
		g.Go(func() error {
			events, err := s.events.ListSubjectRange(gctx, subj.ID, from, to)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
			}
			overrides, err := s.overrides.ListSubjectRange(gctx, subj.ID, fromDay, toDay)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "override store unavailable")
			}
			report.PerSubject[i] = SubjectMonth{
				MonthSummary: aggregate.Monthly(subj.ID, events, overrides, sched, year, month),
				DisplayName:  subj.DisplayName,
				Department:   subj.Department,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// SubjectMonthly computes one subject's month summary.
func (s *Service) SubjectMonthly(ctx context.Context, subjectID id.SubjectID, year int, month time.Month) (*SubjectMonth, error) {
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	subj, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
	}
	from, to, _ := aggregate.MonthBounds(sched, year, month)
	fromDay := from.In(sched.Location()).Format("2006-01-02")
	toDay := to.In(sched.Location()).Format("2006-01-02")

	events, err := s.events.ListSubjectRange(ctx, subjectID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	overrides, err := s.overrides.ListSubjectRange(ctx, subjectID, fromDay, toDay)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "override store unavailable")
	}
	return &SubjectMonth{
		MonthSummary: aggregate.Monthly(subjectID, events, overrides, sched, year, month),
		DisplayName:  subj.DisplayName,
		Department:   subj.Department,
	}, nil
}

// Live returns today's dashboard snapshot, served from the stats cache when
// fresh and recomputed from the ledger otherwise.
func (s *Service) Live(ctx context.Context) (*LiveStats, error) {
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	_, _, day := aggregate.DayBounds(sched, now)

	if s.cache != nil {
		var cached LiveStats
		if s.cache.Get(ctx, day, &cached) {
			s.countCacheHit()
			return &cached, nil
		}
		s.countCacheMiss()
	}

	stats, err := s.computeLive(ctx, sched, now)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, day, stats)
	}
	return stats, nil
}

// ComputeLive recomputes today's snapshot, bypassing the cache. The cache
// warmer uses it to refresh the entry in place.
func (s *Service) ComputeLive(ctx context.Context) (*LiveStats, error) {
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	stats, err := s.computeLive(ctx, sched, now)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, stats.Date, stats)
	}
	return stats, nil
}

func (s *Service) computeLive(ctx context.Context, sched schedule.Schedule, now time.Time) (*LiveStats, error) {
	from, to, day := aggregate.DayBounds(sched, now)

	active, err := s.subjects.CountActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "subject directory unavailable")
	}
	events, err := s.events.ListRange(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}

	stats := &LiveStats{
		Date:           day,
		ActiveSubjects: active,
		ScansToday:     len(events),
	}
	for _, evs := range groupBySubject(events) {
		var lastClock, lastBreak *ledger.Kind
		for i := range evs {
			kind := evs[i].Kind
			switch {
			case kind.IsClock():
				lastClock = &kind
			case kind.IsBreak():
				lastBreak = &kind
			}
		}
		if lastClock != nil && *lastClock == ledger.KindIn {
			stats.CurrentlyIn++
			if lastBreak != nil && *lastBreak == ledger.KindBreakStart {
				stats.OnBreak++
			}
		}
	}
	return stats, nil
}

// TodayFeed lists today's scans in ledger order with display names resolved.
func (s *Service) TodayFeed(ctx context.Context) ([]FeedEntry, error) {
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	from, to, _ := aggregate.DayBounds(sched, requestcontext.Now(ctx))
	events, err := s.events.ListRange(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}

	names := make(map[id.SubjectID]string)
	feed := make([]FeedEntry, 0, len(events))
	for _, ev := range events {
		name, ok := names[ev.SubjectID]
		if !ok {
			subj, err := s.subjects.FindByID(ctx, ev.SubjectID)
			if err == nil {
				name = subj.DisplayName
			}
			names[ev.SubjectID] = name
		}
		feed = append(feed, FeedEntry{
			Timestamp:   ev.Timestamp,
			SubjectID:   ev.SubjectID.String(),
			DisplayName: name,
			EventKind:   string(ev.Kind),
		})
	}
	return feed, nil
}

// Analytics computes per-day summaries for the subject over the trailing
// window ending today. days must be positive; callers default it to 30.
func (s *Service) Analytics(ctx context.Context, subjectID id.SubjectID, days int) ([]SubjectDay, error) {
	if days <= 0 {
		days = 30
	}
	sched, err := s.schedule(ctx)
	if err != nil {
		return nil, err
	}
	subj, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "subject not found")
	}

	now := requestcontext.Now(ctx)
	todayFrom, to, _ := aggregate.DayBounds(sched, now)
	from := todayFrom.Add(-time.Duration(days-1) * 24 * time.Hour)

	events, err := s.events.ListSubjectRange(ctx, subjectID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	loc := sched.Location()
	byDay := make(map[string][]ledger.Event)
	for _, ev := range events {
		key := ev.Timestamp.In(loc).Format("2006-01-02")
		byDay[key] = append(byDay[key], ev)
	}

	out := make([]SubjectDay, 0, days)
	for cursor := from; cursor.Before(to); cursor = cursor.Add(24 * time.Hour) {
		key := cursor.In(loc).Format("2006-01-02")
		daily := aggregate.Daily(subjectID, byDay[key], sched, cursor, nil)
		out = append(out, SubjectDay{
			DaySummary:  daily,
			DisplayName: subj.DisplayName,
			Department:  subj.Department,
		})
	}
	return out, nil
}

func groupBySubject(events []ledger.Event) map[id.SubjectID][]ledger.Event {
	out := make(map[id.SubjectID][]ledger.Event)
	for _, ev := range events {
		out[ev.SubjectID] = append(out[ev.SubjectID], ev)
	}
	return out
}

func (s *Service) observeAggregate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAggregate(start)
	}
}

func (s *Service) countCacheHit() {
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
}

func (s *Service) countCacheMiss() {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
}
