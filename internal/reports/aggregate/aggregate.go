// Package aggregate derives attendance summaries from the ledger.
//
// Everything here is a pure function of (events, overrides, schedule). No
// summary is ever persisted as authoritative; any figure can be recomputed
// from the ledger at any time and must come out identical.
package aggregate

import (
	"fmt"
	"time"

	ledger "taptrail/internal/ledger/models"
	override "taptrail/internal/override/models"
	schedule "taptrail/internal/schedule/models"
	id "taptrail/pkg/domain"
)

// DaySummary is one subject's derived attendance for one local calendar day.
type DaySummary struct {
	SubjectID id.SubjectID `json:"subject_id"`
	Date      string       `json:"date"` // YYYY-MM-DD in the schedule's zone
	FirstIn   *time.Time   `json:"first_in,omitempty"`
	LastOut   *time.Time   `json:"last_out,omitempty"`
	// WorkedMinutes is the floor of net worked seconds: closed IN-OUT
	// intervals (plus the open one up to liveAt when given), minus break
	// time overlapping those intervals.
	WorkedMinutes int  `json:"worked_minutes"`
	BreakMinutes  int  `json:"break_minutes"`
	IsLate        bool `json:"is_late"`
	// Present reports at least one closed IN-OUT interval. A live open
	// interval does not count; a day is present once it has a completed
	// stretch of work.
	Present bool `json:"present"`
}

// MonthSummary is one subject's derived attendance for one calendar month.
type MonthSummary struct {
	SubjectID          id.SubjectID `json:"subject_id"`
	Month              string       `json:"month"` // YYYY-MM
	TotalWorkedMinutes int          `json:"total_worked_minutes"`
	// WorkingDaysPresent is fractional because a HALF_DAY override
	// contributes 0.5.
	WorkingDaysPresent  float64 `json:"working_days_present"`
	WorkingDaysExpected int     `json:"working_days_expected"`
}

// DayBounds returns the half-open UTC interval covering the local calendar
// day that contains t, plus the day's YYYY-MM-DD label. The schedule's fixed
// offset has no DST transitions, so every local day is exactly 24 hours.
func DayBounds(sched schedule.Schedule, t time.Time) (from, to time.Time, day string) {
	loc := sched.Location()
	local := t.In(loc)
	from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from.UTC(), from.Add(24 * time.Hour).UTC(), from.Format("2006-01-02")
}

// MonthBounds returns the half-open UTC interval covering the local calendar
// month, plus its YYYY-MM label.
func MonthBounds(sched schedule.Schedule, year int, month time.Month) (from, to time.Time, label string) {
	loc := sched.Location()
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC(), start.Format("2006-01")
}

type interval struct {
	start, end time.Time
}

// Daily computes the summary for one local day from the subject's events of
// that day, in ascending ledger order. When liveAt is non-nil an IN without a
// matching OUT is measured up to liveAt; otherwise it contributes nothing,
// which is what closed-day reports and the scan response want.
func Daily(subjectID id.SubjectID, events []ledger.Event, sched schedule.Schedule, day time.Time, liveAt *time.Time) DaySummary {
	_, _, label := DayBounds(sched, day)
	out := DaySummary{SubjectID: subjectID, Date: label}

	var worked, breaks []interval
	var openIn, openBreak *time.Time

	for i := range events {
		ev := events[i]
		ts := ev.Timestamp
		switch ev.Kind {
		case ledger.KindIn:
			if out.FirstIn == nil {
				t := ts
				out.FirstIn = &t
			}
			if openIn == nil {
				t := ts
				openIn = &t
			}
		case ledger.KindOut:
			// An OUT with no IN in the window closed an interval that
			// started before midnight; it carries no minutes today.
			if openIn != nil && ts.After(*openIn) {
				worked = append(worked, interval{*openIn, ts})
				openIn = nil
			}
			t := ts
			out.LastOut = &t
		case ledger.KindBreakStart:
			if openBreak == nil {
				t := ts
				openBreak = &t
			}
		case ledger.KindBreakEnd:
			if openBreak != nil && ts.After(*openBreak) {
				breaks = append(breaks, interval{*openBreak, ts})
				openBreak = nil
			}
		}
	}

	out.Present = len(worked) > 0

	if liveAt != nil {
		if openIn != nil && liveAt.After(*openIn) {
			worked = append(worked, interval{*openIn, *liveAt})
		}
		if openBreak != nil && liveAt.After(*openBreak) {
			breaks = append(breaks, interval{*openBreak, *liveAt})
		}
	}

	var workedSec, breakSec int64
	for _, w := range worked {
		workedSec += int64(w.end.Sub(w.start) / time.Second)
	}
	for _, b := range breaks {
		for _, w := range worked {
			breakSec += overlapSeconds(b, w)
		}
	}

	out.BreakMinutes = int(breakSec / 60)
	net := workedSec - breakSec
	if net < 0 {
		net = 0
	}
	out.WorkedMinutes = int(net / 60)

	if out.FirstIn != nil {
		out.IsLate = LateAt(sched, *out.FirstIn)
	}
	return out
}

// Monthly folds every local day of the month. Overrides take precedence over
// ledger-derived presence for their day; worked minutes always come from the
// ledger. workingDaysExpected counts weekdays only, a deliberate policy
// rather than an approximation of local holidays.
func Monthly(subjectID id.SubjectID, events []ledger.Event, overrides []override.Override, sched schedule.Schedule, year int, month time.Month) MonthSummary {
	loc := sched.Location()
	_, _, label := MonthBounds(sched, year, month)
	out := MonthSummary{SubjectID: subjectID, Month: label}

	byDay := make(map[string][]ledger.Event)
	for _, ev := range events {
		byDay[ev.Timestamp.In(loc).Format("2006-01-02")] = append(
			byDay[ev.Timestamp.In(loc).Format("2006-01-02")], ev)
	}
	overrideByDay := make(map[string]override.Status, len(overrides))
	for _, o := range overrides {
		overrideByDay[o.Day] = o.Status
	}

	for cursor := time.Date(year, month, 1, 0, 0, 0, 0, loc); cursor.Month() == month; cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		if wd := cursor.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out.WorkingDaysExpected++
		}

		summary := Daily(subjectID, byDay[day], sched, cursor, nil)
		out.TotalWorkedMinutes += summary.WorkedMinutes

		if status, ok := overrideByDay[day]; ok {
			out.WorkingDaysPresent += status.PresenceWeight()
		} else if summary.Present {
			out.WorkingDaysPresent++
		}
	}
	return out
}

// LateAt reports whether ts falls strictly after workStart plus grace on its
// local day. Arriving exactly at the grace boundary is on time.
func LateAt(sched schedule.Schedule, ts time.Time) bool {
	loc := sched.Location()
	local := ts.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	deadline := midnight.Add(time.Duration(sched.WorkStartMinutes()+sched.GraceMinutes) * time.Minute)
	return local.After(deadline)
}

func overlapSeconds(a, b interval) int64 {
	start := a.start
	if b.start.After(start) {
		start = b.start
	}
	end := a.end
	if b.end.Before(end) {
		end = b.end
	}
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Second)
}

// FormatMonth normalizes a (year, month) pair to its YYYY-MM label.
func FormatMonth(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
