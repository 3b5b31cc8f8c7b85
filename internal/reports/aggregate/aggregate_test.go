package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledger "taptrail/internal/ledger/models"
	override "taptrail/internal/override/models"
	schedule "taptrail/internal/schedule/models"
	id "taptrail/pkg/domain"
)

func utcSchedule() schedule.Schedule {
	return schedule.Schedule{
		WorkStart:    "09:00",
		WorkEnd:      "17:00",
		GraceMinutes: 15,
		Version:      1,
	}
}

func ev(subject id.SubjectID, kind ledger.Kind, ts time.Time) ledger.Event {
	return ledger.Event{SubjectID: subject, Kind: kind, Timestamp: ts, SourceUID: "CARD0001"}
}

func TestDailyWorkedMinutesWithBreakDeduction(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

	events := []ledger.Event{
		ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
		ev(subject, ledger.KindBreakStart, day.Add(12*time.Hour)),
		ev(subject, ledger.KindBreakEnd, day.Add(12*time.Hour+30*time.Minute)),
		ev(subject, ledger.KindOut, day.Add(17*time.Hour)),
	}

	got := Daily(subject, events, sched, day, nil)

	assert.Equal(t, 450, got.WorkedMinutes, "8h minus 30m break")
	assert.Equal(t, 30, got.BreakMinutes)
	assert.True(t, got.Present)
	assert.False(t, got.IsLate, "arrival exactly at work start")
	require.NotNil(t, got.FirstIn)
	assert.Equal(t, day.Add(9*time.Hour), *got.FirstIn)
	require.NotNil(t, got.LastOut)
	assert.Equal(t, day.Add(17*time.Hour), *got.LastOut)
	assert.Equal(t, "2026-03-02", got.Date)
}

func TestDailyGraceBoundary(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		late bool
	}{
		{"well before start", day.Add(8*time.Hour + 30*time.Minute), false},
		{"exactly at grace deadline", day.Add(9*time.Hour + 15*time.Minute), false},
		{"one second past grace", day.Add(9*time.Hour + 15*time.Minute + time.Second), true},
		{"an hour past grace", day.Add(10*time.Hour + 16*time.Minute), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Daily(subject, []ledger.Event{ev(subject, ledger.KindIn, tc.in)}, sched, day, nil)
			assert.Equal(t, tc.late, got.IsLate)
		})
	}
}

func TestDailyTimezoneOffsetShiftsLateness(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	sched.TimezoneOffsetHours = 3

	// 06:00 UTC is 09:00 local under a +3 offset.
	in := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	got := Daily(subject, []ledger.Event{ev(subject, ledger.KindIn, in)}, sched, in, nil)
	assert.False(t, got.IsLate)
	assert.Equal(t, "2026-03-02", got.Date)

	// 07:00 UTC is 10:00 local, an hour past the grace deadline.
	late := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	got = Daily(subject, []ledger.Event{ev(subject, ledger.KindIn, late)}, sched, late, nil)
	assert.True(t, got.IsLate)
}

func TestDailyFloorsNetSeconds(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	events := []ledger.Event{
		ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
		ev(subject, ledger.KindOut, day.Add(9*time.Hour+59*time.Second)),
	}
	got := Daily(subject, events, sched, day, nil)
	assert.Equal(t, 0, got.WorkedMinutes, "59 seconds floors to zero minutes")
	assert.True(t, got.Present, "a closed interval counts regardless of length")
}

func TestDailyOpenInterval(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := []ledger.Event{ev(subject, ledger.KindIn, day.Add(9*time.Hour))}

	t.Run("closed-day report ignores the open interval", func(t *testing.T) {
		got := Daily(subject, events, sched, day, nil)
		assert.Equal(t, 0, got.WorkedMinutes)
		assert.False(t, got.Present)
	})

	t.Run("live computation measures up to liveAt", func(t *testing.T) {
		liveAt := day.Add(10*time.Hour + 30*time.Minute)
		got := Daily(subject, events, sched, day, &liveAt)
		assert.Equal(t, 90, got.WorkedMinutes)
		assert.False(t, got.Present, "an open interval is not presence yet")
	})

	t.Run("live computation deducts an open break", func(t *testing.T) {
		withBreak := append(events[:1:1],
			ev(subject, ledger.KindBreakStart, day.Add(10*time.Hour)))
		liveAt := day.Add(10*time.Hour + 30*time.Minute)
		got := Daily(subject, withBreak, sched, day, &liveAt)
		assert.Equal(t, 60, got.WorkedMinutes)
		assert.Equal(t, 30, got.BreakMinutes)
	})
}

func TestDailyMultipleCycles(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	events := []ledger.Event{
		ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
		ev(subject, ledger.KindOut, day.Add(12*time.Hour)),
		ev(subject, ledger.KindIn, day.Add(13*time.Hour)),
		ev(subject, ledger.KindOut, day.Add(17*time.Hour)),
	}
	got := Daily(subject, events, sched, day, nil)
	assert.Equal(t, 420, got.WorkedMinutes, "both closed cycles count")
	require.NotNil(t, got.FirstIn)
	assert.Equal(t, day.Add(9*time.Hour), *got.FirstIn)
	require.NotNil(t, got.LastOut)
	assert.Equal(t, day.Add(17*time.Hour), *got.LastOut)
}

func TestDailyOrphanOutCarriesNoMinutes(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// The matching IN happened before midnight and is outside the window.
	got := Daily(subject, []ledger.Event{ev(subject, ledger.KindOut, day.Add(time.Hour))}, sched, day, nil)
	assert.Equal(t, 0, got.WorkedMinutes)
	assert.False(t, got.Present)
	assert.Nil(t, got.FirstIn)
	require.NotNil(t, got.LastOut)
}

func TestDailyBreakOutsideWorkIntervalNotDeducted(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	events := []ledger.Event{
		ev(subject, ledger.KindBreakStart, day.Add(7*time.Hour)),
		ev(subject, ledger.KindBreakEnd, day.Add(8*time.Hour)),
		ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
		ev(subject, ledger.KindOut, day.Add(17*time.Hour)),
	}
	got := Daily(subject, events, sched, day, nil)
	assert.Equal(t, 480, got.WorkedMinutes, "a break before clocking in does not deduct")
	assert.Equal(t, 0, got.BreakMinutes)
}

func TestDailyEmpty(t *testing.T) {
	subject := id.NewSubjectID()
	got := Daily(subject, nil, utcSchedule(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), nil)
	assert.Zero(t, got.WorkedMinutes)
	assert.False(t, got.Present)
	assert.False(t, got.IsLate)
	assert.Nil(t, got.FirstIn)
	assert.Nil(t, got.LastOut)
}

func TestMonthlyWeekdayExpectation(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()

	// March 2026 starts on a Sunday and has 31 days: 9 weekend days, 22 weekdays.
	got := Monthly(subject, nil, nil, sched, 2026, time.March)
	assert.Equal(t, 22, got.WorkingDaysExpected)
	assert.Equal(t, "2026-03", got.Month)
	assert.Zero(t, got.TotalWorkedMinutes)
	assert.Zero(t, got.WorkingDaysPresent)
}

func TestMonthlyPresenceAndTotals(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()

	var events []ledger.Event
	addDay := func(day time.Time) {
		events = append(events,
			ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
			ev(subject, ledger.KindOut, day.Add(17*time.Hour)),
		)
	}
	addDay(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	addDay(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	// An open interval on the 4th: not presence, no minutes.
	events = append(events, ev(subject, ledger.KindIn, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)))

	got := Monthly(subject, events, nil, sched, 2026, time.March)
	assert.Equal(t, 960, got.TotalWorkedMinutes)
	assert.InDelta(t, 2.0, got.WorkingDaysPresent, 1e-9)
}

func TestMonthlyOverridePrecedence(t *testing.T) {
	subject := id.NewSubjectID()
	sched := utcSchedule()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := []ledger.Event{
		ev(subject, ledger.KindIn, day.Add(9*time.Hour)),
		ev(subject, ledger.KindOut, day.Add(17*time.Hour)),
	}

	t.Run("override replaces ledger presence for its day", func(t *testing.T) {
		overrides := []override.Override{
			{SubjectID: subject, Day: "2026-03-02", Status: override.StatusLeave},
		}
		got := Monthly(subject, events, overrides, sched, 2026, time.March)
		assert.InDelta(t, 1.0, got.WorkingDaysPresent, 1e-9, "LEAVE still weighs a full day")
		assert.Equal(t, 480, got.TotalWorkedMinutes, "worked minutes stay ledger-derived")
	})

	t.Run("half day weighs one half", func(t *testing.T) {
		overrides := []override.Override{
			{SubjectID: subject, Day: "2026-03-03", Status: override.StatusHalfDay},
		}
		got := Monthly(subject, events, overrides, sched, 2026, time.March)
		assert.InDelta(t, 1.5, got.WorkingDaysPresent, 1e-9)
	})

	t.Run("override marks an otherwise absent day", func(t *testing.T) {
		overrides := []override.Override{
			{SubjectID: subject, Day: "2026-03-10", Status: override.StatusBusinessTrip},
		}
		got := Monthly(subject, nil, overrides, sched, 2026, time.March)
		assert.InDelta(t, 1.0, got.WorkingDaysPresent, 1e-9)
	})
}

func TestDayBounds(t *testing.T) {
	sched := utcSchedule()
	sched.TimezoneOffsetHours = 3

	// 22:30 UTC on March 1st is 01:30 local on March 2nd.
	from, to, day := DayBounds(sched, time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-02", day)
	assert.Equal(t, time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC), to)
}

func TestMonthBounds(t *testing.T) {
	from, to, label := MonthBounds(utcSchedule(), 2026, time.March)
	assert.Equal(t, "2026-03", label)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), to)
}
