// Package reset computes the World of Warcraft weekly reset: Tuesday 08:00
// in the US Pacific timezone. Vault eligibility and the weekly CSV log are
// both bucketed by this instant, so the wall-clock time has to survive DST
// transitions.
package reset

import (
	"time"

	"daebot/internal/domain"
)

const (
	resetHour = 8
	resetDay  = time.Tuesday
)

var pacific *time.Location

func init() {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic("reset: load Pacific timezone: " + err.Error())
	}
	pacific = loc
}

// LastResetAt returns the most recent reset instant at or before now, in UTC.
func LastResetAt(now time.Time) time.Time {
	local := now.In(pacific)
	daysBack := (int(local.Weekday()) - int(resetDay) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()-daysBack, resetHour, 0, 0, 0, pacific)
	// Tuesday before 08:00 local still belongs to the previous week.
	if candidate.After(now) {
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day()-7, resetHour, 0, 0, 0, pacific)
	}
	return candidate.UTC()
}

// NextResetAt returns the reset instant following now, in UTC.
func NextResetAt(now time.Time) time.Time {
	last := LastResetAt(now).In(pacific)
	next := time.Date(last.Year(), last.Month(), last.Day()+7, resetHour, 0, 0, 0, pacific)
	return next.UTC()
}

// IsAfterResetAt reports whether t falls inside the week containing now.
func IsAfterResetAt(t, now time.Time) bool {
	return !t.Before(LastResetAt(now))
}

// FilterWeeklyAt returns the runs completed at or after the reset preceding now.
func FilterWeeklyAt(runs []domain.Run, now time.Time) []domain.Run {
	weekly := make([]domain.Run, 0, len(runs))
	for _, r := range runs {
		if IsAfterResetAt(r.CompletedAt, now) {
			weekly = append(weekly, r)
		}
	}
	return weekly
}

// LastReset is LastResetAt against the wall clock.
func LastReset() time.Time { return LastResetAt(time.Now()) }

// NextReset is NextResetAt against the wall clock.
func NextReset() time.Time { return NextResetAt(time.Now()) }

// FilterWeekly is FilterWeeklyAt against the wall clock.
func FilterWeekly(runs []domain.Run) []domain.Run { return FilterWeeklyAt(runs, time.Now()) }
