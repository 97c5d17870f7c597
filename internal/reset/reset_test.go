package reset

import (
	"testing"
	"time"

	"daebot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pacificTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestLastResetAt_MidWeek(t *testing.T) {
	// Friday Jan 16 2026, 12:00 Pacific -> reset was Tuesday Jan 13 08:00.
	now := pacificTime(t, 2026, time.January, 16, 12, 0)
	got := LastResetAt(now)
	assert.Equal(t, pacificTime(t, 2026, time.January, 13, 8, 0).UTC(), got)
}

func TestLastResetAt_TuesdayBeforeEight(t *testing.T) {
	// Tuesday 07:59 Pacific belongs to the previous week.
	now := pacificTime(t, 2026, time.January, 13, 7, 59)
	got := LastResetAt(now)
	assert.Equal(t, pacificTime(t, 2026, time.January, 6, 8, 0).UTC(), got)
}

func TestLastResetAt_TuesdayAtEight(t *testing.T) {
	now := pacificTime(t, 2026, time.January, 13, 8, 0)
	got := LastResetAt(now)
	assert.Equal(t, pacificTime(t, 2026, time.January, 13, 8, 0).UTC(), got)
}

func TestLastResetAt_ReturnsPacificWallTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// Sweep a year of instants: the reset converted back to Pacific must
	// always read Tuesday 08:00 regardless of DST.
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		r := LastResetAt(now).In(loc)
		assert.Equal(t, time.Tuesday, r.Weekday())
		assert.Equal(t, 8, r.Hour())
		assert.Equal(t, 0, r.Minute())
		now = now.Add(24 * time.Hour)
	}
}

func TestLastResetAt_AcrossDSTSpring(t *testing.T) {
	// DST begins Sunday March 8 2026. The following Tuesday reset must be
	// 08:00 PDT (15:00 UTC) while the prior one was 08:00 PST (16:00 UTC).
	before := pacificTime(t, 2026, time.March, 7, 12, 0)
	after := pacificTime(t, 2026, time.March, 11, 12, 0)

	assert.Equal(t, 16, LastResetAt(before).Hour())
	assert.Equal(t, 15, LastResetAt(after).Hour())
}

func TestNextResetAt(t *testing.T) {
	now := pacificTime(t, 2026, time.January, 16, 12, 0)
	next := NextResetAt(now)
	assert.Equal(t, pacificTime(t, 2026, time.January, 20, 8, 0).UTC(), next)
	assert.True(t, next.After(now))
}

func TestNextResetAt_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// Last reset 08:00 PST, next reset 08:00 PDT: the gap is not 168h.
	now := pacificTime(t, 2026, time.March, 4, 12, 0)
	next := NextResetAt(now).In(loc)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 167*time.Hour, NextResetAt(now).Sub(LastResetAt(now)))
}

func TestIsAfterResetAt(t *testing.T) {
	now := pacificTime(t, 2026, time.January, 16, 12, 0)
	reset := pacificTime(t, 2026, time.January, 13, 8, 0)

	assert.True(t, IsAfterResetAt(reset, now))
	assert.True(t, IsAfterResetAt(reset.Add(time.Minute), now))
	assert.False(t, IsAfterResetAt(reset.Add(-time.Minute), now))
}

func TestFilterWeeklyAt(t *testing.T) {
	now := pacificTime(t, 2026, time.January, 16, 12, 0)
	reset := LastResetAt(now)

	runs := []domain.Run{
		{DungeonName: "old", CompletedAt: reset.Add(-time.Hour)},
		{DungeonName: "boundary", CompletedAt: reset},
		{DungeonName: "new", CompletedAt: reset.Add(time.Hour)},
	}

	weekly := FilterWeeklyAt(runs, now)
	require.Len(t, weekly, 2)
	assert.Equal(t, "boundary", weekly[0].DungeonName)
	assert.Equal(t, "new", weekly[1].DungeonName)
}
