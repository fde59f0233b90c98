package analytics

import (
	"slices"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// dayNumber maps t onto a count of whole UTC days so that consecutive
// calendar days differ by exactly one.
func dayNumber(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func distinctDays(dates []time.Time) []int64 {
	days := make([]int64, 0, len(dates))
	for _, t := range dates {
		days = append(days, dayNumber(t))
	}
	slices.Sort(days)
	return slices.Compact(days)
}

// CurrentStreak counts consecutive activity days ending on today. A day
// without activity today means a streak of zero.
func CurrentStreak(dates []time.Time, today time.Time) int {
	set := make(map[int64]struct{}, len(dates))
	for _, t := range dates {
		set[dayNumber(t)] = struct{}{}
	}
	streak := 0
	for day := dayNumber(today); ; day-- {
		if _, ok := set[day]; !ok {
			return streak
		}
		streak++
	}
}

// LongestStreak returns the longest run of consecutive activity days.
func LongestStreak(dates []time.Time) int {
	days := distinctDays(dates)
	if len(days) == 0 {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		best = max(best, run)
	}
	return best
}

// Streak recomputes the ledger's streak fields from the full set of
// activity dates.
func Streak(dates []time.Time, today time.Time) models.StreakUpdate {
	u := models.StreakUpdate{
		Current: CurrentStreak(dates, today),
		Longest: LongestStreak(dates),
	}
	if len(dates) > 0 {
		latest := slices.MaxFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
		u.LastActivity = models.DateOf(latest)
	}
	return u
}

// EventDates returns the timestamps of the events that count as activity
// days. Chat turns and meditation sessions do not.
func EventDates(events []models.ActivityEvent) []time.Time {
	dates := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.Kind.Streaked() {
			dates = append(dates, e.Timestamp)
		}
	}
	return dates
}
