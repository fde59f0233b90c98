package gamification

import (
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// ActivitySummary is the slice of a user's activity the badge predicates
// look at.
type ActivitySummary struct {
	MoodLogs       int
	JournalEntries int
	// CompletedByCategory counts completed tasks per task type.
	CompletedByCategory map[string]int
}

// SummarizeActivity folds events into an ActivitySummary.
func SummarizeActivity(events []models.ActivityEvent) ActivitySummary {
	s := ActivitySummary{CompletedByCategory: map[string]int{}}
	for _, e := range events {
		switch e.Kind {
		case models.KindMood:
			s.MoodLogs++
		case models.KindJournal:
			s.JournalEntries++
		case models.KindTaskCompletion:
			category := "general"
			if e.Task != nil && e.Task.Category != "" {
				category = e.Task.Category
			}
			s.CompletedByCategory[category]++
		}
	}
	return s
}

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`

	earned func(models.ProgressionState, ActivitySummary) bool
}

var catalog = []Badge{
	{
		ID: "first_check_in", Name: "First Check-in", Description: "Logged your first mood", Icon: "🎯", Points: 10,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return a.MoodLogs >= 1 },
	},
	{
		ID: "journal_starter", Name: "Journal Starter", Description: "Created your first journal entry", Icon: "📝", Points: 15,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return a.JournalEntries >= 1 },
	},
	{
		ID: "week_warrior", Name: "Week Warrior", Description: "Maintained a 7-day activity streak", Icon: "🔥", Points: 50,
		earned: func(s models.ProgressionState, _ ActivitySummary) bool { return s.StreakDays >= 7 },
	},
	{
		ID: "mood_tracker", Name: "Mood Tracker", Description: "Logged mood 10 times", Icon: "📊", Points: 25,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return a.MoodLogs >= 10 },
	},
	{
		ID: "reflection_master", Name: "Reflection Master", Description: "Wrote 20 journal entries", Icon: "🧠", Points: 75,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return a.JournalEntries >= 20 },
	},
	{
		ID: "task_champion", Name: "Task Champion", Description: "Completed 25 daily tasks", Icon: "🏆", Points: 60,
		earned: func(s models.ProgressionState, _ ActivitySummary) bool { return s.CompletedTasks >= 25 },
	},
	{
		ID: "mindful_minute", Name: "Mindful Minute", Description: "Completed first mindfulness task", Icon: "🧘", Points: 20,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return a.CompletedByCategory["breathing"] > 0 },
	},
	{
		ID: "consistency_king", Name: "Consistency King", Description: "Maintained a 30-day streak", Icon: "👑", Points: 150,
		earned: func(s models.ProgressionState, _ ActivitySummary) bool { return s.StreakDays >= 30 },
	},
	{
		ID: "wellness_explorer", Name: "Wellness Explorer", Description: "Tried 5 different activity types", Icon: "🗺️", Points: 40,
		earned: func(_ models.ProgressionState, a ActivitySummary) bool { return len(a.CompletedByCategory) >= 5 },
	},
	{
		ID: "point_collector", Name: "Point Collector", Description: "Earned 500 points", Icon: "💎", Points: 30,
		earned: func(s models.ProgressionState, _ ActivitySummary) bool { return s.Points >= 500 },
	},
}

var catalogByID = func() map[string]Badge {
	m := make(map[string]Badge, len(catalog))
	for _, b := range catalog {
		m[b.ID] = b
	}
	return m
}()

// Catalog returns the badge catalog in display order.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// LookupBadge returns the catalog entry for id.
func LookupBadge(id string) (Badge, bool) {
	b, ok := catalogByID[id]
	return b, ok
}

// BadgePoints sums the rewards of the given badge ids. Unknown ids count as
// zero.
func BadgePoints(ids []string) int {
	total := 0
	for _, id := range ids {
		total += catalogByID[id].Points
	}
	return total
}

// Evaluate returns the badges earned by state and summary that state does
// not hold yet. Rewards of newly earned badges count towards point-based
// badges in the same pass, so evaluating the resulting state again yields
// nothing.
func Evaluate(state models.ProgressionState, summary ActivitySummary) []Badge {
	var earned []Badge
	held := make(map[string]bool, len(state.Badges))
	for _, id := range state.Badges {
		held[id] = true
	}
	projected := state
	for changed := true; changed; {
		changed = false
		for _, b := range catalog {
			if held[b.ID] || !b.earned(projected, summary) {
				continue
			}
			held[b.ID] = true
			projected.Points += b.Points
			earned = append(earned, b)
			changed = true
		}
	}
	return earned
}

// AwardDelta converts newly earned badges into a ledger delta.
func AwardDelta(badges []Badge) models.Delta {
	var d models.Delta
	for _, b := range badges {
		d.AddPoints += b.Points
		d.Badges = append(d.Badges, b.ID)
	}
	return d
}
