package insights

import (
	"context"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/planner"
)

const statsDays = 30

type Overview struct {
	TotalPoints       int      `json:"total_points"`
	CurrentLevel      int      `json:"current_level"`
	PointsToNextLevel int      `json:"points_to_next_level"`
	CurrentStreak     int      `json:"current_streak"`
	LongestStreak     int      `json:"longest_streak"`
	TotalBadges       int      `json:"total_badges"`
	Badges            []string `json:"badges"`
}

type ActivityFrequency struct {
	DailyAvgMoodLogs       float64 `json:"daily_avg_mood_logs"`
	DailyAvgJournalEntries float64 `json:"daily_avg_journal_entries"`
	ActiveDays             int     `json:"active_days"`
}

type ActivityStats struct {
	TotalMoodLogs       int               `json:"total_mood_logs"`
	TotalJournalEntries int               `json:"total_journal_entries"`
	TotalCompletedTasks int               `json:"total_completed_tasks"`
	Frequency           ActivityFrequency `json:"activity_frequency"`
}

type PersonalBests struct {
	LongestStreak   int `json:"longest_streak"`
	MostTasksPerDay int `json:"most_tasks_per_day"`
	HighestEnergy   int `json:"highest_energy_level"`
	LowestStress    int `json:"lowest_stress_level"`
}

type WeeklyProgress struct {
	MoodLogsThisWeek int `json:"mood_logs_this_week"`
	PointsThisWeek   int `json:"points_this_week"`
	StreakThisWeek   int `json:"streak_this_week"`
}

type Achievements struct {
	BadgesEarned     int `json:"badges_earned"`
	PointsFromBadges int `json:"points_from_badges"`
}

type Stats struct {
	Overview       Overview       `json:"overview"`
	Activity       ActivityStats  `json:"activity_stats"`
	PersonalBests  PersonalBests  `json:"personal_bests"`
	WeeklyProgress WeeklyProgress `json:"weekly_progress"`
	Achievements   Achievements   `json:"achievements"`
}

// Stats returns the ledger overview together with 30-day activity figures.
func (s *Summarizer) Stats(ctx context.Context, user models.UserID) (Stats, error) {
	return cached(s, user, "stats", func() (Stats, error) { return s.stats(ctx, user) })
}

func (s *Summarizer) stats(ctx context.Context, user models.UserID) (Stats, error) {
	now := s.now().UTC()
	from := now.Add(-statsDays * day)

	events, err := s.activity.Query(ctx, user, models.EventFilter{From: from})
	if err != nil {
		return Stats{}, err
	}
	plans, err := s.planDays(ctx, user, now, weekDays)
	if err != nil {
		return Stats{}, err
	}
	state, err := s.progression.Ledger().Get(ctx, user)
	if err != nil {
		return Stats{}, err
	}
	// the stored streak is only refreshed on writes
	dates, err := s.activity.Dates(ctx, user)
	if err != nil {
		return Stats{}, err
	}
	streak := analytics.Streak(dates, now)
	longest := max(state.LongestStreak, streak.Longest)

	st := Stats{
		Overview: Overview{
			TotalPoints:       state.Points,
			CurrentLevel:      gamification.Level(state.Points),
			PointsToNextLevel: gamification.PointsToNextLevel(state.Points),
			CurrentStreak:     streak.Current,
			LongestStreak:     longest,
			TotalBadges:       len(state.Badges),
			Badges:            append([]string{}, state.Badges...),
		},
		PersonalBests: PersonalBests{
			LongestStreak: longest,
			LowestStress:  models.MaxLevelMeasurement,
		},
		WeeklyProgress: WeeklyProgress{StreakThisWeek: min(streak.Current, weekDays)},
		Achievements: Achievements{
			BadgesEarned:     len(state.Badges),
			PointsFromBadges: gamification.BadgePoints(state.Badges),
		},
	}
	st.Activity.TotalCompletedTasks = state.CompletedTasks

	weekStart := startOfWeek(now)
	active := map[string]bool{}
	for _, e := range events {
		thisWeek := !e.Timestamp.Before(weekStart)
		switch e.Kind {
		case models.KindMood:
			st.Activity.TotalMoodLogs++
			active[models.DateOf(e.Timestamp)] = true
			st.PersonalBests.HighestEnergy = max(st.PersonalBests.HighestEnergy, e.Mood.Energy)
			st.PersonalBests.LowestStress = min(st.PersonalBests.LowestStress, e.Mood.Stress)
			if thisWeek {
				st.WeeklyProgress.MoodLogsThisWeek++
				st.WeeklyProgress.PointsThisWeek += activity.MoodPoints
			}
		case models.KindJournal:
			st.Activity.TotalJournalEntries++
			if thisWeek {
				st.WeeklyProgress.PointsThisWeek += activity.JournalPoints
			}
		case models.KindTaskCompletion:
			if thisWeek {
				st.WeeklyProgress.PointsThisWeek += planner.TaskPoints
			}
		}
	}
	if st.Activity.TotalMoodLogs == 0 {
		st.PersonalBests.LowestStress = 0
	}
	st.Activity.Frequency = ActivityFrequency{
		DailyAvgMoodLogs:       analytics.Round(float64(st.Activity.TotalMoodLogs)/statsDays, 2),
		DailyAvgJournalEntries: analytics.Round(float64(st.Activity.TotalJournalEntries)/statsDays, 2),
		ActiveDays:             len(active),
	}
	for _, p := range plans {
		st.PersonalBests.MostTasksPerDay = max(st.PersonalBests.MostTasksPerDay, p.CompletedCount())
	}
	return st, nil
}

// startOfWeek is midnight UTC of the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
