package insights

import (
	"context"

	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const weekDays = 7

type MoodMetrics struct {
	analytics.MoodAverages
	Trend analytics.Trend `json:"mood_trend"`
}

type DayPlanStats struct {
	Date           string `json:"date"`
	CompletedTasks int    `json:"completed_tasks"`
	TotalTasks     int    `json:"total_tasks"`
}

type ActivityMetrics struct {
	StreakDays     int            `json:"streak_days"`
	CompletedTasks int            `json:"completed_tasks"`
	JournalEntries int            `json:"total_journal_entries"`
	DailyPlanStats []DayPlanStats `json:"daily_plan_stats"`
}

type LedgerOverview struct {
	TotalPoints         int `json:"total_points"`
	CurrentLevel        int `json:"current_level"`
	TotalCompletedTasks int `json:"total_completed_tasks"`
	BadgesCount         int `json:"badges_count"`
}

type Weekly struct {
	Period   Period          `json:"period"`
	Mood     MoodMetrics     `json:"mood_metrics"`
	Activity ActivityMetrics `json:"activity_metrics"`
	User     LedgerOverview  `json:"user_stats"`
}

// Weekly summarizes the last seven days.
func (s *Summarizer) Weekly(ctx context.Context, user models.UserID) (Weekly, error) {
	return cached(s, user, "weekly", func() (Weekly, error) { return s.weekly(ctx, user) })
}

func (s *Summarizer) weekly(ctx context.Context, user models.UserID) (Weekly, error) {
	now := s.now().UTC()
	from := now.Add(-weekDays * day)

	moods, err := s.activity.Moods(ctx, user, from, now.Add(day), 0)
	if err != nil {
		return Weekly{}, err
	}
	journals, err := s.activity.Journals(ctx, user, from, 0)
	if err != nil {
		return Weekly{}, err
	}
	dates, err := s.activity.Dates(ctx, user)
	if err != nil {
		return Weekly{}, err
	}
	plans, err := s.planDays(ctx, user, now, weekDays)
	if err != nil {
		return Weekly{}, err
	}
	state, err := s.progression.Ledger().Get(ctx, user)
	if err != nil {
		return Weekly{}, err
	}

	w := Weekly{
		Period: period(now, weekDays),
		Mood:   MoodMetrics{MoodAverages: analytics.Average(moods), Trend: weeklyTrend(moods)},
		Activity: ActivityMetrics{
			StreakDays:     analytics.CurrentStreak(dates, now),
			JournalEntries: len(journals),
			DailyPlanStats: []DayPlanStats{},
		},
		User: LedgerOverview{
			TotalPoints:         state.Points,
			CurrentLevel:        gamification.Level(state.Points),
			TotalCompletedTasks: state.CompletedTasks,
			BadgesCount:         len(state.Badges),
		},
	}
	for i := 0; i < weekDays; i++ {
		date := models.DateOf(now.AddDate(0, 0, -i))
		p, ok := plans[date]
		if !ok {
			continue
		}
		st := DayPlanStats{Date: date, CompletedTasks: p.CompletedCount(), TotalTasks: len(p.Tasks)}
		w.Activity.CompletedTasks += st.CompletedTasks
		w.Activity.DailyPlanStats = append(w.Activity.DailyPlanStats, st)
	}
	return w, nil
}

// weeklyTrend compares the three most recent mood logs with the three
// before them. Fewer than four logs is stable.
func weeklyTrend(moods []models.ActivityEvent) analytics.Trend {
	if len(moods) < 4 {
		return analytics.TrendStable
	}
	return analytics.ClassifyTrend(moods[3:min(6, len(moods))], moods[:3])
}
