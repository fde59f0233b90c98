package planner

import (
	"context"
	"fmt"

	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	defaultHistoryDays = 7
	maxHistoryDays     = 30
)

type DayHistory struct {
	Date           string  `json:"date"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	SkippedTasks   int     `json:"skipped_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	TotalMinutes   int     `json:"total_minutes"`
}

type HistorySummary struct {
	PlansGenerated        int     `json:"total_plans_generated"`
	AverageCompletionRate float64 `json:"average_completion_rate"`
	TotalTasksCompleted   int     `json:"total_tasks_completed"`
}

type History struct {
	Days    []DayHistory   `json:"history"`
	Summary HistorySummary `json:"stats"`
}

// NormalizeHistoryDays applies the default and the cap.
func NormalizeHistoryDays(days int) int {
	if days <= 0 {
		return defaultHistoryDays
	}
	return min(days, maxHistoryDays)
}

// CompletionRate is completed/total as a percentage with one decimal.
func CompletionRate(p models.DailyPlan) float64 {
	if len(p.Tasks) == 0 {
		return 0
	}
	return analytics.Round(float64(p.CompletedCount())/float64(len(p.Tasks))*100, 1)
}

// History returns one entry per day, newest first, ending today. Days without
// a plan appear with zero counts.
func (e *Engine) History(ctx context.Context, user models.UserID, days int) (History, error) {
	days = NormalizeHistoryDays(days)
	today := e.now().UTC()
	from := models.DateOf(today.AddDate(0, 0, -(days - 1)))

	plans, err := e.plans.ListPlans(ctx, user, from, models.DateOf(today))
	if err != nil {
		return History{}, fmt.Errorf("%w: list plans: %w", models.ErrDependencyUnavailable, err)
	}
	byDate := make(map[string]models.DailyPlan, len(plans))
	for _, p := range plans {
		byDate[p.Date] = p
	}

	h := History{Days: make([]DayHistory, 0, days)}
	var rateSum float64
	for i := 0; i < days; i++ {
		date := models.DateOf(today.AddDate(0, 0, -i))
		d := DayHistory{Date: date}
		if p, ok := byDate[date]; ok {
			d.TotalTasks = len(p.Tasks)
			d.CompletedTasks = p.CompletedCount()
			d.SkippedTasks = p.SkippedCount()
			d.CompletionRate = CompletionRate(p)
			d.TotalMinutes = p.TotalEstimatedMinutes()
		}
		if d.TotalTasks > 0 {
			h.Summary.PlansGenerated++
		}
		h.Summary.TotalTasksCompleted += d.CompletedTasks
		rateSum += d.CompletionRate
		h.Days = append(h.Days, d)
	}
	h.Summary.AverageCompletionRate = analytics.Round(rateSum/float64(days), 1)
	return h, nil
}
