package insights

import (
	"context"
	"fmt"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 90

	trendMoodCount      = 7
	challengeJournals   = 10
	keyChallengeCount   = 3
	minImprovementMoods = 10
)

type WellnessSummary struct {
	TotalEntries    int             `json:"total_entries"`
	RecentMoodTrend analytics.Trend `json:"recent_mood_trend"`
	KeyChallenges   []string        `json:"key_challenges"`
}

// Improvements compares the newer half of the period's mood logs with the
// older half. Trend is empty when there are too few logs to compare.
type Improvements struct {
	Mood            float64         `json:"mood_improvement"`
	Energy          float64         `json:"energy_improvement"`
	StressReduction float64         `json:"stress_reduction"`
	Trend           analytics.Trend `json:"trend,omitempty"`
}

type Patterns struct {
	DailyMood      map[string]analytics.MoodAverages `json:"daily_mood_patterns"`
	CategoryTrends map[string]map[string]int         `json:"category_trends"`
	Improvements   Improvements                      `json:"improvement_metrics"`
}

type PeriodInsights struct {
	Period          Period          `json:"period"`
	Summary         WellnessSummary `json:"summary"`
	Patterns        Patterns        `json:"patterns"`
	Recommendations []string        `json:"recommendations"`
}

// NormalizePeriodDays applies the default and the cap.
func NormalizePeriodDays(days int) int {
	if days <= 0 {
		return defaultPeriodDays
	}
	return min(days, maxPeriodDays)
}

// Period returns patterns over the last days days.
func (s *Summarizer) Period(ctx context.Context, user models.UserID, days int) (PeriodInsights, error) {
	days = NormalizePeriodDays(days)
	return cached(s, user, fmt.Sprintf("period:%d", days), func() (PeriodInsights, error) {
		return s.period(ctx, user, days)
	})
}

func (s *Summarizer) period(ctx context.Context, user models.UserID, days int) (PeriodInsights, error) {
	now := s.now().UTC()
	p := period(now, days)

	moods, err := s.activity.Moods(ctx, user, p.StartDate, now.Add(day), 0)
	if err != nil {
		return PeriodInsights{}, err
	}
	journals, err := s.activity.Journals(ctx, user, p.StartDate, 0)
	if err != nil {
		return PeriodInsights{}, err
	}

	out := PeriodInsights{
		Period:  p,
		Summary: wellnessSummary(moods, journals),
		Patterns: Patterns{
			DailyMood:      dailyMoodPatterns(moods),
			CategoryTrends: categoryTrends(journals),
			Improvements:   improvements(moods),
		},
	}
	out.Recommendations = recommendations(out.Summary.RecentMoodTrend)
	return out, nil
}

func wellnessSummary(moods, journals []models.ActivityEvent) WellnessSummary {
	ws := WellnessSummary{
		TotalEntries:    len(moods) + len(journals),
		RecentMoodTrend: analytics.TrendStable,
		KeyChallenges:   []string{},
	}
	recent := moods[:min(trendMoodCount, len(moods))]
	if len(recent) >= 3 {
		ws.RecentMoodTrend = analytics.ClassifyTrend(recent[3:], recent[:3])
	}

	counts := map[string]int{}
	for _, j := range journals[:min(challengeJournals, len(journals))] {
		for _, c := range j.Journal.Insight.Categories {
			counts[c]++
		}
	}
	if len(counts) > 0 {
		ws.KeyChallenges = activity.TopCategories(counts, keyChallengeCount)
	}
	return ws
}

// dailyMoodPatterns averages mood logs per weekday name.
func dailyMoodPatterns(moods []models.ActivityEvent) map[string]analytics.MoodAverages {
	byDay := map[string][]models.ActivityEvent{}
	for _, m := range moods {
		wd := m.Timestamp.UTC().Weekday().String()
		byDay[wd] = append(byDay[wd], m)
	}
	out := make(map[string]analytics.MoodAverages, len(byDay))
	for wd, logs := range byDay {
		out[wd] = analytics.Average(logs)
	}
	return out
}

// categoryTrends counts journal categories per ISO week.
func categoryTrends(journals []models.ActivityEvent) map[string]map[string]int {
	out := map[string]map[string]int{}
	for _, j := range journals {
		year, week := j.Timestamp.UTC().ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		if out[key] == nil {
			out[key] = map[string]int{}
		}
		for _, c := range j.Journal.Insight.Categories {
			out[key][c]++
		}
	}
	return out
}

// improvements compares the newer half of the mood logs with the older
// half. moods are newest first.
func improvements(moods []models.ActivityEvent) Improvements {
	if len(moods) < minImprovementMoods {
		return Improvements{}
	}
	half := len(moods) / 2
	newer, older := analytics.Average(moods[:half]), analytics.Average(moods[half:])
	return Improvements{
		Mood:            analytics.Round(newer.MoodScore-older.MoodScore, 2),
		Energy:          analytics.Round(newer.Energy-older.Energy, 2),
		StressReduction: analytics.Round(older.Stress-newer.Stress, 2),
		Trend:           analytics.ClassifyTrend(moods[half:], moods[:half]),
	}
}

func recommendations(trend analytics.Trend) []string {
	recs := []string{
		"Continue your journaling practice to maintain self-awareness",
		"Focus on activities that boost your energy levels",
		"Practice stress management techniques during high-stress periods",
	}
	switch trend {
	case analytics.TrendDeclining:
		recs = append([]string{"Consider reaching out to friends or engaging in mood-boosting activities"}, recs...)
	case analytics.TrendImproving:
		recs = append([]string{"Great progress! Keep up the positive habits that are working for you"}, recs...)
	}
	return recs
}
