// Package analytics holds the pure aggregations over activity events: mood
// averages, trend classification and streaks.
package analytics

import (
	"math"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendThreshold is the minimum change in mean mood score that counts as a
// shift in either direction.
const trendThreshold = 0.5

type MoodAverages struct {
	MoodScore float64 `json:"average_mood"`
	Energy    float64 `json:"average_energy"`
	Stress    float64 `json:"average_stress"`
	Count     int     `json:"count"`
}

// Average computes the mean mood score, energy and stress over the mood
// events in events, rounded to two decimals. Other kinds are ignored.
func Average(events []models.ActivityEvent) MoodAverages {
	var mood, energy, stress float64
	n := 0
	for _, e := range events {
		if e.Mood == nil {
			continue
		}
		mood += e.Mood.Mood.Score()
		energy += float64(e.Mood.Energy)
		stress += float64(e.Mood.Stress)
		n++
	}
	if n == 0 {
		return MoodAverages{}
	}
	return MoodAverages{
		MoodScore: Round(mood/float64(n), 2),
		Energy:    Round(energy/float64(n), 2),
		Stress:    Round(stress/float64(n), 2),
		Count:     n,
	}
}

// ClassifyTrend compares the mean mood score of recent against older. An
// empty window on either side is stable.
func ClassifyTrend(older, recent []models.ActivityEvent) Trend {
	o, r := meanScore(older), meanScore(recent)
	if math.IsNaN(o) || math.IsNaN(r) {
		return TrendStable
	}
	switch {
	case r > o+trendThreshold:
		return TrendImproving
	case r < o-trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanScore(events []models.ActivityEvent) float64 {
	sum, n := 0.0, 0
	for _, e := range events {
		if e.Mood == nil {
			continue
		}
		sum += e.Mood.Mood.Score()
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
