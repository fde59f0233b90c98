package activity

import (
	"cmp"
	"slices"

	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const topCategoryCount = 5

func summarizeJournals(entries []models.ActivityEvent) JournalSummary {
	sum := JournalSummary{
		TotalEntries:     len(entries),
		MoodDistribution: map[string]int{},
		TopCategories:    []string{},
		RiskLevels:       map[string]int{},
	}
	categories := map[string]int{}
	var confidence float64
	n := 0
	for _, e := range entries {
		if e.Journal == nil {
			continue
		}
		in := e.Journal.Insight
		sum.MoodDistribution[string(in.Mood)]++
		sum.RiskLevels[string(in.Risk)]++
		for _, c := range in.Categories {
			categories[c]++
		}
		confidence += in.Confidence
		n++
	}
	if n > 0 {
		sum.AverageConfidence = analytics.Round(confidence/float64(n), 2)
	}
	sum.TopCategories = TopCategories(categories, topCategoryCount)
	return sum
}

// TopCategories returns up to n category names by descending count, ties
// broken alphabetically.
func TopCategories(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
