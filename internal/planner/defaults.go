package planner

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	maxSuggestions   = 5
	defaultMinutes   = 10
	defaultTaskType  = "general"
	defaultCTAType   = "activity"
	maxTaskMinutes   = 240
	maxTitleLength   = 120
	maxDescriptionLn = 500
)

// DefaultSuggestions is the plan every user gets when the recommender has
// nothing usable to offer.
func DefaultSuggestions() []models.TaskSuggestion {
	return []models.TaskSuggestion{
		{
			Type:             "breathing",
			Title:            "Morning mindfulness",
			EstimatedMinutes: 5,
			Description:      "Start your day with 5 minutes of deep breathing",
			CTAType:          "timer",
		},
		{
			Type:             "journaling",
			Title:            "Gratitude reflection",
			EstimatedMinutes: 10,
			Description:      "Write down three things you're grateful for today",
			CTAType:          "prompt",
		},
		{
			Type:             "movement",
			Title:            "Energizing walk",
			EstimatedMinutes: 15,
			Description:      "Take a short walk outside or around your space",
			CTAType:          "activity",
		},
	}
}

// buildTasks turns at most maxSuggestions suggestions into pending tasks,
// filling in defaults for anything missing.
func buildTasks(suggestions []models.TaskSuggestion) []models.Task {
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	tasks := make([]models.Task, 0, len(suggestions))
	for i, s := range suggestions {
		t := models.Task{
			ID:               uuid.NewString(),
			Title:            truncate(strings.TrimSpace(s.Title), maxTitleLength),
			Type:             strings.ToLower(strings.TrimSpace(s.Type)),
			CTAType:          strings.ToLower(strings.TrimSpace(s.CTAType)),
			Description:      truncate(strings.TrimSpace(s.Description), maxDescriptionLn),
			EstimatedMinutes: s.EstimatedMinutes,
			Status:           models.TaskPending,
		}
		if t.Title == "" {
			t.Title = fmt.Sprintf("Activity %d", i+1)
		}
		if t.Type == "" {
			t.Type = defaultTaskType
		}
		if t.CTAType == "" {
			t.CTAType = defaultCTAType
		}
		if t.EstimatedMinutes <= 0 {
			t.EstimatedMinutes = defaultMinutes
		}
		t.EstimatedMinutes = min(t.EstimatedMinutes, maxTaskMinutes)
		tasks = append(tasks, t)
	}
	return tasks
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
