package handlers

import (
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type moodLogDTO struct {
	ID        string      `json:"id"`
	Mood      models.Mood `json:"mood"`
	Energy    int         `json:"energy"`
	Stress    int         `json:"stress"`
	Note      string      `json:"note"`
	Timestamp string      `json:"timestamp"`
}

func toMoodLogDTO(e models.ActivityEvent) moodLogDTO {
	dto := moodLogDTO{ID: e.ID, Timestamp: e.Timestamp.UTC().Format(time.RFC3339)}
	if e.Mood != nil {
		dto.Mood = e.Mood.Mood
		dto.Energy = e.Mood.Energy
		dto.Stress = e.Mood.Stress
		dto.Note = e.Mood.Note
	}
	return dto
}

type journalDTO struct {
	ID        string                `json:"id"`
	Text      string                `json:"text"`
	WordCount int                   `json:"word_count"`
	CharCount int                   `json:"char_count"`
	Insight   models.JournalInsight `json:"ai_insight"`
	Timestamp string                `json:"timestamp"`
}

func toJournalDTO(e models.ActivityEvent) journalDTO {
	dto := journalDTO{ID: e.ID, Timestamp: e.Timestamp.UTC().Format(time.RFC3339)}
	if e.Journal != nil {
		dto.Text = e.Journal.Text
		dto.WordCount = e.Journal.WordCount
		dto.CharCount = e.Journal.CharCount
		dto.Insight = e.Journal.Insight
	}
	return dto
}

// planDTO adds the derived totals clients display next to the tasks.
type planDTO struct {
	Date                  string        `json:"date"`
	Tasks                 []models.Task `json:"tasks"`
	GeneratedAt           string        `json:"generated_at"`
	TotalEstimatedMinutes int           `json:"total_estimated_minutes"`
	CompletedTasks        int           `json:"completed_tasks"`
	SkippedTasks          int           `json:"skipped_tasks"`
}

func toPlanDTO(p models.DailyPlan) planDTO {
	return planDTO{
		Date:                  p.Date,
		Tasks:                 p.Tasks,
		GeneratedAt:           p.GeneratedAt.UTC().Format(time.RFC3339),
		TotalEstimatedMinutes: p.TotalEstimatedMinutes(),
		CompletedTasks:        p.CompletedCount(),
		SkippedTasks:          p.SkippedCount(),
	}
}
