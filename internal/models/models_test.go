package models_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

func TestMoodPayloadNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      models.MoodPayload
		wantErr bool
	}{
		{"valid", models.MoodPayload{Mood: models.MoodHappy, Energy: 7, Stress: 2}, false},
		{"bounds", models.MoodPayload{Mood: models.MoodAnxious, Energy: 0, Stress: 10}, false},
		{"unknown mood", models.MoodPayload{Mood: "elated", Energy: 5, Stress: 5}, true},
		{"energy too high", models.MoodPayload{Mood: models.MoodSad, Energy: 11}, true},
		{"negative stress", models.MoodPayload{Mood: models.MoodSad, Stress: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			err := p.Normalize()
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMoodPayloadNoteIsTrimmedAndCapped(t *testing.T) {
	p := models.MoodPayload{Mood: models.MoodNeutral, Note: "  " + strings.Repeat("a", 600) + "  "}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(p.Note) != models.MaxMoodNoteLength {
		t.Fatalf("expected note capped at %d, got %d", models.MaxMoodNoteLength, len(p.Note))
	}
}

func TestNewJournalPayload(t *testing.T) {
	if _, err := models.NewJournalPayload("too short"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for short text, got %v", err)
	}
	if _, err := models.NewJournalPayload(strings.Repeat("x", 2001)); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for long text, got %v", err)
	}
	p, err := models.NewJournalPayload("  today was long but I managed  ")
	if err != nil {
		t.Fatalf("NewJournalPayload: %v", err)
	}
	if p.WordCount != 6 {
		t.Fatalf("expected 6 words, got %d", p.WordCount)
	}
	if p.CharCount != len("today was long but I managed") {
		t.Fatalf("unexpected char count %d", p.CharCount)
	}
}

func TestInsightSanitizeAddsEscalationForHighRisk(t *testing.T) {
	in := models.JournalInsight{Mood: "weird", Risk: models.RiskHigh, Confidence: 3}.Sanitize()
	if in.Mood != models.MoodNeutral {
		t.Fatalf("expected neutral mood, got %s", in.Mood)
	}
	if in.EscalationAdvice == "" {
		t.Fatal("expected escalation advice for high risk")
	}
	if in.Confidence != 0.5 {
		t.Fatalf("expected confidence reset to 0.5, got %v", in.Confidence)
	}
	if len(in.Categories) != 1 || in.Categories[0] != "general" {
		t.Fatalf("unexpected categories %v", in.Categories)
	}
}

func TestApplyDeltaIsMonotonic(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := models.ProgressionState{Points: 40, LongestStreak: 9, Badges: []string{"first_check_in"}, Version: 3}

	next := s.Apply(models.Delta{
		AddPoints: 5,
		Streak:    &models.StreakUpdate{Current: 2, Longest: 4, LastActivity: "2025-03-10"},
		Badges:    []string{"mood_tracker", "first_check_in"},
	}, now)

	if next.Points != 45 {
		t.Fatalf("expected 45 points, got %d", next.Points)
	}
	if next.StreakDays != 2 || next.LongestStreak != 9 {
		t.Fatalf("unexpected streak %d/%d", next.StreakDays, next.LongestStreak)
	}
	if got := strings.Join(next.Badges, ","); got != "first_check_in,mood_tracker" {
		t.Fatalf("unexpected badges %s", got)
	}
	if next.Version != 4 {
		t.Fatalf("expected version 4, got %d", next.Version)
	}
	if len(s.Badges) != 1 {
		t.Fatal("Apply mutated the original state")
	}
}

func TestApplyKeepsRecentCredits(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	var s models.ProgressionState
	for i := 0; i < models.MaxCredits+3; i++ {
		s = s.Apply(models.Delta{AddPoints: 1, CreditKey: fmt.Sprintf("k%d", i)}, now)
	}
	if len(s.Credits) != models.MaxCredits {
		t.Fatalf("expected %d keys, got %d", models.MaxCredits, len(s.Credits))
	}
	if s.HasCredit("k0") || s.HasCredit("k2") || !s.HasCredit("k3") || !s.HasCredit(fmt.Sprintf("k%d", models.MaxCredits+2)) {
		t.Fatalf("expected only the most recent keys, got %v..%v", s.Credits[0], s.Credits[len(s.Credits)-1])
	}
	if s.HasCredit("") {
		t.Fatal("the empty key is never credited")
	}

	before := s.Clone()
	next := s.Apply(models.Delta{AddPoints: 1, CreditKey: "k3"}, now)
	if len(next.Credits) != models.MaxCredits || next.Credits[0] != "k3" {
		t.Fatalf("a held key must not be appended again, got %v", next.Credits[:2])
	}
	if len(s.Credits) != len(before.Credits) {
		t.Fatal("Apply mutated the original state")
	}
	if (models.Delta{CreditKey: "k"}).IsZero() {
		t.Fatal("a delta with only a credit key is not zero")
	}
}

func TestDeltaValidate(t *testing.T) {
	if err := (models.Delta{AddPoints: -1}).Validate(); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (models.Delta{AddPoints: 5, AddCompletedTasks: 1}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlanTransition(t *testing.T) {
	now := time.Now()
	plan := models.DailyPlan{Tasks: []models.Task{
		{ID: "a", Status: models.TaskPending, EstimatedMinutes: 5},
		{ID: "b", Status: models.TaskPending, EstimatedMinutes: 10},
	}}

	if _, err := plan.Transition("a", models.TaskCompleted, now); err != nil {
		t.Fatalf("complete a: %v", err)
	}
	if _, err := plan.Transition("a", models.TaskSkipped, now); !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal, got %v", err)
	}
	if _, err := plan.Transition("zzz", models.TaskSkipped, now); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := plan.Transition("b", models.TaskPending, now); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if plan.CompletedCount() != 1 || plan.TotalEstimatedMinutes() != 15 {
		t.Fatalf("unexpected derived counts %d/%d", plan.CompletedCount(), plan.TotalEstimatedMinutes())
	}
}
