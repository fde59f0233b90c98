package models

import (
	"context"
	"time"
)

// EventStore persists the append-only activity log.
type EventStore interface {
	AppendEvent(ctx context.Context, e ActivityEvent) error
	// QueryEvents returns matching events newest first.
	QueryEvents(ctx context.Context, user UserID, f EventFilter) ([]ActivityEvent, error)
}

// BatchAppender is implemented by event stores that can append several
// events atomically.
type BatchAppender interface {
	AppendEvents(ctx context.Context, events []ActivityEvent) error
}

// PlanStore persists daily plans, at most one per (user, date).
type PlanStore interface {
	// GetPlan returns ErrNotFound when no plan exists.
	GetPlan(ctx context.Context, user UserID, date string) (DailyPlan, error)
	// CreatePlan returns ErrConflict when a plan for the key already exists.
	CreatePlan(ctx context.Context, plan DailyPlan) error
	// UpdatePlan writes plan only if the stored version equals expectedVersion.
	UpdatePlan(ctx context.Context, plan DailyPlan, expectedVersion int64) error
	// ListPlans returns plans with from <= date <= to, in no particular order.
	ListPlans(ctx context.Context, user UserID, from, to string) ([]DailyPlan, error)
}

// LedgerStore persists ProgressionState.
type LedgerStore interface {
	// GetState returns the zero state for unknown users.
	GetState(ctx context.Context, user UserID) (ProgressionState, error)
	// ApplyConditional applies d only if the stored version equals
	// expectedVersion, otherwise it returns ErrConflict.
	ApplyConditional(ctx context.Context, user UserID, d Delta, expectedVersion int64) (ProgressionState, error)
}

type MoodSnapshot struct {
	Mood   Mood      `json:"mood"`
	Energy int       `json:"energy"`
	Stress int       `json:"stress"`
	At     time.Time `json:"at"`
}

// RecommendationContext is what the recommender sees when planning a day.
type RecommendationContext struct {
	UserID           UserID            `json:"-"`
	Date             string            `json:"date"`
	RecentMoods      []MoodSnapshot    `json:"recent_moods"`
	RecentCategories []string          `json:"recent_insights"`
	StreakDays       int               `json:"streak_days"`
	CompletedTasks   int               `json:"completed_tasks"`
	Preferences      map[string]string `json:"preferences"`
}

type TaskSuggestion struct {
	Type             string `json:"type"`
	Title            string `json:"title"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Description      string `json:"description"`
	CTAType          string `json:"cta_type"`
}

type Recommender interface {
	SuggestTasks(ctx context.Context, rc RecommendationContext) ([]TaskSuggestion, error)
}

type JournalAnalyzer interface {
	Analyze(ctx context.Context, text string) (JournalInsight, error)
}

// ChatTurn is an earlier exchange handed to the responder as context.
type ChatTurn struct {
	Message  string `json:"user"`
	Response string `json:"assistant"`
}

type ChatResponder interface {
	Reply(ctx context.Context, message string, history []ChatTurn) (ChatReply, error)
}

// EventSink receives a copy of every accepted event for analytics.
type EventSink interface {
	Publish(ctx context.Context, e ActivityEvent) error
}

type Identity struct {
	UserID UserID `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}
