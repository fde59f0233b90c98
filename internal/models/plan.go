package models

import (
	"fmt"
	"slices"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskSkipped   TaskStatus = "skipped"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskSkipped
}

type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	CTAType          string     `json:"cta_type"`
	Description      string     `json:"description,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Status           TaskStatus `json:"status"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	SkippedAt        *time.Time `json:"skipped_at,omitempty"`
}

// DailyPlan holds the tasks generated for one user on one calendar date.
type DailyPlan struct {
	UserID      UserID    `json:"user_id"`
	Date        string    `json:"date"`
	Tasks       []Task    `json:"tasks"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     int64     `json:"-"`
}

func (p DailyPlan) TotalEstimatedMinutes() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.EstimatedMinutes
	}
	return total
}

func (p DailyPlan) CompletedCount() int {
	return p.count(TaskCompleted)
}

func (p DailyPlan) SkippedCount() int {
	return p.count(TaskSkipped)
}

func (p DailyPlan) count(status TaskStatus) int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (p DailyPlan) Clone() DailyPlan {
	p.Tasks = slices.Clone(p.Tasks)
	for i := range p.Tasks {
		if t := p.Tasks[i].CompletedAt; t != nil {
			c := *t
			p.Tasks[i].CompletedAt = &c
		}
		if t := p.Tasks[i].SkippedAt; t != nil {
			c := *t
			p.Tasks[i].SkippedAt = &c
		}
	}
	return p
}

// Transition moves a pending task to a terminal status in place and returns
// the updated task.
func (p *DailyPlan) Transition(taskID string, to TaskStatus, at time.Time) (Task, error) {
	if !to.Terminal() {
		return Task{}, fmt.Errorf("%w: cannot move a task to %q", ErrValidation, to)
	}
	i := slices.IndexFunc(p.Tasks, func(t Task) bool { return t.ID == taskID })
	if i < 0 {
		return Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	t := &p.Tasks[i]
	if t.Status.Terminal() {
		return *t, fmt.Errorf("task %s is %s: %w", taskID, t.Status, ErrAlreadyTerminal)
	}
	at = at.UTC()
	t.Status = to
	if to == TaskCompleted {
		t.CompletedAt = &at
	} else {
		t.SkippedAt = &at
	}
	return *t, nil
}
