package models

import (
	"fmt"
	"slices"
	"time"
)

// ProgressionState is the per-user engagement ledger. The zero value (with
// Version 0) is the state of a user who has never been written.
type ProgressionState struct {
	UserID           UserID    `json:"user_id" db:"user_id"`
	Points           int       `json:"points" db:"points"`
	StreakDays       int       `json:"streak_days" db:"streak_days"`
	LongestStreak    int       `json:"longest_streak" db:"longest_streak"`
	CompletedTasks   int       `json:"completed_tasks" db:"completed_tasks"`
	Badges           []string  `json:"badges" db:"-"`
	LastActivityDate string    `json:"last_activity_date,omitempty" db:"last_activity_date"`
	// Credits holds the keys of the most recent keyed deltas, oldest first.
	Credits          []string  `json:"-" db:"-"`
	Version          int64     `json:"-" db:"version"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// MaxCredits bounds ProgressionState.Credits. Older keys are forgotten.
const MaxCredits = 64

func (s ProgressionState) HasBadge(id string) bool {
	return slices.Contains(s.Badges, id)
}

// HasCredit reports whether a delta keyed by key was already applied.
func (s ProgressionState) HasCredit(key string) bool {
	return key != "" && slices.Contains(s.Credits, key)
}

func (s ProgressionState) Clone() ProgressionState {
	s.Badges = slices.Clone(s.Badges)
	s.Credits = slices.Clone(s.Credits)
	return s
}

// StreakUpdate replaces the streak fields with values recomputed from the
// user's activity dates.
type StreakUpdate struct {
	Current      int    `json:"current"`
	Longest      int    `json:"longest"`
	LastActivity string `json:"last_activity"`
}

// Delta is the only way a ProgressionState changes.
type Delta struct {
	AddPoints         int           `json:"add_points"`
	AddCompletedTasks int           `json:"add_completed_tasks"`
	Streak            *StreakUpdate `json:"streak,omitempty"`
	Badges            []string      `json:"badges,omitempty"`
	// CreditKey makes the delta apply at most once per key.
	CreditKey         string        `json:"credit_key,omitempty"`
}

func (d Delta) Validate() error {
	if d.AddPoints < 0 {
		return fmt.Errorf("%w: points delta must not be negative", ErrValidation)
	}
	if d.AddCompletedTasks < 0 {
		return fmt.Errorf("%w: completed tasks delta must not be negative", ErrValidation)
	}
	if d.Streak != nil && (d.Streak.Current < 0 || d.Streak.Longest < 0) {
		return fmt.Errorf("%w: streak must not be negative", ErrValidation)
	}
	return nil
}

func (d Delta) IsZero() bool {
	return d.AddPoints == 0 && d.AddCompletedTasks == 0 && d.Streak == nil && len(d.Badges) == 0 && d.CreditKey == ""
}

// Merge folds o into d. Badge ids are unioned.
func (d Delta) Merge(o Delta) Delta {
	d.AddPoints += o.AddPoints
	d.AddCompletedTasks += o.AddCompletedTasks
	if o.Streak != nil {
		d.Streak = o.Streak
	}
	d.Badges = unionSorted(d.Badges, o.Badges)
	if d.CreditKey == "" {
		d.CreditKey = o.CreditKey
	}
	return d
}

// Apply returns the state after d. It never lowers points, completed tasks,
// the longest streak or the badge set, and bumps the version by one.
func (s ProgressionState) Apply(d Delta, now time.Time) ProgressionState {
	next := s.Clone()
	next.Points += d.AddPoints
	next.CompletedTasks += d.AddCompletedTasks
	if d.Streak != nil {
		next.StreakDays = d.Streak.Current
		next.LongestStreak = max(next.LongestStreak, d.Streak.Longest, d.Streak.Current)
		if d.Streak.LastActivity != "" {
			next.LastActivityDate = d.Streak.LastActivity
		}
	}
	next.Badges = unionSorted(next.Badges, d.Badges)
	if d.CreditKey != "" && !next.HasCredit(d.CreditKey) {
		next.Credits = append(next.Credits, d.CreditKey)
		if n := len(next.Credits); n > MaxCredits {
			next.Credits = slices.Clone(next.Credits[n-MaxCredits:])
		}
	}
	next.Version = s.Version + 1
	next.UpdatedAt = now.UTC()
	return next
}

func unionSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
