// Package activity records and reads the user's activity log: mood check-ins,
// journal entries and completed tasks.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// Accessor is the read side of the activity log.
type Accessor struct {
	store models.EventStore
}

func NewAccessor(store models.EventStore) *Accessor {
	return &Accessor{store: store}
}

// Query returns the user's events matching f, newest first.
func (a *Accessor) Query(ctx context.Context, user models.UserID, f models.EventFilter) ([]models.ActivityEvent, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown event kind %q", models.ErrValidation, f.Kind)
	}
	events, err := a.store.QueryEvents(ctx, user, f)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: query activity: %w", models.ErrDependencyUnavailable, err)
	}
	return events, nil
}

// Dates returns the timestamp of every event that counts toward the streak.
func (a *Accessor) Dates(ctx context.Context, user models.UserID) ([]time.Time, error) {
	events, err := a.Query(ctx, user, models.EventFilter{})
	if err != nil {
		return nil, err
	}
	return analytics.EventDates(events), nil
}

// Moods returns mood events in [from, to), newest first.
func (a *Accessor) Moods(ctx context.Context, user models.UserID, from, to time.Time, limit int) ([]models.ActivityEvent, error) {
	return a.Query(ctx, user, models.EventFilter{Kind: models.KindMood, From: from, To: to, Limit: limit})
}

// Journals returns the most recent journal events.
func (a *Accessor) Journals(ctx context.Context, user models.UserID, from time.Time, limit int) ([]models.ActivityEvent, error) {
	return a.Query(ctx, user, models.EventFilter{Kind: models.KindJournal, From: from, Limit: limit})
}

// Chats returns chat turns newest first.
func (a *Accessor) Chats(ctx context.Context, user models.UserID, limit int) ([]models.ActivityEvent, error) {
	return a.Query(ctx, user, models.EventFilter{Kind: models.KindChat, Limit: limit})
}

// Meditations returns session starts and completions newest first.
func (a *Accessor) Meditations(ctx context.Context, user models.UserID) ([]models.ActivityEvent, error) {
	return a.Query(ctx, user, models.EventFilter{Kind: models.KindMeditation})
}
