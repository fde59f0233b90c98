// Package memory provides in-process stores for local mode and tests. Nothing
// here survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// EventStore is an in-memory models.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	byUser map[models.UserID][]models.ActivityEvent
	ids    map[string]struct{}
}

func NewEventStore() *EventStore {
	return &EventStore{
		byUser: make(map[models.UserID][]models.ActivityEvent),
		ids:    make(map[string]struct{}),
	}
}

// AppendEvent returns ErrConflict when an event with the same id exists.
func (s *EventStore) AppendEvent(_ context.Context, e models.ActivityEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[e.ID]; dup {
		return fmt.Errorf("event %s: %w", e.ID, models.ErrConflict)
	}
	s.add(e)
	return nil
}

func (s *EventStore) add(e models.ActivityEvent) {
	if e.ID != "" {
		s.ids[e.ID] = struct{}{}
	}
	s.byUser[e.UserID] = append(s.byUser[e.UserID], cloneEvent(e))
}

// QueryEvents returns matching events newest first.
func (s *EventStore) QueryEvents(_ context.Context, user models.UserID, f models.EventFilter) ([]models.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ActivityEvent{}
	for _, e := range s.byUser[user] {
		if f.Matches(e) {
			out = append(out, cloneEvent(e))
		}
	}
	// ties keep the most recently appended event first
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.ActivityEvent) int { return b.Timestamp.Compare(a.Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func cloneEvent(e models.ActivityEvent) models.ActivityEvent {
	if e.Mood != nil {
		m := *e.Mood
		e.Mood = &m
	}
	if e.Journal != nil {
		j := *e.Journal
		j.Insight.Categories = slices.Clone(j.Insight.Categories)
		j.Insight.Recommendations = slices.Clone(j.Insight.Recommendations)
		e.Journal = &j
	}
	if e.Task != nil {
		t := *e.Task
		e.Task = &t
	}
	if e.Chat != nil {
		c := *e.Chat
		c.Suggestions = slices.Clone(c.Suggestions)
		e.Chat = &c
	}
	if e.Meditation != nil {
		m := *e.Meditation
		e.Meditation = &m
	}
	return e
}

// AppendEvents appends all events or none.
func (s *EventStore) AppendEvents(_ context.Context, events []models.ActivityEvent) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		_, stored := s.ids[e.ID]
		_, twice := seen[e.ID]
		if e.ID != "" && (stored || twice) {
			return fmt.Errorf("event %s: %w", e.ID, models.ErrConflict)
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range events {
		s.add(e)
	}
	return nil
}
