package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// LedgerStore is an in-memory models.LedgerStore.
type LedgerStore struct {
	mu     sync.Mutex
	states map[models.UserID]models.ProgressionState
	now    func() time.Time
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{states: make(map[models.UserID]models.ProgressionState), now: time.Now}
}

func (s *LedgerStore) GetState(_ context.Context, user models.UserID) (models.ProgressionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[user]
	if !ok {
		return models.ProgressionState{UserID: user, Badges: []string{}}, nil
	}
	return st.Clone(), nil
}

func (s *LedgerStore) ApplyConditional(_ context.Context, user models.UserID, d models.Delta, expectedVersion int64) (models.ProgressionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.states[user]
	if !ok {
		cur = models.ProgressionState{UserID: user, Badges: []string{}}
	}
	if cur.Version != expectedVersion {
		return models.ProgressionState{}, fmt.Errorf("progression %s at version %d, expected %d: %w",
			user, cur.Version, expectedVersion, models.ErrConflict)
	}
	next := cur.Apply(d, s.now())
	s.states[user] = next
	return next.Clone(), nil
}
