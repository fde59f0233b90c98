package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type planKey struct {
	user models.UserID
	date string
}

// PlanStore is an in-memory models.PlanStore.
type PlanStore struct {
	mu    sync.RWMutex
	plans map[planKey]models.DailyPlan
}

func NewPlanStore() *PlanStore {
	return &PlanStore{plans: make(map[planKey]models.DailyPlan)}
}

func (s *PlanStore) GetPlan(_ context.Context, user models.UserID, date string) (models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[planKey{user, date}]
	if !ok {
		return models.DailyPlan{}, fmt.Errorf("plan %s/%s: %w", user, date, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *PlanStore) CreatePlan(_ context.Context, plan models.DailyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := planKey{plan.UserID, plan.Date}
	if _, exists := s.plans[k]; exists {
		return fmt.Errorf("plan %s/%s: %w", plan.UserID, plan.Date, models.ErrConflict)
	}
	s.plans[k] = plan.Clone()
	return nil
}

func (s *PlanStore) UpdatePlan(_ context.Context, plan models.DailyPlan, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := planKey{plan.UserID, plan.Date}
	cur, ok := s.plans[k]
	if !ok {
		return fmt.Errorf("plan %s/%s: %w", plan.UserID, plan.Date, models.ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return fmt.Errorf("plan %s/%s at version %d, expected %d: %w",
			plan.UserID, plan.Date, cur.Version, expectedVersion, models.ErrConflict)
	}
	s.plans[k] = plan.Clone()
	return nil
}

func (s *PlanStore) ListPlans(_ context.Context, user models.UserID, from, to string) ([]models.DailyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DailyPlan
	for k, p := range s.plans {
		if k.user == user && k.date >= from && k.date <= to {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}
