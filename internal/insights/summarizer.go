// Package insights builds the read-only progress views: weekly progress,
// period insights, statistics and the badge board.
package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	DefaultCacheTTL  = time.Minute
	DefaultCacheSize = 1024

	day = 24 * time.Hour
)

type Options struct {
	CacheTTL  time.Duration
	CacheSize int
	Logger    *zap.Logger
	Clock     func() time.Time
}

type Summarizer struct {
	activity    *activity.Accessor
	plans       models.PlanStore
	progression *gamification.Progression
	cache       *expirable.LRU[string, any]
	log         *zap.Logger
	now         func() time.Time
}

func NewSummarizer(events models.EventStore, plans models.PlanStore, progression *gamification.Progression, opts Options) *Summarizer {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Summarizer{
		activity:    activity.NewAccessor(events),
		plans:       plans,
		progression: progression,
		cache:       expirable.NewLRU[string, any](opts.CacheSize, nil, opts.CacheTTL),
		log:         opts.Logger,
		now:         opts.Clock,
	}
}

// Invalidate drops every cached view of user. Call it after writes that
// change what the views show.
func (s *Summarizer) Invalidate(user models.UserID) {
	prefix := string(user) + "|"
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Remove(k)
		}
	}
}

func cached[T any](s *Summarizer, user models.UserID, view string, load func() (T, error)) (T, error) {
	key := string(user) + "|" + view
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := load()
	if err != nil {
		return t, err
	}
	s.cache.Add(key, t)
	return t, nil
}

// planDays loads the plans of the last n days including today, keyed by date.
func (s *Summarizer) planDays(ctx context.Context, user models.UserID, now time.Time, n int) (map[string]models.DailyPlan, error) {
	from := models.DateOf(now.AddDate(0, 0, -(n - 1)))
	plans, err := s.plans.ListPlans(ctx, user, from, models.DateOf(now))
	if err != nil {
		return nil, fmt.Errorf("%w: list plans: %w", models.ErrDependencyUnavailable, err)
	}
	out := make(map[string]models.DailyPlan, len(plans))
	for _, p := range plans {
		out[p.Date] = p
	}
	return out, nil
}

type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

func period(now time.Time, days int) Period {
	return Period{StartDate: now.Add(-time.Duration(days) * day), EndDate: now, Days: days}
}
