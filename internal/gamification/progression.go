package gamification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const DefaultBadgeWindow = 90 * 24 * time.Hour

// ActivityReader is the read side of the activity log.
type ActivityReader interface {
	Query(ctx context.Context, user models.UserID, f models.EventFilter) ([]models.ActivityEvent, error)
}

// Progression credits activity to the ledger. Each call recomputes the
// streak from the activity log and folds any newly earned badges into the
// same ledger write.
type Progression struct {
	ledger      *Ledger
	activity    ActivityReader
	badgeWindow time.Duration
	log         *zap.Logger
	now         func() time.Time
}

type ProgressionOption func(*Progression)

func WithBadgeWindow(d time.Duration) ProgressionOption {
	return func(p *Progression) {
		if d > 0 {
			p.badgeWindow = d
		}
	}
}

func WithClock(now func() time.Time) ProgressionOption {
	return func(p *Progression) { p.now = now }
}

func NewProgression(ledger *Ledger, activity ActivityReader, log *zap.Logger, opts ...ProgressionOption) *Progression {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Progression{
		ledger:      ledger,
		activity:    activity,
		badgeWindow: DefaultBadgeWindow,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome reports what a Record call changed. AlreadyCredited is set when
// the delta's CreditKey had been applied before and nothing was written.
type Outcome struct {
	State           models.ProgressionState
	PointsEarned    int
	NewBadges       []Badge
	AlreadyCredited bool
}

func (p *Progression) Ledger() *Ledger { return p.ledger }

// Record applies base plus the badge rewards it unlocks. When
// recomputeStreak is set the streak fields are replaced with values derived
// from the activity log. A base delta with a CreditKey is applied at most
// once.
func (p *Progression) Record(ctx context.Context, user models.UserID, base models.Delta, recomputeStreak bool) (Outcome, error) {
	if err := base.Validate(); err != nil {
		return Outcome{}, err
	}
	now := p.now().UTC()

	all, err := p.activity.Query(ctx, user, models.EventFilter{})
	if err != nil {
		return Outcome{}, err
	}
	var streak *models.StreakUpdate
	if recomputeStreak {
		s := analytics.Streak(analytics.EventDates(all), now)
		streak = &s
	}
	summary := SummarizeActivity(since(all, now.Add(-p.badgeWindow)))

	var (
		newBadges []Badge
		credited  bool
	)
	state, err := p.ledger.Update(ctx, user, func(cur models.ProgressionState) (models.Delta, error) {
		newBadges, credited = nil, cur.HasCredit(base.CreditKey)
		if credited {
			return models.Delta{}, nil
		}
		d := base
		if streak != nil && !streakMatches(cur, *streak) {
			d.Streak = streak
		}
		newBadges = Evaluate(cur.Apply(d, now), summary)
		return d.Merge(AwardDelta(newBadges)), nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if credited {
		return Outcome{State: state, AlreadyCredited: true}, nil
	}

	if len(newBadges) > 0 {
		ids := make([]string, len(newBadges))
		for i, b := range newBadges {
			ids[i] = b.ID
		}
		p.log.Info("badges awarded",
			zap.String("user_id", string(user)),
			zap.Strings("badges", ids),
		)
	}
	return Outcome{State: state, PointsEarned: base.AddPoints, NewBadges: newBadges}, nil
}

// Refresh re-derives the streak and awards badges without crediting any
// points of its own. It writes only when something changed.
func (p *Progression) Refresh(ctx context.Context, user models.UserID) (Outcome, error) {
	return p.Record(ctx, user, models.Delta{}, true)
}

func streakMatches(s models.ProgressionState, u models.StreakUpdate) bool {
	return s.StreakDays == u.Current &&
		s.LongestStreak >= u.Longest &&
		(u.LastActivity == "" || s.LastActivityDate == u.LastActivity)
}

// since keeps events at or after from. events are newest first.
func since(events []models.ActivityEvent, from time.Time) []models.ActivityEvent {
	for i, e := range events {
		if e.Timestamp.Before(from) {
			return events[:i]
		}
	}
	return events
}
