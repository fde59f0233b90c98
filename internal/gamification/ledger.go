package gamification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const DefaultMaxAttempts = 5

// Ledger serializes progression changes per user with optimistic
// concurrency: read, compute, conditional write, retry on conflict.
type Ledger struct {
	store       models.LedgerStore
	maxAttempts int
	log         *zap.Logger
}

func NewLedger(store models.LedgerStore, maxAttempts int, log *zap.Logger) *Ledger {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, maxAttempts: maxAttempts, log: log}
}

func (l *Ledger) Get(ctx context.Context, user models.UserID) (models.ProgressionState, error) {
	s, err := l.store.GetState(ctx, user)
	if err != nil {
		return models.ProgressionState{}, fmt.Errorf("%w: read progression: %w", models.ErrDependencyUnavailable, err)
	}
	s.UserID = user
	return s, nil
}

// ApplyDelta applies a fixed delta atomically.
func (l *Ledger) ApplyDelta(ctx context.Context, user models.UserID, d models.Delta) (models.ProgressionState, error) {
	if err := d.Validate(); err != nil {
		return models.ProgressionState{}, err
	}
	return l.Update(ctx, user, func(models.ProgressionState) (models.Delta, error) { return d, nil })
}

// Update calls fn with the freshest state and writes the delta it returns
// only if nobody else wrote in between. fn may run several times. A zero
// delta skips the write.
func (l *Ledger) Update(ctx context.Context, user models.UserID,
	fn func(current models.ProgressionState) (models.Delta, error)) (models.ProgressionState, error) {

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.ProgressionState{}, fmt.Errorf("%w: %w", models.ErrDependencyUnavailable, err)
		}
		cur, err := l.Get(ctx, user)
		if err != nil {
			return models.ProgressionState{}, err
		}
		d, err := fn(cur)
		if err != nil {
			return models.ProgressionState{}, err
		}
		if err := d.Validate(); err != nil {
			return models.ProgressionState{}, err
		}
		if d.IsZero() {
			return cur, nil
		}

		next, err := l.store.ApplyConditional(ctx, user, d, cur.Version)
		if errors.Is(err, models.ErrConflict) {
			l.log.Debug("ledger write conflict, retrying",
				zap.String("user_id", string(user)),
				zap.Int("attempt", attempt),
				zap.Int64("expected_version", cur.Version),
			)
			continue
		}
		if err != nil {
			return models.ProgressionState{}, fmt.Errorf("%w: write progression: %w", models.ErrDependencyUnavailable, err)
		}
		next.UserID = user
		return next, nil
	}

	l.log.Warn("ledger write gave up after repeated conflicts",
		zap.String("user_id", string(user)),
		zap.Int("attempts", l.maxAttempts),
	)
	return models.ProgressionState{}, fmt.Errorf("%w: progression for %s kept changing after %d attempts",
		models.ErrDependencyUnavailable, user, l.maxAttempts)
}
