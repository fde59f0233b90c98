package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type progressionRow struct {
	models.ProgressionState
	BadgesJSON  []byte `db:"badges"`
	CreditsJSON []byte `db:"credits"`
}

func (s *Store) GetState(ctx context.Context, user models.UserID) (models.ProgressionState, error) {
	var r progressionRow
	err := s.db.GetContext(ctx, &r, `
SELECT user_id, points, streak_days, longest_streak, completed_tasks, badges, credits, last_activity_date, version, updated_at
FROM progression WHERE user_id = $1`, string(user))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProgressionState{UserID: user, Badges: []string{}}, nil
	}
	if err != nil {
		return models.ProgressionState{}, err
	}
	st := r.ProgressionState
	if err := json.Unmarshal(r.BadgesJSON, &st.Badges); err != nil {
		return models.ProgressionState{}, fmt.Errorf("decode badges of %s: %w", user, err)
	}
	if st.Badges == nil {
		st.Badges = []string{}
	}
	if err := json.Unmarshal(r.CreditsJSON, &st.Credits); err != nil {
		return models.ProgressionState{}, fmt.Errorf("decode credits of %s: %w", user, err)
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

// ApplyConditional writes cur.Apply(d) only while the stored row is still at
// expectedVersion. Version 0 means no row exists yet.
func (s *Store) ApplyConditional(ctx context.Context, user models.UserID, d models.Delta, expectedVersion int64) (models.ProgressionState, error) {
	cur, err := s.GetState(ctx, user)
	if err != nil {
		return models.ProgressionState{}, err
	}
	if cur.Version != expectedVersion {
		return models.ProgressionState{}, fmt.Errorf("progression %s at version %d, expected %d: %w",
			user, cur.Version, expectedVersion, models.ErrConflict)
	}
	next := cur.Apply(d, s.now())
	badges, err := json.Marshal(next.Badges)
	if err != nil {
		return models.ProgressionState{}, err
	}
	credits := []byte("[]")
	if len(next.Credits) > 0 {
		if credits, err = json.Marshal(next.Credits); err != nil {
			return models.ProgressionState{}, err
		}
	}

	var res sql.Result
	if expectedVersion == 0 {
		res, err = s.db.ExecContext(ctx, `
INSERT INTO progression (user_id, points, streak_days, longest_streak, completed_tasks, badges, last_activity_date, version, updated_at, credits)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10::jsonb)
ON CONFLICT (user_id) DO NOTHING`,
			string(user), next.Points, next.StreakDays, next.LongestStreak, next.CompletedTasks,
			string(badges), next.LastActivityDate, next.Version, next.UpdatedAt, string(credits))
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE progression SET points = $2, streak_days = $3, longest_streak = $4, completed_tasks = $5,
    badges = $6::jsonb, last_activity_date = $7, version = $8, updated_at = $9, credits = $11::jsonb
WHERE user_id = $1 AND version = $10`,
			string(user), next.Points, next.StreakDays, next.LongestStreak, next.CompletedTasks,
			string(badges), next.LastActivityDate, next.Version, next.UpdatedAt, expectedVersion, string(credits))
	}
	if err != nil {
		return models.ProgressionState{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.ProgressionState{}, err
	}
	if n == 0 {
		return models.ProgressionState{}, fmt.Errorf("progression %s changed since version %d: %w",
			user, expectedVersion, models.ErrConflict)
	}
	return next, nil
}
