package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type planRow struct {
	UserID      string    `db:"user_id"`
	PlanDate    string    `db:"plan_date"`
	Tasks       []byte    `db:"tasks"`
	GeneratedAt time.Time `db:"generated_at"`
	Version     int64     `db:"version"`
}

func (r planRow) plan() (models.DailyPlan, error) {
	p := models.DailyPlan{
		UserID:      models.UserID(r.UserID),
		Date:        r.PlanDate,
		GeneratedAt: r.GeneratedAt.UTC(),
		Version:     r.Version,
	}
	if err := json.Unmarshal(r.Tasks, &p.Tasks); err != nil {
		return models.DailyPlan{}, fmt.Errorf("decode plan %s/%s: %w", r.UserID, r.PlanDate, err)
	}
	return p, nil
}

const selectPlan = `SELECT user_id, to_char(plan_date, 'YYYY-MM-DD') AS plan_date, tasks, generated_at, version FROM daily_plans`

func (s *Store) GetPlan(ctx context.Context, user models.UserID, date string) (models.DailyPlan, error) {
	var r planRow
	err := s.db.GetContext(ctx, &r, selectPlan+` WHERE user_id = $1 AND plan_date = $2`, string(user), date)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyPlan{}, fmt.Errorf("plan %s/%s: %w", user, date, models.ErrNotFound)
	}
	if err != nil {
		return models.DailyPlan{}, err
	}
	return r.plan()
}

func (s *Store) CreatePlan(ctx context.Context, plan models.DailyPlan) error {
	tasks, err := json.Marshal(plan.Tasks)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO daily_plans (user_id, plan_date, tasks, generated_at, version)
VALUES ($1, $2, $3::jsonb, $4, $5)
ON CONFLICT (user_id, plan_date) DO NOTHING`,
		string(plan.UserID), plan.Date, string(tasks), plan.GeneratedAt.UTC(), plan.Version)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("plan %s/%s: %w", plan.UserID, plan.Date, models.ErrConflict)
	}
	return nil
}

func (s *Store) UpdatePlan(ctx context.Context, plan models.DailyPlan, expectedVersion int64) error {
	tasks, err := json.Marshal(plan.Tasks)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE daily_plans SET tasks = $1::jsonb, version = $2
WHERE user_id = $3 AND plan_date = $4 AND version = $5`,
		string(tasks), plan.Version, string(plan.UserID), plan.Date, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetPlan(ctx, plan.UserID, plan.Date); err != nil {
		return err
	}
	return fmt.Errorf("plan %s/%s changed since version %d: %w", plan.UserID, plan.Date, expectedVersion, models.ErrConflict)
}

// ListPlans returns plans dated within [from, to], newest first.
func (s *Store) ListPlans(ctx context.Context, user models.UserID, from, to string) ([]models.DailyPlan, error) {
	var rows []planRow
	err := s.db.SelectContext(ctx, &rows,
		selectPlan+` WHERE user_id = $1 AND plan_date BETWEEN $2 AND $3 ORDER BY plan_date DESC`,
		string(user), from, to)
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyPlan, 0, len(rows))
	for _, r := range rows {
		p, err := r.plan()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
