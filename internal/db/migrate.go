package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS activity_events (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS activity_events_user_time
    ON activity_events (user_id, occurred_at DESC);

CREATE TABLE IF NOT EXISTS daily_plans (
    user_id TEXT NOT NULL,
    plan_date DATE NOT NULL,
    tasks JSONB NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    version BIGINT NOT NULL,
    PRIMARY KEY (user_id, plan_date)
);

CREATE TABLE IF NOT EXISTS progression (
    user_id TEXT PRIMARY KEY,
    points INTEGER NOT NULL DEFAULT 0,
    streak_days INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    completed_tasks INTEGER NOT NULL DEFAULT 0,
    badges JSONB NOT NULL DEFAULT '[]',
    credits JSONB NOT NULL DEFAULT '[]',
    last_activity_date TEXT NOT NULL DEFAULT '',
    version BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return err
	}

	alters := `
ALTER TABLE progression ADD COLUMN IF NOT EXISTS credits JSONB NOT NULL DEFAULT '[]';

ALTER TABLE activity_events DROP CONSTRAINT IF EXISTS activity_events_kind_check;
ALTER TABLE activity_events ADD CONSTRAINT activity_events_kind_check
    CHECK (kind IN ('mood', 'journal', 'task_completion', 'chat', 'meditation'));

DO $$ BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname='progression_counters_nonnegative'
    ) THEN
        ALTER TABLE progression ADD CONSTRAINT progression_counters_nonnegative
            CHECK (points >= 0 AND streak_days >= 0 AND longest_streak >= 0 AND completed_tasks >= 0);
    END IF;
END $$;`
	_, err = db.ExecContext(ctx, alters)
	return err
}
