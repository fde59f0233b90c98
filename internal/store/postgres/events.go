// Package postgres implements the event, plan and ledger stores on
// PostgreSQL through sqlx and the pgx driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Shreya-nipunge/Glowra/internal/crypto"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/store"
)

type Store struct {
	db     *sqlx.DB
	sealer *crypto.Sealer
	now    func() time.Time
}

// New returns a store on db. With a non-nil sealer, journal text and mood
// notes are encrypted at rest.
func New(db *sqlx.DB, sealer *crypto.Sealer) *Store {
	return &Store{db: db, sealer: sealer, now: time.Now}
}

type eventRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Kind       string    `db:"kind"`
	OccurredAt time.Time `db:"occurred_at"`
	Payload    []byte    `db:"payload"`
}

const insertEvent = `INSERT INTO activity_events (id, user_id, kind, occurred_at, payload) VALUES ($1, $2, $3, $4, $5::jsonb)`

// AppendEvent returns ErrConflict when an event with the same id exists.
func (s *Store) AppendEvent(ctx context.Context, e models.ActivityEvent) error {
	payload, err := store.EncodePayload(e, s.sealer)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, insertEvent+` ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.UserID), string(e.Kind), e.Timestamp.UTC(), string(payload))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", e.ID, models.ErrConflict)
	}
	return nil
}

// AppendEvents inserts all events in one transaction.
func (s *Store) AppendEvents(ctx context.Context, events []models.ActivityEvent) error {
	payloads := make([]string, len(events))
	for i, e := range events {
		p, err := store.EncodePayload(e, s.sealer)
		if err != nil {
			return err
		}
		payloads[i] = string(p)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, e := range events {
		if _, err := tx.ExecContext(ctx, insertEvent, e.ID, string(e.UserID), string(e.Kind), e.Timestamp.UTC(), payloads[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// QueryEvents returns matching events newest first.
func (s *Store) QueryEvents(ctx context.Context, user models.UserID, f models.EventFilter) ([]models.ActivityEvent, error) {
	q := `SELECT id, user_id, kind, occurred_at, payload FROM activity_events WHERE user_id = $1`
	args := []any{string(user)}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		q += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		q += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		q += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	q += " ORDER BY occurred_at DESC, created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]models.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		e := models.ActivityEvent{
			ID:        r.ID,
			UserID:    models.UserID(r.UserID),
			Kind:      models.EventKind(r.Kind),
			Timestamp: r.OccurredAt.UTC(),
		}
		if err := store.DecodePayload(r.Payload, &e, s.sealer); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
