// Package firestore implements the event, plan and ledger stores on Cloud
// Firestore. Conditional writes run inside transactions.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Shreya-nipunge/Glowra/internal/crypto"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/store"
)

type Store struct {
	client *firestore.Client
	sealer *crypto.Sealer
	now    func() time.Time
}

// NewStore creates a Firestore store for projectID. With FIRESTORE_EMULATOR_HOST
// set the client talks to the emulator.
func NewStore(ctx context.Context, projectID string, sealer *crypto.Sealer) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, sealer: sealer, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Helpers

func (s *Store) eventsCol(user models.UserID) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(string(user)).Collection("events")
}

func (s *Store) plansCol() *firestore.CollectionRef {
	return s.client.Collection("daily_plans")
}

func (s *Store) planDoc(user models.UserID, date string) *firestore.DocumentRef {
	return s.plansCol().Doc(string(user) + "_" + date)
}

func (s *Store) statsDoc(user models.UserID) *firestore.DocumentRef {
	return s.client.Collection("user_stats").Doc(string(user))
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Firestore types

type eventDoc struct {
	Kind       string    `firestore:"kind"`
	OccurredAt time.Time `firestore:"occurred_at"`
	Payload    string    `firestore:"payload"`
}

type taskDoc struct {
	ID               string     `firestore:"id"`
	Title            string     `firestore:"title"`
	Type             string     `firestore:"type"`
	CTAType          string     `firestore:"cta_type"`
	Description      string     `firestore:"description"`
	EstimatedMinutes int        `firestore:"estimated_minutes"`
	Status           string     `firestore:"status"`
	CompletedAt      *time.Time `firestore:"completed_at"`
	SkippedAt        *time.Time `firestore:"skipped_at"`
}

type planDoc struct {
	UserID      string    `firestore:"user_id"`
	Date        string    `firestore:"date"`
	Tasks       []taskDoc `firestore:"tasks"`
	GeneratedAt time.Time `firestore:"generated_at"`
	Version     int64     `firestore:"version"`
}

type statsDoc struct {
	Points           int       `firestore:"points"`
	StreakDays       int       `firestore:"streak_days"`
	LongestStreak    int       `firestore:"longest_streak"`
	CompletedTasks   int       `firestore:"completed_tasks"`
	Badges           []string  `firestore:"badges"`
	Credits          []string  `firestore:"credits"`
	LastActivityDate string    `firestore:"last_activity_date"`
	Version          int64     `firestore:"version"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

func toPlanDoc(p models.DailyPlan) planDoc {
	d := planDoc{
		UserID:      string(p.UserID),
		Date:        p.Date,
		Tasks:       make([]taskDoc, len(p.Tasks)),
		GeneratedAt: p.GeneratedAt,
		Version:     p.Version,
	}
	for i, t := range p.Tasks {
		d.Tasks[i] = taskDoc{
			ID: t.ID, Title: t.Title, Type: t.Type, CTAType: t.CTAType, Description: t.Description,
			EstimatedMinutes: t.EstimatedMinutes, Status: string(t.Status),
			CompletedAt: t.CompletedAt, SkippedAt: t.SkippedAt,
		}
	}
	return d
}

func (d planDoc) plan() models.DailyPlan {
	p := models.DailyPlan{
		UserID:      models.UserID(d.UserID),
		Date:        d.Date,
		Tasks:       make([]models.Task, len(d.Tasks)),
		GeneratedAt: d.GeneratedAt.UTC(),
		Version:     d.Version,
	}
	for i, t := range d.Tasks {
		p.Tasks[i] = models.Task{
			ID: t.ID, Title: t.Title, Type: t.Type, CTAType: t.CTAType, Description: t.Description,
			EstimatedMinutes: t.EstimatedMinutes, Status: models.TaskStatus(t.Status),
			CompletedAt: t.CompletedAt, SkippedAt: t.SkippedAt,
		}
	}
	return p
}

// EventStore implementation

func (s *Store) eventDoc(e models.ActivityEvent) (eventDoc, error) {
	payload, err := store.EncodePayload(e, s.sealer)
	if err != nil {
		return eventDoc{}, err
	}
	return eventDoc{Kind: string(e.Kind), OccurredAt: e.Timestamp.UTC(), Payload: string(payload)}, nil
}

func (s *Store) AppendEvent(ctx context.Context, e models.ActivityEvent) error {
	doc, err := s.eventDoc(e)
	if err != nil {
		return err
	}
	if _, err := s.eventsCol(e.UserID).Doc(e.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("event %s: %w", e.ID, models.ErrConflict)
		}
		return fmt.Errorf("firestore AppendEvent: %w", err)
	}
	return nil
}

// AppendEvents writes all events in one transaction. Firestore caps a
// transaction at 500 writes.
func (s *Store) AppendEvents(ctx context.Context, events []models.ActivityEvent) error {
	docs := make([]eventDoc, len(events))
	for i, e := range events {
		d, err := s.eventDoc(e)
		if err != nil {
			return err
		}
		docs[i] = d
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, e := range events {
			if err := tx.Create(s.eventsCol(e.UserID).Doc(e.ID), docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("firestore AppendEvents: %w", err)
	}
	return nil
}

func (s *Store) QueryEvents(ctx context.Context, user models.UserID, f models.EventFilter) ([]models.ActivityEvent, error) {
	q := s.eventsCol(user).Query
	if f.Kind != "" {
		q = q.Where("kind", "==", string(f.Kind))
	}
	if !f.From.IsZero() {
		q = q.Where("occurred_at", ">=", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("occurred_at", "<", f.To.UTC())
	}
	q = q.OrderBy("occurred_at", firestore.Desc)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []models.ActivityEvent{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore QueryEvents: %w", err)
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode eventDoc: %w", err)
		}
		e := models.ActivityEvent{
			ID:        snap.Ref.ID,
			UserID:    user,
			Kind:      models.EventKind(doc.Kind),
			Timestamp: doc.OccurredAt.UTC(),
		}
		if err := store.DecodePayload([]byte(doc.Payload), &e, s.sealer); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// PlanStore implementation

func (s *Store) GetPlan(ctx context.Context, user models.UserID, date string) (models.DailyPlan, error) {
	snap, err := s.planDoc(user, date).Get(ctx)
	if err != nil {
		if notFound(err) {
			return models.DailyPlan{}, fmt.Errorf("plan %s/%s: %w", user, date, models.ErrNotFound)
		}
		return models.DailyPlan{}, fmt.Errorf("firestore GetPlan: %w", err)
	}
	var doc planDoc
	if err := snap.DataTo(&doc); err != nil {
		return models.DailyPlan{}, fmt.Errorf("decode planDoc: %w", err)
	}
	return doc.plan(), nil
}

func (s *Store) CreatePlan(ctx context.Context, plan models.DailyPlan) error {
	_, err := s.planDoc(plan.UserID, plan.Date).Create(ctx, toPlanDoc(plan))
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("plan %s/%s: %w", plan.UserID, plan.Date, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("firestore CreatePlan: %w", err)
	}
	return nil
}

func (s *Store) UpdatePlan(ctx context.Context, plan models.DailyPlan, expectedVersion int64) error {
	ref := s.planDoc(plan.UserID, plan.Date)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if notFound(err) {
				return fmt.Errorf("plan %s/%s: %w", plan.UserID, plan.Date, models.ErrNotFound)
			}
			return err
		}
		var cur planDoc
		if err := snap.DataTo(&cur); err != nil {
			return fmt.Errorf("decode planDoc: %w", err)
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("plan %s/%s at version %d, expected %d: %w",
				plan.UserID, plan.Date, cur.Version, expectedVersion, models.ErrConflict)
		}
		return tx.Set(ref, toPlanDoc(plan))
	})
}

func (s *Store) ListPlans(ctx context.Context, user models.UserID, from, to string) ([]models.DailyPlan, error) {
	iter := s.plansCol().
		Where("user_id", "==", string(user)).
		Where("date", ">=", from).
		Where("date", "<=", to).
		OrderBy("date", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []models.DailyPlan
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListPlans: %w", err)
		}
		var doc planDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode planDoc: %w", err)
		}
		out = append(out, doc.plan())
	}
	return out, nil
}

// LedgerStore implementation

func stateFrom(user models.UserID, d statsDoc) models.ProgressionState {
	badges := d.Badges
	if badges == nil {
		badges = []string{}
	}
	return models.ProgressionState{
		UserID:           user,
		Points:           d.Points,
		StreakDays:       d.StreakDays,
		LongestStreak:    d.LongestStreak,
		CompletedTasks:   d.CompletedTasks,
		Badges:           badges,
		Credits:          d.Credits,
		LastActivityDate: d.LastActivityDate,
		Version:          d.Version,
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func (s *Store) GetState(ctx context.Context, user models.UserID) (models.ProgressionState, error) {
	snap, err := s.statsDoc(user).Get(ctx)
	if err != nil {
		if notFound(err) {
			return models.ProgressionState{UserID: user, Badges: []string{}}, nil
		}
		return models.ProgressionState{}, fmt.Errorf("firestore GetState: %w", err)
	}
	var doc statsDoc
	if err := snap.DataTo(&doc); err != nil {
		return models.ProgressionState{}, fmt.Errorf("decode statsDoc: %w", err)
	}
	return stateFrom(user, doc), nil
}

func (s *Store) ApplyConditional(ctx context.Context, user models.UserID, d models.Delta, expectedVersion int64) (models.ProgressionState, error) {
	ref := s.statsDoc(user)
	var next models.ProgressionState
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cur := models.ProgressionState{UserID: user, Badges: []string{}}
		snap, err := tx.Get(ref)
		switch {
		case notFound(err):
		case err != nil:
			return err
		default:
			var doc statsDoc
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode statsDoc: %w", err)
			}
			cur = stateFrom(user, doc)
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("progression %s at version %d, expected %d: %w",
				user, cur.Version, expectedVersion, models.ErrConflict)
		}
		next = cur.Apply(d, s.now())
		return tx.Set(ref, statsDoc{
			Points:           next.Points,
			StreakDays:       next.StreakDays,
			LongestStreak:    next.LongestStreak,
			CompletedTasks:   next.CompletedTasks,
			Badges:           next.Badges,
			Credits:          next.Credits,
			LastActivityDate: next.LastActivityDate,
			Version:          next.Version,
			UpdatedAt:        next.UpdatedAt,
		})
	})
	if err != nil {
		return models.ProgressionState{}, err
	}
	return next, nil
}
