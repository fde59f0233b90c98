package meditation_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/meditation"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/store/memory"
)

type flakyLedger struct {
	models.LedgerStore
	failures atomic.Int32
}

func (l *flakyLedger) ApplyConditional(ctx context.Context, user models.UserID, d models.Delta, expected int64) (models.ProgressionState, error) {
	if l.failures.Add(-1) >= 0 {
		return models.ProgressionState{}, errors.New("ledger down")
	}
	return l.LedgerStore.ApplyConditional(ctx, user, d, expected)
}

type fixture struct {
	svc    *meditation.Service
	events *memory.EventStore
	ledger *gamification.Ledger
	store  *flakyLedger
	now    *time.Time
}

func newFixture() fixture {
	now := time.Date(2025, 7, 10, 7, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	events := memory.NewEventStore()
	store := &flakyLedger{LedgerStore: memory.NewLedgerStore()}
	ledger := gamification.NewLedger(store, 0, nil)
	progression := gamification.NewProgression(ledger, activity.NewAccessor(events), nil, gamification.WithClock(clock))
	return fixture{
		svc:    meditation.NewService(events, progression, meditation.Options{Clock: clock}),
		events: events,
		ledger: ledger,
		store:  store,
		now:    &now,
	}
}

func (f fixture) advance(d time.Duration) { *f.now = f.now.Add(d) }

func TestCompletionNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      meditation.Completion
		wantErr bool
		rating  int
	}{
		{"defaults rating", meditation.Completion{DurationMinutes: 10}, false, meditation.DefaultRating},
		{"zero minutes", meditation.Completion{Rating: 3}, false, 3},
		{"max minutes", meditation.Completion{DurationMinutes: models.MaxMeditationMinutes, Rating: 1}, false, 1},
		{"negative minutes", meditation.Completion{DurationMinutes: -1}, true, 0},
		{"too many minutes", meditation.Completion{DurationMinutes: models.MaxMeditationMinutes + 1}, true, 0},
		{"rating too high", meditation.Completion{DurationMinutes: 5, Rating: 6}, true, 0},
		{"rating negative", meditation.Completion{DurationMinutes: 5, Rating: -2}, true, 0},
		{"notes too long", meditation.Completion{Notes: strings.Repeat("x", models.MaxMeditationNotes+1)}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := in.Normalize()
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if in.Rating != tt.rating {
				t.Fatalf("expected rating %d, got %d", tt.rating, in.Rating)
			}
		})
	}
}

func TestStartAndComplete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "u1", "  "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	sess, err := f.svc.Start(ctx, "u1", "body-scan")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.SessionID == "" || sess.Status != models.MeditationStarted || !sess.StartedAt.Equal(*f.now) {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := f.svc.Complete(ctx, "u1", "missing", meditation.Completion{DurationMinutes: 5}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Complete(ctx, "u2", sess.SessionID, meditation.Completion{DurationMinutes: 5}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected another user's session to be not found, got %v", err)
	}

	f.advance(12 * time.Minute)
	res, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{DurationMinutes: 12, Notes: " calm "})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.PointsEarned != 12+meditation.CompletionBonus || res.TotalPoints != res.PointsEarned {
		t.Fatalf("unexpected points %+v", res)
	}
	s := res.Session
	if s.Status != models.MeditationCompleted || s.Rating != meditation.DefaultRating || s.Notes != "calm" || s.CompletedAt == nil || !s.CompletedAt.Equal(*f.now) {
		t.Fatalf("unexpected completed session %+v", s)
	}
	if res.TotalMeditationMinutes != 12 || res.CompletedMeditationsCount != 1 {
		t.Fatalf("unexpected totals %+v", res)
	}

	again, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{DurationMinutes: 60})
	if !errors.Is(err, models.ErrAlreadyTerminal) || again.PointsEarned != 0 || again.Session.DurationMinutes != 12 {
		t.Fatalf("expected already terminal with the stored session, got %+v %v", again, err)
	}

	st, _ := f.ledger.Get(ctx, "u1")
	if st.Points != 12+meditation.CompletionBonus || st.StreakDays != 0 {
		t.Fatalf("unexpected ledger state %+v", st)
	}
}

func TestCompleteCreditsAfterAFailedAttempt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess, _ := f.svc.Start(ctx, "u1", "breath")

	f.store.failures.Store(1)
	if _, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{DurationMinutes: 8}); !errors.Is(err, models.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}

	res, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{DurationMinutes: 30})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.PointsEarned != 8+meditation.CompletionBonus || res.Session.DurationMinutes != 8 {
		t.Fatalf("expected the stored completion to be credited, got %+v", res)
	}
	if _, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{}); !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal, got %v", err)
	}

	st, _ := f.ledger.Get(ctx, "u1")
	if st.Points != 8+meditation.CompletionBonus {
		t.Fatalf("expected a single credit, got %d points", st.Points)
	}
	events, _ := f.events.QueryEvents(ctx, "u1", models.EventFilter{Kind: models.KindMeditation})
	if len(events) != 2 {
		t.Fatalf("expected a start and a completion event, got %d", len(events))
	}
}

func TestHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	runs := []struct {
		id      string
		minutes int
		rating  int
	}{
		{"breath", 5, 4},
		{"body-scan", 15, 5},
		{"breath", 10, 3},
	}
	for _, r := range runs {
		sess, err := f.svc.Start(ctx, "u1", r.id)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.advance(time.Duration(r.minutes) * time.Minute)
		if _, err := f.svc.Complete(ctx, "u1", sess.SessionID, meditation.Completion{DurationMinutes: r.minutes, Rating: r.rating}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
		f.advance(time.Hour)
	}
	if _, err := f.svc.Start(ctx, "u1", "unfinished"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h, err := f.svc.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Sessions) != 3 || h.Sessions[0].DurationMinutes != 10 || h.Sessions[2].DurationMinutes != 5 {
		t.Fatalf("expected completed sessions newest first, got %+v", h.Sessions)
	}
	if h.Stats.TotalSessions != 3 || h.Stats.TotalMinutes != 30 || h.Stats.AverageDuration != 10 || h.Stats.AverageRating != 4 {
		t.Fatalf("unexpected stats %+v", h.Stats)
	}

	limited, _ := f.svc.History(ctx, "u1", 2)
	if len(limited.Sessions) != 2 || limited.Stats.TotalMinutes != 25 || limited.Stats.AverageRating != 4 {
		t.Fatalf("unexpected limited history %+v", limited)
	}

	empty, _ := f.svc.History(ctx, "u2", 0)
	if empty.Sessions == nil || empty.Stats != (meditation.HistoryStats{}) {
		t.Fatalf("expected an empty history, got %+v", empty)
	}
}
