package activity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/store/memory"
)

var fixedNow = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

type stubAnalyzer struct {
	insight models.JournalInsight
	err     error
	delay   time.Duration
}

func (a stubAnalyzer) Analyze(ctx context.Context, _ string) (models.JournalInsight, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.JournalInsight{}, ctx.Err()
		}
	}
	return a.insight, a.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.ActivityEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, e models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

type brokenStore struct {
	*memory.EventStore
}

func (brokenStore) AppendEvent(context.Context, models.ActivityEvent) error {
	return errors.New("disk full")
}

type fixture struct {
	svc         *activity.Service
	events      *memory.EventStore
	ledger      *gamification.Ledger
	progression *gamification.Progression
	sink        *recordingSink
}

func newFixture(opts activity.Options) fixture {
	clock := func() time.Time { return fixedNow }
	events := memory.NewEventStore()
	ledger := gamification.NewLedger(memory.NewLedgerStore(), 0, nil)
	progression := gamification.NewProgression(ledger, activity.NewAccessor(events), nil, gamification.WithClock(clock))
	sink := &recordingSink{}
	if opts.Sink == nil {
		opts.Sink = sink
	}
	opts.Clock = clock
	return fixture{
		svc:         activity.NewService(events, progression, opts),
		events:      events,
		ledger:      ledger,
		progression: progression,
		sink:        sink,
	}
}

func TestLogMoodFirstCheckIn(t *testing.T) {
	f := newFixture(activity.Options{})
	ctx := context.Background()

	res, err := f.svc.LogMood(ctx, "u1", models.MoodPayload{Mood: models.MoodHappy, Energy: 7, Stress: 2})
	if err != nil {
		t.Fatalf("LogMood: %v", err)
	}
	if res.PointsEarned != activity.MoodPoints || res.StreakDays != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "first_check_in" {
		t.Fatalf("expected first_check_in, got %+v", res.NewBadges)
	}

	state, err := f.ledger.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// 5 for the mood plus the badge reward, credited in one update.
	if state.Points != 15 || state.Version != 1 || !state.HasBadge("first_check_in") {
		t.Fatalf("unexpected ledger %+v", state)
	}

	again, err := f.progression.Refresh(ctx, "u1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(again.NewBadges) != 0 || again.State.Points != 15 {
		t.Fatalf("re-evaluation must be a no-op, got %+v", again)
	}

	if len(f.sink.events) != 1 || f.sink.events[0].ID != res.Event.ID {
		t.Fatalf("expected the event to reach the sink, got %+v", f.sink.events)
	}
}

func TestLogMoodValidation(t *testing.T) {
	f := newFixture(activity.Options{})
	tests := []struct {
		name string
		in   models.MoodPayload
	}{
		{"unknown mood", models.MoodPayload{Mood: "elated", Energy: 5, Stress: 5}},
		{"energy too high", models.MoodPayload{Mood: models.MoodSad, Energy: 11, Stress: 5}},
		{"negative stress", models.MoodPayload{Mood: models.MoodSad, Energy: 5, Stress: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.LogMood(context.Background(), "u1", tt.in); !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(f.sink.events) != 0 {
		t.Fatal("rejected input must not be published")
	}
}

func TestLogMoodStoreFailure(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	events := brokenStore{memory.NewEventStore()}
	ledger := gamification.NewLedger(memory.NewLedgerStore(), 0, nil)
	progression := gamification.NewProgression(ledger, activity.NewAccessor(events), nil, gamification.WithClock(clock))
	svc := activity.NewService(events, progression, activity.Options{Clock: clock})

	_, err := svc.LogMood(context.Background(), "u1", models.MoodPayload{Mood: models.MoodHappy, Energy: 5, Stress: 5})
	if !errors.Is(err, models.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	state, _ := ledger.Get(context.Background(), "u1")
	if state.Points != 0 {
		t.Fatalf("nothing may be credited when the event was not stored, got %d", state.Points)
	}
}

func TestSinkFailureIsNotFatal(t *testing.T) {
	f := newFixture(activity.Options{Sink: &recordingSink{err: errors.New("warehouse down")}})
	if _, err := f.svc.LogMood(context.Background(), "u1", models.MoodPayload{Mood: models.MoodSad, Energy: 2, Stress: 8}); err != nil {
		t.Fatalf("LogMood must succeed when analytics fails: %v", err)
	}
}

func TestLogJournalInsight(t *testing.T) {
	text := "Feeling overwhelmed by deadlines this week"
	tests := []struct {
		name       string
		analyzer   models.JournalAnalyzer
		timeout    time.Duration
		mood       models.Mood
		risk       models.RiskLevel
		escalation bool
	}{
		{"no analyzer", nil, 0, models.MoodNeutral, models.RiskLow, false},
		{"analyzer error", stubAnalyzer{err: errors.New("quota")}, 0, models.MoodNeutral, models.RiskLow, false},
		{"analyzer timeout", stubAnalyzer{delay: time.Second}, 10 * time.Millisecond, models.MoodNeutral, models.RiskLow, false},
		{"partial response", stubAnalyzer{insight: models.JournalInsight{Mood: "blue", Confidence: 3}}, 0, models.MoodNeutral, models.RiskLow, false},
		{"high risk", stubAnalyzer{insight: models.JournalInsight{
			Mood: models.MoodSad, Categories: []string{"burnout"}, Confidence: 0.9, Risk: models.RiskHigh,
		}}, 0, models.MoodSad, models.RiskHigh, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(activity.Options{Analyzer: tt.analyzer, AnalyzeTimeout: tt.timeout})
			res, err := f.svc.LogJournal(context.Background(), "u1", text)
			if err != nil {
				t.Fatalf("LogJournal: %v", err)
			}
			in := res.Event.Journal.Insight
			if in.Mood != tt.mood || in.Risk != tt.risk || len(in.Categories) == 0 {
				t.Fatalf("unexpected insight %+v", in)
			}
			if in.Confidence < 0 || in.Confidence > 1 {
				t.Fatalf("confidence out of range: %v", in.Confidence)
			}
			if (in.EscalationAdvice != "") != tt.escalation {
				t.Fatalf("escalation advice = %q, want present=%v", in.EscalationAdvice, tt.escalation)
			}
			if res.PointsEarned != activity.JournalPoints || res.Event.Journal.WordCount != 6 {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestLogJournalLength(t *testing.T) {
	f := newFixture(activity.Options{})
	for _, text := range []string{"short", "   padded   ", strings.Repeat("a", models.MaxJournalLength+1)} {
		if _, err := f.svc.LogJournal(context.Background(), "u1", text); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error for %d chars, got %v", len(text), err)
		}
	}
}

func TestMoodLogsWindow(t *testing.T) {
	f := newFixture(activity.Options{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := models.ActivityEvent{
			ID: "m" + string(rune('0'+i)), UserID: "u1", Kind: models.KindMood,
			Timestamp: fixedNow.AddDate(0, 0, -i),
			Mood:      &models.MoodPayload{Mood: models.MoodNeutral, Energy: 5, Stress: 5},
		}
		if err := f.events.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	logs, err := f.svc.MoodLogs(ctx, "u1", fixedNow.AddDate(0, 0, -3), time.Time{}, 0)
	if err != nil {
		t.Fatalf("MoodLogs: %v", err)
	}
	if len(logs) != 4 || logs[0].ID != "m0" {
		t.Fatalf("expected 4 logs newest first, got %d", len(logs))
	}

	limited, _ := f.svc.MoodLogs(ctx, "u1", time.Time{}, time.Time{}, 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}

	if _, err := f.svc.MoodLogs(ctx, "u1", fixedNow, fixedNow.AddDate(0, 0, -1), 0); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for an inverted window, got %v", err)
	}
}

func TestJournalSummary(t *testing.T) {
	analyzer := stubAnalyzer{insight: models.JournalInsight{
		Mood: models.MoodAnxious, Categories: []string{"exam_anxiety", "sleep"}, Confidence: 0.8, Risk: models.RiskModerate,
	}}
	f := newFixture(activity.Options{Analyzer: analyzer})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.LogJournal(ctx, "u1", "Studying late again before the exam"); err != nil {
			t.Fatalf("LogJournal: %v", err)
		}
	}

	sum, err := f.svc.JournalSummary(ctx, "u1")
	if err != nil {
		t.Fatalf("JournalSummary: %v", err)
	}
	if sum.TotalEntries != 2 || sum.MoodDistribution["anxious"] != 2 || sum.RiskLevels["moderate"] != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.AverageConfidence != 0.8 || len(sum.TopCategories) != 2 || sum.TopCategories[0] != "exam_anxiety" {
		t.Fatalf("unexpected summary %+v", sum)
	}

	if _, err := f.svc.Journal(ctx, "u1", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTopCategories(t *testing.T) {
	got := activity.TopCategories(map[string]int{"sleep": 2, "burnout": 2, "exam_anxiety": 3, "general": 1}, 3)
	want := []string{"exam_anxiety", "burnout", "sleep"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	day := func(n int) time.Time { return fixedNow.AddDate(0, 0, -n).Add(-time.Hour) }

	t.Run("credits once with recomputed streak", func(t *testing.T) {
		f := newFixture(activity.Options{})
		res, err := f.svc.Import(ctx, "u1", activity.ImportBatch{
			Moods: []activity.ImportedMood{
				{MoodPayload: models.MoodPayload{Mood: models.MoodHappy, Energy: 6, Stress: 2}, Timestamp: day(2)},
				{MoodPayload: models.MoodPayload{Mood: models.MoodSad, Energy: 3, Stress: 6}, Timestamp: day(1)},
			},
			Journals: []activity.ImportedJournal{{Text: "A long reflective entry about today", Timestamp: day(0)}},
		})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.Imported != 3 || res.PointsEarned != 2*activity.MoodPoints+activity.JournalPoints || res.StreakDays != 3 {
			t.Fatalf("unexpected result %+v", res)
		}
		state, _ := f.ledger.Get(ctx, "u1")
		if state.Version != 1 {
			t.Fatalf("expected a single ledger write, got version %d", state.Version)
		}
		if len(f.sink.events) != 3 {
			t.Fatalf("expected 3 published events, got %d", len(f.sink.events))
		}
	})

	t.Run("rejects the whole batch", func(t *testing.T) {
		f := newFixture(activity.Options{})
		_, err := f.svc.Import(ctx, "u1", activity.ImportBatch{
			Moods: []activity.ImportedMood{
				{MoodPayload: models.MoodPayload{Mood: models.MoodHappy, Energy: 6, Stress: 2}, Timestamp: day(1)},
				{MoodPayload: models.MoodPayload{Mood: models.MoodHappy, Energy: 6, Stress: 2}, Timestamp: fixedNow.Add(time.Hour)},
			},
		})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error for a future timestamp, got %v", err)
		}
		stored, _ := f.events.QueryEvents(ctx, "u1", models.EventFilter{})
		if len(stored) != 0 {
			t.Fatalf("nothing may be stored from a rejected batch, got %d", len(stored))
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		f := newFixture(activity.Options{})
		if _, err := f.svc.Import(ctx, "u1", activity.ImportBatch{}); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
