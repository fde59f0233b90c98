package planner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/planner"
	"github.com/Shreya-nipunge/Glowra/internal/store/memory"
)

var fixedNow = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

type countingRecommender struct {
	calls       atomic.Int32
	suggestions []models.TaskSuggestion
	err         error
	delay       time.Duration
	lastContext models.RecommendationContext
	mu          sync.Mutex
}

func (r *countingRecommender) SuggestTasks(ctx context.Context, rc models.RecommendationContext) ([]models.TaskSuggestion, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.lastContext = rc
	r.mu.Unlock()
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.suggestions, r.err
}

type fixture struct {
	engine *planner.Engine
	events *memory.EventStore
	ledger *gamification.Ledger
	plans  *memory.PlanStore
}

// fixtureConfig lets a test put failing stores or a sink in front of the
// engine.
type fixtureConfig struct {
	wrapEvents func(models.EventStore) models.EventStore
	wrapLedger func(models.LedgerStore) models.LedgerStore
	sink       models.EventSink
}

func newFixture(rec models.Recommender, timeout time.Duration) fixture {
	return newFixtureWith(rec, timeout, fixtureConfig{})
}

func newFixtureWith(rec models.Recommender, timeout time.Duration, cfg fixtureConfig) fixture {
	clock := func() time.Time { return fixedNow }
	events := memory.NewEventStore()
	plans := memory.NewPlanStore()

	var eventStore models.EventStore = events
	if cfg.wrapEvents != nil {
		eventStore = cfg.wrapEvents(events)
	}
	var ledgerStore models.LedgerStore = memory.NewLedgerStore()
	if cfg.wrapLedger != nil {
		ledgerStore = cfg.wrapLedger(ledgerStore)
	}

	ledger := gamification.NewLedger(ledgerStore, 0, nil)
	progression := gamification.NewProgression(ledger, activity.NewAccessor(events), nil, gamification.WithClock(clock))
	engine := planner.NewEngine(plans, eventStore, progression, planner.Options{
		Recommender: rec,
		Sink:        cfg.sink,
		Timeout:     timeout,
		Clock:       clock,
	})
	return fixture{engine: engine, events: events, ledger: ledger, plans: plans}
}

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

type flakyEvents struct {
	models.EventStore
	failures atomic.Int32
}

func (s *flakyEvents) AppendEvent(ctx context.Context, e models.ActivityEvent) error {
	if s.failures.Add(-1) >= 0 {
		return errors.New("event store down")
	}
	return s.EventStore.AppendEvent(ctx, e)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (s *recordingSink) Publish(_ context.Context, e models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) published() []models.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityEvent(nil), s.events...)
}

// pastPlan stores a plan for a day other than today, as an earlier day's
// GetOrGenerate would have.
func pastPlan(t *testing.T, f fixture, date string) models.DailyPlan {
	t.Helper()
	plan := models.DailyPlan{UserID: "u1", Date: date, GeneratedAt: fixedNow.AddDate(0, 0, -2), Version: 1}
	for i, minutes := range []int{5, 10, 15} {
		plan.Tasks = append(plan.Tasks, models.Task{
			ID: fmt.Sprintf("%s-%d", date, i), Title: "task", Type: "movement",
			CTAType: "activity", EstimatedMinutes: minutes, Status: models.TaskPending,
		})
	}
	if err := f.plans.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return plan
}

func TestGetOrGenerateIsIdempotent(t *testing.T) {
	rec := &countingRecommender{suggestions: []models.TaskSuggestion{
		{Type: "Breathing", Title: "Box breathing", EstimatedMinutes: 4, CTAType: "timer"},
		{Title: ""},
	}}
	f := newFixture(rec, 0)
	ctx := context.Background()

	first, err := f.engine.GetOrGenerate(ctx, "u1", "")
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if first.Date != "2025-07-10" || len(first.Tasks) != 2 {
		t.Fatalf("unexpected plan %+v", first)
	}
	if first.Tasks[0].Type != "breathing" {
		t.Fatalf("expected lowercased type, got %q", first.Tasks[0].Type)
	}
	filled := first.Tasks[1]
	if filled.Title != "Activity 2" || filled.Type != "general" || filled.CTAType != "activity" || filled.EstimatedMinutes != 10 {
		t.Fatalf("defaults not applied: %+v", filled)
	}

	second, err := f.engine.GetOrGenerate(ctx, "u1", "2025-07-10")
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if rec.calls.Load() != 1 {
		t.Fatalf("expected one recommender call, got %d", rec.calls.Load())
	}
	if second.Tasks[0].ID != first.Tasks[0].ID {
		t.Fatal("expected the stored plan to be returned unchanged")
	}
}

func TestGetOrGenerateConcurrentRequestsShareOnePlan(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	const workers = 10
	plans := make([]models.DailyPlan, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.engine.GetOrGenerate(ctx, "u1", "2025-07-10")
			if err != nil {
				t.Errorf("GetOrGenerate: %v", err)
			}
			plans[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range plans[1:] {
		if len(p.Tasks) == 0 || p.Tasks[0].ID != plans[0].Tasks[0].ID {
			t.Fatal("concurrent generation produced different plans")
		}
	}
}

func TestGetOrGenerateFallsBack(t *testing.T) {
	tests := []struct {
		name string
		rec  *countingRecommender
	}{
		{"error", &countingRecommender{err: errors.New("quota exceeded")}},
		{"empty", &countingRecommender{}},
		{"timeout", &countingRecommender{delay: time.Second, suggestions: []models.TaskSuggestion{{Title: "late"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.rec, 20*time.Millisecond)
			plan, err := f.engine.GetOrGenerate(context.Background(), "u1", "")
			if err != nil {
				t.Fatalf("GetOrGenerate: %v", err)
			}
			want := planner.DefaultSuggestions()
			if len(plan.Tasks) != len(want) {
				t.Fatalf("expected %d default tasks, got %d", len(want), len(plan.Tasks))
			}
			for i, task := range plan.Tasks {
				if task.Title != want[i].Title || task.Status != models.TaskPending {
					t.Fatalf("task %d: got %+v", i, task)
				}
			}
		})
	}
}

func TestGetOrGenerateCapsSuggestions(t *testing.T) {
	var many []models.TaskSuggestion
	for i := 0; i < 8; i++ {
		many = append(many, models.TaskSuggestion{Title: "t", Type: "movement"})
	}
	f := newFixture(&countingRecommender{suggestions: many}, 0)
	plan, err := f.engine.GetOrGenerate(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if len(plan.Tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(plan.Tasks))
	}
}

func TestGetOrGenerateRejectsBadDate(t *testing.T) {
	f := newFixture(nil, 0)
	if _, err := f.engine.GetOrGenerate(context.Background(), "u1", "10/07/2025"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecommendationContextCarriesRecentSignals(t *testing.T) {
	rec := &countingRecommender{}
	f := newFixture(rec, 0)
	ctx := context.Background()

	_ = f.events.AppendEvent(ctx, models.ActivityEvent{
		ID: "m1", UserID: "u1", Kind: models.KindMood, Timestamp: fixedNow.Add(-time.Hour),
		Mood: &models.MoodPayload{Mood: models.MoodHappy, Energy: 7, Stress: 2},
	})
	_ = f.events.AppendEvent(ctx, models.ActivityEvent{
		ID: "m0", UserID: "u1", Kind: models.KindMood, Timestamp: fixedNow.AddDate(0, 0, -20),
		Mood: &models.MoodPayload{Mood: models.MoodSad},
	})
	_ = f.events.AppendEvent(ctx, models.ActivityEvent{
		ID: "j1", UserID: "u1", Kind: models.KindJournal, Timestamp: fixedNow.Add(-2 * time.Hour),
		Journal: &models.JournalPayload{Text: "a long enough entry", Insight: models.JournalInsight{Categories: []string{"work", "sleep"}}},
	})

	if _, err := f.engine.GetOrGenerate(ctx, "u1", ""); err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	rc := rec.lastContext
	if len(rc.RecentMoods) != 1 || rc.RecentMoods[0].Mood != models.MoodHappy {
		t.Fatalf("expected only last week's mood, got %+v", rc.RecentMoods)
	}
	if len(rc.RecentCategories) != 2 || rc.RecentCategories[0] != "work" {
		t.Fatalf("unexpected categories %v", rc.RecentCategories)
	}
	if rc.Preferences == nil {
		t.Fatal("expected empty, non-nil preferences")
	}
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	plan, err := f.engine.GetOrGenerate(ctx, "u1", "")
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	breathing := plan.Tasks[0].ID

	res, err := f.engine.CompleteTask(ctx, "u1", "", breathing)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if res.Task.Status != models.TaskCompleted || res.Task.CompletedAt == nil {
		t.Fatalf("task not completed: %+v", res.Task)
	}
	if res.PointsEarned != planner.TaskPoints || res.StreakDays != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	// mindful_minute rewards the first breathing task
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "mindful_minute" {
		t.Fatalf("expected mindful_minute, got %+v", res.NewBadges)
	}
	if res.TotalPoints != planner.TaskPoints+res.NewBadges[0].Points {
		t.Fatalf("unexpected total %d", res.TotalPoints)
	}

	stored, _ := f.plans.GetPlan(ctx, "u1", plan.Date)
	if stored.Version != 2 || stored.CompletedCount() != 1 {
		t.Fatalf("unexpected stored plan version=%d completed=%d", stored.Version, stored.CompletedCount())
	}

	again, err := f.engine.CompleteTask(ctx, "u1", "", breathing)
	if !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal, got %v", err)
	}
	if again.PointsEarned != 0 {
		t.Fatalf("second completion earned %d", again.PointsEarned)
	}
	st, _ := f.ledger.Get(ctx, "u1")
	if st.CompletedTasks != 1 || st.Points != res.TotalPoints {
		t.Fatalf("ledger changed on repeat completion: %+v", st)
	}
}

func TestSkipTask(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	plan, _ := f.engine.GetOrGenerate(ctx, "u1", "")
	id := plan.Tasks[1].ID

	_, task, err := f.engine.SkipTask(ctx, "u1", "", id)
	if err != nil {
		t.Fatalf("SkipTask: %v", err)
	}
	if task.Status != models.TaskSkipped || task.SkippedAt == nil {
		t.Fatalf("task not skipped: %+v", task)
	}
	if _, err := f.engine.CompleteTask(ctx, "u1", "", id); !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal, got %v", err)
	}
	st, _ := f.ledger.Get(ctx, "u1")
	if st.Points != 0 || st.Version != 0 {
		t.Fatalf("skip touched the ledger: %+v", st)
	}
}

func TestTransitionNotFound(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	if _, err := f.engine.CompleteTask(ctx, "u1", "", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found without a plan, got %v", err)
	}
	if _, err := f.engine.GetOrGenerate(ctx, "u1", ""); err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if _, _, err := f.engine.SkipTask(ctx, "u1", "", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for unknown task, got %v", err)
	}
	if _, err := f.engine.CompleteTask(ctx, "u1", "", ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for an empty task id, got %v", err)
	}
	if _, _, err := f.engine.SkipTask(ctx, "u1", "", ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for an empty task id, got %v", err)
	}
}

func TestOnlyTodaysPlanIsGeneratedOrChanged(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	for _, date := range []string{"2020-01-01", "2025-07-09", "2025-07-11", "2099-12-31"} {
		if _, err := f.engine.GetOrGenerate(ctx, "u1", date); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", date, err)
		}
	}
	if plans, _ := f.plans.ListPlans(ctx, "u1", "2000-01-01", "2100-01-01"); len(plans) != 0 {
		t.Fatalf("off-day requests stored %d plans", len(plans))
	}

	old := pastPlan(t, f, "2025-07-08")
	got, err := f.engine.GetOrGenerate(ctx, "u1", old.Date)
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if len(got.Tasks) != 3 || got.Tasks[0].ID != old.Tasks[0].ID {
		t.Fatalf("expected the stored past plan, got %+v", got)
	}
	if _, err := f.engine.CompleteTask(ctx, "u1", old.Date, old.Tasks[0].ID); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error completing a past task, got %v", err)
	}
	if _, _, err := f.engine.SkipTask(ctx, "u1", old.Date, old.Tasks[1].ID); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error skipping a past task, got %v", err)
	}

	stored, _ := f.plans.GetPlan(ctx, "u1", old.Date)
	if stored.Version != 1 || stored.CompletedCount()+stored.SkippedCount() != 0 {
		t.Fatalf("past plan changed: %+v", stored)
	}
	st, _ := f.ledger.Get(ctx, "u1")
	if st.Points != 0 || st.CompletedTasks != 0 || st.StreakDays != 0 {
		t.Fatalf("off-day requests touched the ledger: %+v", st)
	}
}

func TestCompleteTaskCreditsAfterAFailedAttempt(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() fixtureConfig
	}{
		{"ledger write fails", func() fixtureConfig {
			fl := &flakyLedger{}
			fl.failures.Store(1)
			return fixtureConfig{wrapLedger: func(s models.LedgerStore) models.LedgerStore {
				fl.LedgerStore = s
				return fl
			}}
		}},
		{"event append fails", func() fixtureConfig {
			fe := &flakyEvents{}
			fe.failures.Store(1)
			return fixtureConfig{wrapEvents: func(s models.EventStore) models.EventStore {
				fe.EventStore = s
				return fe
			}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureWith(nil, 0, tt.cfg())
			ctx := context.Background()
			plan, _ := f.engine.GetOrGenerate(ctx, "u1", "")
			id := plan.Tasks[2].ID

			if _, err := f.engine.CompleteTask(ctx, "u1", "", id); !errors.Is(err, models.ErrDependencyUnavailable) {
				t.Fatalf("expected dependency unavailable, got %v", err)
			}
			stored, _ := f.plans.GetPlan(ctx, "u1", plan.Date)
			if stored.CompletedCount() != 1 {
				t.Fatal("expected the plan transition to be stored")
			}

			res, err := f.engine.CompleteTask(ctx, "u1", "", id)
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if res.PointsEarned != planner.TaskPoints || res.Task.Status != models.TaskCompleted {
				t.Fatalf("unexpected retry result %+v", res)
			}

			again, err := f.engine.CompleteTask(ctx, "u1", "", id)
			if !errors.Is(err, models.ErrAlreadyTerminal) || again.PointsEarned != 0 {
				t.Fatalf("expected already terminal with no points, got %+v %v", again, err)
			}

			st, _ := f.ledger.Get(ctx, "u1")
			if st.CompletedTasks != 1 || st.Points != res.TotalPoints {
				t.Fatalf("expected a single credit, got %+v", st)
			}
			completions, _ := f.events.QueryEvents(ctx, "u1", models.EventFilter{Kind: models.KindTaskCompletion})
			if len(completions) != 1 {
				t.Fatalf("expected one completion event, got %d", len(completions))
			}
		})
	}
}

func TestCompleteTaskPublishesToSink(t *testing.T) {
	sink := &recordingSink{}
	f := newFixtureWith(nil, 0, fixtureConfig{sink: sink})
	ctx := context.Background()
	plan, _ := f.engine.GetOrGenerate(ctx, "u1", "")

	if _, err := f.engine.CompleteTask(ctx, "u1", "", plan.Tasks[1].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	_, _ = f.engine.CompleteTask(ctx, "u1", "", plan.Tasks[1].ID)
	if _, _, err := f.engine.SkipTask(ctx, "u1", "", plan.Tasks[2].ID); err != nil {
		t.Fatalf("SkipTask: %v", err)
	}

	got := sink.published()
	if len(got) != 1 {
		t.Fatalf("expected one published completion, got %d", len(got))
	}
	e := got[0]
	if e.Kind != models.KindTaskCompletion || e.Task == nil || e.Task.TaskID != plan.Tasks[1].ID || e.Task.PlanDate != plan.Date {
		t.Fatalf("unexpected published event %+v", e)
	}
}

func TestConcurrentCompletionsCreditOnce(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()
	plan, _ := f.engine.GetOrGenerate(ctx, "u1", "")
	id := plan.Tasks[2].ID

	const workers = 8
	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CompleteTask(ctx, "u1", "", id)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrAlreadyTerminal):
			default:
				t.Errorf("CompleteTask: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 {
		t.Fatalf("expected exactly one successful completion, got %d", ok.Load())
	}
	st, _ := f.ledger.Get(ctx, "u1")
	if st.CompletedTasks != 1 {
		t.Fatalf("expected one credited completion, got %d", st.CompletedTasks)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(nil, 0)
	ctx := context.Background()

	today, _ := f.engine.GetOrGenerate(ctx, "u1", "")
	if _, err := f.engine.CompleteTask(ctx, "u1", "", today.Tasks[0].ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if _, _, err := f.engine.SkipTask(ctx, "u1", "", today.Tasks[1].ID); err != nil {
		t.Fatalf("SkipTask: %v", err)
	}
	pastPlan(t, f, "2025-07-08")

	h, err := f.engine.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(h.Days))
	}
	if h.Days[0].Date != "2025-07-10" || h.Days[6].Date != "2025-07-04" {
		t.Fatalf("expected newest first, got %s..%s", h.Days[0].Date, h.Days[6].Date)
	}
	d0 := h.Days[0]
	if d0.TotalTasks != 3 || d0.CompletedTasks != 1 || d0.SkippedTasks != 1 || d0.CompletionRate != 33.3 || d0.TotalMinutes != 30 {
		t.Fatalf("unexpected today entry %+v", d0)
	}
	if h.Days[1].TotalTasks != 0 || h.Days[2].TotalTasks != 3 {
		t.Fatalf("expected a zero-filled gap, got %+v", h.Days[:3])
	}
	if h.Summary.PlansGenerated != 2 || h.Summary.TotalTasksCompleted != 1 || h.Summary.AverageCompletionRate != 4.8 {
		t.Fatalf("unexpected summary %+v", h.Summary)
	}

	if got := planner.NormalizeHistoryDays(90); got != 30 {
		t.Fatalf("expected cap of 30, got %d", got)
	}
}
