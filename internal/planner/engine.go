// Package planner generates one plan of small wellness tasks per user and
// day and drives each task through pending, completed or skipped.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// TaskPoints is credited for every completed task.
const TaskPoints = 5

const (
	DefaultRecommendTimeout = 10 * time.Second
	DefaultMaxAttempts      = 5

	contextWindow      = 7 * 24 * time.Hour
	recentMoodCount    = 7
	recentJournalCount = 5
)

type Options struct {
	Recommender models.Recommender
	// Sink receives every task completion. Publish failures are logged.
	Sink        models.EventSink
	Timeout     time.Duration
	MaxAttempts int
	Logger      *zap.Logger
	Clock       func() time.Time
}

type Engine struct {
	plans       models.PlanStore
	events      models.EventStore
	activity    *activity.Accessor
	progression *gamification.Progression
	recommender models.Recommender
	sink        models.EventSink
	timeout     time.Duration
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
}

func NewEngine(plans models.PlanStore, events models.EventStore, progression *gamification.Progression, opts Options) *Engine {
	e := &Engine{
		plans:       plans,
		events:      events,
		activity:    activity.NewAccessor(events),
		progression: progression,
		recommender: opts.Recommender,
		sink:        opts.Sink,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		log:         opts.Logger,
		now:         opts.Clock,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultRecommendTimeout
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Today is the UTC calendar date plans are keyed by when no date is given.
func (e *Engine) Today() string {
	return models.DateOf(e.now())
}

func (e *Engine) resolveDate(date string) (string, error) {
	if date == "" {
		return e.Today(), nil
	}
	if _, err := models.ParseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

// resolveToday is resolveDate for operations that only act on today's plan.
func (e *Engine) resolveToday(date string) (string, error) {
	date, err := e.resolveDate(date)
	if err != nil {
		return "", err
	}
	if today := e.Today(); date != today {
		return "", fmt.Errorf("%w: tasks can only change on today's plan (%s), not %s", models.ErrValidation, today, date)
	}
	return date, nil
}

// GetOrGenerate returns the stored plan for (user, date). Only today's plan
// is generated when missing; any other date without a plan is ErrNotFound.
// An existing plan is returned as is.
func (e *Engine) GetOrGenerate(ctx context.Context, user models.UserID, date string) (models.DailyPlan, error) {
	date, err := e.resolveDate(date)
	if err != nil {
		return models.DailyPlan{}, err
	}

	plan, err := e.plans.GetPlan(ctx, user, date)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.DailyPlan{}, fmt.Errorf("%w: load plan: %w", models.ErrDependencyUnavailable, err)
	}
	if date != e.Today() {
		return models.DailyPlan{}, fmt.Errorf("no plan for %s: %w", date, models.ErrNotFound)
	}

	plan = models.DailyPlan{
		UserID:      user,
		Date:        date,
		Tasks:       buildTasks(e.suggest(ctx, user, date)),
		GeneratedAt: e.now().UTC(),
		Version:     1,
	}
	err = e.plans.CreatePlan(ctx, plan)
	if errors.Is(err, models.ErrConflict) {
		// another request created the plan first
		existing, gerr := e.plans.GetPlan(ctx, user, date)
		if gerr != nil {
			return models.DailyPlan{}, fmt.Errorf("%w: reload plan: %w", models.ErrDependencyUnavailable, gerr)
		}
		return existing, nil
	}
	if err != nil {
		return models.DailyPlan{}, fmt.Errorf("%w: save plan: %w", models.ErrDependencyUnavailable, err)
	}

	e.log.Info("daily plan generated",
		zap.String("user_id", string(user)),
		zap.String("date", date),
		zap.Int("tasks", len(plan.Tasks)),
	)
	return plan, nil
}

// suggest asks the recommender for tasks and falls back to the default set
// on error, timeout or an empty answer.
func (e *Engine) suggest(ctx context.Context, user models.UserID, date string) []models.TaskSuggestion {
	if e.recommender == nil {
		return DefaultSuggestions()
	}
	rc := e.recommendationContext(ctx, user, date)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	suggestions, err := e.recommender.SuggestTasks(ctx, rc)
	if err != nil {
		e.log.Warn("adapter degraded",
			zap.String("adapter", "recommender"),
			zap.String("user_id", string(user)),
			zap.Error(err),
		)
		return DefaultSuggestions()
	}
	if len(suggestions) == 0 {
		e.log.Warn("adapter degraded",
			zap.String("adapter", "recommender"),
			zap.String("user_id", string(user)),
			zap.String("reason", "no suggestions"),
		)
		return DefaultSuggestions()
	}
	return suggestions
}

// recommendationContext gathers the last week of signals. Missing pieces are
// left empty rather than failing plan generation.
func (e *Engine) recommendationContext(ctx context.Context, user models.UserID, date string) models.RecommendationContext {
	rc := models.RecommendationContext{UserID: user, Date: date, Preferences: map[string]string{}}
	now := e.now().UTC()

	moods, err := e.activity.Moods(ctx, user, now.Add(-contextWindow), time.Time{}, recentMoodCount)
	if err != nil {
		e.log.Warn("could not load recent moods", zap.String("user_id", string(user)), zap.Error(err))
	}
	for _, m := range moods {
		rc.RecentMoods = append(rc.RecentMoods, models.MoodSnapshot{
			Mood: m.Mood.Mood, Energy: m.Mood.Energy, Stress: m.Mood.Stress, At: m.Timestamp,
		})
	}

	journals, err := e.activity.Journals(ctx, user, time.Time{}, recentJournalCount)
	if err != nil {
		e.log.Warn("could not load recent journals", zap.String("user_id", string(user)), zap.Error(err))
	}
	seen := map[string]bool{}
	for _, j := range journals {
		for _, c := range j.Journal.Insight.Categories {
			if !seen[c] {
				seen[c] = true
				rc.RecentCategories = append(rc.RecentCategories, c)
			}
		}
	}

	if state, err := e.progression.Ledger().Get(ctx, user); err == nil {
		rc.StreakDays = state.StreakDays
		rc.CompletedTasks = state.CompletedTasks
	}
	return rc
}

// CompletionResult describes a task completion.
type CompletionResult struct {
	Plan         models.DailyPlan     `json:"plan"`
	Task         models.Task          `json:"task"`
	PointsEarned int                  `json:"points_earned"`
	TotalPoints  int                  `json:"total_points"`
	StreakDays   int                  `json:"streak_days"`
	NewBadges    []gamification.Badge `json:"new_badges"`
}

// CompleteTask marks a pending task on today's plan completed and credits
// the ledger. The credit is keyed by the task, so a call that failed after
// the plan was updated can be repeated: a completed task whose credit never
// landed is credited then. A task that is already skipped, or completed and
// credited, yields ErrAlreadyTerminal together with a result that earned
// nothing.
func (e *Engine) CompleteTask(ctx context.Context, user models.UserID, date, taskID string) (CompletionResult, error) {
	if taskID == "" {
		return CompletionResult{}, fmt.Errorf("%w: task id is required", models.ErrValidation)
	}
	date, err := e.resolveToday(date)
	if err != nil {
		return CompletionResult{}, err
	}
	plan, task, err := e.transition(ctx, user, date, taskID, models.TaskCompleted)
	if errors.Is(err, models.ErrAlreadyTerminal) && task.Status == models.TaskCompleted {
		res, cerr := e.credit(ctx, user, plan, task)
		if errors.Is(cerr, errCredited) {
			return CompletionResult{Plan: plan, Task: task}, err
		}
		if cerr == nil {
			e.log.Info("task completion credited on retry",
				zap.String("user_id", string(user)),
				zap.String("task_id", task.ID),
			)
		}
		return res, cerr
	}
	if errors.Is(err, models.ErrAlreadyTerminal) {
		return CompletionResult{Plan: plan, Task: task}, err
	}
	if err != nil {
		return CompletionResult{}, err
	}

	res, err := e.credit(ctx, user, plan, task)
	if errors.Is(err, errCredited) {
		return CompletionResult{Plan: plan, Task: task}, fmt.Errorf("task %s: %w", task.ID, models.ErrAlreadyTerminal)
	}
	if err != nil {
		return CompletionResult{}, err
	}
	e.log.Info("task completed",
		zap.String("user_id", string(user)),
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
	)
	return res, nil
}

var errCredited = errors.New("completion already credited")

// completionID is the id of the completion event of a task, and the key of
// its ledger credit.
func completionID(user models.UserID, date, taskID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("glowra:task/"+string(user)+"/"+date+"/"+taskID)).String()
}

// credit appends the completion event and credits the ledger, each at most
// once per task. It returns errCredited when both had already happened.
func (e *Engine) credit(ctx context.Context, user models.UserID, plan models.DailyPlan, task models.Task) (CompletionResult, error) {
	id := completionID(user, plan.Date, task.ID)

	ev := models.ActivityEvent{
		ID:        id,
		UserID:    user,
		Kind:      models.KindTaskCompletion,
		Timestamp: e.now().UTC(),
		Task:      &models.TaskPayload{TaskID: task.ID, Category: task.Type, PlanDate: plan.Date},
	}
	err := e.events.AppendEvent(ctx, ev)
	switch {
	case errors.Is(err, models.ErrConflict):
		// appended by an earlier attempt
	case err != nil:
		return CompletionResult{}, fmt.Errorf("%w: append task completion: %w", models.ErrDependencyUnavailable, err)
	default:
		e.publish(ctx, ev)
	}

	out, err := e.progression.Record(ctx, user, models.Delta{
		AddPoints:         TaskPoints,
		AddCompletedTasks: 1,
		CreditKey:         id,
	}, true)
	if err != nil {
		return CompletionResult{}, err
	}
	if out.AlreadyCredited {
		return CompletionResult{}, errCredited
	}
	return CompletionResult{
		Plan:         plan,
		Task:         task,
		PointsEarned: TaskPoints,
		TotalPoints:  out.State.Points,
		StreakDays:   out.State.StreakDays,
		NewBadges:    out.NewBadges,
	}, nil
}

func (e *Engine) publish(ctx context.Context, ev models.ActivityEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, ev); err != nil {
		e.log.Warn("adapter degraded",
			zap.String("adapter", "event_sink"),
			zap.String("user_id", string(ev.UserID)),
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
	}
}

// SkipTask marks a pending task on today's plan skipped. Skipping earns
// nothing.
func (e *Engine) SkipTask(ctx context.Context, user models.UserID, date, taskID string) (models.DailyPlan, models.Task, error) {
	if taskID == "" {
		return models.DailyPlan{}, models.Task{}, fmt.Errorf("%w: task id is required", models.ErrValidation)
	}
	date, err := e.resolveToday(date)
	if err != nil {
		return models.DailyPlan{}, models.Task{}, err
	}
	plan, task, err := e.transition(ctx, user, date, taskID, models.TaskSkipped)
	if err == nil {
		e.log.Info("task skipped", zap.String("user_id", string(user)), zap.String("task_id", task.ID))
	}
	return plan, task, err
}

// transition applies a task status change as a conditional plan update,
// retrying on concurrent writes.
func (e *Engine) transition(ctx context.Context, user models.UserID, date, taskID string,
	to models.TaskStatus) (models.DailyPlan, models.Task, error) {

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		cur, err := e.plans.GetPlan(ctx, user, date)
		if errors.Is(err, models.ErrNotFound) {
			return models.DailyPlan{}, models.Task{}, fmt.Errorf("no plan for %s: %w", date, models.ErrNotFound)
		}
		if err != nil {
			return models.DailyPlan{}, models.Task{}, fmt.Errorf("%w: load plan: %w", models.ErrDependencyUnavailable, err)
		}

		next := cur.Clone()
		task, err := next.Transition(taskID, to, e.now())
		if err != nil {
			return cur, task, err
		}
		next.Version = cur.Version + 1

		err = e.plans.UpdatePlan(ctx, next, cur.Version)
		if errors.Is(err, models.ErrConflict) {
			e.log.Debug("plan write conflict, retrying",
				zap.String("user_id", string(user)),
				zap.String("date", date),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return models.DailyPlan{}, models.Task{}, fmt.Errorf("%w: save plan: %w", models.ErrDependencyUnavailable, err)
		}
		return next, task, nil
	}
	return models.DailyPlan{}, models.Task{}, fmt.Errorf("%w: plan %s kept changing after %d attempts",
		models.ErrDependencyUnavailable, date, e.maxAttempts)
}
