package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// Points credited per activity.
const (
	MoodPoints    = 5
	JournalPoints = 10
)

const (
	DefaultAnalyzeTimeout = 15 * time.Second

	defaultMoodLimit    = 50
	maxMoodLimit        = 100
	defaultJournalLimit = 10
	maxJournalLimit     = 50
	summaryEntries      = 30
)

type Options struct {
	Analyzer       models.JournalAnalyzer
	Sink           models.EventSink
	AnalyzeTimeout time.Duration
	Logger         *zap.Logger
	Clock          func() time.Time
}

// Service accepts mood and journal signals, appends them to the activity
// log and credits the ledger.
type Service struct {
	events         models.EventStore
	accessor       *Accessor
	progression    *gamification.Progression
	analyzer       models.JournalAnalyzer
	sink           models.EventSink
	analyzeTimeout time.Duration
	log            *zap.Logger
	now            func() time.Time
}

func NewService(events models.EventStore, progression *gamification.Progression, opts Options) *Service {
	s := &Service{
		events:         events,
		accessor:       NewAccessor(events),
		progression:    progression,
		analyzer:       opts.Analyzer,
		sink:           opts.Sink,
		analyzeTimeout: opts.AnalyzeTimeout,
		log:            opts.Logger,
		now:            opts.Clock,
	}
	if s.analyzeTimeout <= 0 {
		s.analyzeTimeout = DefaultAnalyzeTimeout
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Accessor() *Accessor { return s.accessor }

// Result is returned by every write that credits the ledger.
type Result struct {
	Event        models.ActivityEvent `json:"event"`
	PointsEarned int                  `json:"points_earned"`
	TotalPoints  int                  `json:"total_points"`
	StreakDays   int                  `json:"streak_days"`
	NewBadges    []gamification.Badge `json:"new_badges"`
}

func (s *Service) LogMood(ctx context.Context, user models.UserID, in models.MoodPayload) (Result, error) {
	if err := in.Normalize(); err != nil {
		return Result{}, err
	}
	e := models.ActivityEvent{
		ID:        uuid.NewString(),
		UserID:    user,
		Kind:      models.KindMood,
		Timestamp: s.now().UTC(),
		Mood:      &in,
	}
	return s.record(ctx, e, MoodPoints)
}

func (s *Service) LogJournal(ctx context.Context, user models.UserID, text string) (Result, error) {
	payload, err := models.NewJournalPayload(text)
	if err != nil {
		return Result{}, err
	}
	payload.Insight = s.analyze(ctx, user, payload.Text)
	e := models.ActivityEvent{
		ID:        uuid.NewString(),
		UserID:    user,
		Kind:      models.KindJournal,
		Timestamp: s.now().UTC(),
		Journal:   &payload,
	}
	return s.record(ctx, e, JournalPoints)
}

func (s *Service) record(ctx context.Context, e models.ActivityEvent, points int) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}
	if err := s.events.AppendEvent(ctx, e); err != nil {
		return Result{}, fmt.Errorf("%w: append %s event: %w", models.ErrDependencyUnavailable, e.Kind, err)
	}
	s.publish(ctx, e)

	out, err := s.progression.Record(ctx, e.UserID, models.Delta{AddPoints: points}, true)
	if err != nil {
		return Result{}, err
	}
	s.log.Info("activity recorded",
		zap.String("user_id", string(e.UserID)),
		zap.String("kind", string(e.Kind)),
		zap.Int("points", points),
		zap.Int("streak_days", out.State.StreakDays),
	)
	return Result{
		Event:        e,
		PointsEarned: points,
		TotalPoints:  out.State.Points,
		StreakDays:   out.State.StreakDays,
		NewBadges:    out.NewBadges,
	}, nil
}

// analyze never fails: a missing, slow or broken analyzer yields the
// neutral fallback insight.
func (s *Service) analyze(ctx context.Context, user models.UserID, text string) models.JournalInsight {
	if s.analyzer == nil {
		return models.FallbackInsight()
	}
	ctx, cancel := context.WithTimeout(ctx, s.analyzeTimeout)
	defer cancel()

	insight, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		s.log.Warn("adapter degraded",
			zap.String("adapter", "journal_analyzer"),
			zap.String("user_id", string(user)),
			zap.Error(err),
		)
		return models.FallbackInsight()
	}
	return insight.Sanitize()
}

func (s *Service) publish(ctx context.Context, e models.ActivityEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, e); err != nil {
		s.log.Warn("adapter degraded",
			zap.String("adapter", "event_sink"),
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
	}
}

// MoodLogs lists mood check-ins in [from, to), newest first.
func (s *Service) MoodLogs(ctx context.Context, user models.UserID, from, to time.Time, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = defaultMoodLimit
	}
	limit = min(limit, maxMoodLimit)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", models.ErrValidation)
	}
	return s.accessor.Moods(ctx, user, from, to, limit)
}

func (s *Service) Journals(ctx context.Context, user models.UserID, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	limit = min(limit, maxJournalLimit)
	return s.accessor.Journals(ctx, user, time.Time{}, limit)
}

func (s *Service) Journal(ctx context.Context, user models.UserID, id string) (models.ActivityEvent, error) {
	entries, err := s.accessor.Journals(ctx, user, time.Time{}, 0)
	if err != nil {
		return models.ActivityEvent{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.ActivityEvent{}, fmt.Errorf("journal entry %s: %w", id, models.ErrNotFound)
}

type JournalSummary struct {
	TotalEntries      int            `json:"total_entries"`
	MoodDistribution  map[string]int `json:"mood_distribution"`
	TopCategories     []string       `json:"top_categories"`
	AverageConfidence float64        `json:"average_confidence"`
	RiskLevels        map[string]int `json:"risk_levels"`
}

// JournalSummary aggregates the insights of the most recent entries.
func (s *Service) JournalSummary(ctx context.Context, user models.UserID) (JournalSummary, error) {
	entries, err := s.accessor.Journals(ctx, user, time.Time{}, summaryEntries)
	if err != nil {
		return JournalSummary{}, err
	}
	return summarizeJournals(entries), nil
}
