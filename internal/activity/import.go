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

const maxImportEvents = 500

type ImportedMood struct {
	models.MoodPayload
	Timestamp time.Time `json:"timestamp"`
}

type ImportedJournal struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportBatch carries historical activity recorded elsewhere, for example
// by an offline client.
type ImportBatch struct {
	Moods    []ImportedMood    `json:"moods"`
	Journals []ImportedJournal `json:"journals"`
}

type ImportResult struct {
	Imported     int                  `json:"imported"`
	PointsEarned int                  `json:"points_earned"`
	StreakDays   int                  `json:"streak_days"`
	NewBadges    []gamification.Badge `json:"new_badges"`
}

// Import validates the whole batch before writing any of it, appends the
// events, then credits the ledger once with the streak recomputed over the
// combined history. Imported journal entries get the fallback insight.
func (s *Service) Import(ctx context.Context, user models.UserID, batch ImportBatch) (ImportResult, error) {
	total := len(batch.Moods) + len(batch.Journals)
	if total == 0 {
		return ImportResult{}, fmt.Errorf("%w: no moods or journals provided", models.ErrValidation)
	}
	if total > maxImportEvents {
		return ImportResult{}, fmt.Errorf("%w: at most %d events per import", models.ErrValidation, maxImportEvents)
	}

	now := s.now().UTC()
	events := make([]models.ActivityEvent, 0, total)
	points := 0
	for i, m := range batch.Moods {
		if err := checkImportTime(m.Timestamp, now); err != nil {
			return ImportResult{}, fmt.Errorf("mood %d: %w", i, err)
		}
		payload := m.MoodPayload
		if err := payload.Normalize(); err != nil {
			return ImportResult{}, fmt.Errorf("mood %d: %w", i, err)
		}
		events = append(events, models.ActivityEvent{
			ID: uuid.NewString(), UserID: user, Kind: models.KindMood,
			Timestamp: m.Timestamp.UTC(), Mood: &payload,
		})
		points += MoodPoints
	}
	for i, j := range batch.Journals {
		if err := checkImportTime(j.Timestamp, now); err != nil {
			return ImportResult{}, fmt.Errorf("journal %d: %w", i, err)
		}
		payload, err := models.NewJournalPayload(j.Text)
		if err != nil {
			return ImportResult{}, fmt.Errorf("journal %d: %w", i, err)
		}
		payload.Insight = models.FallbackInsight()
		events = append(events, models.ActivityEvent{
			ID: uuid.NewString(), UserID: user, Kind: models.KindJournal,
			Timestamp: j.Timestamp.UTC(), Journal: &payload,
		})
		points += JournalPoints
	}

	if err := s.appendAll(ctx, events); err != nil {
		return ImportResult{}, fmt.Errorf("%w: import: %w", models.ErrDependencyUnavailable, err)
	}
	for _, e := range events {
		s.publish(ctx, e)
	}

	out, err := s.progression.Record(ctx, user, models.Delta{AddPoints: points}, true)
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info("activity imported",
		zap.String("user_id", string(user)),
		zap.Int("events", len(events)),
		zap.Int("points", points),
	)
	return ImportResult{
		Imported:     len(events),
		PointsEarned: points,
		StreakDays:   out.State.StreakDays,
		NewBadges:    out.NewBadges,
	}, nil
}

func (s *Service) appendAll(ctx context.Context, events []models.ActivityEvent) error {
	if b, ok := s.events.(models.BatchAppender); ok {
		return b.AppendEvents(ctx, events)
	}
	for _, e := range events {
		if err := s.events.AppendEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func checkImportTime(ts, now time.Time) error {
	if ts.IsZero() {
		return fmt.Errorf("%w: timestamp is required", models.ErrValidation)
	}
	if ts.After(now.Add(time.Minute)) {
		return fmt.Errorf("%w: timestamp %s is in the future", models.ErrValidation, ts.Format(time.RFC3339))
	}
	return nil
}
