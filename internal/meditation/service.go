// Package meditation tracks guided meditation sessions. A session is a
// start event followed by at most one completion event in the activity log.
package meditation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/analytics"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// CompletionBonus is credited on top of one point per minute meditated.
const CompletionBonus = 10

const (
	DefaultRating = 5

	maxMeditationIDLength = 200
	defaultHistoryLimit   = 20
	maxHistoryLimit       = 100
)

type Options struct {
	Sink   models.EventSink
	Logger *zap.Logger
	Clock  func() time.Time
}

type Service struct {
	events      models.EventStore
	accessor    *activity.Accessor
	progression *gamification.Progression
	sink        models.EventSink
	log         *zap.Logger
	now         func() time.Time
}

func NewService(events models.EventStore, progression *gamification.Progression, opts Options) *Service {
	s := &Service{
		events:      events,
		accessor:    activity.NewAccessor(events),
		progression: progression,
		sink:        opts.Sink,
		log:         opts.Logger,
		now:         opts.Clock,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type Session struct {
	SessionID       string                  `json:"session_id"`
	MeditationID    string                  `json:"meditation_id"`
	Status          models.MeditationStatus `json:"status"`
	StartedAt       time.Time               `json:"started_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	DurationMinutes int                     `json:"duration_minutes"`
	Rating          int                     `json:"rating,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
}

func (s *Service) Start(ctx context.Context, user models.UserID, meditationID string) (Session, error) {
	meditationID = strings.TrimSpace(meditationID)
	if meditationID == "" {
		return Session{}, fmt.Errorf("%w: meditation id is required", models.ErrValidation)
	}
	if utf8.RuneCountInString(meditationID) > maxMeditationIDLength {
		return Session{}, fmt.Errorf("%w: meditation id exceeds %d characters", models.ErrValidation, maxMeditationIDLength)
	}

	id := uuid.NewString()
	e := models.ActivityEvent{
		ID:        id,
		UserID:    user,
		Kind:      models.KindMeditation,
		Timestamp: s.now().UTC(),
		Meditation: &models.MeditationPayload{
			SessionID:    id,
			MeditationID: meditationID,
			Status:       models.MeditationStarted,
		},
	}
	if err := s.events.AppendEvent(ctx, e); err != nil {
		return Session{}, fmt.Errorf("%w: append meditation start: %w", models.ErrDependencyUnavailable, err)
	}
	s.publish(ctx, e)

	s.log.Info("meditation started",
		zap.String("user_id", string(user)),
		zap.String("session_id", id),
		zap.String("meditation_id", meditationID),
	)
	return Session{
		SessionID:    id,
		MeditationID: meditationID,
		Status:       models.MeditationStarted,
		StartedAt:    e.Timestamp,
	}, nil
}

// Completion is what the user reports when a session ends. A zero Rating
// means DefaultRating.
type Completion struct {
	DurationMinutes int    `json:"duration_minutes"`
	Rating          int    `json:"rating"`
	Notes           string `json:"notes"`
}

func (c *Completion) Normalize() error {
	if c.DurationMinutes < 0 || c.DurationMinutes > models.MaxMeditationMinutes {
		return fmt.Errorf("%w: duration_minutes must be between 0 and %d", models.ErrValidation, models.MaxMeditationMinutes)
	}
	if c.Rating == 0 {
		c.Rating = DefaultRating
	}
	if c.Rating < 1 || c.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", models.ErrValidation)
	}
	c.Notes = strings.TrimSpace(c.Notes)
	if utf8.RuneCountInString(c.Notes) > models.MaxMeditationNotes {
		return fmt.Errorf("%w: notes exceed %d characters", models.ErrValidation, models.MaxMeditationNotes)
	}
	return nil
}

type Result struct {
	Session                   Session              `json:"session"`
	PointsEarned              int                  `json:"points_earned"`
	TotalPoints               int                  `json:"total_points"`
	TotalMeditationMinutes    int                  `json:"total_meditation_minutes"`
	CompletedMeditationsCount int                  `json:"completed_meditations_count"`
	NewBadges                 []gamification.Badge `json:"new_badges"`
}

var errCredited = errors.New("meditation already credited")

// completionID is the id of the completion event of a session, and the key
// of its ledger credit.
func completionID(user models.UserID, sessionID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("glowra:meditation/"+string(user)+"/"+sessionID)).String()
}

// Complete ends a started session and credits its points. Completing a
// session twice is ErrAlreadyTerminal; a retry after a failed credit
// credits the stored completion instead.
func (s *Service) Complete(ctx context.Context, user models.UserID, sessionID string, in Completion) (Result, error) {
	if sessionID == "" {
		return Result{}, fmt.Errorf("%w: session id is required", models.ErrValidation)
	}
	if err := in.Normalize(); err != nil {
		return Result{}, err
	}

	sessions, err := s.sessions(ctx, user)
	if err != nil {
		return Result{}, err
	}
	i := find(sessions, sessionID)
	if i < 0 {
		return Result{}, fmt.Errorf("meditation session %s: %w", sessionID, models.ErrNotFound)
	}

	completedBefore := sessions[i].Status == models.MeditationCompleted
	if !completedBefore {
		e := models.ActivityEvent{
			ID:        completionID(user, sessionID),
			UserID:    user,
			Kind:      models.KindMeditation,
			Timestamp: s.now().UTC(),
			Meditation: &models.MeditationPayload{
				SessionID:       sessionID,
				MeditationID:    sessions[i].MeditationID,
				Status:          models.MeditationCompleted,
				DurationMinutes: in.DurationMinutes,
				Rating:          in.Rating,
				Notes:           in.Notes,
			},
		}
		err := s.events.AppendEvent(ctx, e)
		switch {
		case errors.Is(err, models.ErrConflict):
			// completed concurrently; credit what was stored
			if sessions, err = s.sessions(ctx, user); err != nil {
				return Result{}, err
			}
			if i = find(sessions, sessionID); i < 0 {
				return Result{}, fmt.Errorf("meditation session %s: %w", sessionID, models.ErrNotFound)
			}
			completedBefore = true
		case err != nil:
			return Result{}, fmt.Errorf("%w: append meditation completion: %w", models.ErrDependencyUnavailable, err)
		default:
			s.publish(ctx, e)
			sessions[i].complete(e)
		}
	}

	res, err := s.credit(ctx, user, sessions, sessions[i])
	if errors.Is(err, errCredited) {
		return Result{Session: sessions[i]}, fmt.Errorf("meditation session %s: %w", sessionID, models.ErrAlreadyTerminal)
	}
	if err != nil {
		return Result{}, err
	}
	msg := "meditation completed"
	if completedBefore {
		msg = "meditation completion credited on retry"
	}
	s.log.Info(msg,
		zap.String("user_id", string(user)),
		zap.String("session_id", sessionID),
		zap.Int("duration_minutes", res.Session.DurationMinutes),
	)
	return res, nil
}

func (s *Service) credit(ctx context.Context, user models.UserID, sessions []Session, sess Session) (Result, error) {
	points := sess.DurationMinutes + CompletionBonus
	out, err := s.progression.Record(ctx, user, models.Delta{
		AddPoints: points,
		CreditKey: completionID(user, sess.SessionID),
	}, false)
	if err != nil {
		return Result{}, err
	}
	if out.AlreadyCredited {
		return Result{}, errCredited
	}

	res := Result{
		Session:      sess,
		PointsEarned: points,
		TotalPoints:  out.State.Points,
		NewBadges:    out.NewBadges,
	}
	seen := map[string]bool{}
	for _, ss := range sessions {
		if ss.Status != models.MeditationCompleted {
			continue
		}
		res.TotalMeditationMinutes += ss.DurationMinutes
		if !seen[ss.MeditationID] {
			seen[ss.MeditationID] = true
			res.CompletedMeditationsCount++
		}
	}
	return res, nil
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

func find(sessions []Session, id string) int {
	return slices.IndexFunc(sessions, func(ss Session) bool { return ss.SessionID == id })
}

func (ss *Session) complete(e models.ActivityEvent) {
	at := e.Timestamp
	ss.Status = models.MeditationCompleted
	ss.CompletedAt = &at
	ss.DurationMinutes = e.Meditation.DurationMinutes
	ss.Rating = e.Meditation.Rating
	ss.Notes = e.Meditation.Notes
}

// sessions folds the user's meditation events into sessions, most recently
// started first.
func (s *Service) sessions(ctx context.Context, user models.UserID) ([]Session, error) {
	events, err := s.accessor.Meditations(ctx, user)
	if err != nil {
		return nil, err
	}
	var out []Session
	index := map[string]int{}
	for _, e := range slices.Backward(events) {
		if p := e.Meditation; p.Status == models.MeditationStarted {
			index[p.SessionID] = len(out)
			out = append(out, Session{
				SessionID:    p.SessionID,
				MeditationID: p.MeditationID,
				Status:       models.MeditationStarted,
				StartedAt:    e.Timestamp,
			})
		}
	}
	// a completion may share its start's timestamp, so it is applied after
	// every start is known
	for _, e := range events {
		if p := e.Meditation; p.Status == models.MeditationCompleted {
			if i, ok := index[p.SessionID]; ok {
				out[i].complete(e)
			}
		}
	}
	slices.Reverse(out)
	return out, nil
}

type HistoryStats struct {
	TotalSessions   int     `json:"total_sessions"`
	TotalMinutes    int     `json:"total_minutes"`
	AverageDuration float64 `json:"average_duration"`
	AverageRating   float64 `json:"average_rating"`
}

type History struct {
	Sessions []Session    `json:"sessions"`
	Stats    HistoryStats `json:"stats"`
}

// History lists completed sessions, most recently completed first, with
// stats over the listed sessions.
func (s *Service) History(ctx context.Context, user models.UserID, limit int) (History, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	all, err := s.sessions(ctx, user)
	if err != nil {
		return History{}, err
	}
	h := History{Sessions: []Session{}}
	for _, ss := range all {
		if ss.Status == models.MeditationCompleted {
			h.Sessions = append(h.Sessions, ss)
		}
	}
	slices.SortStableFunc(h.Sessions, func(a, b Session) int { return b.CompletedAt.Compare(*a.CompletedAt) })
	h.Sessions = h.Sessions[:min(len(h.Sessions), limit)]

	var ratings, rated int
	for _, ss := range h.Sessions {
		h.Stats.TotalMinutes += ss.DurationMinutes
		if ss.Rating > 0 {
			ratings += ss.Rating
			rated++
		}
	}
	h.Stats.TotalSessions = len(h.Sessions)
	if h.Stats.TotalSessions > 0 {
		h.Stats.AverageDuration = analytics.Round(float64(h.Stats.TotalMinutes)/float64(h.Stats.TotalSessions), 1)
	}
	if rated > 0 {
		h.Stats.AverageRating = analytics.Round(float64(ratings)/float64(rated), 1)
	}
	return h, nil
}
