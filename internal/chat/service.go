// Package chat runs conversations with the wellness companion. Every turn is
// an event in the activity log and earns a small ledger credit.
package chat

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// MessagePoints is credited for every message sent.
const MessagePoints = 2

const (
	DefaultReplyTimeout = 20 * time.Second

	defaultConversationLimit = 10
	maxConversationLimit     = 50
	previewRunes             = 100
	historyTurns             = 5
	commonSuggestions        = 5
	maxStarters              = 8
	suggestionWindow         = 7 * 24 * time.Hour
)

type Options struct {
	Responder    models.ChatResponder
	Sink         models.EventSink
	ReplyTimeout time.Duration
	Logger       *zap.Logger
	Clock        func() time.Time
}

type Service struct {
	events       models.EventStore
	accessor     *activity.Accessor
	progression  *gamification.Progression
	responder    models.ChatResponder
	sink         models.EventSink
	replyTimeout time.Duration
	log          *zap.Logger
	now          func() time.Time
}

func NewService(events models.EventStore, progression *gamification.Progression, opts Options) *Service {
	s := &Service{
		events:       events,
		accessor:     activity.NewAccessor(events),
		progression:  progression,
		responder:    opts.Responder,
		sink:         opts.Sink,
		replyTimeout: opts.ReplyTimeout,
		log:          opts.Logger,
		now:          opts.Clock,
	}
	if s.replyTimeout <= 0 {
		s.replyTimeout = DefaultReplyTimeout
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type Result struct {
	ConversationID string               `json:"conversation_id"`
	Response       string               `json:"response"`
	MoodDetected   models.Mood          `json:"mood_detected"`
	Suggestions    []string             `json:"suggestions"`
	PointsEarned   int                  `json:"points_earned"`
	TotalPoints    int                  `json:"total_points"`
	NewBadges      []gamification.Badge `json:"new_badges"`
	Timestamp      time.Time            `json:"timestamp"`
}

// Send answers message and stores the turn. An empty conversationID starts
// a new conversation; an unknown one is ErrNotFound.
func (s *Service) Send(ctx context.Context, user models.UserID, conversationID, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, fmt.Errorf("%w: message is required", models.ErrValidation)
	}
	if utf8.RuneCountInString(message) > models.MaxChatMessageLength {
		return Result{}, fmt.Errorf("%w: message exceeds %d characters", models.ErrValidation, models.MaxChatMessageLength)
	}

	var history []models.ChatTurn
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else {
		turns, err := s.turns(ctx, user, conversationID)
		if err != nil {
			return Result{}, err
		}
		if len(turns) == 0 {
			return Result{}, fmt.Errorf("conversation %s: %w", conversationID, models.ErrNotFound)
		}
		for _, e := range turns[max(0, len(turns)-historyTurns):] {
			history = append(history, models.ChatTurn{Message: e.Chat.Message, Response: e.Chat.Response})
		}
	}

	reply := s.reply(ctx, user, message, history)
	e := models.ActivityEvent{
		ID:        uuid.NewString(),
		UserID:    user,
		Kind:      models.KindChat,
		Timestamp: s.now().UTC(),
		Chat: &models.ChatPayload{
			ConversationID: conversationID,
			Message:        message,
			Response:       reply.Response,
			MoodDetected:   reply.MoodDetected,
			Suggestions:    reply.Suggestions,
		},
	}
	if err := s.events.AppendEvent(ctx, e); err != nil {
		return Result{}, fmt.Errorf("%w: append chat event: %w", models.ErrDependencyUnavailable, err)
	}
	s.publish(ctx, e)

	out, err := s.progression.Record(ctx, user, models.Delta{AddPoints: MessagePoints}, false)
	if err != nil {
		return Result{}, err
	}
	s.log.Info("chat message answered",
		zap.String("user_id", string(user)),
		zap.String("conversation_id", conversationID),
		zap.String("mood_detected", string(reply.MoodDetected)),
	)
	return Result{
		ConversationID: conversationID,
		Response:       reply.Response,
		MoodDetected:   reply.MoodDetected,
		Suggestions:    reply.Suggestions,
		PointsEarned:   MessagePoints,
		TotalPoints:    out.State.Points,
		NewBadges:      out.NewBadges,
		Timestamp:      e.Timestamp,
	}, nil
}

// reply never fails: a missing, slow or broken responder yields the
// fallback reply.
func (s *Service) reply(ctx context.Context, user models.UserID, message string, history []models.ChatTurn) models.ChatReply {
	if s.responder == nil {
		return models.FallbackChatReply()
	}
	ctx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	reply, err := s.responder.Reply(ctx, message, history)
	if err != nil {
		s.log.Warn("adapter degraded",
			zap.String("adapter", "chat_responder"),
			zap.String("user_id", string(user)),
			zap.Error(err),
		)
		return models.FallbackChatReply()
	}
	return reply.Sanitize()
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

// turns returns the turns of one conversation oldest first.
func (s *Service) turns(ctx context.Context, user models.UserID, conversationID string) ([]models.ActivityEvent, error) {
	all, err := s.accessor.Chats(ctx, user, 0)
	if err != nil {
		return nil, err
	}
	var out []models.ActivityEvent
	for _, e := range all {
		if e.Chat.ConversationID == conversationID {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out, nil
}

type ConversationSummary struct {
	ConversationID  string      `json:"conversation_id"`
	MessageCount    int         `json:"message_count"`
	LatestMessage   string      `json:"latest_message"`
	LatestTimestamp time.Time   `json:"latest_timestamp"`
	LastMood        models.Mood `json:"last_mood"`
}

// Conversations lists the most recently active conversations first.
func (s *Service) Conversations(ctx context.Context, user models.UserID, limit int) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	limit = min(limit, maxConversationLimit)

	all, err := s.accessor.Chats(ctx, user, 0)
	if err != nil {
		return nil, err
	}
	out := []ConversationSummary{}
	index := map[string]int{}
	for _, e := range all {
		if i, ok := index[e.Chat.ConversationID]; ok {
			out[i].MessageCount++
			continue
		}
		if len(out) == limit {
			continue
		}
		index[e.Chat.ConversationID] = len(out)
		out = append(out, ConversationSummary{
			ConversationID:  e.Chat.ConversationID,
			MessageCount:    1,
			LatestMessage:   preview(e.Chat.Message),
			LatestTimestamp: e.Timestamp,
			LastMood:        e.Chat.MoodDetected,
		})
	}
	return out, nil
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

type Message struct {
	ID           string      `json:"id"`
	Message      string      `json:"user_message"`
	Response     string      `json:"ai_response"`
	MoodDetected models.Mood `json:"mood_detected"`
	Suggestions  []string    `json:"suggestions"`
	Timestamp    time.Time   `json:"timestamp"`
}

type ConversationInsights struct {
	TotalMessages     int           `json:"total_messages"`
	MoodProgression   []models.Mood `json:"mood_progression"`
	CommonSuggestions []string      `json:"common_suggestions"`
	StartedAt         time.Time     `json:"started_at"`
	LastUpdated       time.Time     `json:"last_updated"`
}

type Conversation struct {
	ConversationID string               `json:"conversation_id"`
	Messages       []Message            `json:"messages"`
	Insights       ConversationInsights `json:"insights"`
}

// Conversation returns every turn of one conversation oldest first.
func (s *Service) Conversation(ctx context.Context, user models.UserID, conversationID string) (Conversation, error) {
	turns, err := s.turns(ctx, user, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if len(turns) == 0 {
		return Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, models.ErrNotFound)
	}

	c := Conversation{ConversationID: conversationID}
	counts := map[string]int{}
	var order []string
	for _, e := range turns {
		c.Messages = append(c.Messages, Message{
			ID:           e.ID,
			Message:      e.Chat.Message,
			Response:     e.Chat.Response,
			MoodDetected: e.Chat.MoodDetected,
			Suggestions:  e.Chat.Suggestions,
			Timestamp:    e.Timestamp,
		})
		if e.Chat.MoodDetected != "" {
			c.Insights.MoodProgression = append(c.Insights.MoodProgression, e.Chat.MoodDetected)
		}
		for _, sg := range e.Chat.Suggestions {
			if counts[sg] == 0 {
				order = append(order, sg)
			}
			counts[sg]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return cmp.Compare(counts[b], counts[a]) })

	c.Insights.TotalMessages = len(turns)
	c.Insights.CommonSuggestions = order[:min(len(order), commonSuggestions)]
	c.Insights.StartedAt = turns[0].Timestamp
	c.Insights.LastUpdated = turns[len(turns)-1].Timestamp
	return c, nil
}
