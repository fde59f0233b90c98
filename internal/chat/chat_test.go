package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/ai"
	"github.com/Shreya-nipunge/Glowra/internal/chat"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/store/memory"
)

type stubResponder struct {
	reply    models.ChatReply
	err      error
	lastTurn []models.ChatTurn
}

func (r *stubResponder) Reply(_ context.Context, _ string, history []models.ChatTurn) (models.ChatReply, error) {
	r.lastTurn = history
	return r.reply, r.err
}

type fixture struct {
	svc      *chat.Service
	activity *activity.Service
	events   *memory.EventStore
	ledger   *gamification.Ledger
	now      *time.Time
}

func newFixture(responder models.ChatResponder) fixture {
	now := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	events := memory.NewEventStore()
	ledger := gamification.NewLedger(memory.NewLedgerStore(), 0, nil)
	progression := gamification.NewProgression(ledger, activity.NewAccessor(events), nil, gamification.WithClock(clock))
	return fixture{
		svc:      chat.NewService(events, progression, chat.Options{Responder: responder, Clock: clock}),
		activity: activity.NewService(events, progression, activity.Options{Analyzer: ai.NewMock(), Clock: clock}),
		events:   events,
		ledger:   ledger,
		now:      &now,
	}
}

func (f fixture) advance(d time.Duration) { *f.now = f.now.Add(d) }

func TestSendValidatesMessage(t *testing.T) {
	f := newFixture(nil)
	tests := []struct {
		name    string
		message string
	}{
		{"empty", ""},
		{"blank", "   \n"},
		{"too long", strings.Repeat("a", models.MaxChatMessageLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Send(context.Background(), "u1", "", tt.message); !errors.Is(err, models.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	st, _ := f.ledger.Get(context.Background(), "u1")
	if st.Points != 0 {
		t.Fatalf("rejected messages earned %d points", st.Points)
	}
}

func TestSendContinuesConversation(t *testing.T) {
	r := &stubResponder{reply: models.ChatReply{
		Response: "That sounds hard.", MoodDetected: models.MoodStressed, Suggestions: []string{"Take a walk"},
	}}
	f := newFixture(r)
	ctx := context.Background()

	first, err := f.svc.Send(ctx, "u1", "", "exams are piling up")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first.ConversationID == "" || first.Response != "That sounds hard." || first.MoodDetected != models.MoodStressed {
		t.Fatalf("unexpected result %+v", first)
	}
	if first.PointsEarned != chat.MessagePoints || first.TotalPoints != chat.MessagePoints {
		t.Fatalf("expected %d points, got %+v", chat.MessagePoints, first)
	}
	if len(r.lastTurn) != 0 {
		t.Fatalf("a new conversation should carry no history, got %d turns", len(r.lastTurn))
	}

	f.advance(time.Minute)
	second, err := f.svc.Send(ctx, "u1", first.ConversationID, "and I can't focus")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected the same conversation, got %s", second.ConversationID)
	}
	if len(r.lastTurn) != 1 || r.lastTurn[0].Message != "exams are piling up" || r.lastTurn[0].Response != "That sounds hard." {
		t.Fatalf("unexpected history %+v", r.lastTurn)
	}

	if _, err := f.svc.Send(ctx, "u1", "no-such-conversation", "hello"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Send(ctx, "u2", first.ConversationID, "hello"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected another user's conversation to be not found, got %v", err)
	}

	st, _ := f.ledger.Get(ctx, "u1")
	if st.Points != 2*chat.MessagePoints || st.StreakDays != 0 {
		t.Fatalf("unexpected ledger state %+v", st)
	}
	turns, _ := f.events.QueryEvents(ctx, "u1", models.EventFilter{Kind: models.KindChat})
	if len(turns) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(turns))
	}
}

func TestSendFallsBackWhenResponderFails(t *testing.T) {
	tests := []struct {
		name      string
		responder models.ChatResponder
	}{
		{"no responder", nil},
		{"responder error", &stubResponder{err: errors.New("quota exceeded")}},
		{"empty response", &stubResponder{reply: models.ChatReply{MoodDetected: models.MoodHappy}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.responder)
			res, err := f.svc.Send(context.Background(), "u1", "", "hi")
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			want := models.FallbackChatReply()
			if res.Response != want.Response || res.MoodDetected != models.MoodNeutral || len(res.Suggestions) != len(want.Suggestions) {
				t.Fatalf("expected the fallback reply, got %+v", res)
			}
			if res.PointsEarned != chat.MessagePoints {
				t.Fatalf("expected the message to be credited, got %d", res.PointsEarned)
			}
		})
	}
}

func TestConversations(t *testing.T) {
	f := newFixture(&stubResponder{reply: models.ChatReply{Response: "ok", MoodDetected: models.MoodNeutral}})
	ctx := context.Background()

	a, _ := f.svc.Send(ctx, "u1", "", "first conversation")
	f.advance(time.Minute)
	long := strings.Repeat("é", 150)
	b, _ := f.svc.Send(ctx, "u1", "", long)
	f.advance(time.Minute)
	if _, err := f.svc.Send(ctx, "u1", a.ConversationID, "back to the first"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := f.svc.Conversations(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].ConversationID != a.ConversationID || got[0].MessageCount != 2 || got[0].LatestMessage != "back to the first" {
		t.Fatalf("unexpected latest conversation %+v", got[0])
	}
	if got[1].ConversationID != b.ConversationID || got[1].LatestMessage != strings.Repeat("é", 100)+"..." {
		t.Fatalf("expected a truncated preview, got %+v", got[1])
	}

	limited, _ := f.svc.Conversations(ctx, "u1", 1)
	if len(limited) != 1 || limited[0].MessageCount != 2 {
		t.Fatalf("unexpected limited list %+v", limited)
	}
	none, _ := f.svc.Conversations(ctx, "u2", 0)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected an empty list, got %+v", none)
	}
}

func TestConversation(t *testing.T) {
	r := &stubResponder{}
	f := newFixture(r)
	ctx := context.Background()

	replies := []models.ChatReply{
		{Response: "one", MoodDetected: models.MoodSad, Suggestions: []string{"Journal", "Walk"}},
		{Response: "two", MoodDetected: models.MoodNeutral, Suggestions: []string{"Walk"}},
		{Response: "three", MoodDetected: models.MoodHappy, Suggestions: []string{"Call a friend", "Walk"}},
	}
	start := *f.now
	var id string
	for i, reply := range replies {
		if i > 0 {
			f.advance(time.Minute)
		}
		r.reply = reply
		res, err := f.svc.Send(ctx, "u1", id, "message")
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		id = res.ConversationID
	}

	c, err := f.svc.Conversation(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(c.Messages) != 3 || c.Messages[0].Response != "one" || c.Messages[2].Response != "three" {
		t.Fatalf("expected messages oldest first, got %+v", c.Messages)
	}
	in := c.Insights
	if in.TotalMessages != 3 || !in.StartedAt.Equal(start) || !in.LastUpdated.Equal(start.Add(2*time.Minute)) {
		t.Fatalf("unexpected insights %+v", in)
	}
	if len(in.MoodProgression) != 3 || in.MoodProgression[0] != models.MoodSad || in.MoodProgression[2] != models.MoodHappy {
		t.Fatalf("unexpected mood progression %v", in.MoodProgression)
	}
	if len(in.CommonSuggestions) != 3 || in.CommonSuggestions[0] != "Walk" || in.CommonSuggestions[1] != "Journal" {
		t.Fatalf("expected the most frequent suggestion first, got %v", in.CommonSuggestions)
	}

	if _, err := f.svc.Conversation(ctx, "u1", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSuggestions(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	got, err := f.svc.Suggestions(ctx, "u1")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got.Suggestions) != 5 || got.Suggestions[0] != "How are you feeling today?" || got.Context.RecentMood != "" {
		t.Fatalf("expected the default starters, got %+v", got)
	}

	if _, err := f.activity.LogMood(ctx, "u1", models.MoodPayload{Mood: models.MoodStressed, Energy: 4, Stress: 8}); err != nil {
		t.Fatalf("LogMood: %v", err)
	}
	if _, err := f.activity.LogJournal(ctx, "u1", "I can't sleep before my exam and feel so tired"); err != nil {
		t.Fatalf("LogJournal: %v", err)
	}

	got, _ = f.svc.Suggestions(ctx, "u1")
	if got.Context.RecentMood != models.MoodStressed {
		t.Fatalf("expected the recent mood in context, got %+v", got.Context)
	}
	if len(got.Suggestions) != 8 {
		t.Fatalf("expected 8 starters, got %d: %v", len(got.Suggestions), got.Suggestions)
	}
	if got.Suggestions[0] != "I'm feeling stressed about upcoming exams" ||
		got.Suggestions[3] != "I need help preparing for exams" ||
		got.Suggestions[4] != "I'm having trouble with my sleep schedule" {
		t.Fatalf("unexpected order %v", got.Suggestions)
	}

	f.advance(8 * 24 * time.Hour)
	got, _ = f.svc.Suggestions(ctx, "u1")
	if got.Context.RecentMood != "" {
		t.Fatalf("expected moods older than a week to be ignored, got %s", got.Context.RecentMood)
	}
}
