package ai

import (
	"context"
	"strings"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// Mock is a keyword based analyzer, recommender and chat responder for local
// mode. It never
// fails and needs no credentials.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"exam_anxiety", []string{"exam", "test", "grade"}},
	{"procrastination", []string{"procrastinat", "put off", "deadline"}},
	{"sleep", []string{"sleep", "insomnia", "tired"}},
	{"loneliness", []string{"lonely", "alone", "isolated"}},
	{"burnout", []string{"burnout", "burned out", "exhausted", "overwhelmed"}},
}

var moodKeywords = []struct {
	mood  models.Mood
	words []string
}{
	{models.MoodAnxious, []string{"anxious", "worried", "nervous", "panic"}},
	{models.MoodStressed, []string{"stress", "pressure", "overwhelmed"}},
	{models.MoodSad, []string{"sad", "down", "cry", "lonely"}},
	{models.MoodHappy, []string{"happy", "great", "grateful", "excited"}},
}

var highRiskPhrases = []string{"hurt myself", "self-harm", "end it all", "kill myself", "no reason to live"}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (m *Mock) Analyze(_ context.Context, text string) (models.JournalInsight, error) {
	lower := strings.ToLower(text)

	in := models.JournalInsight{
		Mood:       models.MoodNeutral,
		Confidence: 0.6,
		Risk:       models.RiskLow,
		Message:    "Thank you for sharing your thoughts. Remember that every feeling is valid.",
	}
	for _, mk := range moodKeywords {
		if containsAny(lower, mk.words) {
			in.Mood = mk.mood
			break
		}
	}
	for _, ck := range categoryKeywords {
		if containsAny(lower, ck.words) {
			in.Categories = append(in.Categories, ck.category)
		}
	}
	if len(in.Categories) == 0 {
		in.Categories = []string{"general"}
	}

	switch {
	case containsAny(lower, highRiskPhrases):
		in.Risk = models.RiskHigh
		in.Message = "It sounds like you're carrying a lot right now. You deserve support."
	case in.Mood == models.MoodAnxious || in.Mood == models.MoodStressed:
		in.Risk = models.RiskModerate
	}

	in.Recommendations = []models.Recommendation{{Type: "breathing", Title: "5-minute deep breathing", DurationMin: 5}}
	if in.Mood == models.MoodSad {
		in.Recommendations = append(in.Recommendations,
			models.Recommendation{Type: "social", Title: "Message a friend", DurationMin: 10})
	}
	return in, nil
}

// SuggestTasks leans towards calming activities when recent stress is high.
func (m *Mock) SuggestTasks(_ context.Context, rc models.RecommendationContext) ([]models.TaskSuggestion, error) {
	stressed := false
	for _, s := range rc.RecentMoods {
		if s.Stress >= 7 || s.Mood == models.MoodAnxious || s.Mood == models.MoodStressed {
			stressed = true
			break
		}
	}

	out := []models.TaskSuggestion{
		{Type: "breathing", Title: "Box breathing", EstimatedMinutes: 5,
			Description: "Breathe in for four, hold for four, out for four", CTAType: "timer"},
		{Type: "journaling", Title: "Evening check-in", EstimatedMinutes: 10,
			Description: "Write about one thing that went well today", CTAType: "prompt"},
	}
	if stressed {
		out = append(out, models.TaskSuggestion{Type: "mindfulness", Title: "Body scan", EstimatedMinutes: 10,
			Description: "Slowly notice each part of your body from head to toe", CTAType: "timer"})
	} else {
		out = append(out, models.TaskSuggestion{Type: "movement", Title: "Stretch break", EstimatedMinutes: 10,
			Description: "Stand up and stretch for a few minutes", CTAType: "activity"})
	}
	if len(rc.RecentCategories) > 0 && rc.RecentCategories[0] == "loneliness" {
		out = append(out, models.TaskSuggestion{Type: "social", Title: "Reach out", EstimatedMinutes: 15,
			Description: "Call or message someone you trust", CTAType: "activity"})
	}
	return out, nil
}

var moodReplies = map[models.Mood]models.ChatReply{
	models.MoodAnxious: {
		Response:    "That sounds really unsettling. Anxiety can feel huge in the moment, but it does pass. Would it help to slow down together for a minute?",
		Suggestions: []string{"Try box breathing for two minutes", "Name five things you can see right now"},
	},
	models.MoodStressed: {
		Response:    "It sounds like there's a lot on your plate. Let's see if we can make it feel a bit lighter.",
		Suggestions: []string{"Pick one small task to finish first", "Take a short walk to reset"},
	},
	models.MoodSad: {
		Response:    "I'm sorry you're feeling down. It's okay to have days like this, and you don't have to go through them alone.",
		Suggestions: []string{"Reach out to someone you trust", "Write down one thing that went okay today"},
	},
	models.MoodHappy: {
		Response:    "I love hearing that! What do you think made today feel good?",
		Suggestions: []string{"Note what went well in your journal", "Share the good news with a friend"},
	},
}

// Reply answers with a canned message for the mood the text suggests.
func (m *Mock) Reply(_ context.Context, message string, _ []models.ChatTurn) (models.ChatReply, error) {
	lower := strings.ToLower(message)
	for _, mk := range moodKeywords {
		if !containsAny(lower, mk.words) {
			continue
		}
		reply := moodReplies[mk.mood]
		reply.MoodDetected = mk.mood
		if containsAny(lower, highRiskPhrases) {
			reply.Response = "It sounds like you're carrying a lot right now. You deserve support, please reach out to someone you trust or a helpline."
		}
		return reply, nil
	}
	return models.FallbackChatReply(), nil
}
