package chat

import (
	"context"
	"slices"
	"time"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

var defaultStarters = []string{
	"How are you feeling today?",
	"What's been on your mind lately?",
	"I'd like some tips for managing stress",
	"Can you help me with study motivation?",
	"I want to talk about my goals",
}

var moodStarters = map[models.Mood][]string{
	models.MoodStressed: {
		"I'm feeling stressed about upcoming exams",
		"Can you suggest some relaxation techniques?",
		"How can I manage my anxiety better?",
	},
	models.MoodAnxious: {
		"I'm feeling stressed about upcoming exams",
		"Can you suggest some relaxation techniques?",
		"How can I manage my anxiety better?",
	},
	models.MoodSad: {
		"I've been feeling down lately",
		"How can I boost my mood?",
		"I need some encouragement today",
	},
	models.MoodHappy: {
		"I'm having a great day! How can I maintain this?",
		"What are some ways to spread positivity?",
		"I want to celebrate my progress",
	},
}

var categoryStarters = []struct {
	category string
	starter  string
}{
	{"exam_anxiety", "I need help preparing for exams"},
	{"sleep", "I'm having trouble with my sleep schedule"},
	{"loneliness", "I've been feeling lonely lately"},
}

type StarterContext struct {
	RecentMood       models.Mood `json:"recent_mood,omitempty"`
	RecentCategories []string    `json:"recent_categories"`
}

type Starters struct {
	Suggestions []string       `json:"suggestions"`
	Context     StarterContext `json:"context"`
}

// Suggestions proposes conversation starters from the latest mood of the
// past week and the categories of the latest journal entry.
func (s *Service) Suggestions(ctx context.Context, user models.UserID) (Starters, error) {
	moods, err := s.accessor.Moods(ctx, user, s.now().Add(-suggestionWindow), time.Time{}, 1)
	if err != nil {
		return Starters{}, err
	}
	journals, err := s.accessor.Journals(ctx, user, time.Time{}, 1)
	if err != nil {
		return Starters{}, err
	}

	out := Starters{Context: StarterContext{RecentCategories: []string{}}}
	var candidates []string
	if len(moods) > 0 {
		out.Context.RecentMood = moods[0].Mood.Mood
		candidates = append(candidates, moodStarters[out.Context.RecentMood]...)
	}
	if len(journals) > 0 {
		out.Context.RecentCategories = journals[0].Journal.Insight.Categories
		for _, cs := range categoryStarters {
			if slices.Contains(out.Context.RecentCategories, cs.category) {
				candidates = append(candidates, cs.starter)
			}
		}
	}
	candidates = append(candidates, defaultStarters...)

	for _, c := range candidates {
		if len(out.Suggestions) == maxStarters {
			break
		}
		if !slices.Contains(out.Suggestions, c) {
			out.Suggestions = append(out.Suggestions, c)
		}
	}
	return out, nil
}
