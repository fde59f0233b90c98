package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const analysisSystemPrompt = `You are a compassionate mental health assistant for young people.
Analyze the journal entry and respond only with JSON matching the schema.

For recommendations, suggest practical activities such as breathing exercises (5-10 minutes),
light physical activity (10-30 minutes), journaling prompts, mindfulness exercises,
study techniques or social connection activities.

Always use supportive, non-diagnostic language. If you detect high risk (thoughts of self-harm,
severe depression symptoms) set risk to "high" and include an encouraging message about seeking support.`

const recommendSystemPrompt = `You plan a short list of daily wellness activities for a young person.
Suggest 3 to 5 activities mixing mindfulness or breathing (5-15 min), physical activity (10-30 min),
creative or journaling activities (10-20 min), social connection and study techniques.
Respond only with a JSON array of objects with the fields type, title, estimated_minutes,
description and cta_type. cta_type is one of timer, prompt or activity.`

const chatSystemPrompt = `You are Glowra, a compassionate companion for young people's mental wellness.
Be warm, empathetic and supportive, and use age-appropriate language. Offer practical coping
strategies and encouragement, validate emotions and suggest practical next steps.
Never provide a medical diagnosis or replace professional help. If someone mentions self-harm
or severe distress, gently encourage them to seek help from someone they trust.`

// chatHistoryTurns is how many earlier turns the responder sees.
const chatHistoryTurns = 5

// insightSchema constrains the analysis response to models.JournalInsight.
var insightSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"mood": {Type: genai.TypeString, Enum: []string{"happy", "sad", "stressed", "anxious", "neutral"}},
		"categories": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Relevant categories like exam_anxiety, procrastination, sleep, loneliness, burnout",
		},
		"confidence": {Type: genai.TypeNumber, Description: "Confidence between 0 and 1"},
		"recommendations": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":         {Type: genai.TypeString},
					"title":        {Type: genai.TypeString},
					"duration_min": {Type: genai.TypeInteger},
					"resource_url": {Type: genai.TypeString},
				},
				Required: []string{"type", "title", "duration_min"},
			},
		},
		"risk":    {Type: genai.TypeString, Enum: []string{"low", "moderate", "high"}},
		"message": {Type: genai.TypeString, Description: "Kind, validating reflection in 1-2 sentences"},
	},
	Required: []string{"mood", "categories", "confidence", "recommendations", "risk", "message"},
}

var chatSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"response":      {Type: genai.TypeString, Description: "Supportive reply in a few sentences"},
		"mood_detected": {Type: genai.TypeString, Enum: []string{"happy", "sad", "stressed", "anxious", "neutral"}},
		"suggestions": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Up to three short, practical next steps",
		},
	},
	Required: []string{"response", "mood_detected", "suggestions"},
}

func chatPrompt(message string, history []models.ChatTurn) string {
	if len(history) > chatHistoryTurns {
		history = history[len(history)-chatHistoryTurns:]
	}
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Message, t.Response)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Current message: %s\n\n", message)
	b.WriteString("Provide a supportive response that acknowledges their feelings and offers helpful guidance.")
	return b.String()
}

func recommendPrompt(rc models.RecommendationContext) (string, error) {
	data, err := json.Marshal(rc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Recent wellness data for %s:\n%s", rc.Date, data), nil
}

// decodeJSON unmarshals a model response, tolerating a surrounding
// markdown code fence.
func decodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}
