// Package ai adapts generative models to the journal analyzer and task
// recommender ports.
package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	DefaultAnalysisModel  = "gemini-2.5-pro"
	DefaultRecommendModel = "gemini-2.5-flash"
)

type Config struct {
	// APIKey selects the Gemini API. Without it Project and Location select
	// Vertex AI.
	APIKey         string
	Project        string
	Location       string
	AnalysisModel  string
	RecommendModel string
}

// GeminiClient implements models.JournalAnalyzer, models.Recommender and
// models.ChatResponder.
type GeminiClient struct {
	client         *genai.Client
	analysisModel  string
	recommendModel string
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("either an API key or a project and location are required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	g := &GeminiClient{
		client:         client,
		analysisModel:  cfg.AnalysisModel,
		recommendModel: cfg.RecommendModel,
	}
	if g.analysisModel == "" {
		g.analysisModel = DefaultAnalysisModel
	}
	if g.recommendModel == "" {
		g.recommendModel = DefaultRecommendModel
	}
	return g, nil
}

// Analyze implements models.JournalAnalyzer.
func (g *GeminiClient) Analyze(ctx context.Context, text string) (models.JournalInsight, error) {
	temp := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    insightSchema,
	}
	contents := []*genai.Content{genai.NewContentFromText("Analyze this journal entry: "+text, genai.RoleUser)}

	res, err := g.client.Models.GenerateContent(ctx, g.analysisModel, contents, cfg)
	if err != nil {
		return models.JournalInsight{}, fmt.Errorf("gemini analyze: %w", err)
	}
	out := res.Text()
	if out == "" {
		return models.JournalInsight{}, fmt.Errorf("gemini returned empty text")
	}

	var insight models.JournalInsight
	if err := decodeJSON(out, &insight); err != nil {
		return models.JournalInsight{}, err
	}
	return insight, nil
}

// SuggestTasks implements models.Recommender.
func (g *GeminiClient) SuggestTasks(ctx context.Context, rc models.RecommendationContext) ([]models.TaskSuggestion, error) {
	prompt, err := recommendPrompt(rc)
	if err != nil {
		return nil, err
	}
	temp := float32(0.8)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(recommendSystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		ResponseMIMEType:  "application/json",
	}

	res, err := g.client.Models.GenerateContent(ctx, g.recommendModel, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini suggest tasks: %w", err)
	}
	out := res.Text()
	if out == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	var suggestions []models.TaskSuggestion
	if err := decodeJSON(out, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Reply implements models.ChatResponder.
func (g *GeminiClient) Reply(ctx context.Context, message string, history []models.ChatTurn) (models.ChatReply, error) {
	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    chatSchema,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.recommendModel, genai.Text(chatPrompt(message, history)), cfg)
	if err != nil {
		return models.ChatReply{}, fmt.Errorf("gemini chat: %w", err)
	}
	out := res.Text()
	if out == "" {
		return models.ChatReply{}, fmt.Errorf("gemini returned empty text")
	}

	var reply models.ChatReply
	if err := decodeJSON(out, &reply); err != nil {
		return models.ChatReply{}, err
	}
	return reply, nil
}
